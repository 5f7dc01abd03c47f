package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"filepilot/internal/api"
	"filepilot/internal/ipc"
)

func newSuggestionsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "suggestions",
		Aliases: []string{"s"},
		Short:   "Review pending placement suggestions",
	}
	cmd.AddCommand(newSuggestionsListCommand(ctx))
	cmd.AddCommand(newSuggestionsDeleteCommand(ctx))
	cmd.AddCommand(newSuggestionsAcceptCommand(ctx))
	return cmd
}

func newSuggestionsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List pending suggestions, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SuggestionList()
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if len(resp.Suggestions) == 0 {
					fmt.Fprintln(out, "No pending suggestions")
					return nil
				}
				fmt.Fprintln(out, renderSuggestions(resp.Suggestions))
				return nil
			})
		},
	}
}

func renderSuggestions(list []api.SuggestionDTO) string {
	rows := make([][]string, 0, len(list))
	for _, s := range list {
		size := "-"
		if s.FileSize >= 0 {
			size = humanize.IBytes(uint64(s.FileSize))
		}
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.FileName,
			size,
			s.CurrentPath,
			strings.Join(s.SuggestedPaths, "\n"),
			s.ReceivedAt,
		})
	}
	return renderTable(
		[]string{"ID", "File", "Size", "Current path", "Suggested paths", "Received"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight},
	)
}

func parseIDArg(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid suggestion id %q", raw)
	}
	return id, nil
}

func newSuggestionsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Dismiss suggestions by id",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseIDArg(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				for _, id := range ids {
					if _, err := client.SuggestionDelete(id); err != nil {
						return fmt.Errorf("delete suggestion %d: %w", id, err)
					}
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"deleted": ids})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d suggestion(s)\n", len(ids))
				return nil
			})
		},
	}
}

func newSuggestionsAcceptCommand(ctx *commandContext) *cobra.Command {
	var destination string

	cmd := &cobra.Command{
		Use:   "accept <id>",
		Short: "Move the file to a suggested path through the organizer",
		Long: "Accept commits the file to one of its suggested destinations. When the " +
			"suggestion has a single path --to may be omitted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				dest := strings.TrimSpace(destination)
				if dest == "" {
					dest, err = onlySuggestedPath(client, id)
					if err != nil {
						return err
					}
				}
				if _, err := client.SuggestionAccept(id, dest); err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"accepted": id, "destination": dest})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Accepted suggestion %d -> %s\n", id, dest)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&destination, "to", "", "Destination (must be one of the suggested paths)")
	return cmd
}

func onlySuggestedPath(client *ipc.Client, id int64) (string, error) {
	resp, err := client.SuggestionList()
	if err != nil {
		return "", err
	}
	for _, s := range resp.Suggestions {
		if s.ID != id {
			continue
		}
		if len(s.SuggestedPaths) == 1 {
			return s.SuggestedPaths[0], nil
		}
		return "", fmt.Errorf("suggestion %d has %d paths; choose one with --to", id, len(s.SuggestedPaths))
	}
	return "", errors.New("suggestion not found")
}
