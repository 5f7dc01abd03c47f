package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"filepilot/internal/config"
	"filepilot/internal/organizer"
)

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "organize",
		Short: "Call the organizer service directly",
	}
	cmd.AddCommand(newOrganizePlanCommand(ctx))
	cmd.AddCommand(newOrganizeCommitCommand(ctx))
	return cmd
}

func organizerClient(ctx *commandContext) (*organizer.Client, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	client := organizer.NewClient(cfg.Organizer)
	if !client.Configured() {
		return nil, errors.New("organizer.base_url is not configured")
	}
	return client, nil
}

func newOrganizePlanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <dir>",
		Short: "Ask the organizer for a reorganization plan of a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := organizerClient(ctx)
			if err != nil {
				return err
			}
			dir, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			result, err := client.BatchOrganize(cmd.Context(), dir)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Status: %s\n", result.Status)
			if len(result.TreeStructure) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), string(result.TreeStructure))
			}
			return nil
		},
	}
}

func newOrganizeCommitCommand(ctx *commandContext) *cobra.Command {
	var base string

	cmd := &cobra.Command{
		Use:   "commit <src> <dst>",
		Short: "Move a file through the organizer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := organizerClient(ctx)
			if err != nil {
				return err
			}
			if base != "" {
				err = client.Commit(cmd.Context(), base, args[0], args[1])
			} else {
				err = client.CommitSuggestion(cmd.Context(), args[0], args[1])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %s -> %s\n", args[0], args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "Base directory; src and dst are then relative to it")
	return cmd
}
