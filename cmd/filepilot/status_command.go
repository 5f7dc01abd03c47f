package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"filepilot/internal/daemonctl"
	"filepilot/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, consumer and store status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, status)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderStatus(cmd, status))
			return nil
		},
	}
}

func renderStatus(cmd *cobra.Command, status *ipc.StatusResponse) string {
	out := cmd.OutOrStdout()
	daemonLine := colorize(out, text.FgYellow, "not running (start with `filepilot run`)")
	if status.Running {
		daemonLine = colorize(out, text.FgGreen, fmt.Sprintf("running (pid %d)", status.PID))
	}

	rows := [][]string{
		{"Daemon", daemonLine},
		{"Consumer", status.Consumer.State},
		{"Queue", status.Consumer.Queue},
		{"Pending suggestions", strconv.Itoa(status.Suggestions)},
		{"Database", status.DatabasePath},
	}
	if status.Running {
		rows = append(rows,
			[]string{"Started", status.StartedAt},
			[]string{"Surface", status.SurfaceAddr},
			[]string{"Surface clients", strconv.Itoa(status.SurfaceClients)},
			[]string{"Retries tracked", strconv.Itoa(status.Consumer.PendingRetries)},
		)
	}
	if status.Consumer.LastError != "" {
		rows = append(rows, []string{"Broker error", colorize(out, text.FgRed, status.Consumer.LastError)})
	}
	if status.LastError != "" {
		rows = append(rows, []string{"Last error", colorize(out, text.FgRed, status.LastError)})
	}
	result := renderTable([]string{"Field", "Value"}, rows, nil) + "\n"

	if len(status.Consumer.Outcomes) > 0 {
		names := make([]string, 0, len(status.Consumer.Outcomes))
		for name := range status.Consumer.Outcomes {
			names = append(names, name)
		}
		sort.Strings(names)
		outcomeRows := make([][]string, 0, len(names))
		for _, name := range names {
			outcomeRows = append(outcomeRows, []string{name, strconv.FormatInt(status.Consumer.Outcomes[name], 10)})
		}
		result += renderTable([]string{"Outcome", "Deliveries"}, outcomeRows, []columnAlignment{alignLeft, alignRight}) + "\n"
	}
	return result
}
