package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"filepilot/internal/daemonctl"
	"filepilot/internal/suggestions"
)

func newDBHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "db-health",
		Short: "Check the suggestion database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			health, err := daemonctl.DatabaseHealth(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, health)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderDatabaseHealth(health))
			if health.Error != "" {
				return fmt.Errorf("database unhealthy: %s", health.Error)
			}
			return nil
		},
	}
}

func renderDatabaseHealth(h suggestions.DatabaseHealth) string {
	missing := "none"
	if len(h.MissingColumns) > 0 {
		missing = strings.Join(h.MissingColumns, ", ")
	}
	rows := [][]string{
		{"Path", h.DBPath},
		{"Exists", yesNo(h.DatabaseExists)},
		{"Readable", yesNo(h.DatabaseReadable)},
		{"Schema version", strconv.Itoa(h.SchemaVersion)},
		{"Table present", yesNo(h.TableExists)},
		{"Missing columns", missing},
		{"Integrity check", yesNo(h.IntegrityCheck)},
		{"Suggestions", strconv.Itoa(h.TotalSuggestions)},
	}
	if h.Error != "" {
		rows = append(rows, []string{"Error", h.Error})
	}
	return renderTable([]string{"Check", "Result"}, rows, nil)
}
