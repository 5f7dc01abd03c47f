package main

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"filepilot/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Publish a test alert to the configured ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}
				if resp == nil {
					return errors.New("daemon returned no notification result")
				}
				if ctx.jsonOutput() {
					if err := writeJSON(cmd, resp); err != nil {
						return err
					}
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), renderNotificationResult(cmd, resp))
				}
				if resp.Error != "" {
					return fmt.Errorf("test notification failed: %s", resp.Error)
				}
				return nil
			})
		},
	}
}

func renderNotificationResult(cmd *cobra.Command, resp *ipc.TestNotificationResponse) string {
	out := cmd.OutOrStdout()
	topic := resp.Topic
	if topic == "" {
		topic = colorize(out, text.FgYellow, "not configured")
	}
	result := colorize(out, text.FgGreen, "sent")
	switch {
	case resp.Error != "":
		result = colorize(out, text.FgRed, "failed")
	case !resp.Sent:
		result = colorize(out, text.FgYellow, "skipped")
	}
	rows := [][]string{
		{"ntfy topic", topic},
		{"Result", result},
		{"Detail", resp.Message},
	}
	if resp.Error != "" {
		rows = append(rows, []string{"Error", resp.Error})
	}
	return renderTable([]string{"Check", "Result"}, rows, nil)
}
