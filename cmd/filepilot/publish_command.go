package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"filepilot/internal/consumer"
)

type publishOptions struct {
	fileName     string
	size         int64
	downloadDate string
	srcPath      string
	summary      string
	suggestions  []string
	bodyFile     string
	raw          bool
}

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var opts publishOptions

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a suggestion message to the broker",
		Long: "Publish sends a persistent suggestion message to the configured queue, the " +
			"same way the analysis backend does. Use --body-file to send a prepared JSON " +
			"body (\"-\" reads stdin); --raw skips local validation so malformed messages " +
			"can be exercised.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			payload, err := buildPublishPayload(cmd.InOrStdin(), opts)
			if err != nil {
				return err
			}
			if !opts.raw {
				if bad, ok := consumer.Parse(payload).(consumer.Malformed); ok {
					return fmt.Errorf("refusing to publish: %s (use --raw to send anyway)", bad.Reason)
				}
			}
			if err := consumer.Publish(cmd.Context(), cfg, payload); err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{"published": true, "queue": cfg.Broker.Queue, "bytes": len(payload)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published %d bytes to %s\n", len(payload), cfg.Broker.Queue)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.fileName, "file-name", "", "Display file name (defaults to the base name of --src)")
	flags.Int64Var(&opts.size, "size", 0, "File size in bytes (defaults to the size of --src when it exists)")
	flags.StringVar(&opts.downloadDate, "download-date", "", "Download date (defaults to now)")
	flags.StringVar(&opts.srcPath, "src", "", "Current location of the file")
	flags.StringVar(&opts.summary, "summary", "", "Content summary")
	flags.StringArrayVarP(&opts.suggestions, "suggest", "s", nil, "Suggested destination (repeatable)")
	flags.StringVar(&opts.bodyFile, "body-file", "", "Send this JSON body verbatim (\"-\" for stdin)")
	flags.BoolVar(&opts.raw, "raw", false, "Skip local validation of the message")
	return cmd
}

func buildPublishPayload(stdin io.Reader, opts publishOptions) ([]byte, error) {
	if opts.bodyFile != "" {
		if opts.bodyFile == "-" {
			return io.ReadAll(stdin)
		}
		return os.ReadFile(opts.bodyFile)
	}

	src := strings.TrimSpace(opts.srcPath)
	if src == "" {
		return nil, errors.New("--src or --body-file is required")
	}
	msg := consumer.Message{
		FileName:     strings.TrimSpace(opts.fileName),
		Size:         opts.size,
		DownloadDate: strings.TrimSpace(opts.downloadDate),
		SrcPath:      src,
		Summary:      opts.summary,
		Suggestions:  opts.suggestions,
	}
	if msg.FileName == "" {
		msg.FileName = filepath.Base(src)
	}
	if msg.Size == 0 {
		if info, err := os.Stat(src); err == nil && !info.IsDir() {
			msg.Size = info.Size()
		}
	}
	if msg.DownloadDate == "" {
		msg.DownloadDate = time.Now().UTC().Format(time.RFC3339)
	}
	return json.Marshal(msg)
}
