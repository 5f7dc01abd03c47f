package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filepilot/internal/config"
	"filepilot/internal/consumer"
	"filepilot/internal/daemon"
	"filepilot/internal/ipc"
	"filepilot/internal/logging"
	"filepilot/internal/suggestions"
	"filepilot/internal/testsupport"
)

type idleSession struct{}

func (idleSession) Next(ctx context.Context) (consumer.Delivery, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (idleSession) Close() error { return nil }

type cliTestEnv struct {
	cfg        *config.Config
	store      *suggestions.Store
	daemon     *daemon.Daemon
	socketPath string
	configPath string
}

// newCLIConfig writes a config file for a fresh temp layout and returns it
// without starting a daemon.
func newCLIConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return cfg, configPath
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg, configPath := newCLIConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	d, err := daemon.New(cfg, store, logger,
		daemon.WithDialer(func(context.Context) (consumer.Session, error) { return idleSession{}, nil }))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon Start: %v", err)
	}

	sockDir, err := os.MkdirTemp("", "fp-cli")
	if err != nil {
		cancel()
		t.Fatalf("MkdirTemp: %v", err)
	}
	socketPath := filepath.Join(sockDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Stop()
		_ = os.RemoveAll(sockDir)
	})

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		socketPath: socketPath,
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if socket != "" {
		flags = append(flags, "--socket", socket)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\n\n[broker]\nurl = %q\n\n[surface]\nbind = %q\nui_dir = %q\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		"amqp://127.0.0.1:1",
		cfg.Surface.Bind,
		cfg.Surface.UIDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
