package daemonctl_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"filepilot/internal/daemonctl"
	"filepilot/internal/testsupport"
)

func TestConnectWithoutDaemon(t *testing.T) {
	_, err := daemonctl.Connect(filepath.Join(t.TempDir(), "missing.sock"))
	if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestStatusSnapshotOfflineCountsStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewSuggestion(t, store, "a.pdf", "/docs")
	testsupport.NewSuggestion(t, store, "b.pdf", "/docs")

	status, err := daemonctl.BuildStatusSnapshot(context.Background(), cfg.SocketPath(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if status.Running {
		t.Fatal("expected offline status")
	}
	if status.Suggestions != 2 {
		t.Fatalf("suggestions = %d, want 2", status.Suggestions)
	}
	if status.Consumer.State != "stopped" {
		t.Fatalf("consumer state = %q", status.Consumer.State)
	}
}

func TestStatusSnapshotWithoutDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	status, err := daemonctl.BuildStatusSnapshot(context.Background(), cfg.SocketPath(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if status.Suggestions != 0 || status.LastError != "" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestDatabaseHealthOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	health, err := daemonctl.DatabaseHealth(context.Background(), cfg.SocketPath(), cfg)
	if err != nil {
		t.Fatalf("DatabaseHealth: %v", err)
	}
	if health.DatabaseExists || health.Error == "" {
		t.Fatalf("expected missing database report, got %+v", health)
	}

	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewSuggestion(t, store, "a.pdf", "/docs")
	health, err = daemonctl.DatabaseHealth(context.Background(), cfg.SocketPath(), cfg)
	if err != nil {
		t.Fatalf("DatabaseHealth: %v", err)
	}
	if !health.IntegrityCheck || health.TotalSuggestions != 1 {
		t.Fatalf("unexpected health %+v", health)
	}
}
