package ipc_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"filepilot/internal/consumer"
	"filepilot/internal/daemon"
	"filepilot/internal/ipc"
	"filepilot/internal/logging"
	"filepilot/internal/notifications"
	"filepilot/internal/testsupport"
)

type idleSession struct{}

func (idleSession) Next(ctx context.Context) (consumer.Delivery, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (idleSession) Close() error { return nil }

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	d, err := daemon.New(cfg, store, logger,
		daemon.WithDialer(func(context.Context) (consumer.Session, error) { return idleSession{}, nil }))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon Start: %v", err)
	}

	// Unix socket paths are length limited, so avoid the long per-test dir.
	sockDir, err := os.MkdirTemp("", "fp-ipc")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(sockDir) })
	socket := filepath.Join(sockDir, "filepilot.sock")

	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	info, err := os.Stat(socket)
	if err != nil {
		t.Fatalf("stat socket: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("socket permissions = %o, want 600", perm)
	}

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running || status.LockPath == "" {
		t.Fatalf("unexpected status %+v", status)
	}

	first := testsupport.NewSuggestion(t, store, "a.pdf", "/docs/a")
	testsupport.NewSuggestion(t, store, "b.pdf", "/docs/b")

	list, err := client.SuggestionList()
	if err != nil {
		t.Fatalf("SuggestionList: %v", err)
	}
	if len(list.Suggestions) != 2 || list.Suggestions[0].FileName != "a.pdf" {
		t.Fatalf("unexpected list %+v", list.Suggestions)
	}

	for i := 0; i < 2; i++ {
		resp, err := client.SuggestionDelete(first.ID)
		if err != nil {
			t.Fatalf("SuggestionDelete #%d: %v", i, err)
		}
		if !resp.Deleted {
			t.Fatalf("expected delete ack")
		}
	}

	if _, err := client.SuggestionDelete(-1); err == nil {
		t.Fatal("expected negative id to be rejected")
	}

	if _, err := client.SuggestionAccept(list.Suggestions[1].ID, "/elsewhere"); err == nil ||
		!strings.Contains(err.Error(), "destination") {
		t.Fatalf("expected destination validation error, got %v", err)
	}

	health, err := client.DatabaseHealth()
	if err != nil {
		t.Fatalf("DatabaseHealth: %v", err)
	}
	if !health.DatabaseExists || !health.IntegrityCheck || health.TotalSuggestions != 1 {
		t.Fatalf("unexpected health %+v", health.DatabaseHealth)
	}

	note, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if note.Sent {
		t.Fatal("expected no notification without a topic")
	}

	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()
	for {
		status, err = client.Status()
		if err != nil {
			t.Fatalf("Status RPC failed: %v", err)
		}
		if status.Consumer.State == string(consumer.StateConsuming) {
			break
		}
		select {
		case <-waitCtx.Done():
			t.Fatalf("consumer state = %q", status.Consumer.State)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

type failingNotifier struct{}

func (failingNotifier) Publish(context.Context, notifications.Event, notifications.Payload) error {
	return errors.New("ntfy returned 502")
}

func TestTestNotificationReportsPublishFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic("filepilot-alerts"))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, store, logging.NewNop(),
		daemon.WithDialer(func(context.Context) (consumer.Session, error) { return idleSession{}, nil }),
		daemon.WithNotifier(failingNotifier{}))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon Start: %v", err)
	}

	sockDir, err := os.MkdirTemp("", "fp-ipc")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(sockDir) })
	socket := filepath.Join(sockDir, "filepilot.sock")

	srv, err := ipc.NewServer(ctx, socket, d, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	resp, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification RPC: %v", err)
	}
	if resp.Sent || resp.Topic != "filepilot-alerts" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if !strings.Contains(resp.Error, "502") {
		t.Fatalf("expected publish error, got %q", resp.Error)
	}
}
