package daemonctl

import (
	"context"
	"errors"
	"os"
	"syscall"
	"time"

	"filepilot/internal/config"
	"filepilot/internal/ipc"
	"filepilot/internal/suggestions"
)

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running (start it with `filepilot run`)")

// Connect dials the daemon socket, mapping a missing or refusing socket to
// ErrDaemonNotRunning.
func Connect(socketPath string) (*ipc.Client, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return nil, ErrDaemonNotRunning
		}
		return nil, err
	}
	return client, nil
}

// BuildStatusSnapshot collects daemon status, falling back to reading the
// store directly when the daemon is offline.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*ipc.StatusResponse, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}

	client, err := Connect(socketPath)
	if err == nil {
		defer client.Close()
		if resp, statusErr := client.Status(); statusErr == nil && resp != nil {
			return resp, nil
		}
	}

	resp := &ipc.StatusResponse{LockPath: cfg.LockPath()}
	resp.DatabasePath = cfg.DatabasePath()
	resp.Consumer.State = "stopped"
	resp.Consumer.Queue = cfg.Broker.Queue

	if _, statErr := os.Stat(cfg.DatabasePath()); statErr != nil {
		return resp, nil
	}
	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	store, openErr := suggestions.Open(cfg)
	if openErr != nil {
		resp.LastError = openErr.Error()
		return resp, nil
	}
	defer store.Close()
	if count, countErr := store.Count(queryCtx); countErr == nil {
		resp.Suggestions = count
	} else {
		resp.LastError = countErr.Error()
	}
	return resp, nil
}

// DatabaseHealth asks the daemon for diagnostics, or opens the store directly
// when the daemon is offline.
func DatabaseHealth(ctx context.Context, socketPath string, cfg *config.Config) (suggestions.DatabaseHealth, error) {
	client, err := Connect(socketPath)
	if err == nil {
		defer client.Close()
		resp, callErr := client.DatabaseHealth()
		if callErr != nil {
			return suggestions.DatabaseHealth{}, callErr
		}
		return resp.DatabaseHealth, nil
	}
	if !errors.Is(err, ErrDaemonNotRunning) {
		return suggestions.DatabaseHealth{}, err
	}

	if _, statErr := os.Stat(cfg.DatabasePath()); statErr != nil {
		return suggestions.DatabaseHealth{DBPath: cfg.DatabasePath(), Error: "database file not found"}, nil
	}
	store, openErr := suggestions.Open(cfg)
	if openErr != nil {
		return suggestions.DatabaseHealth{DBPath: cfg.DatabasePath(), DatabaseExists: true, Error: openErr.Error()}, nil
	}
	defer store.Close()
	return store.Health(ctx)
}

func isDaemonUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
