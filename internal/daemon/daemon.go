package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"filepilot/internal/api"
	"filepilot/internal/config"
	"filepilot/internal/consumer"
	"filepilot/internal/dispatch"
	"filepilot/internal/gate"
	"filepilot/internal/logging"
	"filepilot/internal/notifications"
	"filepilot/internal/organizer"
	"filepilot/internal/suggestions"
	"filepilot/internal/surface"
)

// Option customizes daemon collaborators, mostly for tests.
type Option func(*Daemon)

// WithDialer replaces the broker dialer used by the consumer.
func WithDialer(d consumer.Dialer) Option {
	return func(dm *Daemon) { dm.dialer = d }
}

// WithNotifier replaces the ntfy notifier built from config.
func WithNotifier(n notifications.Service) Option {
	return func(dm *Daemon) { dm.notifier = n }
}

// WithOrganizer replaces the organizer client used by the accept flow.
func WithOrganizer(c api.Committer) Option {
	return func(dm *Daemon) { dm.organizer = c }
}

// Daemon owns the consumer and surface server and enforces single-instance
// execution per store.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *suggestions.Store

	notifier   notifications.Service
	organizer  api.Committer
	dialer     consumer.Dialer
	gate       *gate.Gate
	dispatcher *dispatch.Dispatcher
	hub        *surface.Hub
	service    *api.Service
	consumer   *consumer.Consumer

	lockPath string
	lock     *flock.Flock

	mu        sync.Mutex
	running   atomic.Bool
	cancel    context.CancelFunc
	done      chan struct{}
	server    *surface.Server
	startedAt time.Time
	lastError string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *suggestions.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.notifier == nil {
		d.notifier = notifications.NewService(cfg)
	}
	if d.organizer == nil {
		d.organizer = organizer.NewClient(cfg.Organizer)
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	d.dispatcher = dispatch.New(logger, dispatch.WithNotifier(d.notifier, timeout))
	d.hub = surface.NewHub(256, d.surfaceClientsChanged)
	d.gate = gate.New(cfg, logger)
	d.service = api.NewService(store, d.gate, d.organizer, logger)

	consumerOpts := []consumer.Option{consumer.WithNotifier(d.notifier)}
	if d.dialer != nil {
		consumerOpts = append(consumerOpts, consumer.WithDialer(d.dialer))
	}
	d.consumer = consumer.New(cfg, store, d.dispatcher, logger, consumerOpts...)
	return d, nil
}

func (d *Daemon) surfaceClientsChanged(n int) {
	if n > 0 {
		d.dispatcher.Attach(d.hub)
		return
	}
	d.dispatcher.Detach()
}

// Start acquires the daemon lock, opens the surface server and launches the
// consumer loop.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another filepilot daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	server := surface.New(d.cfg.Surface.Bind, d.service, d.hub, d.gate, d.logger)
	if err := server.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start surface: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := d.consumer.Run(runCtx); err != nil {
			logging.ErrorWithContext(d.logger, "consumer exited", "consumer_exited",
				logging.Error(err),
				logging.String(logging.FieldImpact, "new suggestions are not ingested"),
				logging.String(logging.FieldErrorHint, "restart the daemon once the broker is reachable"),
			)
			d.mu.Lock()
			d.lastError = err.Error()
			d.mu.Unlock()
		}
	}()

	d.cancel = cancel
	d.done = done
	d.server = server
	d.startedAt = time.Now()
	d.lastError = ""
	d.running.Store(true)
	d.logger.Info("filepilot daemon started",
		logging.String("lock", d.lockPath),
		logging.String("surface", server.Addr()),
		logging.String("database", d.store.Path()),
	)
	return nil
}

// Stop halts the consumer and surface server and releases the daemon lock.
// Pending alert forwards are drained before returning.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running.Load() {
		d.mu.Unlock()
		return
	}
	cancel, done, server := d.cancel, d.done, d.server
	d.cancel, d.done, d.server = nil, nil, nil
	d.running.Store(false)
	d.mu.Unlock()

	cancel()
	<-done
	server.Stop()
	d.dispatcher.Detach()
	d.dispatcher.Wait()

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.logger.Info("filepilot daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	cs := d.consumer.Status()
	outcomes := make(map[string]int64, len(cs.Outcomes))
	for k, v := range cs.Outcomes {
		outcomes[string(k)] = v
	}

	d.mu.Lock()
	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		Consumer: api.ConsumerStatus{
			State:          string(cs.State),
			Queue:          cs.Queue,
			LastError:      cs.LastError,
			Outcomes:       outcomes,
			PendingRetries: cs.Pending,
		},
		SurfaceClients: d.hub.Clients(),
		LastError:      d.lastError,
	}
	if status.Running {
		status.StartedAt = api.FormatTime(d.startedAt)
		if d.server != nil {
			status.SurfaceAddr = d.server.Addr()
		}
	}
	d.mu.Unlock()

	count, err := d.store.Count(ctx)
	if err != nil {
		d.logger.Warn("count suggestions", logging.Error(err))
	} else {
		status.Suggestions = count
	}
	return status
}

// LockPath returns the path of the single-instance lock file.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// ListSuggestions returns pending suggestions oldest first. The CLI runs as
// the packaged surface, so calls go through the same gate as the UI.
func (d *Daemon) ListSuggestions(ctx context.Context) ([]api.SuggestionDTO, error) {
	return d.service.GetSuggestions(ctx, d.gate.PackagedURL())
}

// DeleteSuggestion removes a suggestion by id.
func (d *Daemon) DeleteSuggestion(ctx context.Context, id int64) error {
	return d.service.DeleteSuggestion(ctx, d.gate.PackagedURL(), api.DeleteArgs{ID: id})
}

// AcceptSuggestion commits a suggestion to one of its destinations.
func (d *Daemon) AcceptSuggestion(ctx context.Context, id int64, destination string) error {
	return d.service.AcceptSuggestion(ctx, d.gate.PackagedURL(), api.AcceptArgs{ID: id, Destination: destination})
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (suggestions.DatabaseHealth, error) {
	return d.store.Health(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg.Notifications.NtfyTopic == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Config returns the configuration the daemon was built with.
func (d *Daemon) Config() *config.Config {
	return d.cfg
}
