package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"filepilot/internal/config"
	"filepilot/internal/logging"
	"filepilot/internal/metrics"
	"filepilot/internal/notifications"
)

// ConnectionError reports a broker dial, channel or subscription failure.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("broker %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ErrorKind classifies the error for status reporting.
func (e *ConnectionError) ErrorKind() string { return "connection" }

// Session is one live subscription to the suggestion queue.
type Session interface {
	// Next blocks until a delivery arrives, the session ends or ctx is done.
	Next(ctx context.Context) (Delivery, error)
	Close() error
}

// Dialer opens a new Session.
type Dialer func(ctx context.Context) (Session, error)

// State describes what the run loop is doing.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConsuming    State = "consuming"
	StateReconnecting State = "reconnecting"
	StateStopped      State = "stopped"
)

// Status is a snapshot of consumer activity.
type Status struct {
	State     State             `json:"state"`
	Queue     string            `json:"queue"`
	LastError string            `json:"lastError,omitempty"`
	Outcomes  map[Outcome]int64 `json:"outcomes"`
	Pending   int               `json:"pendingRetries"`
}

type stats struct {
	mu        sync.Mutex
	state     State
	lastError string
	outcomes  map[Outcome]int64
}

func (s *stats) record(o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcomes == nil {
		s.outcomes = make(map[Outcome]int64)
	}
	s.outcomes[o]++
}

func (s *stats) setState(state State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	if err != nil {
		s.lastError = err.Error()
	}
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithDialer replaces the AMQP dialer, mainly for tests.
func WithDialer(d Dialer) Option {
	return func(c *Consumer) { c.dial = d }
}

// WithNotifier sends an external alert whenever a message is dead-lettered.
func WithNotifier(n notifications.Service) Option {
	return func(c *Consumer) { c.notifier = n }
}

// WithBackOff overrides the reconnect policy.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Consumer) { c.newBackOff = newBackOff }
}

// Consumer reads the suggestion queue and stores what it receives.
type Consumer struct {
	queue       string
	maxAttempts int
	store       Store
	dispatcher  Dispatcher
	notifier    notifications.Service
	attempts    *attemptTracker
	dial        Dialer
	newBackOff  func() backoff.BackOff
	logger      *slog.Logger
	stats       stats
}

// New builds a consumer for cfg.Broker. It does not connect until Run.
func New(cfg *config.Config, store Store, dispatcher Dispatcher, logger *slog.Logger, opts ...Option) *Consumer {
	if logger == nil {
		logger = logging.NewNop()
	}
	maxAttempts := cfg.Broker.MaxDeliveryAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	initial, maxInterval := cfg.ReconnectInitial(), cfg.ReconnectMax()
	c := &Consumer{
		queue:       cfg.Broker.Queue,
		maxAttempts: maxAttempts,
		store:       store,
		dispatcher:  dispatcher,
		attempts:    newAttemptTracker(cfg.Broker.AttemptCacheSize),
		logger:      logging.NewComponentLogger(logger, "consumer"),
		stats:       stats{state: StateIdle},
	}
	c.dial = amqpDialer(cfg, c.logger)
	c.newBackOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initial
		b.MaxInterval = maxInterval
		b.MaxElapsedTime = 0
		return b
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status returns a snapshot of the consumer state.
func (c *Consumer) Status() Status {
	c.stats.mu.Lock()
	defer c.stats.mu.Unlock()
	outcomes := make(map[Outcome]int64, len(c.stats.outcomes))
	for k, v := range c.stats.outcomes {
		outcomes[k] = v
	}
	return Status{
		State:     c.stats.state,
		Queue:     c.queue,
		LastError: c.stats.lastError,
		Outcomes:  outcomes,
		Pending:   c.attempts.len(),
	}
}

// Run consumes until ctx is cancelled, reconnecting with backoff whenever the
// broker is unreachable or the subscription drops. It returns nil on shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	bo := c.newBackOff()
	c.stats.setState(StateConnecting, nil)
	defer c.stats.setState(StateStopped, nil)

	for {
		consumed, err := c.session(ctx)
		if ctx.Err() != nil {
			c.logger.Info("consumer stopped")
			return nil
		}
		if consumed {
			bo.Reset()
		}

		var connErr *ConnectionError
		if !errors.As(err, &connErr) {
			err = &ConnectionError{Op: "session", Err: err}
		}
		c.stats.setState(StateReconnecting, err)
		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			return err
		}
		logging.WarnWithContext(c.logger, "broker unavailable; retrying", "broker_connection_lost",
			logging.Error(err),
			logging.Duration("retry_in", wait),
			logging.String(logging.FieldImpact, "new suggestions wait in the queue until reconnect"),
			logging.String(logging.FieldErrorHint, "check that the broker is running and broker.url is correct"),
		)
		metrics.Reconnects.Inc()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.logger.Info("consumer stopped")
			return nil
		case <-timer.C:
		}
		c.stats.setState(StateConnecting, nil)
	}
}

// session runs one subscription to completion. consumed reports whether the
// subscription was established, which resets the backoff.
func (c *Consumer) session(ctx context.Context) (consumed bool, err error) {
	sess, err := c.dial(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && ctx.Err() == nil {
			c.logger.Debug("close broker session", logging.Error(cerr))
		}
	}()

	c.stats.setState(StateConsuming, nil)
	c.logger.Info("consuming suggestion queue", logging.String("queue", c.queue))
	for {
		d, err := sess.Next(ctx)
		if err != nil {
			return true, err
		}
		c.Handle(ctx, d)
	}
}
