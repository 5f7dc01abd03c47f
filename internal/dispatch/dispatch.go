// Package dispatch informs the display surface about newly stored suggestions.
//
// Pushes are fire-and-forget. When no surface is attached the push is dropped;
// the suggestion is already in the store and the surface picks it up on its
// next list call.
package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"filepilot/internal/logging"
	"filepilot/internal/metrics"
	"filepilot/internal/notifications"
	"filepilot/internal/suggestions"
)

// Push event names understood by the display surface.
const (
	EventSuggestions      = "suggestions"
	EventShowNotification = "showNotification"
)

// Surface receives pushes. Push must not block and reports whether the
// payload was accepted.
type Surface interface {
	Push(event string, payload any) bool
}

// Alert is the short OS-level notification payload.
type Alert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// AlertFor builds the alert shown for a stored suggestion.
func AlertFor(s *suggestions.Suggestion) Alert {
	return Alert{
		Title: "Path Suggestions for " + s.FileName,
		Body:  "Suggested paths: " + strings.Join(s.SuggestedPaths, ", "),
	}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithNotifier forwards every alert to an external notifier in the background.
func WithNotifier(n notifications.Service, timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.notifier = n
		if timeout > 0 {
			d.forwardTimeout = timeout
		}
	}
}

// Dispatcher fans a stored suggestion out to the attached surface.
type Dispatcher struct {
	surface        atomic.Pointer[surfaceRef]
	notifier       notifications.Service
	forwardTimeout time.Duration
	logger         *slog.Logger
	forwards       sync.WaitGroup
}

type surfaceRef struct {
	Surface
}

// New constructs a dispatcher with no surface attached.
func New(logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Dispatcher{
		logger:         logging.NewComponentLogger(logger, "dispatch"),
		forwardTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Attach makes s the current surface, replacing any previous one.
func (d *Dispatcher) Attach(s Surface) {
	if s == nil {
		d.Detach()
		return
	}
	d.surface.Store(&surfaceRef{s})
}

// Detach removes the current surface.
func (d *Dispatcher) Detach() {
	d.surface.Store(nil)
}

// Attached reports whether a surface is currently attached.
func (d *Dispatcher) Attached() bool {
	return d.surface.Load() != nil
}

// Dispatch pushes the suggestion record and its alert. It never blocks on the
// surface and never returns an error.
func (d *Dispatcher) Dispatch(ctx context.Context, s *suggestions.Suggestion) {
	if s == nil {
		return
	}
	alert := AlertFor(s)
	logger := logging.WithContext(ctx, d.logger)

	d.push(logger, EventSuggestions, s)
	d.push(logger, EventShowNotification, alert)
	d.forward(logger, alert)
}

func (d *Dispatcher) push(logger *slog.Logger, event string, payload any) {
	ref := d.surface.Load()
	if ref == nil {
		metrics.Pushes.WithLabelValues(event, "no_surface").Inc()
		logger.Debug("no display surface attached; push dropped", logging.String("event", event))
		return
	}
	if !ref.Push(event, payload) {
		metrics.Pushes.WithLabelValues(event, "rejected").Inc()
		logger.Debug("display surface rejected push", logging.String("event", event))
		return
	}
	metrics.Pushes.WithLabelValues(event, "delivered").Inc()
}

func (d *Dispatcher) forward(logger *slog.Logger, alert Alert) {
	if d.notifier == nil {
		return
	}
	d.forwards.Add(1)
	go func() {
		defer d.forwards.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.forwardTimeout)
		defer cancel()
		err := d.notifier.Publish(ctx, notifications.EventSuggestionReceived, notifications.Payload{
			"title": alert.Title,
			"body":  alert.Body,
		})
		if err != nil {
			logging.WarnWithContext(logger, "alert forwarding failed", "alert_forward_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "external notification not delivered"),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			)
		}
	}()
}

// Wait blocks until background alert forwarding has finished.
func (d *Dispatcher) Wait() {
	d.forwards.Wait()
}
