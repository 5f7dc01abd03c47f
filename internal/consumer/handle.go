package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"filepilot/internal/logging"
	"filepilot/internal/metrics"
	"filepilot/internal/notifications"
	"filepilot/internal/suggestions"
)

// Delivery is one broker message awaiting a settlement decision.
type Delivery interface {
	Body() []byte
	Ack() error
	Reject(requeue bool) error
	Headers() map[string]any
	Redelivered() bool
	Tag() uint64
}

// Outcome is the terminal state of a handled delivery.
type Outcome string

const (
	OutcomeAcked        Outcome = "acked"
	OutcomeAckFailed    Outcome = "ack_failed"
	OutcomeMalformed    Outcome = "malformed"
	OutcomeRequeued     Outcome = "requeued"
	OutcomeDeadLettered Outcome = "dead_lettered"
	OutcomeAbandoned    Outcome = "abandoned"
)

// Store is the persistence the consumer needs.
type Store interface {
	Insert(ctx context.Context, c suggestions.Candidate) (*suggestions.Suggestion, error)
}

// Dispatcher receives stored suggestions. Dispatch must not block.
type Dispatcher interface {
	Dispatch(ctx context.Context, s *suggestions.Suggestion)
}

// Handle runs one delivery through parse, persist, dispatch and ack.
func (c *Consumer) Handle(ctx context.Context, d Delivery) Outcome {
	ctx = logging.WithCorrelationID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, c.logger).With(
		logging.DeliveryTag(d.Tag()),
		logging.Bool("redelivered", d.Redelivered()),
	)

	body := d.Body()
	var cand suggestions.Candidate
	switch res := Parse(body).(type) {
	case Malformed:
		return c.reject(logger, d, OutcomeMalformed, "", res.Err())
	case Parsed:
		cand = res.Candidate
	}

	fp := fingerprintOf(body)
	start := time.Now()
	sug, err := c.store.Insert(ctx, cand)
	metrics.PersistDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			// Left unsettled; the broker redelivers once the channel closes.
			logger.Info("shutdown during persist; delivery abandoned", logging.Error(err))
			c.record(OutcomeAbandoned)
			return OutcomeAbandoned
		}
		if suggestions.IsTransient(err) {
			attempt := c.attempts.record(fp, d.Headers())
			if attempt < c.maxAttempts {
				logging.WarnWithContext(logger, "transient persistence failure; requeueing", "suggestion_persist_retry",
					logging.Error(err),
					logging.Int("attempt", attempt),
					logging.Int("max_attempts", c.maxAttempts),
					logging.String(logging.FieldImpact, "delivery will be retried"),
					logging.String(logging.FieldErrorHint, "another process may hold the database lock"),
				)
				if rerr := d.Reject(true); rerr != nil {
					logger.Warn("requeue failed", logging.Error(rerr))
				}
				c.record(OutcomeRequeued)
				return OutcomeRequeued
			}
			err = fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}
		c.attempts.forget(fp)
		return c.reject(logger, d, OutcomeDeadLettered, cand.FileName, err)
	}
	c.attempts.forget(fp)

	ctx = logging.WithSuggestionID(ctx, sug.ID)
	logger = logger.With(logging.SuggestionID(sug.ID))
	c.dispatcher.Dispatch(ctx, sug)

	if err := d.Ack(); err != nil {
		logging.WarnWithContext(logger, "ack failed after persist", "suggestion_ack_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "broker will redeliver; a duplicate suggestion may appear"),
			logging.String(logging.FieldErrorHint, "delete the duplicate from the list"),
		)
		c.record(OutcomeAckFailed)
		return OutcomeAckFailed
	}
	logger.Info("suggestion stored",
		logging.String(logging.FieldEventType, "suggestion_stored"),
		logging.String("file_name", sug.FileName),
		logging.Int("paths", len(sug.SuggestedPaths)),
	)
	c.record(OutcomeAcked)
	return OutcomeAcked
}

func (c *Consumer) reject(logger *slog.Logger, d Delivery, outcome Outcome, fileName string, cause error) Outcome {
	eventType := "suggestion_malformed"
	impact := "message dropped; no suggestion created"
	if outcome == OutcomeDeadLettered {
		eventType = "suggestion_dead_lettered"
		impact = "message dead-lettered after persistence failure"
	}
	attrs := []logging.Attr{
		logging.Error(cause),
		logging.String(logging.FieldImpact, impact),
		logging.String(logging.FieldErrorHint, "inspect the dead-letter queue for the payload"),
	}
	if outcome == OutcomeDeadLettered {
		logging.ErrorWithContext(logger, "suggestion message dead-lettered", eventType, attrs...)
	} else {
		logging.WarnWithContext(logger, "malformed suggestion message rejected", eventType, attrs...)
	}

	if err := d.Reject(false); err != nil {
		logger.Warn("reject failed", logging.Error(err))
	}
	c.record(outcome)
	c.alertDeadLetter(fileName, cause)
	return outcome
}

func (c *Consumer) alertDeadLetter(fileName string, cause error) {
	if c.notifier == nil {
		return
	}
	reason := "unknown"
	if cause != nil {
		reason = cause.Error()
	}
	if errors.Is(cause, ErrMalformed) {
		reason = "malformed payload"
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.notifier.Publish(ctx, notifications.EventDeliveryDeadLettered, notifications.Payload{
			"fileName": fileName,
			"reason":   reason,
		}); err != nil {
			c.logger.Debug("dead-letter alert failed", logging.Error(err))
		}
	}()
}

func (c *Consumer) record(outcome Outcome) {
	metrics.Deliveries.WithLabelValues(string(outcome)).Inc()
	c.stats.record(outcome)
}
