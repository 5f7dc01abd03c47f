package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"filepilot/internal/config"
	"filepilot/internal/logging"
)

const consumerTag = "filepilot"

type amqpDelivery struct {
	d amqp.Delivery
}

func (a amqpDelivery) Body() []byte              { return a.d.Body }
func (a amqpDelivery) Ack() error                { return a.d.Ack(false) }
func (a amqpDelivery) Reject(requeue bool) error { return a.d.Reject(requeue) }
func (a amqpDelivery) Headers() map[string]any   { return a.d.Headers }
func (a amqpDelivery) Redelivered() bool         { return a.d.Redelivered }
func (a amqpDelivery) Tag() uint64               { return a.d.DeliveryTag }

type amqpSession struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	deliveries <-chan amqp.Delivery
	closed     chan *amqp.Error
}

func (s *amqpSession) Next(ctx context.Context) (Delivery, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case d, ok := <-s.deliveries:
		if !ok {
			return nil, &ConnectionError{Op: "consume", Err: s.closeReason()}
		}
		return amqpDelivery{d: d}, nil
	}
}

func (s *amqpSession) closeReason() error {
	select {
	case reason, ok := <-s.closed:
		if ok && reason != nil {
			return reason
		}
	case <-time.After(100 * time.Millisecond):
	}
	return errors.New("delivery channel closed")
}

func (s *amqpSession) Close() error {
	var errs []error
	if s.ch != nil {
		if err := s.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if s.conn != nil && !s.conn.IsClosed() {
		if err := s.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// declareQueue declares the durable suggestion queue. Repeating the call with
// the same arguments is a no-op on the broker.
func declareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(name, true, false, false, false, nil)
	return err
}

func dial(cfg *config.Config) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(cfg.Broker.URL, amqp.Config{
		Heartbeat:  10 * time.Second,
		Properties: amqp.Table{"connection_name": consumerTag},
	})
	if err != nil {
		return nil, nil, &ConnectionError{Op: "dial", Err: err}
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, &ConnectionError{Op: "open channel", Err: err}
	}
	if err := declareQueue(ch, cfg.Broker.Queue); err != nil {
		_ = conn.Close()
		return nil, nil, &ConnectionError{Op: "declare queue", Err: err}
	}
	return conn, ch, nil
}

func amqpDialer(cfg *config.Config, logger *slog.Logger) Dialer {
	return func(ctx context.Context) (Session, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		conn, ch, err := dial(cfg)
		if err != nil {
			return nil, err
		}
		prefetch := cfg.Broker.Prefetch
		if prefetch <= 0 {
			prefetch = 1
		}
		if err := ch.Qos(prefetch, 0, false); err != nil {
			_ = conn.Close()
			return nil, &ConnectionError{Op: "set qos", Err: err}
		}
		closed := ch.NotifyClose(make(chan *amqp.Error, 1))
		deliveries, err := ch.Consume(cfg.Broker.Queue, consumerTag, false, false, false, false, nil)
		if err != nil {
			_ = conn.Close()
			return nil, &ConnectionError{Op: "consume", Err: err}
		}
		logger.Debug("broker session opened",
			logging.String("queue", cfg.Broker.Queue),
			logging.Int("prefetch", prefetch),
		)
		return &amqpSession{conn: conn, ch: ch, deliveries: deliveries, closed: closed}, nil
	}
}

// Publish sends payload to the suggestion queue as a persistent message and
// waits for the broker to confirm it.
func Publish(ctx context.Context, cfg *config.Config, payload []byte) error {
	conn, ch, err := dial(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := ch.Confirm(false); err != nil {
		return &ConnectionError{Op: "enable confirms", Err: err}
	}
	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, "", cfg.Broker.Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("publish suggestion message: %w", err)
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await publish confirm: %w", err)
	}
	if !acked {
		return errors.New("broker nacked suggestion message")
	}
	return nil
}
