package daemon_test

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"filepilot/internal/consumer"
	"filepilot/internal/daemon"
	"filepilot/internal/gate"
	"filepilot/internal/logging"
	"filepilot/internal/notifications"
	"filepilot/internal/surface"
	"filepilot/internal/testsupport"
)

type fakeDelivery struct {
	body []byte

	mu    sync.Mutex
	acked bool
}

func (d *fakeDelivery) Body() []byte              { return d.body }
func (d *fakeDelivery) Headers() map[string]any   { return nil }
func (d *fakeDelivery) Redelivered() bool         { return false }
func (d *fakeDelivery) Tag() uint64               { return 1 }
func (d *fakeDelivery) Reject(requeue bool) error { return nil }
func (d *fakeDelivery) Ack() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acked = true
	return nil
}

func (d *fakeDelivery) wasAcked() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acked
}

type chanSession struct {
	deliveries chan consumer.Delivery
}

func (s *chanSession) Next(ctx context.Context) (consumer.Delivery, error) {
	select {
	case d := <-s.deliveries:
		return d, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *chanSession) Close() error { return nil }

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, notifications.Event, notifications.Payload) error {
	return nil
}

func newDaemon(t *testing.T, deliveries chan consumer.Delivery) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	sess := &chanSession{deliveries: deliveries}
	d, err := daemon.New(cfg, store, logging.NewNop(),
		daemon.WithDialer(func(context.Context) (consumer.Session, error) { return sess, nil }),
		daemon.WithNotifier(nopNotifier{}),
	)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Stop() })
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newDaemon(t, make(chan consumer.Delivery))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.SurfaceAddr == "" {
		t.Fatal("expected surface address")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
	if status.Consumer.State != string(consumer.StateStopped) {
		t.Fatalf("consumer state = %q", status.Consumer.State)
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
}

func TestSecondDaemonOnSameStoreIsLockedOut(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	dial := daemon.WithDialer(func(context.Context) (consumer.Session, error) {
		return &chanSession{deliveries: make(chan consumer.Delivery)}, nil
	})

	first, err := daemon.New(cfg, testsupport.MustOpenStore(t, cfg), nil, dial)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(first.Stop)
	second, err := daemon.New(cfg, testsupport.MustOpenStore(t, cfg), nil, dial)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	err = second.Start(ctx)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock contention error, got %v", err)
	}
}

func TestDeliveryReachesStoreAndConnectedSurface(t *testing.T) {
	deliveries := make(chan consumer.Delivery, 1)
	d := newDaemon(t, deliveries)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	addr := d.Status(ctx).SurfaceAddr
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/events", nil)
	req.Header.Set(surface.SurfaceURLHeader, packagedURL(t, d))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect events: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events status = %d", resp.StatusCode)
	}
	waitFor(t, func() bool { return d.Status(ctx).SurfaceClients == 1 })

	delivery := &fakeDelivery{body: []byte(`{"fileName":"invoice.pdf","size":10,"downloadDate":"2024-05-01","srcPath":"/dl/invoice.pdf","summary":"An invoice","suggestions":["/docs/invoices"]}`)}
	deliveries <- delivery
	waitFor(t, delivery.wasAcked)

	list, err := d.ListSuggestions(ctx)
	if err != nil {
		t.Fatalf("ListSuggestions: %v", err)
	}
	if len(list) != 1 || list[0].FileName != "invoice.pdf" {
		t.Fatalf("unexpected suggestions %+v", list)
	}

	reader := bufio.NewReader(resp.Body)
	var events []string
	for len(events) < 2 {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if strings.HasPrefix(line, "event: ") {
			events = append(events, strings.TrimSpace(strings.TrimPrefix(line, "event: ")))
		}
	}
	if events[0] != "suggestions" || events[1] != "showNotification" {
		t.Fatalf("unexpected push order %v", events)
	}

	if err := d.DeleteSuggestion(ctx, list[0].ID); err != nil {
		t.Fatalf("DeleteSuggestion: %v", err)
	}
	if got := d.Status(ctx).Suggestions; got != 0 {
		t.Fatalf("suggestions after delete = %d", got)
	}
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	d := newDaemon(t, make(chan consumer.Delivery))
	sent, msg, err := d.TestNotification(context.Background())
	if err != nil || sent {
		t.Fatalf("sent=%v err=%v", sent, err)
	}
	if msg != "ntfy topic not configured" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func packagedURL(t *testing.T, d *daemon.Daemon) string {
	t.Helper()
	return gate.New(d.Config(), nil).PackagedURL()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
