package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"filepilot/internal/dispatch"
	"filepilot/internal/logging"
	"filepilot/internal/notifications"
	"filepilot/internal/suggestions"
)

type pushed struct {
	event   string
	payload any
}

type recordingSurface struct {
	mu     sync.Mutex
	accept bool
	pushes []pushed
}

func (r *recordingSurface) Push(event string, payload any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, pushed{event, payload})
	return r.accept
}

func (r *recordingSurface) snapshot() []pushed {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]pushed(nil), r.pushes...)
}

func sample() *suggestions.Suggestion {
	return &suggestions.Suggestion{
		ID:             7,
		FileName:       "report.pdf",
		SuggestedPaths: []string{"/Docs/Finance", "/Archive"},
		ReceivedAt:     time.Now(),
	}
}

func TestDispatchPushesRecordAndAlert(t *testing.T) {
	surface := &recordingSurface{accept: true}
	d := dispatch.New(logging.NewNop())
	d.Attach(surface)

	sug := sample()
	d.Dispatch(context.Background(), sug)

	got := surface.snapshot()
	if len(got) != 2 {
		t.Fatalf("expected 2 pushes, got %d", len(got))
	}
	if got[0].event != dispatch.EventSuggestions || got[0].payload != sug {
		t.Fatalf("unexpected record push: %#v", got[0])
	}
	alert, ok := got[1].payload.(dispatch.Alert)
	if got[1].event != dispatch.EventShowNotification || !ok {
		t.Fatalf("unexpected alert push: %#v", got[1])
	}
	if alert.Title != "Path Suggestions for report.pdf" {
		t.Fatalf("unexpected title %q", alert.Title)
	}
	if alert.Body != "Suggested paths: /Docs/Finance, /Archive" {
		t.Fatalf("unexpected body %q", alert.Body)
	}
}

func TestDispatchWithoutSurfaceDrops(t *testing.T) {
	d := dispatch.New(logging.NewNop())
	if d.Attached() {
		t.Fatal("new dispatcher should have no surface")
	}
	d.Dispatch(context.Background(), sample())

	surface := &recordingSurface{accept: true}
	d.Attach(surface)
	d.Detach()
	d.Dispatch(context.Background(), sample())
	if n := len(surface.snapshot()); n != 0 {
		t.Fatalf("detached surface received %d pushes", n)
	}
}

func TestDispatchIgnoresRejectedPush(t *testing.T) {
	surface := &recordingSurface{accept: false}
	d := dispatch.New(logging.NewNop())
	d.Attach(surface)
	d.Dispatch(context.Background(), sample())
	if n := len(surface.snapshot()); n != 2 {
		t.Fatalf("expected both pushes attempted once, got %d", n)
	}
}

type stubNotifier struct {
	mu     sync.Mutex
	events []notifications.Payload
	err    error
}

func (s *stubNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event == notifications.EventSuggestionReceived {
		s.events = append(s.events, payload)
	}
	return s.err
}

func TestDispatchForwardsAlert(t *testing.T) {
	for _, failing := range []bool{false, true} {
		notifier := &stubNotifier{}
		if failing {
			notifier.err = errors.New("ntfy down")
		}
		d := dispatch.New(logging.NewNop(), dispatch.WithNotifier(notifier, time.Second))
		d.Dispatch(context.Background(), sample())
		d.Wait()

		notifier.mu.Lock()
		events := notifier.events
		notifier.mu.Unlock()
		if len(events) != 1 {
			t.Fatalf("failing=%v: expected 1 forwarded alert, got %d", failing, len(events))
		}
		if events[0]["title"] != "Path Suggestions for report.pdf" {
			t.Fatalf("unexpected forwarded payload: %#v", events[0])
		}
	}
}
