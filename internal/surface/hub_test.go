package surface_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"filepilot/internal/surface"
	"filepilot/internal/testsupport"
)

func TestHubFetchReturnsEventsAfterSequence(t *testing.T) {
	hub := surface.NewHub(4, nil)
	for i := 0; i < 3; i++ {
		if !hub.Push("showNotification", map[string]int{"n": i}) {
			t.Fatalf("push %d refused", i)
		}
	}

	events, next, err := hub.Fetch(context.Background(), 1)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 2 || next != 3 {
		t.Fatalf("got %d events next=%d, want 2 and 3", len(events), next)
	}
	if events[0].Name != "showNotification" {
		t.Fatalf("unexpected event name %q", events[0].Name)
	}
}

func TestHubDropsOldestBeyondCapacity(t *testing.T) {
	hub := surface.NewHub(2, nil)
	for i := 0; i < 5; i++ {
		hub.Push("x", i)
	}
	events, _, err := hub.Fetch(context.Background(), 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 2 || events[0].Seq != 4 || events[1].Seq != 5 {
		t.Fatalf("unexpected ring contents: %+v", events)
	}
}

func TestHubFetchBlocksUntilPushOrCancel(t *testing.T) {
	hub := surface.NewHub(4, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, _, err := hub.Fetch(ctx, 0); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}

	done := make(chan []surface.Event, 1)
	go func() {
		events, _, _ := hub.Fetch(context.Background(), 0)
		done <- events
	}()
	time.Sleep(10 * time.Millisecond)
	hub.Push("late", true)

	select {
	case events := <-done:
		if len(events) != 1 || events[0].Name != "late" {
			t.Fatalf("unexpected events %+v", events)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not wake on push")
	}
}

func TestHubConvertsSuggestionPayload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	s := testsupport.NewSuggestion(t, store, "report.pdf", "/docs/a")

	hub := surface.NewHub(4, nil)
	hub.Push("suggestions", s)
	events, _, err := hub.Fetch(context.Background(), 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(events[0].Data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["fileName"] != "report.pdf" {
		t.Fatalf("unexpected payload %v", decoded)
	}
	if _, ok := decoded["receivedAt"].(string); !ok {
		t.Fatalf("receivedAt should be a string, got %T", decoded["receivedAt"])
	}
}

func TestHubRefusesUnencodablePayload(t *testing.T) {
	hub := surface.NewHub(4, nil)
	if hub.Push("bad", make(chan int)) {
		t.Fatal("expected push to be refused")
	}
	if hub.Last() != 0 {
		t.Fatalf("sequence advanced on refused push")
	}
}
