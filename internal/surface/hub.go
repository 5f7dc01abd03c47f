package surface

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"filepilot/internal/api"
	"filepilot/internal/metrics"
	"filepilot/internal/suggestions"
)

// Event is one push frame for the event stream.
type Event struct {
	Seq  uint64
	Name string
	Data json.RawMessage
}

// Hub keeps a short ring of recent pushes and wakes connected streams when
// new ones arrive. It implements dispatch.Surface.
type Hub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Event
	nextSeq  uint64
	clients  int
	onChange func(clients int)
}

// NewHub constructs a bounded push buffer. onChange, when set, is called with
// the new client count whenever a stream connects or disconnects.
func NewHub(capacity int, onChange func(clients int)) *Hub {
	if capacity <= 0 {
		capacity = 64
	}
	h := &Hub{capacity: capacity, onChange: onChange}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Push encodes payload and appends it to the ring. It never blocks on
// readers; a payload that cannot be encoded is refused.
func (h *Hub) Push(event string, payload any) bool {
	if h == nil {
		return false
	}
	if s, ok := payload.(*suggestions.Suggestion); ok {
		payload = api.FromSuggestion(s)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return false
	}

	h.mu.Lock()
	h.nextSeq++
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, Event{Seq: h.nextSeq, Name: event, Data: data})
	h.cond.Broadcast()
	h.mu.Unlock()
	return true
}

// Last returns the sequence of the newest event.
func (h *Hub) Last() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.nextSeq
}

// Clients returns the number of connected streams.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clients
}

func (h *Hub) connect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients++
	h.clientsChanged()
}

func (h *Hub) disconnect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients > 0 {
		h.clients--
	}
	h.clientsChanged()
}

// clientsChanged runs under h.mu so attach and detach are applied in the
// order streams come and go. onChange must not call back into the hub.
func (h *Hub) clientsChanged() {
	metrics.SurfaceClients.Set(float64(h.clients))
	if h.onChange != nil {
		h.onChange(h.clients)
	}
}

// Fetch returns events with sequence greater than since, blocking until at
// least one exists or ctx ends.
func (h *Hub) Fetch(ctx context.Context, since uint64) ([]Event, uint64, error) {
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			h.cond.Broadcast()
			h.mu.Unlock()
		case <-stop:
		}
	}()
	defer close(stop)

	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		if since > h.nextSeq {
			since = h.nextSeq
		}
		var out []Event
		for _, evt := range h.buffer {
			if evt.Seq > since {
				out = append(out, evt)
			}
		}
		if len(out) > 0 {
			return out, out[len(out)-1].Seq, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, since, err
		}
		h.cond.Wait()
	}
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
