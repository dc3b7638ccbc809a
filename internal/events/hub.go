// Package events is a small in-process pub/sub hub plus the live
// websocket broadcaster (Hub.ServeWS) that internal/httpapi mounts. It is pure
// observability — nothing in the coordination core depends on it, and
// a nil *Hub is never required (the Coordinator accepts an interface
// and works fine without a sink).
package events

import "sync"

// Event is one lifecycle notification.
type Event struct {
	Kind string         `json:"kind"`
	Data map[string]any `json:"data,omitempty"`
}

// Hub fans out published events to any number of subscribers. Publish
// and Subscribe know nothing of HTTP; ServeWS in broadcaster.go streams a
// subscription over a websocket.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Publish fans out an event to every current subscriber. Slow
// subscribers never block the publisher: each subscriber channel is
// buffered, and a full channel just skips that event for that
// subscriber, which stays subscribed.
func (h *Hub) Publish(kind string, data map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ev := Event{Kind: kind, Data: data}
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a new buffered channel and returns it along with
// an unsubscribe function the caller must call when done.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}
	return ch, unsubscribe
}
