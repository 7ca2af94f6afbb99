// Package relay carries floating-text events between the main display
// and companion projection displays: in-process via a broadcast hub,
// cross-machine via a WebSocket relay with auto-reconnect.
package relay

import (
	"encoding/json"
	"sync"
)

// TypeText is the wire type of a floating-text spawn event.
const TypeText = "takeuchi-text"

// TypeStatus is sent toward the relay server only; the server absorbs
// it instead of rebroadcasting.
const TypeStatus = "takeuchi-status"

// TextEvent triggers a floating-text spawn in a companion display.
type TextEvent struct {
	Type string  `json:"type"`
	ID   string  `json:"id"`
	Text string  `json:"text"`
	Hue  float64 `json:"hue"`
	YN   float64 `json:"yN"` // normalized vertical position
	At   float64 `json:"at"` // unix seconds, stamped by sender or relay
}

// DecodeTextEvent parses a relayed payload. Anything malformed or of a
// different type is dropped (ok false), never an error.
func DecodeTextEvent(raw []byte) (TextEvent, bool) {
	var ev TextEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return TextEvent{}, false
	}
	if ev.Type != TypeText || ev.Text == "" {
		return TextEvent{}, false
	}
	return ev, true
}

// Hub is the same-process broadcast channel. Subscribers receive every
// published event; slow subscribers drop rather than block the sender.
type Hub struct {
	mu   sync.Mutex
	subs map[chan TextEvent]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan TextEvent]struct{})}
}

// Subscribe registers a receiver. The returned cancel function must be
// called on teardown; events published after cancel are not delivered.
func (h *Hub) Subscribe() (<-chan TextEvent, func()) {
	ch := make(chan TextEvent, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish fans the event out to every subscriber without blocking.
func (h *Hub) Publish(ev TextEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
