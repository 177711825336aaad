package conversation

import (
	"log/slog"
	"sync"
)

// EventType names a state change pushed to subscribers.
type EventType string

const (
	EventMessage  EventType = "message"
	EventView     EventType = "view"
	EventThinking EventType = "thinking"
	EventSpeaking EventType = "speaking"
	EventEffect   EventType = "effect"
	// EventSnapshot carries the full state and is sent once to a new stream.
	EventSnapshot EventType = "snapshot"
)

// Event is one state change.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

const subscriberBuffer = 32

// Hub fans events out to subscribers. Slow subscribers miss events instead of
// blocking the publisher. A nil *Hub discards everything.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe returns an event channel and a func that unsubscribes and closes it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
}

func (h *Hub) Publish(e Event) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- e:
		default:
			slog.Debug("conversation: subscriber lagging, event dropped", "subscriber", id, "event", e.Type)
		}
	}
}

// Close disconnects every subscriber. Later subscriptions get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
