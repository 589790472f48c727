package browser

import (
	"sync"

	"pom_automation/domain/entities"
)

// EventHub fans browser events out to subscribers. Handlers run on the
// dispatching goroutine, outside the hub's lock.
type EventHub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[entities.EventKind]map[int]func(entities.DriverEvent)
	closed bool
}

// NewEventHub - creates an empty hub
func NewEventHub() *EventHub {
	return &EventHub{
		subs: make(map[entities.EventKind]map[int]func(entities.DriverEvent)),
	}
}

// Subscribe registers handler for kind. The returned func is idempotent.
func (h *EventHub) Subscribe(kind entities.EventKind, handler func(entities.DriverEvent)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || handler == nil {
		return func() {}
	}

	h.nextID++
	id := h.nextID
	if h.subs[kind] == nil {
		h.subs[kind] = make(map[int]func(entities.DriverEvent))
	}
	h.subs[kind][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[kind], id)
		})
	}
}

// Dispatch delivers evt to every handler subscribed to its kind
func (h *EventHub) Dispatch(evt entities.DriverEvent) {
	h.mu.RLock()
	handlers := make([]func(entities.DriverEvent), 0, len(h.subs[evt.Kind]))
	for _, fn := range h.subs[evt.Kind] {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(evt)
	}
}

// Count returns the number of live subscriptions for kind
func (h *EventHub) Count(kind entities.EventKind) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[kind])
}

// Close drops every subscription; later subscriptions are ignored
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.subs = make(map[entities.EventKind]map[int]func(entities.DriverEvent))
}
