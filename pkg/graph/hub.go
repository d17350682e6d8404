package graph

import "sync"

// Hub fans change notifications out to subscribed listeners.
type Hub struct {
	mu        sync.RWMutex
	next      uint64
	listeners map[uint64]Listener
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{listeners: make(map[uint64]Listener)}
}

// Subscribe adds l and returns a function that removes it.
// Calling the returned function more than once is a no-op.
func (h *Hub) Subscribe(l Listener) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	h.listeners[id] = l
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// Notify calls every listener. Listeners run on the caller's goroutine
// and outside the hub lock, so they may subscribe or cancel.
func (h *Hub) Notify() {
	h.mu.RLock()
	ls := make([]Listener, 0, len(h.listeners))
	for _, l := range h.listeners {
		ls = append(ls, l)
	}
	h.mu.RUnlock()

	for _, l := range ls {
		l()
	}
}

// Len returns the number of subscribed listeners.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
