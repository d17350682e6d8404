package provider

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDuplicateProvider is returned when registering an ID that is already registered.
var ErrDuplicateProvider = errors.New("provider already registered")

// EventType distinguishes registry events.
type EventType int

const (
	EventRegistered EventType = iota + 1
	EventUnregistering
)

func (t EventType) String() string {
	switch t {
	case EventRegistered:
		return "registered"
	case EventUnregistering:
		return "unregistering"
	default:
		return "unknown"
	}
}

// Event reports a provider appearing or going away.
type Event struct {
	Type     EventType
	Provider Provider
}

// Registry tracks the providers currently available, in registration order,
// and notifies watchers about changes.
type Registry struct {
	mu        sync.Mutex
	providers []Provider
	watchers  map[uint64]*watcher
	nextID    uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		watchers: make(map[uint64]*watcher),
	}
}

// Register adds a provider and emits EventRegistered to every watcher.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.providers {
		if existing.ID() == p.ID() {
			return fmt.Errorf("%s: %w", p.ID(), ErrDuplicateProvider)
		}
	}
	r.providers = append(r.providers, p)
	r.broadcastLocked(Event{Type: EventRegistered, Provider: p})
	return nil
}

// Unregister emits EventUnregistering for the provider and removes it.
// It reports whether the provider was registered.
func (r *Registry) Unregister(id ProviderID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.providers {
		if p.ID() != id {
			continue
		}
		r.broadcastLocked(Event{Type: EventUnregistering, Provider: p})
		r.providers = append(r.providers[:i], r.providers[i+1:]...)
		return true
	}
	return false
}

// Providers returns a snapshot of the registered providers.
func (r *Registry) Providers() []Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// Get returns a registered provider by ID.
func (r *Registry) Get(id ProviderID) (Provider, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.providers {
		if p.ID() == id {
			return p, true
		}
	}
	return nil, false
}

// Watch delivers EventRegistered for every provider already registered,
// followed by all future events, in order, on a dedicated goroutine.
// The returned cancel function blocks until that goroutine exits; it must
// not be called from fn.
func (r *Registry) Watch(fn func(Event)) (cancel func()) {
	w := newWatcher(fn)

	r.mu.Lock()
	for _, p := range r.providers {
		w.push(Event{Type: EventRegistered, Provider: p})
	}
	id := r.nextID
	r.nextID++
	r.watchers[id] = w
	r.mu.Unlock()

	go w.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.watchers, id)
			r.mu.Unlock()
			close(w.done)
			<-w.exited
		})
	}
}

// broadcastLocked must be called with r.mu held so that every watcher sees
// events in registry order.
func (r *Registry) broadcastLocked(e Event) {
	for _, w := range r.watchers {
		w.push(e)
	}
}

type watcher struct {
	fn     func(Event)
	mu     sync.Mutex
	queue  []Event
	wake   chan struct{}
	done   chan struct{}
	exited chan struct{}
}

func newWatcher(fn func(Event)) *watcher {
	return &watcher{
		fn:     fn,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
}

func (w *watcher) push(e Event) {
	w.mu.Lock()
	w.queue = append(w.queue, e)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *watcher) run() {
	defer close(w.exited)
	for {
		w.mu.Lock()
		batch := w.queue
		w.queue = nil
		w.mu.Unlock()

		for _, e := range batch {
			select {
			case <-w.done:
				return
			default:
			}
			w.fn(e)
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-w.done:
			return
		case <-w.wake:
		}
	}
}
