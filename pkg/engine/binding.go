package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rmax-ai/graphbar/pkg/graph"
	"github.com/rmax-ai/graphbar/pkg/provider"
)

// BindDecision is the outcome of a BindPolicy.
type BindDecision int

const (
	// BindKeep keeps the current binding and silently ignores the candidate.
	BindKeep BindDecision = iota
	// BindReplace binds the candidate, releasing any current binding.
	BindReplace
	// BindReject keeps the current binding and reports a conflict.
	BindReject
)

func (d BindDecision) String() string {
	switch d {
	case BindKeep:
		return "keep"
	case BindReplace:
		return "replace"
	case BindReject:
		return "reject"
	default:
		return "unknown"
	}
}

// Bound is the active provider and the connection obtained from it.
type Bound struct {
	Provider provider.Provider
	Conn     graph.Conn

	unsubscribe func()
}

// BindPolicy decides what happens when candidate registers. current is nil
// when nothing is bound.
type BindPolicy func(current *Bound, candidate provider.Provider) BindDecision

// FirstWins binds the first provider and rejects every other one until it
// unregisters. A repeated registration of the bound provider is kept.
func FirstWins(current *Bound, candidate provider.Provider) BindDecision {
	if current == nil {
		return BindReplace
	}
	if current.Provider.ID() == candidate.ID() {
		return BindKeep
	}
	return BindReject
}

// Binding holds at most one connection. Registry events are serialized by
// eventMu; mu guards the bound pair against concurrent readers.
type Binding struct {
	policy   BindPolicy
	listener graph.Listener
	onChange func()
	logger   *slog.Logger

	eventMu sync.Mutex

	mu     sync.RWMutex
	bound  *Bound
	closed bool

	// boundID mirrors bound.Provider.ID() so readers never wait behind a
	// query holding mu.
	boundID atomic.Pointer[provider.ProviderID]
}

// NewBinding creates an empty binding. listener is subscribed to every bound
// connection; onChange, if set, runs after each bind or unbind.
func NewBinding(listener graph.Listener, policy BindPolicy, onChange func(), logger *slog.Logger) *Binding {
	if policy == nil {
		policy = FirstWins
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Binding{
		policy:   policy,
		listener: listener,
		onChange: onChange,
		logger:   logger,
	}
}

// OnProviderRegistered applies the bind policy to p. Connection failures
// are logged and leave the binding as it was.
func (b *Binding) OnProviderRegistered(ctx context.Context, p provider.Provider) error {
	b.eventMu.Lock()
	defer b.eventMu.Unlock()

	b.mu.RLock()
	current, closed := b.bound, b.closed
	b.mu.RUnlock()
	if closed {
		return nil
	}

	switch b.policy(current, p) {
	case BindKeep:
		return nil
	case BindReject:
		GraphbarBindingRejectedTotal.Inc()
		b.logger.Warn("Connection provider already bound", "provider", p.ID(), "bound", current.Provider.ID())
		return fmt.Errorf("%s: %w", p.ID(), ErrBindingConflict)
	}

	conn, err := p.Connect(ctx)
	if err != nil {
		b.logger.Error("Failed to create connection", "provider", p.ID(), "error", err)
		return fmt.Errorf("%s: %w: %w", p.ID(), ErrProviderCreation, err)
	}

	next := &Bound{Provider: p, Conn: conn}
	next.unsubscribe = conn.Subscribe(b.listener)

	id := p.ID()
	b.mu.Lock()
	previous := b.bound
	b.bound = next
	b.boundID.Store(&id)
	b.mu.Unlock()

	if previous != nil {
		b.release(previous)
	}
	GraphbarBindingBound.Set(1)
	b.logger.Info("Connection bound", "provider", p.ID())
	b.changed()
	return nil
}

// OnProviderUnregistered releases the binding if p is the bound provider.
func (b *Binding) OnProviderUnregistered(p provider.Provider) {
	b.eventMu.Lock()
	defer b.eventMu.Unlock()

	b.mu.Lock()
	if b.bound == nil || b.bound.Provider.ID() != p.ID() {
		b.mu.Unlock()
		return
	}
	previous := b.bound
	b.bound = nil
	b.boundID.Store(nil)
	b.mu.Unlock()

	b.release(previous)
	GraphbarBindingBound.Set(0)
	b.logger.Info("Connection unbound", "provider", p.ID())
	b.changed()
}

// Current returns the bound connection, if any.
func (b *Binding) Current() (graph.Conn, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.bound == nil {
		return nil, false
	}
	return b.bound.Conn, true
}

// BoundProvider returns the ID of the bound provider, if any. It does not
// wait for an in-flight query.
func (b *Binding) BoundProvider() (provider.ProviderID, bool) {
	id := b.boundID.Load()
	if id == nil {
		return "", false
	}
	return *id, true
}

// With runs fn with the bound connection while holding the read lock, so the
// connection cannot be closed underneath it. It reports whether a
// connection was bound.
func (b *Binding) With(fn func(conn graph.Conn)) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.bound == nil {
		return false
	}
	fn(b.bound.Conn)
	return true
}

// Close releases the binding and ignores all later registrations.
func (b *Binding) Close() error {
	b.eventMu.Lock()
	defer b.eventMu.Unlock()

	b.mu.Lock()
	previous := b.bound
	b.bound = nil
	b.boundID.Store(nil)
	b.closed = true
	b.mu.Unlock()

	if previous == nil {
		return nil
	}
	GraphbarBindingBound.Set(0)
	previous.unsubscribe()
	if err := previous.Conn.Close(); err != nil {
		return fmt.Errorf("failed to close connection of %s: %w", previous.Provider.ID(), err)
	}
	return nil
}

func (b *Binding) release(bd *Bound) {
	bd.unsubscribe()
	if err := bd.Conn.Close(); err != nil {
		b.logger.Warn("Failed to close connection", "provider", bd.Provider.ID(), "error", err)
	}
}

func (b *Binding) changed() {
	if b.onChange != nil {
		b.onChange()
	}
}
