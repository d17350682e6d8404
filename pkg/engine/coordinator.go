package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rmax-ai/graphbar/pkg/provider"
)

// Status is a snapshot of the coordinator for the status API.
type Status struct {
	Text     string              `json:"text"`
	Kind     string              `json:"kind"`
	Provider provider.ProviderID `json:"provider,omitempty"`
	Bound    bool                `json:"bound"`
	Pending  bool                `json:"pending"`
	Polled   time.Time           `json:"polled"`
	Error    string              `json:"error,omitempty"`
}

// Coordinator binds one connection out of the registry's providers and
// refreshes the presenter whenever that connection reports a committed
// write.
type Coordinator struct {
	registry  *provider.Registry
	flag      *DirtyFlag
	sink      *NotificationSink
	binding   *Binding
	step      *PollStep
	scheduler *Scheduler
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
	stopped bool
	unwatch func()
}

// NewCoordinator wires a coordinator. It does not touch the registry until
// Start is called.
func NewCoordinator(reg *provider.Registry, presenter Presenter, cfg Config, logger *slog.Logger) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	flag := NewDirtyFlag()
	sink := NewNotificationSink(flag)
	// A bind or unbind changes what should be displayed.
	binding := NewBinding(sink.Listener(), cfg.Policy, flag.Set, logger)
	step := NewPollStep(flag, binding, presenter, cfg.Query, logger)

	c := &Coordinator{
		registry: reg,
		flag:     flag,
		sink:     sink,
		binding:  binding,
		step:     step,
		logger:   logger,
	}
	c.scheduler = NewScheduler(cfg.Interval, cfg.InitialDelay, step.Run, logger)
	return c, nil
}

// Start subscribes to the registry and starts polling. Registry events
// connect using ctx.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return fmt.Errorf("coordinator: %w", ErrStopped)
	}
	if c.running {
		return fmt.Errorf("coordinator: %w", ErrAlreadyRunning)
	}

	c.unwatch = c.registry.Watch(func(ev provider.Event) {
		switch ev.Type {
		case provider.EventRegistered:
			// Errors are logged by the binding.
			_ = c.binding.OnProviderRegistered(ctx, ev.Provider)
		case provider.EventUnregistering:
			c.binding.OnProviderUnregistered(ev.Provider)
		}
	})

	if err := c.scheduler.Start(ctx); err != nil {
		c.unwatch()
		c.unwatch = nil
		return err
	}
	c.running = true
	c.logger.Info("Coordinator started")
	return nil
}

// Stop stops watching the registry, waits for an in-flight poll step and
// closes the bound connection. The coordinator cannot be restarted.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unwatch != nil {
		c.unwatch()
		c.unwatch = nil
	}
	c.scheduler.Stop()
	c.running = false
	c.stopped = true

	err := c.binding.Close()
	if err != nil {
		c.logger.Warn("Failed to close binding", "error", err)
	}
	c.logger.Info("Coordinator stopped")
	return err
}

// Sink returns the notification hook subscribed to the bound connection.
func (c *Coordinator) Sink() *NotificationSink {
	return c.sink
}

// Refresh marks the display stale so the next tick queries again.
func (c *Coordinator) Refresh() {
	c.flag.Set()
}

// Status returns the last rendered outcome and the binding state.
func (c *Coordinator) Status() Status {
	outcome, text, at := c.step.Last()
	st := Status{
		Text:    text,
		Kind:    outcome.Kind.String(),
		Pending: c.flag.Pending(),
		Polled:  at,
	}
	if outcome.Err != nil {
		st.Error = outcome.Err.Error()
	}
	if id, ok := c.binding.BoundProvider(); ok {
		st.Provider = id
		st.Bound = true
	}
	return st
}
