package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler runs a task repeatedly on one goroutine. The next run starts
// interval after the previous run returned, so runs never overlap.
type Scheduler struct {
	interval     time.Duration
	initialDelay time.Duration
	task         func(ctx context.Context)
	logger       *slog.Logger
	runs         atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(interval, initialDelay time.Duration, task func(ctx context.Context), logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		interval:     interval,
		initialDelay: initialDelay,
		task:         task,
		logger:       logger,
	}
}

// Start begins the loop in a background goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return fmt.Errorf("scheduler: %w", ErrAlreadyRunning)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight run to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Runs returns the number of completed runs.
func (s *Scheduler) Runs() int64 {
	return s.runs.Load()
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(s.initialDelay)
	defer timer.Stop()

	s.logger.Info("Scheduler started", "interval", s.interval, "initial_delay", s.initialDelay)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopping due to context cancellation")
			return
		case <-timer.C:
		}
		if ctx.Err() != nil {
			s.logger.Info("Scheduler stopping due to context cancellation")
			return
		}

		s.runOnce(ctx)
		timer.Reset(s.interval)
	}
}

// runOnce keeps a panicking task from killing the loop.
func (s *Scheduler) runOnce(ctx context.Context) {
	defer s.runs.Add(1)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduled task panicked", "panic", r)
		}
	}()
	s.task(ctx)
}
