package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_RunsDoNotOverlap(t *testing.T) {
	var active, maxActive atomic.Int32
	task := func(ctx context.Context) {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		active.Add(-1)
	}

	s := NewScheduler(time.Millisecond, 0, task, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return s.Runs() >= 5 })
	s.Stop()

	if maxActive.Load() != 1 {
		t.Fatalf("expected at most 1 concurrent run, got %d", maxActive.Load())
	}
}

func TestScheduler_FixedDelayFromCompletion(t *testing.T) {
	const (
		work     = 20 * time.Millisecond
		interval = 30 * time.Millisecond
	)

	var mu sync.Mutex
	var starts []time.Time
	task := func(ctx context.Context) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		time.Sleep(work)
	}

	s := NewScheduler(interval, 0, task, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return s.Runs() >= 3 })
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(starts[i-1]); gap < work+interval {
			t.Errorf("run %d started %v after the previous one, want >= %v", i, gap, work+interval)
		}
	}
}

func TestScheduler_InitialDelay(t *testing.T) {
	started := time.Now()
	first := make(chan time.Time, 1)
	task := func(ctx context.Context) {
		select {
		case first <- time.Now():
		default:
		}
	}

	s := NewScheduler(time.Hour, 40*time.Millisecond, task, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	select {
	case at := <-first:
		if at.Sub(started) < 40*time.Millisecond {
			t.Errorf("first run after %v, want >= 40ms", at.Sub(started))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first run never happened")
	}
}

func TestScheduler_RecoversFromPanic(t *testing.T) {
	logger, rec := newTestLogger()
	var calls atomic.Int32
	task := func(ctx context.Context) {
		if calls.Add(1) == 1 {
			panic("boom")
		}
	}

	s := NewScheduler(time.Millisecond, 0, task, logger)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return calls.Load() >= 3 })
	s.Stop()

	if rec.count(slog.LevelError, "Scheduled task panicked") != 1 {
		t.Error("expected the panic to be logged once")
	}
}

func TestScheduler_StopWaitsForRun(t *testing.T) {
	entered := make(chan struct{})
	var finished atomic.Bool
	task := func(ctx context.Context) {
		select {
		case entered <- struct{}{}:
		default:
		}
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	}

	s := NewScheduler(time.Hour, 0, task, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("task never started")
	}
	s.Stop()

	if !finished.Load() {
		t.Fatal("expected Stop to wait for the in-flight run")
	}
	if s.Runs() != 1 {
		t.Fatalf("expected 1 run, got %d", s.Runs())
	}
}

func TestScheduler_StartTwice(t *testing.T) {
	s := NewScheduler(time.Hour, time.Hour, func(context.Context) {}, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestScheduler_ContextCancelStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	s := NewScheduler(time.Millisecond, 0, func(context.Context) { calls.Add(1) }, nil)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return calls.Load() > 0 })
	cancel()
	s.Stop()

	n := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != n {
		t.Fatal("expected no runs after cancellation")
	}
}
