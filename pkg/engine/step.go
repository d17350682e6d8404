package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rmax-ai/graphbar/pkg/graph"
)

// PollStep consumes the dirty flag and, only when it was set, queries the
// bound connection and hands the formatted result to the presenter.
type PollStep struct {
	flag      *DirtyFlag
	binding   *Binding
	presenter Presenter
	query     string
	logger    *slog.Logger

	mu       sync.RWMutex
	last     Outcome
	lastText string
	lastAt   time.Time
}

// NewPollStep creates a step. An empty query selects the connection's own
// count query.
func NewPollStep(flag *DirtyFlag, binding *Binding, presenter Presenter, query string, logger *slog.Logger) *PollStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PollStep{
		flag:      flag,
		binding:   binding,
		presenter: presenter,
		query:     query,
		logger:    logger,
	}
}

// Run performs one poll step.
func (s *PollStep) Run(ctx context.Context) {
	if !s.flag.ConsumeAndReset() {
		GraphbarPollSkippedTotal.Inc()
		return
	}

	outcome := s.Execute(ctx)
	text := outcome.Text()
	s.record(outcome, text)

	if s.presenter == nil || !s.presenter.Available() {
		s.logger.Debug("Presenter unavailable, skipping render", "text", text)
		return
	}
	s.presenter.Render(text)
}

// Execute queries the bound connection without touching the dirty flag.
func (s *PollStep) Execute(ctx context.Context) Outcome {
	var out Outcome
	bound := s.binding.With(func(conn graph.Conn) {
		out = s.count(ctx, conn)
	})
	if !bound {
		out = Outcome{Kind: OutcomeNoConnection}
	}
	GraphbarPollsTotal.WithLabelValues(out.Kind.String()).Inc()
	return out
}

// Last returns the most recent outcome, its text and when it was produced.
// The zero time means no query has run yet.
func (s *PollStep) Last() (Outcome, string, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.lastText, s.lastAt
}

func (s *PollStep) record(o Outcome, text string) {
	s.mu.Lock()
	s.last, s.lastText, s.lastAt = o, text, time.Now()
	s.mu.Unlock()
}

func (s *PollStep) count(ctx context.Context, conn graph.Conn) Outcome {
	start := time.Now()
	defer func() {
		GraphbarQueryDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	text := s.query
	if text == "" {
		text = conn.CountQuery()
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		s.logger.Error("Error while counting nodes and rels", "error", err)
		return Outcome{Kind: OutcomeQueryError, Err: fmt.Errorf("%w: %w", ErrQueryExecution, err)}
	}

	rows, err := tx.Query(ctx, text)
	if err == nil && len(rows) > 0 {
		var nodes, rels int64
		nodes, rels, err = extractCounts(rows[0])
		if err == nil {
			if cerr := tx.Commit(); cerr != nil {
				s.logger.Error("Error while counting nodes and rels", "error", cerr)
				return Outcome{Kind: OutcomeQueryError, Err: fmt.Errorf("%w: %w", ErrQueryExecution, cerr)}
			}
			GraphbarNodes.Set(float64(nodes))
			GraphbarRels.Set(float64(rels))
			return Outcome{Kind: OutcomeSuccess, Nodes: nodes, Rels: rels}
		}
	}
	if err != nil {
		rbErr := tx.Rollback()
		s.logger.Error("Error while counting nodes and rels", "error", err, "rollback_error", rbErr)
		return Outcome{Kind: OutcomeQueryError, Err: fmt.Errorf("%w: %w", ErrQueryExecution, err)}
	}

	if cerr := tx.Commit(); cerr != nil {
		s.logger.Error("Error while counting nodes and rels", "error", cerr)
		return Outcome{Kind: OutcomeQueryError, Err: fmt.Errorf("%w: %w", ErrQueryExecution, cerr)}
	}
	return Outcome{Kind: OutcomeNoResult}
}

func extractCounts(row graph.Row) (nodes, rels int64, err error) {
	if nodes, err = row.Int64("nodes"); err != nil {
		return 0, 0, err
	}
	if rels, err = row.Int64("rels"); err != nil {
		return 0, 0, err
	}
	if nodes < 0 || rels < 0 {
		return 0, 0, fmt.Errorf("negative count nodes=%d rels=%d", nodes, rels)
	}
	return nodes, rels, nil
}
