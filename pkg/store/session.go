package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/rmax-ai/graphbar/pkg/graph"
	"github.com/rmax-ai/graphbar/pkg/provider"
)

// Provider returns a connection provider for the store.
func (s *Store) Provider(id string) provider.Provider {
	return &storeProvider{id: provider.ProviderID(id), store: s}
}

type storeProvider struct {
	id    provider.ProviderID
	store *Store
}

func (p *storeProvider) ID() provider.ProviderID {
	return p.id
}

func (p *storeProvider) Connect(ctx context.Context) (graph.Conn, error) {
	if err := p.store.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite graph: %w", err)
	}
	return &Session{store: p.store}, nil
}

// Session is a logical connection to a Store. Closing a session drops its
// subscriptions but leaves the store open.
type Session struct {
	store   *Store
	mu      sync.Mutex
	cancels []func()
	closed  bool
}

// Subscribe registers l for post-commit notifications from any writer of the store.
func (s *Session) Subscribe(l graph.Listener) func() {
	cancel := s.store.hub.Subscribe(l)
	s.mu.Lock()
	s.cancels = append(s.cancels, cancel)
	s.mu.Unlock()
	return cancel
}

// Begin starts a read-only transaction.
func (s *Session) Begin(ctx context.Context) (graph.Tx, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, graph.ErrClosed
	}
	tx, err := s.store.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqliteTx{tx: tx}, nil
}

// CountQuery returns the SQL aggregate for node and relationship counts.
func (s *Session) CountQuery() string {
	return CountQuery
}

// Close drops the session's subscriptions.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	return nil
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Query(ctx context.Context, text string) (graph.RowSet, error) {
	rows, err := t.tx.QueryContext(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var result graph.RowSet
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(graph.Row, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return result, nil
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}
