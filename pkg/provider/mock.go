package provider

import (
	"context"
	"sync"
	"time"

	"github.com/rmax-ai/graphbar/pkg/graph"
)

// MockProvider serves connections to an in-memory graph. It backs the
// "memory" daemon backend and lets tests inject failures and count
// transaction calls.
type MockProvider struct {
	id     ProviderID
	graph  *graph.Memory
	mu     sync.Mutex
	config MockConfig
	stats  MockStats
}

// MockConfig controls injected behavior.
type MockConfig struct {
	ConnectError error
	QueryError   error
	EmptyResult  bool
	Latency      time.Duration
}

// MockStats counts calls made through the provider's connections.
type MockStats struct {
	Connects  int
	Closes    int
	Begins    int
	Queries   int
	Commits   int
	Rollbacks int
}

// NewMockProvider creates a provider over a fresh in-memory graph.
func NewMockProvider(id string) *MockProvider {
	return NewMockProviderFor(id, graph.NewMemory())
}

// NewMockProviderFor creates a provider over an existing in-memory graph.
func NewMockProviderFor(id string, g *graph.Memory) *MockProvider {
	return &MockProvider{
		id:    ProviderID(id),
		graph: g,
	}
}

// Graph returns the backing graph, which doubles as its graph.Writer.
func (p *MockProvider) Graph() *graph.Memory {
	return p.graph
}

// Configure replaces the injected behavior.
func (p *MockProvider) Configure(cfg MockConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config = cfg
}

// Stats returns a snapshot of the call counters.
func (p *MockProvider) Stats() MockStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *MockProvider) ID() ProviderID {
	return p.id
}

func (p *MockProvider) Connect(ctx context.Context) (graph.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.config.ConnectError != nil {
		return nil, p.config.ConnectError
	}
	p.stats.Connects++
	return &mockConn{p: p}, nil
}

func (p *MockProvider) count(f func(*MockStats)) MockConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	f(&p.stats)
	return p.config
}

type mockConn struct {
	p       *MockProvider
	mu      sync.Mutex
	cancels []func()
	closed  bool
}

func (c *mockConn) Subscribe(l graph.Listener) func() {
	cancel := c.p.graph.Hub().Subscribe(l)
	c.mu.Lock()
	c.cancels = append(c.cancels, cancel)
	c.mu.Unlock()
	return cancel
}

func (c *mockConn) Begin(ctx context.Context) (graph.Tx, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, graph.ErrClosed
	}
	c.p.count(func(s *MockStats) { s.Begins++ })
	return &mockTx{p: c.p}, nil
}

func (c *mockConn) CountQuery() string {
	return graph.MemoryCountQuery
}

func (c *mockConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
	c.p.count(func(s *MockStats) { s.Closes++ })
	return nil
}

type mockTx struct {
	p *MockProvider
}

func (t *mockTx) Query(ctx context.Context, text string) (graph.RowSet, error) {
	cfg := t.p.count(func(s *MockStats) { s.Queries++ })

	if cfg.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.Latency):
		}
	}
	if cfg.QueryError != nil {
		return nil, cfg.QueryError
	}
	if cfg.EmptyResult {
		return graph.RowSet{}, nil
	}
	return t.p.graph.Query(ctx, text)
}

func (t *mockTx) Commit() error {
	t.p.count(func(s *MockStats) { s.Commits++ })
	return nil
}

func (t *mockTx) Rollback() error {
	t.p.count(func(s *MockStats) { s.Rollbacks++ })
	return nil
}
