package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/rmax-ai/graphbar/pkg/graph"
)

func TestMockProvider_QueryAndCounters(t *testing.T) {
	p := NewMockProvider("mem")
	ctx := context.Background()

	_ = p.Graph().CreateNode(ctx, graph.Node{ID: "a"})
	_ = p.Graph().CreateNode(ctx, graph.Node{ID: "b"})
	_ = p.Graph().CreateRel(ctx, graph.Rel{ID: "ab", FromID: "a", ToID: "b"})

	conn, err := p.Connect(ctx)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer conn.Close()

	tx, err := conn.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	rows, err := tx.Query(ctx, conn.CountQuery())
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	nodes, _ := rows[0].Int64("nodes")
	rels, _ := rows[0].Int64("rels")
	if nodes != 2 || rels != 1 {
		t.Errorf("expected nodes=2 rels=1, got %d/%d", nodes, rels)
	}

	s := p.Stats()
	if s.Connects != 1 || s.Begins != 1 || s.Queries != 1 || s.Commits != 1 || s.Rollbacks != 0 {
		t.Errorf("unexpected stats: %+v", s)
	}
}

func TestMockProvider_InjectedFailures(t *testing.T) {
	p := NewMockProvider("mem")
	ctx := context.Background()

	boom := errors.New("boom")
	p.Configure(MockConfig{ConnectError: boom})
	if _, err := p.Connect(ctx); !errors.Is(err, boom) {
		t.Errorf("expected connect error, got %v", err)
	}

	p.Configure(MockConfig{QueryError: boom})
	conn, err := p.Connect(ctx)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	tx, _ := conn.Begin(ctx)
	if _, err := tx.Query(ctx, conn.CountQuery()); !errors.Is(err, boom) {
		t.Errorf("expected query error, got %v", err)
	}

	p.Configure(MockConfig{EmptyResult: true})
	rows, err := tx.Query(ctx, conn.CountQuery())
	if err != nil || len(rows) != 0 {
		t.Errorf("expected empty result, got %v, %v", rows, err)
	}
}

func TestMockConn_CloseDropsSubscriptions(t *testing.T) {
	p := NewMockProvider("mem")
	ctx := context.Background()

	conn, _ := p.Connect(ctx)
	calls := 0
	conn.Subscribe(func() { calls++ })

	_ = p.Graph().CreateNode(ctx, graph.Node{ID: "a"})
	if err := conn.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	_ = p.Graph().CreateNode(ctx, graph.Node{ID: "b"})

	if calls != 1 {
		t.Errorf("expected 1 notification before close, got %d", calls)
	}
	if _, err := conn.Begin(ctx); !errors.Is(err, graph.ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}
	if p.Stats().Closes != 1 {
		t.Errorf("expected 1 close, got %d", p.Stats().Closes)
	}
}
