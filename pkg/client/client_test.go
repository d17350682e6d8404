package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rmax-ai/graphbar/pkg/api"
	"github.com/rmax-ai/graphbar/pkg/engine"
	"github.com/rmax-ai/graphbar/pkg/graph"
	"github.com/rmax-ai/graphbar/pkg/provider"
)

type fixedStatus struct{ st engine.Status }

func (f *fixedStatus) Status() engine.Status { return f.st }
func (f *fixedStatus) Refresh()              {}

func newDaemon(t *testing.T, token string) (*Client, *graph.Memory) {
	t.Helper()
	g := graph.NewMemory()
	reg := provider.NewRegistry()
	if err := reg.Register(provider.NewMockProviderFor("local", g)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	st := &fixedStatus{st: engine.Status{Text: "n: 0 - r: 0", Kind: "success", Provider: "local", Bound: true}}

	srv := api.NewServer(st, reg, g, "", nil)
	srv.SetToken(token)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return NewClient(ts.URL, WithToken(token)), g
}

func TestClient_ReadEndpoints(t *testing.T) {
	c, _ := newDaemon(t, "")
	ctx := context.Background()

	h, err := c.Ping(ctx)
	if err != nil || h.Status != "ok" {
		t.Fatalf("Ping: %+v %v", h, err)
	}

	st, err := c.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if st.Text != "n: 0 - r: 0" || st.Provider != "local" || !st.Bound {
		t.Errorf("unexpected status %+v", st)
	}

	infos, err := c.Providers(ctx)
	if err != nil {
		t.Fatalf("Providers failed: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != "local" || !infos[0].Bound {
		t.Errorf("unexpected providers %+v", infos)
	}

	if err := c.Refresh(ctx); err != nil {
		t.Errorf("Refresh failed: %v", err)
	}
}

func TestClient_Writes(t *testing.T) {
	c, g := newDaemon(t, "s3cret")
	ctx := context.Background()

	if err := c.CreateNode(ctx, graph.Node{ID: "a", Label: "Person"}); err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}
	if err := c.CreateNode(ctx, graph.Node{ID: "b w", Label: "Person"}); err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}
	if err := c.UpdateNode(ctx, graph.Node{ID: "b w", Label: "Bot"}); err != nil {
		t.Fatalf("UpdateNode failed: %v", err)
	}
	if err := c.CreateRel(ctx, graph.Rel{ID: "r", FromID: "a", ToID: "b w", Type: "KNOWS"}); err != nil {
		t.Fatalf("CreateRel failed: %v", err)
	}

	if nodes, rels := g.Counts(); nodes != 2 || rels != 1 {
		t.Fatalf("expected 2 nodes and 1 rel, got %d/%d", nodes, rels)
	}
	if n, _ := g.Node("b w"); n.Label != "Bot" {
		t.Errorf("expected escaped path update, got %+v", n)
	}

	if err := c.DeleteRel(ctx, "r"); err != nil {
		t.Fatalf("DeleteRel failed: %v", err)
	}
	if err := c.DeleteNode(ctx, "a"); err != nil {
		t.Fatalf("DeleteNode failed: %v", err)
	}
}

func TestClient_ErrorsUnwrap(t *testing.T) {
	c, _ := newDaemon(t, "")
	ctx := context.Background()

	if err := c.DeleteNode(ctx, "missing"); !errors.Is(err, graph.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := c.CreateNode(ctx, graph.Node{ID: "a"}); err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}
	if err := c.CreateNode(ctx, graph.Node{ID: "a"}); !errors.Is(err, graph.ErrExists) {
		t.Errorf("expected ErrExists, got %v", err)
	}
	err := c.CreateRel(ctx, graph.Rel{ID: "r", FromID: "a", ToID: "nope"})
	if !errors.Is(err, graph.ErrDangling) {
		t.Errorf("expected ErrDangling, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "dangling_relationship" {
		t.Errorf("expected APIError with code, got %v", err)
	}
}

func TestClient_Unauthorized(t *testing.T) {
	c, _ := newDaemon(t, "right")
	c.token = "wrong"

	err := c.CreateNode(context.Background(), graph.Node{ID: "a"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer ts.Close()

	b := &ExponentialBackoff{Base: time.Millisecond, Max: 5 * time.Millisecond, Factor: 2}
	c := NewClient(ts.URL, WithRetries(3, b))

	h, err := c.Ping(context.Background())
	if err != nil || h.Status != "ok" {
		t.Fatalf("expected success after retries, got %+v %v", h, err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, WithRetries(5, DefaultBackoff()))
	err := c.DeleteNode(context.Background(), "x")
	if !errors.Is(err, graph.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}
