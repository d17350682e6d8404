package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/rmax-ai/graphbar/pkg/graph"
)

// logRecorder is a slog.Handler that keeps every record.
type logRecorder struct {
	mu      sync.Mutex
	records []slog.Record
}

func newTestLogger() (*slog.Logger, *logRecorder) {
	rec := &logRecorder{}
	return slog.New(rec), rec
}

func (h *logRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (h *logRecorder) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	h.records = append(h.records, r.Clone())
	h.mu.Unlock()
	return nil
}

func (h *logRecorder) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *logRecorder) WithGroup(string) slog.Handler      { return h }

func (h *logRecorder) count(level slog.Level, msg string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level == level && r.Message == msg {
			n++
		}
	}
	return n
}

func (h *logRecorder) levelCount(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level == level {
			n++
		}
	}
	return n
}

// recordingPresenter keeps every rendered text.
type recordingPresenter struct {
	mu          sync.Mutex
	texts       []string
	unavailable bool
	rendered    chan string
}

func newRecordingPresenter() *recordingPresenter {
	return &recordingPresenter{rendered: make(chan string, 100)}
}

func (p *recordingPresenter) Render(text string) {
	p.mu.Lock()
	p.texts = append(p.texts, text)
	p.mu.Unlock()
	select {
	case p.rendered <- text:
	default:
	}
}

func (p *recordingPresenter) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.unavailable
}

func (p *recordingPresenter) setAvailable(ok bool) {
	p.mu.Lock()
	p.unavailable = !ok
	p.mu.Unlock()
}

func (p *recordingPresenter) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.texts))
	copy(out, p.texts)
	return out
}

// waitRender waits for a render with the wanted text, skipping others.
func (p *recordingPresenter) waitRender(t *testing.T, want string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-p.rendered:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for render %q, got %v", want, p.all())
		}
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// populate writes nodes and rels into g, chaining rels between the first two nodes.
func populate(t *testing.T, g graph.Writer, nodes, rels int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < nodes; i++ {
		if err := g.CreateNode(ctx, graph.Node{ID: fmt.Sprintf("n%d", i), Label: "Item"}); err != nil {
			t.Fatalf("CreateNode failed: %v", err)
		}
	}
	for i := 0; i < rels; i++ {
		r := graph.Rel{ID: fmt.Sprintf("r%d", i), FromID: "n0", ToID: fmt.Sprintf("n%d", (i+1)%nodes), Type: "LINKS"}
		if err := g.CreateRel(ctx, r); err != nil {
			t.Fatalf("CreateRel failed: %v", err)
		}
	}
}
