package presenter

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rmax-ai/graphbar/pkg/engine"
)

var (
	_ engine.Presenter = (*Writer)(nil)
	_ engine.Presenter = (*Recorder)(nil)
	_ engine.Presenter = Multi(nil)
)

func TestLoop_RunsSerially(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	var active, overlap atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Do(func() {
				if active.Add(1) > 1 {
					overlap.Add(1)
				}
				active.Add(-1)
			})
			if err != nil {
				t.Errorf("Do failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if overlap.Load() != 0 {
		t.Fatalf("expected serial execution, saw %d overlaps", overlap.Load())
	}
}

func TestLoop_DoIsSynchronous(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	ran := false
	if err := l.Do(func() { ran = true }); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if !ran {
		t.Fatal("expected fn to have run when Do returned")
	}
}

func TestLoop_DoAfterClose(t *testing.T) {
	l := NewLoop()
	l.Close()
	l.Close()

	if err := l.Do(func() {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestWriter_RendersLines(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithPrefix("graph "))
	w.Render("n: 1 - r: 0")
	w.Render("- error -")
	w.Close()

	want := "graph n: 1 - r: 0\ngraph - error -\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}

func TestWriter_UnavailableAfterClose(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithTimestamp())
	if !w.Available() {
		t.Fatal("expected open writer to be available")
	}
	w.Render("n: 0 - r: 0")
	w.Close()
	if w.Available() {
		t.Fatal("expected closed writer to be unavailable")
	}
	w.Render("dropped")

	if strings.Contains(buf.String(), "dropped") {
		t.Fatal("expected render after close to be dropped")
	}
	if !strings.HasSuffix(buf.String(), " n: 0 - r: 0\n") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	if _, _, ok := r.Last(); ok {
		t.Fatal("expected no text before first render")
	}
	r.Render("- unknown -")
	r.Render("n: 2 - r: 1")

	text, at, ok := r.Last()
	if !ok || text != "n: 2 - r: 1" || at.IsZero() {
		t.Fatalf("unexpected last %q %v %v", text, at, ok)
	}
	if r.Renders() != 2 {
		t.Fatalf("expected 2 renders, got %d", r.Renders())
	}
}

func TestMulti_SkipsUnavailable(t *testing.T) {
	var buf bytes.Buffer
	closed := NewWriter(&buf)
	closed.Close()
	rec := NewRecorder()

	m := Multi{closed, rec}
	if !m.Available() {
		t.Fatal("expected multi to be available while one member is")
	}
	m.Render("n: 1 - r: 1")

	if text, _, _ := rec.Last(); text != "n: 1 - r: 1" {
		t.Fatalf("expected recorder to receive render, got %q", text)
	}
	if buf.Len() != 0 {
		t.Fatal("expected closed writer to receive nothing")
	}
	if (Multi{closed}).Available() {
		t.Fatal("expected multi of closed writers to be unavailable")
	}
}
