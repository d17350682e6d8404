package main

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rmax-ai/graphbar/pkg/api"
	"github.com/rmax-ai/graphbar/pkg/engine"
	"github.com/rmax-ai/graphbar/pkg/graph"
	"github.com/rmax-ai/graphbar/pkg/provider"
)

type fixedStatus struct{ st engine.Status }

func (f *fixedStatus) Status() engine.Status { return f.st }
func (f *fixedStatus) Refresh()              {}

func newDaemon(t *testing.T) *graph.Memory {
	t.Helper()
	g := graph.NewMemory()
	reg := provider.NewRegistry()
	if err := reg.Register(provider.NewMockProviderFor("local", g)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	st := &fixedStatus{st: engine.Status{Text: "n: 4 - r: 2", Kind: "success", Provider: "local", Bound: true}}
	ts := httptest.NewServer(api.NewServer(st, reg, g, "", nil).Handler())
	t.Cleanup(ts.Close)
	t.Setenv("GRAPHBAR_URL", ts.URL)
	return g
}

func TestRun_Status(t *testing.T) {
	newDaemon(t)

	var out bytes.Buffer
	if err := run([]string{"status", "-plain"}, &out); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if out.String() != "n: 4 - r: 2\n" {
		t.Errorf("unexpected plain status %q", out.String())
	}

	out.Reset()
	if err := run([]string{"status"}, &out); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out.String(), "provider: local") {
		t.Errorf("unexpected status output %q", out.String())
	}
}

func TestRun_Providers(t *testing.T) {
	newDaemon(t)
	var out bytes.Buffer
	if err := run([]string{"providers"}, &out); err != nil {
		t.Fatalf("providers failed: %v", err)
	}
	if out.String() != "* local\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestRun_Writes(t *testing.T) {
	g := newDaemon(t)
	var out bytes.Buffer

	steps := [][]string{
		{"node", "add", "a", "Person", "name=Ada"},
		{"node", "add", "b"},
		{"node", "set", "b", "Robot"},
		{"rel", "add", "r1", "a", "b", "BUILT"},
	}
	for _, args := range steps {
		if err := run(args, &out); err != nil {
			t.Fatalf("%v failed: %v", args, err)
		}
	}
	if nodes, rels := g.Counts(); nodes != 2 || rels != 1 {
		t.Fatalf("expected 2 nodes and 1 rel, got %d/%d", nodes, rels)
	}
	if n, _ := g.Node("a"); n.Label != "Person" || n.Properties["name"] != "Ada" {
		t.Errorf("unexpected node %+v", n)
	}

	if err := run([]string{"rel", "rm", "r1"}, &out); err != nil {
		t.Fatalf("rel rm failed: %v", err)
	}
	if err := run([]string{"node", "rm", "a"}, &out); err != nil {
		t.Fatalf("node rm failed: %v", err)
	}
	if err := run([]string{"node", "rm", "a"}, &out); !errors.Is(err, graph.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRun_Usage(t *testing.T) {
	tests := [][]string{
		nil,
		{"bogus"},
		{"node"},
		{"node", "frobnicate", "x"},
		{"rel", "add", "r1", "a"},
	}
	for _, args := range tests {
		if err := run(args, &bytes.Buffer{}); !errors.Is(err, errUsage) {
			t.Errorf("%v: expected usage error, got %v", args, err)
		}
	}
}

func TestParseNode(t *testing.T) {
	n, err := parseNode("x", []string{"k=v", "a=b=c"})
	if err != nil {
		t.Fatalf("parseNode failed: %v", err)
	}
	if n.Label != "" || n.Properties["k"] != "v" || n.Properties["a"] != "b=c" {
		t.Errorf("unexpected node %+v", n)
	}
	if _, err := parseNode("x", []string{"Label", "=v"}); err == nil {
		t.Fatal("expected error for empty key")
	}
}
