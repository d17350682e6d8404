package mcp

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rmax-ai/graphbar/pkg/api"
	"github.com/rmax-ai/graphbar/pkg/engine"
	"github.com/rmax-ai/graphbar/pkg/graph"
	"github.com/rmax-ai/graphbar/pkg/provider"
)

type fixedStatus struct{ st engine.Status }

func (f *fixedStatus) Status() engine.Status { return f.st }
func (f *fixedStatus) Refresh()              {}

func newTestServer(t *testing.T) (*Server, *graph.Memory) {
	t.Helper()
	g := graph.NewMemory()
	reg := provider.NewRegistry()
	if err := reg.Register(provider.NewMockProviderFor("local", g)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	st := &fixedStatus{st: engine.Status{Text: "n: 3 - r: 5", Kind: "success", Provider: "local", Bound: true}}
	ts := httptest.NewServer(api.NewServer(st, reg, g, "", nil).Handler())
	t.Cleanup(ts.Close)
	return NewServer(ts.URL), g
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("%s failed: %v", name, err)
	}
	return result
}

func TestMCPServer_ReadStatus(t *testing.T) {
	s, _ := newTestServer(t)

	req := mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: "graphbar://status",
		},
	}
	result, err := s.handleReadStatus(context.Background(), req)
	if err != nil {
		t.Fatalf("handleReadStatus failed: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("Expected 1 resource content, got %d", len(result))
	}

	content, ok := result[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("Expected TextResourceContents")
	}
	if content.MIMEType != "application/json" {
		t.Errorf("Expected application/json, got %s", content.MIMEType)
	}

	var st map[string]any
	if err := json.Unmarshal([]byte(content.Text), &st); err != nil {
		t.Fatalf("Failed to parse result JSON: %v", err)
	}
	if st["text"] != "n: 3 - r: 5" {
		t.Errorf("unexpected status %v", st)
	}
}

func TestMCPServer_ReadProviders(t *testing.T) {
	s, _ := newTestServer(t)
	req := mcp.ReadResourceRequest{Params: mcp.ReadResourceParams{URI: "graphbar://providers"}}

	result, err := s.handleReadProviders(context.Background(), req)
	if err != nil {
		t.Fatalf("handleReadProviders failed: %v", err)
	}
	content := result[0].(mcp.TextResourceContents)
	var infos []map[string]any
	if err := json.Unmarshal([]byte(content.Text), &infos); err != nil {
		t.Fatalf("Failed to parse result JSON: %v", err)
	}
	if len(infos) != 1 || infos[0]["id"] != "local" {
		t.Errorf("unexpected providers %v", infos)
	}
}

func TestMCPServer_WriteTools(t *testing.T) {
	s, g := newTestServer(t)

	for _, id := range []string{"a", "b"} {
		if res := callTool(t, s.handleCreateNode, "create_node", map[string]any{"id": id, "label": "Person"}); res.IsError {
			t.Fatalf("create_node %s returned error", id)
		}
	}
	res := callTool(t, s.handleCreateRel, "create_rel", map[string]any{"id": "r", "from_id": "a", "to_id": "b", "type": "KNOWS"})
	if res.IsError {
		t.Fatal("create_rel returned error")
	}
	if nodes, rels := g.Counts(); nodes != 2 || rels != 1 {
		t.Fatalf("expected 2 nodes and 1 rel, got %d/%d", nodes, rels)
	}

	if res := callTool(t, s.handleDeleteNode, "delete_node", map[string]any{"id": "a"}); res.IsError {
		t.Fatal("delete_node returned error")
	}
	if nodes, rels := g.Counts(); nodes != 1 || rels != 0 {
		t.Fatalf("expected cascade delete, got %d/%d", nodes, rels)
	}
}

func TestMCPServer_ToolErrors(t *testing.T) {
	s, _ := newTestServer(t)

	res := callTool(t, s.handleDeleteNode, "delete_node", map[string]any{"id": "missing"})
	if !res.IsError {
		t.Fatal("expected error result for missing node")
	}
	res = callTool(t, s.handleCreateRel, "create_rel", map[string]any{"id": "r", "from_id": "x", "to_id": "y"})
	if !res.IsError {
		t.Fatal("expected error result for dangling relationship")
	}
}

func TestMCPServer_Prompt(t *testing.T) {
	s, _ := newTestServer(t)

	req := mcp.GetPromptRequest{Params: mcp.GetPromptParams{Name: "graphbar-aware"}}
	result, err := s.handleGetPrompt(context.Background(), req)
	if err != nil {
		t.Fatalf("handleGetPrompt failed: %v", err)
	}
	if len(result.Messages) != 1 {
		t.Fatalf("expected one message, got %d", len(result.Messages))
	}

	req.Params.Name = "other"
	if _, err := s.handleGetPrompt(context.Background(), req); err == nil {
		t.Fatal("expected unknown prompt to fail")
	}
}
