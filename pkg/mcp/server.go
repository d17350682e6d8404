package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rmax-ai/graphbar/pkg/client"
	"github.com/rmax-ai/graphbar/pkg/graph"
)

// Server adapts graphbar-d to the Model Context Protocol.
type Server struct {
	mcpServer *server.MCPServer
	apiClient *client.Client
}

// NewServer creates a new MCP server instance.
func NewServer(apiURL string, opts ...client.Option) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"graphbar",
			"1.0.0",
		),
		apiClient: client.NewClient(apiURL, opts...),
	}
	s.registerResources()
	s.registerTools()
	s.registerPrompts()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// --- Resources ---

func (s *Server) registerResources() {
	// graphbar://status
	s.mcpServer.AddResource(mcp.NewResource(
		"graphbar://status",
		"Graph Status",
		mcp.WithResourceDescription("Current node and relationship count as shown in the status bar"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadStatus)

	// graphbar://providers
	s.mcpServer.AddResource(mcp.NewResource(
		"graphbar://providers",
		"Connection Providers",
		mcp.WithResourceDescription("Registered database providers and which one is bound"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadProviders)
}

// --- Tools ---

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"create_node",
		mcp.WithDescription("Create a node in the graph."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Unique node identifier")),
		mcp.WithString("label", mcp.Description("Node label (e.g., 'Person')")),
	), s.handleCreateNode)

	s.mcpServer.AddTool(mcp.NewTool(
		"create_rel",
		mcp.WithDescription("Create a relationship between two existing nodes."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Unique relationship identifier")),
		mcp.WithString("from_id", mcp.Required(), mcp.Description("Start node")),
		mcp.WithString("to_id", mcp.Required(), mcp.Description("End node")),
		mcp.WithString("type", mcp.Description("Relationship type (e.g., 'KNOWS')")),
	), s.handleCreateRel)

	s.mcpServer.AddTool(mcp.NewTool(
		"delete_node",
		mcp.WithDescription("Delete a node and all of its relationships."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node identifier")),
	), s.handleDeleteNode)
}

// --- Prompts ---

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(mcp.NewPrompt(
		"graphbar-aware",
		mcp.WithPromptDescription("Explains what the graphbar counts mean"),
	), s.handleGetPrompt)
}

// --- Handlers ---

func (s *Server) handleReadStatus(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	st, err := s.apiClient.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch status: %w", err)
	}
	return jsonContents(request.Params.URI, st)
}

func (s *Server) handleReadProviders(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	infos, err := s.apiClient.Providers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch providers: %w", err)
	}
	return jsonContents(request.Params.URI, infos)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleCreateNode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n := graph.Node{
		ID:    mcp.ParseString(request, "id", ""),
		Label: mcp.ParseString(request, "label", ""),
	}
	if err := s.apiClient.CreateNode(ctx, n); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created node %s", n.ID)), nil
}

func (s *Server) handleCreateRel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r := graph.Rel{
		ID:     mcp.ParseString(request, "id", ""),
		FromID: mcp.ParseString(request, "from_id", ""),
		ToID:   mcp.ParseString(request, "to_id", ""),
		Type:   mcp.ParseString(request, "type", ""),
	}
	if err := s.apiClient.CreateRel(ctx, r); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created relationship %s (%s)-[%s]->(%s)", r.ID, r.FromID, r.Type, r.ToID)), nil
}

func (s *Server) handleDeleteNode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := mcp.ParseString(request, "id", "")
	if err := s.apiClient.DeleteNode(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted node %s", id)), nil
}

func (s *Server) handleGetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	if name != "graphbar-aware" {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}

	promptText := `You are connected to graphbar, a status bar that shows the size of a graph database.

Concepts:
- Node: a vertex with an id, a label and optional properties.
- Relationship: a directed edge between two existing nodes.
- Status text: "n: <nodes> - r: <relationships>"; "- unknown -" when the database returned no row; "- error -" when no database is bound or the count failed.

Read graphbar://status for the current count. Deleting a node also deletes its relationships.
The count refreshes about two seconds after a write, not immediately.
`

	return mcp.NewGetPromptResult(
		"graphbar-aware",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
		},
	), nil
}
