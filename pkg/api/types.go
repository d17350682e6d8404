package api

import (
	"time"

	"github.com/rmax-ai/graphbar/pkg/graph"
)

// NodeRequest matches the POST /v1/nodes and PUT /v1/nodes/{id} body schema
type NodeRequest struct {
	ID         string            `json:"id,omitempty"` // taken from the path on PUT
	Label      string            `json:"label"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Node converts the request into a graph node.
func (r NodeRequest) Node() graph.Node {
	return graph.Node{ID: r.ID, Label: r.Label, Properties: r.Properties}
}

// RelRequest matches the POST /v1/rels body schema
type RelRequest struct {
	ID     string `json:"id"`
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
	Type   string `json:"type"`
}

// Rel converts the request into a graph relationship.
func (r RelRequest) Rel() graph.Rel {
	return graph.Rel{ID: r.ID, FromID: r.FromID, ToID: r.ToID, Type: r.Type}
}

// WriteResponse is returned by every successful write
type WriteResponse struct {
	ID     string    `json:"id"`
	Status string    `json:"status"` // created, updated, deleted
	TsAck  time.Time `json:"ts_ack"`
}

// ProviderInfo describes one registered provider
type ProviderInfo struct {
	ID    string `json:"id"`
	Bound bool   `json:"bound"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}
