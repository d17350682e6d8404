package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a node or relationship does not exist.
	ErrNotFound = errors.New("graph: not found")
	// ErrExists is returned when creating an entity whose ID is taken.
	ErrExists = errors.New("graph: already exists")
	// ErrDangling is returned when a relationship references a missing node.
	ErrDangling = errors.New("graph: relationship endpoint missing")
	// ErrClosed is returned by operations on a closed connection.
	ErrClosed = errors.New("graph: connection closed")
	// ErrInvalid is returned when an entity is missing mandatory fields.
	ErrInvalid = errors.New("graph: invalid entity")
)

// Node represents a vertex in the graph.
type Node struct {
	ID         string            `json:"id"`
	Label      string            `json:"label"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Rel represents a directed relationship between two nodes.
type Rel struct {
	ID     string `json:"id"`
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
	Type   string `json:"type"`
}

// Validate checks the mandatory node fields.
func (n Node) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("%w: node id is required", ErrInvalid)
	}
	return nil
}

// Validate checks the mandatory relationship fields.
func (r Rel) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: rel id is required", ErrInvalid)
	}
	if r.FromID == "" || r.ToID == "" {
		return fmt.Errorf("%w: rel %s: from_id and to_id are required", ErrInvalid, r.ID)
	}
	return nil
}
