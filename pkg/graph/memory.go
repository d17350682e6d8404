package graph

import (
	"context"
	"fmt"
	"sync"
)

// MemoryCountQuery is the only query text understood by Memory.
const MemoryCountQuery = "COUNT nodes, rels"

// Memory is an in-process graph. It is safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	rels  map[string]*Rel
	hub   *Hub
}

// NewMemory creates an empty in-memory graph.
func NewMemory() *Memory {
	return &Memory{
		nodes: make(map[string]*Node),
		rels:  make(map[string]*Rel),
		hub:   NewHub(),
	}
}

// Hub returns the notification hub shared by all connections to m.
func (m *Memory) Hub() *Hub {
	return m.hub
}

// CreateNode adds a node.
func (m *Memory) CreateNode(ctx context.Context, n Node) error {
	if err := n.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	if _, exists := m.nodes[n.ID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("node %s: %w", n.ID, ErrExists)
	}
	m.nodes[n.ID] = cloneNode(n)
	m.mu.Unlock()

	m.hub.Notify()
	return nil
}

// UpdateNode replaces the label and properties of an existing node.
func (m *Memory) UpdateNode(ctx context.Context, n Node) error {
	if err := n.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	if _, exists := m.nodes[n.ID]; !exists {
		m.mu.Unlock()
		return fmt.Errorf("node %s: %w", n.ID, ErrNotFound)
	}
	m.nodes[n.ID] = cloneNode(n)
	m.mu.Unlock()

	m.hub.Notify()
	return nil
}

// DeleteNode removes a node and every relationship touching it.
func (m *Memory) DeleteNode(ctx context.Context, id string) error {
	m.mu.Lock()
	if _, exists := m.nodes[id]; !exists {
		m.mu.Unlock()
		return fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	delete(m.nodes, id)
	for relID, r := range m.rels {
		if r.FromID == id || r.ToID == id {
			delete(m.rels, relID)
		}
	}
	m.mu.Unlock()

	m.hub.Notify()
	return nil
}

// CreateRel adds a relationship between two existing nodes.
func (m *Memory) CreateRel(ctx context.Context, r Rel) error {
	if err := r.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	if _, exists := m.rels[r.ID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("rel %s: %w", r.ID, ErrExists)
	}
	_, fromOK := m.nodes[r.FromID]
	_, toOK := m.nodes[r.ToID]
	if !fromOK || !toOK {
		m.mu.Unlock()
		return fmt.Errorf("rel %s: %w", r.ID, ErrDangling)
	}
	rel := r
	m.rels[r.ID] = &rel
	m.mu.Unlock()

	m.hub.Notify()
	return nil
}

// DeleteRel removes a relationship.
func (m *Memory) DeleteRel(ctx context.Context, id string) error {
	m.mu.Lock()
	if _, exists := m.rels[id]; !exists {
		m.mu.Unlock()
		return fmt.Errorf("rel %s: %w", id, ErrNotFound)
	}
	delete(m.rels, id)
	m.mu.Unlock()

	m.hub.Notify()
	return nil
}

// Counts returns the number of nodes and relationships.
func (m *Memory) Counts() (nodes, rels int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.nodes)), int64(len(m.rels))
}

// Query evaluates MemoryCountQuery against the current contents.
func (m *Memory) Query(ctx context.Context, text string) (RowSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if text != MemoryCountQuery {
		return nil, fmt.Errorf("memory graph: unsupported query %q", text)
	}
	nodes, rels := m.Counts()
	return RowSet{{"nodes": nodes, "rels": rels}}, nil
}

// Node returns a copy of the node with the given ID.
func (m *Memory) Node(id string) (Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *cloneNode(*n), true
}

func cloneNode(n Node) *Node {
	c := n
	if n.Properties != nil {
		c.Properties = make(map[string]string, len(n.Properties))
		for k, v := range n.Properties {
			c.Properties[k] = v
		}
	}
	return &c
}
