package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rmax-ai/graphbar/pkg/graph"
)

const (
	nodesSet      = "graphbar:nodes"
	relsSet       = "graphbar:rels"
	nodeKeyPrefix = "graphbar:node:"
	relKeyPrefix  = "graphbar:rel:"

	// ChangesChannel carries a message for every committed write.
	ChangesChannel = "graphbar:changes"

	// CountQuery projects the cardinality of the node and rel sets.
	CountQuery = "nodes=" + nodesSet + " rels=" + relsSet
)

// Graph is a graph database stored in Redis. Writers in any process that
// share the Redis instance notify every subscribed connection.
type Graph struct {
	client *redis.Client
}

// NewGraph creates a Redis-backed graph.
func NewGraph(client *redis.Client) *Graph {
	return &Graph{client: client}
}

func (g *Graph) makeNodeKey(id string) string {
	return nodeKeyPrefix + id
}

func (g *Graph) makeAdjacencyKey(id string) string {
	return nodeKeyPrefix + id + ":rels"
}

func (g *Graph) makeRelKey(id string) string {
	return relKeyPrefix + id
}

// CreateNode adds a node.
func (g *Graph) CreateNode(ctx context.Context, n graph.Node) error {
	if err := n.Validate(); err != nil {
		return err
	}
	props, err := marshalProps(n.Properties)
	if err != nil {
		return err
	}
	res, err := createNodeScript.Run(ctx, g.client,
		[]string{nodesSet, g.makeNodeKey(n.ID)},
		n.ID, n.Label, props, ChangesChannel).Int64()
	if err != nil {
		return fmt.Errorf("failed to create node %s: %w", n.ID, err)
	}
	if res == scriptConflict {
		return fmt.Errorf("node %s: %w", n.ID, graph.ErrExists)
	}
	return nil
}

// UpdateNode replaces the label and properties of an existing node.
func (g *Graph) UpdateNode(ctx context.Context, n graph.Node) error {
	if err := n.Validate(); err != nil {
		return err
	}
	props, err := marshalProps(n.Properties)
	if err != nil {
		return err
	}
	res, err := updateNodeScript.Run(ctx, g.client,
		[]string{nodesSet, g.makeNodeKey(n.ID)},
		n.ID, n.Label, props, ChangesChannel).Int64()
	if err != nil {
		return fmt.Errorf("failed to update node %s: %w", n.ID, err)
	}
	if res == scriptConflict {
		return fmt.Errorf("node %s: %w", n.ID, graph.ErrNotFound)
	}
	return nil
}

// DeleteNode removes a node and every relationship touching it.
func (g *Graph) DeleteNode(ctx context.Context, id string) error {
	res, err := deleteNodeScript.Run(ctx, g.client,
		[]string{nodesSet, relsSet, g.makeNodeKey(id), g.makeAdjacencyKey(id)},
		id, nodeKeyPrefix, relKeyPrefix, ChangesChannel).Int64()
	if err != nil {
		return fmt.Errorf("failed to delete node %s: %w", id, err)
	}
	if res == scriptConflict {
		return fmt.Errorf("node %s: %w", id, graph.ErrNotFound)
	}
	return nil
}

// CreateRel adds a relationship between two existing nodes.
func (g *Graph) CreateRel(ctx context.Context, r graph.Rel) error {
	if err := r.Validate(); err != nil {
		return err
	}
	res, err := createRelScript.Run(ctx, g.client,
		[]string{nodesSet, relsSet, g.makeRelKey(r.ID), g.makeAdjacencyKey(r.FromID), g.makeAdjacencyKey(r.ToID)},
		r.ID, r.FromID, r.ToID, r.Type, ChangesChannel).Int64()
	if err != nil {
		return fmt.Errorf("failed to create rel %s: %w", r.ID, err)
	}
	switch res {
	case scriptConflict:
		return fmt.Errorf("rel %s: %w", r.ID, graph.ErrExists)
	case scriptDangling:
		return fmt.Errorf("rel %s: %w", r.ID, graph.ErrDangling)
	}
	return nil
}

// DeleteRel removes a relationship.
func (g *Graph) DeleteRel(ctx context.Context, id string) error {
	res, err := deleteRelScript.Run(ctx, g.client,
		[]string{relsSet, g.makeRelKey(id)},
		id, nodeKeyPrefix, ChangesChannel).Int64()
	if err != nil {
		return fmt.Errorf("failed to delete rel %s: %w", id, err)
	}
	if res == scriptConflict {
		return fmt.Errorf("rel %s: %w", id, graph.ErrNotFound)
	}
	return nil
}

func marshalProps(props map[string]string) (string, error) {
	if props == nil {
		return "{}", nil
	}
	data, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("failed to encode properties: %w", err)
	}
	return string(data), nil
}
