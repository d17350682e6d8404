package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/rmax-ai/graphbar/pkg/graph"
)

// CreateNode inserts a node.
func (s *Store) CreateNode(ctx context.Context, n graph.Node) error {
	if err := n.Validate(); err != nil {
		return err
	}
	props, err := marshalProps(n.Properties)
	if err != nil {
		return err
	}
	return s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO nodes (node_id, label, properties) VALUES (?, ?, ?)`,
			n.ID, n.Label, props)
		if err != nil {
			return fmt.Errorf("node %s: %w", n.ID, mapConstraint(err))
		}
		return nil
	})
}

// UpdateNode replaces the label and properties of an existing node.
func (s *Store) UpdateNode(ctx context.Context, n graph.Node) error {
	if err := n.Validate(); err != nil {
		return err
	}
	props, err := marshalProps(n.Properties)
	if err != nil {
		return err
	}
	return s.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE nodes SET label = ?, properties = ?, updated_at = CURRENT_TIMESTAMP WHERE node_id = ?`,
			n.Label, props, n.ID)
		if err != nil {
			return fmt.Errorf("failed to update node %s: %w", n.ID, err)
		}
		return requireAffected(res, "node", n.ID)
	})
}

// DeleteNode removes a node; its relationships are removed by cascade.
func (s *Store) DeleteNode(ctx context.Context, id string) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE node_id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete node %s: %w", id, err)
		}
		return requireAffected(res, "node", id)
	})
}

// CreateRel inserts a relationship between two existing nodes.
func (s *Store) CreateRel(ctx context.Context, r graph.Rel) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO rels (rel_id, from_id, to_id, rel_type) VALUES (?, ?, ?, ?)`,
			r.ID, r.FromID, r.ToID, r.Type)
		if err != nil {
			return fmt.Errorf("rel %s: %w", r.ID, mapConstraint(err))
		}
		return nil
	})
}

// DeleteRel removes a relationship.
func (s *Store) DeleteRel(ctx context.Context, id string) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM rels WHERE rel_id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete rel %s: %w", id, err)
		}
		return requireAffected(res, "rel", id)
	})
}

// GetNode returns a node by ID.
func (s *Store) GetNode(ctx context.Context, id string) (graph.Node, error) {
	var (
		n     graph.Node
		props string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT node_id, label, properties FROM nodes WHERE node_id = ?`, id).
		Scan(&n.ID, &n.Label, &props)
	if errors.Is(err, sql.ErrNoRows) {
		return graph.Node{}, fmt.Errorf("node %s: %w", id, graph.ErrNotFound)
	}
	if err != nil {
		return graph.Node{}, fmt.Errorf("failed to get node %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(props), &n.Properties); err != nil {
		return graph.Node{}, fmt.Errorf("failed to decode properties of node %s: %w", id, err)
	}
	if len(n.Properties) == 0 {
		n.Properties = nil
	}
	return n, nil
}

// write runs fn in a transaction and notifies subscribers once it committed.
func (s *Store) write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.hub.Notify()
	return nil
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, graph.ErrNotFound)
	}
	return nil
}

// mapConstraint translates SQLite constraint violations into graph errors.
func mapConstraint(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
		return graph.ErrExists
	case sqlite3.ErrConstraintForeignKey:
		return graph.ErrDangling
	default:
		return err
	}
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
