package graph

import (
	"context"
	"fmt"
	"strconv"
)

// Listener is invoked after a create, update or delete has committed.
// It carries no payload beyond "something changed".
type Listener func()

// Row is a single result row keyed by column name.
type Row map[string]any

// Int64 returns the named column as an int64.
func (r Row) Int64(col string) (int64, error) {
	v, ok := r[col]
	if !ok {
		return 0, fmt.Errorf("column %q not in row", col)
	}
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	case string:
		return strconv.ParseInt(x, 10, 64)
	default:
		return 0, fmt.Errorf("column %q has unsupported type %T", col, v)
	}
}

// RowSet is the result of a query.
type RowSet []Row

// Tx is a read transaction on a connection.
type Tx interface {
	Query(ctx context.Context, text string) (RowSet, error)
	Commit() error
	Rollback() error
}

// Conn is a connection to a graph database.
type Conn interface {
	// Subscribe registers l for post-commit change notifications.
	// The returned function removes the subscription.
	Subscribe(l Listener) (cancel func())

	// Begin starts a transaction.
	Begin(ctx context.Context) (Tx, error)

	// CountQuery returns the backend's aggregate query, which yields
	// a single row with "nodes" and "rels" columns.
	CountQuery() string

	// Close releases the connection and drops its subscriptions.
	Close() error
}

// Writer mutates a graph. Every successful call notifies subscribers
// after the write has committed.
type Writer interface {
	CreateNode(ctx context.Context, n Node) error
	UpdateNode(ctx context.Context, n Node) error
	DeleteNode(ctx context.Context, id string) error
	CreateRel(ctx context.Context, r Rel) error
	DeleteRel(ctx context.Context, id string) error
}
