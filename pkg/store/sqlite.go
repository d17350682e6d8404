package store

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rmax-ai/graphbar/pkg/graph"
)

// CountQuery is the aggregate query served to the coordinator.
const CountQuery = `SELECT (SELECT COUNT(*) FROM nodes) AS nodes, (SELECT COUNT(*) FROM rels) AS rels`

// Store manages the SQLite connection and schema of a graph database.
// All sessions opened on a Store share its notification hub.
type Store struct {
	db  *sql.DB
	hub *graph.Hub
}

// NewStore initializes the SQLite database connection.
// It enables WAL mode for concurrency and durability.
func NewStore(dbPath string) (*Store, error) {
	// Open the database; foreign keys are enforced per connection via the DSN
	db, err := sql.Open("sqlite3", withForeignKeys(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	// Enable WAL mode (Write-Ahead Logging)
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db, hub: graph.NewHub()}

	// Initialize schema
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Hub returns the store's change notification hub.
func (s *Store) Hub() *graph.Hub {
	return s.hub
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS nodes (
		node_id TEXT PRIMARY KEY,
		label TEXT NOT NULL DEFAULT '',
		properties JSON NOT NULL DEFAULT '{}',
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS rels (
		rel_id TEXT PRIMARY KEY,
		from_id TEXT NOT NULL REFERENCES nodes(node_id) ON DELETE CASCADE,
		to_id TEXT NOT NULL REFERENCES nodes(node_id) ON DELETE CASCADE,
		rel_type TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_rels_from ON rels(from_id);
	CREATE INDEX IF NOT EXISTS idx_rels_to ON rels(to_id);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create graph tables: %w", err)
	}

	return nil
}

func withForeignKeys(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath + "&_foreign_keys=on"
	}
	return dbPath + "?_foreign_keys=on"
}
