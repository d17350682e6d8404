package provider

import (
	"context"

	"github.com/rmax-ai/graphbar/pkg/graph"
)

// ProviderID identifies a registered connection provider (e.g., "sqlite", "redis")
type ProviderID string

// Provider is a registered factory of graph database connections.
type Provider interface {
	// ID returns the unique identifier for this provider
	ID() ProviderID

	// Connect creates a new connection to the provider's database
	Connect(ctx context.Context) (graph.Conn, error)
}
