package main

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/rmax-ai/graphbar/pkg/graph"
	"github.com/rmax-ai/graphbar/pkg/provider"
	"github.com/rmax-ai/graphbar/pkg/store"
	redisstore "github.com/rmax-ai/graphbar/pkg/store/redis"
)

// backend is the graph database the daemon serves: the provider it
// registers and the writer behind the API.
type backend struct {
	provider provider.Provider
	writer   graph.Writer
	close    func() error
}

func openBackend(cfg Config) (*backend, error) {
	switch cfg.Backend {
	case "sqlite":
		st, err := store.NewStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to init store: %w", err)
		}
		return &backend{provider: st.Provider(cfg.ProviderID), writer: st, close: st.Close}, nil

	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		g := redisstore.NewGraph(client)
		return &backend{provider: g.Provider(cfg.ProviderID), writer: g, close: client.Close}, nil

	case "memory":
		mp := provider.NewMockProvider(cfg.ProviderID)
		return &backend{provider: mp, writer: mp.Graph(), close: func() error { return nil }}, nil
	}
	return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
}
