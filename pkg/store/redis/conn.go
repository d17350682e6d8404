package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/rmax-ai/graphbar/pkg/graph"
	"github.com/rmax-ai/graphbar/pkg/provider"
)

// Provider returns a connection provider for the Redis graph.
func (g *Graph) Provider(id string) provider.Provider {
	return &redisProvider{id: provider.ProviderID(id), client: g.client}
}

type redisProvider struct {
	id     provider.ProviderID
	client *redis.Client
}

func (p *redisProvider) ID() provider.ProviderID {
	return p.id
}

// Connect subscribes to the change channel and waits for the subscription
// to be confirmed, so no write that commits after Connect returns is missed.
func (p *redisProvider) Connect(ctx context.Context) (graph.Conn, error) {
	ps := p.client.Subscribe(ctx, ChangesChannel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", ChangesChannel, err)
	}

	c := &Conn{
		client: p.client,
		pubsub: ps,
		hub:    graph.NewHub(),
		done:   make(chan struct{}),
	}
	go c.forward(ps.Channel())
	return c, nil
}

// Conn is a connection to a Redis graph.
type Conn struct {
	client *redis.Client
	pubsub *redis.PubSub
	hub    *graph.Hub
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

func (c *Conn) forward(ch <-chan *redis.Message) {
	defer close(c.done)
	for range ch {
		c.hub.Notify()
	}
}

// Subscribe registers l for change notifications published by any writer.
func (c *Conn) Subscribe(l graph.Listener) func() {
	return c.hub.Subscribe(l)
}

// Begin starts a MULTI/EXEC transaction.
func (c *Conn) Begin(ctx context.Context) (graph.Tx, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, graph.ErrClosed
	}
	return &redisTx{pipe: c.client.TxPipeline()}, nil
}

// CountQuery returns the default set cardinality projection.
func (c *Conn) CountQuery() string {
	return CountQuery
}

// Close unsubscribes from the change channel and stops notifications.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.pubsub.Close()
	<-c.done
	return err
}

type redisTx struct {
	pipe redis.Pipeliner
}

type projection struct {
	alias string
	key   string
}

// parseQuery reads whitespace separated alias=key pairs.
func parseQuery(text string) ([]projection, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, errors.New("empty query")
	}
	out := make([]projection, 0, len(fields))
	for _, f := range fields {
		alias, key, ok := strings.Cut(f, "=")
		if !ok || alias == "" || key == "" {
			return nil, fmt.Errorf("invalid projection %q, want alias=key", f)
		}
		out = append(out, projection{alias: alias, key: key})
	}
	return out, nil
}

// Query returns one row with the cardinality of every projected set.
func (t *redisTx) Query(ctx context.Context, text string) (graph.RowSet, error) {
	projs, err := parseQuery(text)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	cmds := make([]*redis.IntCmd, len(projs))
	for i, p := range projs {
		cmds[i] = t.pipe.SCard(ctx, p.key)
	}
	if _, err := t.pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	row := make(graph.Row, len(projs))
	for i, p := range projs {
		row[p.alias] = cmds[i].Val()
	}
	return graph.RowSet{row}, nil
}

func (t *redisTx) Commit() error {
	if t.pipe.Len() == 0 {
		return nil
	}
	_, err := t.pipe.Exec(context.Background())
	return err
}

func (t *redisTx) Rollback() error {
	t.pipe.Discard()
	return nil
}
