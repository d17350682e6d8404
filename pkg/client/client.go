package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rmax-ai/graphbar/pkg/graph"
)

// Client talks to a graphbar daemon.
type Client struct {
	endpoint string
	http     *http.Client
	token    string
	backoff  BackoffStrategy
	retries  int
}

// Option customizes a Client.
type Option func(*Client)

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRetries retries requests that failed on the network or with a 5xx
// up to n times, waiting according to b between attempts.
func WithRetries(n int, b BackoffStrategy) Option {
	return func(c *Client) {
		c.retries = n
		c.backoff = b
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a new graphbar client.
// endpoint defaults to "http://127.0.0.1:8090" if empty.
func NewClient(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = "http://127.0.0.1:8090"
	}
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		backoff: DefaultBackoff(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks the health of the daemon.
func (c *Client) Ping(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/v1/health", nil, &h)
	return h, err
}

// Status fetches the coordinator status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.do(ctx, http.MethodGet, "/v1/status", nil, &st)
	return st, err
}

// Refresh asks the daemon to recount on its next tick.
func (c *Client) Refresh(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/refresh", nil, nil)
}

// Providers lists the registered providers.
func (c *Client) Providers(ctx context.Context) ([]ProviderInfo, error) {
	var infos []ProviderInfo
	err := c.do(ctx, http.MethodGet, "/v1/providers", nil, &infos)
	return infos, err
}

// CreateNode adds a node.
func (c *Client) CreateNode(ctx context.Context, n graph.Node) error {
	return c.do(ctx, http.MethodPost, "/v1/nodes", n, nil)
}

// UpdateNode replaces a node's label and properties.
func (c *Client) UpdateNode(ctx context.Context, n graph.Node) error {
	return c.do(ctx, http.MethodPut, "/v1/nodes/"+url.PathEscape(n.ID), n, nil)
}

// DeleteNode removes a node and its relationships.
func (c *Client) DeleteNode(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/nodes/"+url.PathEscape(id), nil, nil)
}

// CreateRel adds a relationship.
func (c *Client) CreateRel(ctx context.Context, r graph.Rel) error {
	return c.do(ctx, http.MethodPost, "/v1/rels", r, nil)
}

// DeleteRel removes a relationship.
func (c *Client) DeleteRel(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/rels/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		err := c.once(ctx, method, path, body, out)
		if err == nil || attempt >= c.retries || !temporary(err) || ctx.Err() != nil {
			return err
		}

		select {
		case <-time.After(c.backoff.Next(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) once(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
