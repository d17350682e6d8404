package client

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rmax-ai/graphbar/pkg/graph"
)

// Status mirrors the daemon's GET /v1/status response.
type Status struct {
	Text     string    `json:"text"`
	Kind     string    `json:"kind"`
	Provider string    `json:"provider,omitempty"`
	Bound    bool      `json:"bound"`
	Pending  bool      `json:"pending"`
	Polled   time.Time `json:"polled"`
	Error    string    `json:"error,omitempty"`
}

// Health is the GET /v1/health response.
type Health struct {
	Status string `json:"status"`
}

// ProviderInfo describes a registered provider.
type ProviderInfo struct {
	ID    string `json:"id"`
	Bound bool   `json:"bound"`
}

// WriteResult acknowledges a graph write.
type WriteResult struct {
	ID     string    `json:"id"`
	Status string    `json:"status"`
	TsAck  time.Time `json:"ts_ack"`
}

// APIError is a non-2xx reply from the daemon. It unwraps to the matching
// graph error so callers can use errors.Is(err, graph.ErrNotFound).
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error"`
	Reason     string `json:"reason,omitempty"`
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("graphbar: %d %s: %s", e.StatusCode, e.Code, e.Reason)
	}
	return fmt.Sprintf("graphbar: %d %s", e.StatusCode, e.Code)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return graph.ErrNotFound
	case http.StatusConflict:
		return graph.ErrExists
	case http.StatusUnprocessableEntity:
		return graph.ErrDangling
	case http.StatusBadRequest:
		return graph.ErrInvalid
	}
	return nil
}

// temporary reports whether a request failing with err may succeed later.
func temporary(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return true
}
