package api

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rmax-ai/graphbar/pkg/engine"
	"github.com/rmax-ai/graphbar/pkg/graph"
	"github.com/rmax-ai/graphbar/pkg/provider"
)

// Context keys
type contextKey string

const traceIDKey contextKey = "trace_id"

// Interfaces for dependencies to enable mocking

type StatusSource interface {
	Status() engine.Status
	Refresh()
}

type ProviderLister interface {
	Providers() []provider.Provider
}

// Server encapsulates the HTTP API server
type Server struct {
	server    *http.Server
	status    StatusSource
	providers ProviderLister
	writer    graph.Writer
	logger    *slog.Logger

	// Optional bearer token guarding writes, stored as a sha256 hex digest
	tokenHash string
}

// NewServer creates a new API server instance. writer may be nil, in which
// case write endpoints answer 503.
func NewServer(status StatusSource, providers ProviderLister, writer graph.Writer, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		status:    status,
		providers: providers,
		writer:    writer,
		logger:    logger,
	}

	mux := http.NewServeMux()

	// Register routes
	mux.HandleFunc("/v1/health", handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("POST /v1/refresh", s.withAuth(s.handleRefresh))
	mux.HandleFunc("GET /v1/providers", s.handleProviders)
	mux.HandleFunc("POST /v1/nodes", s.withAuth(s.handleCreateNode))
	mux.HandleFunc("PUT /v1/nodes/{id}", s.withAuth(s.handleUpdateNode))
	mux.HandleFunc("DELETE /v1/nodes/{id}", s.withAuth(s.handleDeleteNode))
	mux.HandleFunc("POST /v1/rels", s.withAuth(s.handleCreateRel))
	mux.HandleFunc("DELETE /v1/rels/{id}", s.withAuth(s.handleDeleteRel))

	// Middleware: Logging, Panic Recovery, Security Headers
	handler := s.withLogging(s.withRecovery(withSecureHeaders(mux)))

	// Use default port if addr is empty
	if addr == "" {
		addr = ":8090"
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	return s
}

// SetToken requires "Authorization: Bearer <token>" on write endpoints.
func (s *Server) SetToken(token string) {
	if token == "" {
		s.tokenHash = ""
		return
	}
	s.tokenHash = hashToken(token)
}

// Handler returns the root handler, including middleware.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start runs the HTTP server (blocking)
func (s *Server) Start() error {
	s.logger.Info("Server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Server stopping")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		writeError(w, http.StatusServiceUnavailable, "status_unavailable", "")
		return
	}
	st := s.status.Status()

	// Plain text for status bars and shell prompts
	if strings.Contains(r.Header.Get("Accept"), "text/plain") {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, st.Text)
		return
	}
	s.writeJSON(w, r, http.StatusOK, st)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		writeError(w, http.StatusServiceUnavailable, "status_unavailable", "")
		return
	}
	s.status.Refresh()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	infos := []ProviderInfo{}
	var bound provider.ProviderID
	if s.status != nil {
		bound = s.status.Status().Provider
	}
	if s.providers != nil {
		for _, p := range s.providers.Providers() {
			infos = append(infos, ProviderInfo{ID: string(p.ID()), Bound: p.ID() == bound})
		}
	}
	s.writeJSON(w, r, http.StatusOK, infos)
}

func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	var req NodeRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.write(w, r, req.ID, "created", http.StatusCreated, func(ctx context.Context) error {
		return s.writer.CreateNode(ctx, req.Node())
	})
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req NodeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ID != "" && req.ID != id {
		writeError(w, http.StatusBadRequest, "id_mismatch", "body id does not match path")
		return
	}
	req.ID = id
	s.write(w, r, id, "updated", http.StatusOK, func(ctx context.Context) error {
		return s.writer.UpdateNode(ctx, req.Node())
	})
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.write(w, r, id, "deleted", http.StatusOK, func(ctx context.Context) error {
		return s.writer.DeleteNode(ctx, id)
	})
}

func (s *Server) handleCreateRel(w http.ResponseWriter, r *http.Request) {
	var req RelRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.write(w, r, req.ID, "created", http.StatusCreated, func(ctx context.Context) error {
		return s.writer.CreateRel(ctx, req.Rel())
	})
}

func (s *Server) handleDeleteRel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.write(w, r, id, "deleted", http.StatusOK, func(ctx context.Context) error {
		return s.writer.DeleteRel(ctx, id)
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json_body", "")
		return false
	}
	return true
}

// write runs a graph write and maps its error onto a status code.
func (s *Server) write(w http.ResponseWriter, r *http.Request, id, status string, code int, fn func(ctx context.Context) error) {
	if s.writer == nil {
		writeError(w, http.StatusServiceUnavailable, "writes_unavailable", "")
		return
	}

	if err := fn(r.Context()); err != nil {
		switch {
		case errors.Is(err, graph.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", err.Error())
		case errors.Is(err, graph.ErrExists):
			writeError(w, http.StatusConflict, "already_exists", err.Error())
		case errors.Is(err, graph.ErrDangling):
			writeError(w, http.StatusUnprocessableEntity, "dangling_relationship", err.Error())
		case errors.Is(err, graph.ErrInvalid):
			writeError(w, http.StatusBadRequest, "invalid_entity", err.Error())
		default:
			s.logger.Error("Graph write failed", "trace_id", getTraceID(r.Context()), "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal_server_error", "")
		}
		return
	}

	s.writeJSON(w, r, code, WriteResponse{ID: id, Status: status, TsAck: time.Now().UTC()})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "trace_id", getTraceID(r.Context()), "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, errCode, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: errCode, Reason: reason})
}

// handleHealth returns the liveness status
func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// Middleware: Bearer token check on writes
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.tokenHash == "" {
			next(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing_token")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid_token_format")
			return
		}

		if subtle.ConstantTimeCompare([]byte(hashToken(parts[1])), []byte(s.tokenHash)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid_token")
			return
		}

		next(w, r)
	}
}

// Middleware: Panic Recovery
func (s *Server) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("Panic recovered", "error", err, "path", r.URL.Path)
				http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Middleware: Request Logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// 1. Extract or Generate Trace ID
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = generateTraceID()
		}

		// 2. Inject into Context
		ctx := context.WithValue(r.Context(), traceIDKey, traceID)
		r = r.WithContext(ctx)

		// Wrap writer to capture status code
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		// 3. Set response header
		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(ww, r)

		s.logger.Debug("HTTP request",
			"trace_id", traceID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func generateTraceID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// Fallback if random fails (unlikely)
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

func getTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// statusWriter captures HTTP status code
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// Middleware: Secure Headers
func withSecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:;")
		w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("X-XSS-Protection", "1; mode=block")

		next.ServeHTTP(w, r)
	})
}
