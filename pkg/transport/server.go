// Package transport exposes the protocol adapters over HTTP. Non-streaming
// requests are plain JSON request/response; streaming requests are served as
// newline-delimited JSON, one event per line.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/prismgate/prism/pkg/observability"
	"github.com/prismgate/prism/pkg/protocol"
)

// DegradeReporter is implemented by stores that can report fallback status.
type DegradeReporter interface {
	Degraded() bool
}

// Config holds the HTTP server settings.
type Config struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
}

// Server dispatches inbound requests to registered protocol adapters.
type Server struct {
	cfg       Config
	protocols *protocol.Registry
	metrics   *observability.Metrics
	store     DegradeReporter
	server    *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMetrics attaches the metric set and its scrape endpoint.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithStoreStatus surfaces store degradation on the health endpoint.
func WithStoreStatus(r DegradeReporter) ServerOption {
	return func(s *Server) { s.store = r }
}

// NewServer creates the HTTP server over the protocol registry.
func NewServer(cfg Config, protocols *protocol.Registry, opts ...ServerOption) *Server {
	cfg.SetDefaults()
	s := &Server{
		cfg:       cfg,
		protocols: protocols,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	r.Route("/v1/{protocol}", func(r chi.Router) {
		r.Post("/", s.handleExecute)
		r.Post("/stream", s.handleStream)
	})

	s.server = &http.Server{
		Addr:        cfg.Address,
		Handler:     r,
		ReadTimeout: cfg.ReadTimeout,
		// WriteTimeout stays unset unless configured: streams are
		// long-lived by design.
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	slog.Info("http server listening", "address", s.cfg.Address)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if s.store != nil {
		resp["store_degraded"] = s.store.Degraded()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleExecute serves a non-streaming protocol request.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	adapter, ok := s.resolve(w, r)
	if !ok {
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := adapter.Execute(r.Context(), body)
	if err != nil {
		if protocol.IsClientError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("protocol execute failed", "protocol", adapter.Name(), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleStream serves a streaming protocol request as NDJSON.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	adapter, ok := s.resolve(w, r)
	if !ok {
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	var sink protocol.EventSink = NewNDJSONSink(w)
	if s.metrics != nil {
		name := adapter.Name()
		sink = &countingSink{inner: sink, onW: func() { s.metrics.ChunkEmitted(name) }}
	}

	s.metrics.RunStarted()
	err = adapter.ExecuteStream(r.Context(), body, sink)
	if err != nil {
		s.metrics.RunFailed()
		// Headers are already on the wire, so the failure is reported as a
		// final NDJSON line rather than a status code.
		slog.Error("protocol stream failed", "protocol", adapter.Name(), "error", err)
		line := map[string]any{"error": err.Error()}
		if protocol.IsClientError(err) {
			line["client_error"] = true
		}
		_ = NewNDJSONSink(w).Write(r.Context(), line)
		return
	}
	s.metrics.RunFinished()
}

// resolve looks up the adapter named in the URL. Unknown protocols are a
// client-facing 404, not an internal error.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) (protocol.Adapter, bool) {
	name := chi.URLParam(r, "protocol")
	adapter, ok := s.protocols.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown protocol '%s'", name))
		return nil, false
	}
	return adapter, true
}

func readBody(r *http.Request) (json.RawMessage, error) {
	defer r.Body.Close()
	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
