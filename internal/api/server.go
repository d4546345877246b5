// Package api provides the HTTP status/API server: daemon status, block
// and circuit inspection, world edits, auth, and SSE event streaming.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obsidiand/obsidiand/internal/config"
	"github.com/obsidiand/obsidiand/internal/events"
	"github.com/obsidiand/obsidiand/internal/world"
)

// Server is the HTTP API server for obsidiand.
type Server struct {
	cfg        *config.Config
	world      *world.World
	bus        *events.Bus
	logger     *slog.Logger
	httpServer *http.Server
	auth       *AuthMiddleware
	sseHub     *SSEHub
	startTime  time.Time
	version    string
}

// NewServer creates a new API server.
func NewServer(cfg *config.Config, w *world.World, bus *events.Bus, logger *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		cfg:       cfg,
		world:     w,
		bus:       bus,
		logger:    logger,
		startTime: time.Now(),
		version:   "dev",
	}

	for _, opt := range opts {
		opt(s)
	}

	s.auth = NewAuthMiddleware(cfg.API, logger)
	s.sseHub = NewSSEHub(bus, logger)

	return s
}

// ServerOption configures optional Server fields.
type ServerOption func(*Server)

// WithVersion sets the server version string.
func WithVersion(v string) ServerOption {
	return func(s *Server) { s.version = v }
}

// Listen binds the API server to its configured address and prepares
// routes. Call this synchronously to catch port conflicts before starting
// background serve.
func (s *Server) Listen() (net.Listener, error) {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Handler:     newMetricsMiddleware(mux),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		// No WriteTimeout — SSE streams need to stay open
	}

	ln, err := net.Listen("tcp", s.cfg.API.Listen)
	if err != nil {
		return nil, fmt.Errorf("binding API server to %s: %w", s.cfg.API.Listen, err)
	}

	go s.sseHub.Run()

	s.logger.Info("API server listening", "address", ln.Addr().String())
	return ln, nil
}

// Serve accepts connections on the listener until Stop.
func (s *Server) Serve(ln net.Listener) error {
	if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("API server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server and the SSE hub.
func (s *Server) Stop(ctx context.Context) error {
	s.sseHub.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/status", s.auth.RequireAuth(s.handleStatus))
	mux.HandleFunc("GET /api/v1/block", s.auth.RequireAuth(s.handleBlockGet))
	mux.HandleFunc("PUT /api/v1/block", s.auth.RequireAuth(s.handleBlockPut))
	mux.HandleFunc("GET /api/v1/circuit", s.auth.RequireAuth(s.handleCircuit))
	mux.HandleFunc("GET /api/v1/circuits", s.auth.RequireAuth(s.handleCircuits))
	mux.HandleFunc("GET /api/v1/wiregroup", s.auth.RequireAuth(s.handleWireGroup))
	mux.HandleFunc("POST /api/v1/lever/toggle", s.auth.RequireAuth(s.handleLeverToggle))
	mux.HandleFunc("GET /api/v1/events", s.auth.RequireAuth(s.sseHub.ServeHTTP))
}
