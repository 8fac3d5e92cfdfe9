package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanonone/jsonkv/internal/mcp"
	"github.com/sanonone/jsonkv/pkg/config"
	"github.com/sanonone/jsonkv/pkg/engine"
)

// Server holds the HTTP interface and the underlying storage Engine.
type Server struct {
	Engine *engine.Engine

	httpServer *http.Server
	handler    http.Handler
	cfg        config.Config
	logger     *slog.Logger
}

// NewServer builds the HTTP server around an open Engine.
// The Engine is owned by the caller: Shutdown does not close it.
func NewServer(eng *engine.Engine, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		Engine: eng,
		cfg:    cfg,
		logger: logger,
	}

	mux := http.NewServeMux()
	s.registerHTTPHandlers(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	if cfg.MCP.Enabled {
		mux.Handle(cfg.MCP.Path, mcp.NewHTTPHandler(eng))
		logger.Info("MCP endpoint enabled", "path", cfg.MCP.Path)
	}

	// Chain middlewares: Recovery -> Logging -> Auth -> Mux
	// Recovery must be outer-most to catch everything.
	var handler http.Handler = mux
	handler = s.authMiddleware(handler)
	handler = s.LoggingMiddleware(handler)
	handler = s.RecoveryMiddleware(handler)
	s.handler = handler

	s.httpServer = &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	return s, nil
}

// Handler returns the full middleware chain, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address and serves until Shutdown.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("HTTP server startup failed: %w", err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
	if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones up to the
// configured timeout. Mutations already past the durable-write step always
// complete inside the engine.
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown of HTTP Server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}
}
