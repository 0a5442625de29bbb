// Package server runs the playlistlog HTTP server: the Audioscrobbler
// protocol endpoint and the admin import wizard.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// Config holds server configuration
type Config struct {
	ListenAddr      string        // Address to listen on
	UploadDir       string        // Where uploaded archives are staged (default: system temp dir)
	MaxUploadBytes  int64         // Upload size limit for the import wizard (0 = unlimited)
	ShutdownTimeout time.Duration // Grace period for in-flight requests
}

// Server serves the protocol endpoint until shut down
type Server struct {
	config Config
	http   *http.Server
	logger zerolog.Logger

	// onShutdown runs after the listener has stopped
	onShutdown func(ctx context.Context) error
}

// New creates a server with routes for h
func New(cfg Config, h Handlers, logger zerolog.Logger) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	logger = logger.With().Str("component", "server").Logger()

	return &Server{
		config: cfg,
		http: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           Router(h, cfg, logger),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
			// No write timeout: an archive import holds its request open
			// for as long as the import runs.
		},
		logger: logger,
	}
}

// OnShutdown registers fn to run once the server has stopped serving
func (s *Server) OnShutdown(fn func(ctx context.Context) error) {
	s.onShutdown = fn
}

// Handler returns the HTTP handler, for tests
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run starts the server and blocks until a shutdown signal is received
func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Handle first signal gracefully, second signal forces exit
	go func() {
		<-sigChan
		s.logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		<-sigChan
		s.logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	done := make(chan error, 1)
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			done <- fmt.Errorf("server failed: %w", err)
			return
		}
		done <- nil
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Listening")

	select {
	case <-ctx.Done():
	case err := <-done:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.onShutdown != nil {
		if err := s.onShutdown(shutdownCtx); err != nil {
			return err
		}
	}

	s.logger.Info().Msg("Server stopped")
	return nil
}
