package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server is the HTTP API surface.
type Server struct {
	server *http.Server
	logger *slog.Logger
	addr   string

	// Actual bound address (set after Start)
	boundAddr string
}

// NewServer creates the HTTP gateway around a chat handler.
func NewServer(addr string, handler *Handler, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/chat", handler.handleChat)
	mux.HandleFunc("/api/v1/health", handler.handleHealth)
	mux.HandleFunc("/api/v1/providers", handler.handleProviders)

	return &Server{
		logger: logger,
		addr:   addr,
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      120 * time.Second,
		},
	}
}

// Start begins the HTTP server. Non-blocking (serves in a goroutine).
func (s *Server) Start(ctx context.Context) error {
	s.server.BaseContext = func(_ net.Listener) context.Context {
		return ctx
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.boundAddr = ln.Addr().String()

	go func() {
		s.logger.Info("http gateway started", "addr", s.boundAddr)
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the actual bound address after Start.
func (s *Server) Addr() string { return s.boundAddr }

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
