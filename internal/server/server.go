// Package server exposes the admin HTTP surface: health, cache statistics,
// invalidation, the feed endpoint and Prometheus metrics.
package server

import (
	"context"
	"net/http"
	"time"
)

// Server wraps an http.Server with sensible timeouts.
type Server struct {
	srv *http.Server
}

// New creates a new server instance listening on port.
func New(handler http.Handler, port string) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         ":" + port,
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Start starts the server in a background goroutine.
func (s *Server) Start() error {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
