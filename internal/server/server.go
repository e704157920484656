// Package server exposes screening results over a JSON HTTP API.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/BuyBio/BuyBio/internal/metrics"
	"github.com/BuyBio/BuyBio/internal/model"
	"github.com/BuyBio/BuyBio/internal/recorder"
	"github.com/BuyBio/BuyBio/internal/screener"
)

// Deps are the components the API serves from.
type Deps struct {
	Collector screener.Collector
	Screener  *screener.Screener
	Recorder  recorder.Recorder
	Metrics   *metrics.Metrics
	Watchlist []model.Instrument
	Options   screener.Options
}

// Server manages the HTTP server and routes.
type Server struct {
	deps   Deps
	router *http.ServeMux
	server *http.Server

	// runMu serialises on-demand screening when no report exists yet.
	runMu sync.Mutex
}

// New creates a new HTTP server listening on addr.
func New(addr string, deps Deps) *Server {
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	s := &Server{deps: deps}
	s.router = s.setupRoutes()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(s.router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // a cold /api/recommendations screens the whole watchlist
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Printf("[INFO] HTTP server listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("[INFO] shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("[INFO] HTTP server stopped")
	return nil
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
