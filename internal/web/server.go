package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-session/internal/config"
	"github.com/kozaktomas/face-session/internal/web/handlers"
)

// Server represents the web server
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server
	faces      *handlers.FacesHandler
}

// NewServer creates a new web server over the faces handler
func NewServer(cfg *config.Config, faces *handlers.FacesHandler) *Server {
	r := chi.NewRouter()

	s := &Server{
		config: cfg,
		router: r,
		faces:  faces,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(time.Minute))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Serve accepts connections on l until the server is shut down.
func (s *Server) Serve(l net.Listener) error {
	log.Printf("Starting web server on %s", l.Addr())
	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, waits for running ones until ctx is
// done and finalizes the session. The session is finalized even when
// requests are still running at the deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	var shutdownErr error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		shutdownErr = fmt.Errorf("shutting down server: %w", err)
	}
	if err := s.faces.Close(); err != nil {
		return errors.Join(shutdownErr, fmt.Errorf("finalizing session: %w", err))
	}
	return shutdownErr
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
