package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-session/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/identities", s.faces.Identities)
		r.Post("/recognize", s.faces.Recognize)
		r.Post("/learn", s.faces.Learn)
	})
}
