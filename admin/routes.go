package admin

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/crdbtools/roachload/telemetry"
)

// NewRouter builds the admin API router
func NewRouter(handlers *Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/cluster", func(r chi.Router) {
		r.Get("/health", handlers.handleClusterHealth)
		r.Get("/members", handlers.handleClusterMembers)
	})
	r.Get("/workload/summary", handlers.handleWorkloadSummary)

	if mh := telemetry.GetMetricsHandler(); mh != nil {
		r.Handle("/metrics", mh)
	}

	return r
}

// Server runs the admin HTTP listener
type Server struct {
	http *http.Server
}

// NewServer binds the admin router to addr
func NewServer(addr string, handlers *Handlers) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(handlers),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// ListenAndServe blocks serving the admin API until Shutdown is called
func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.http.Addr).Msg("Admin endpoints enabled")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("admin server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
