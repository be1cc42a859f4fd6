package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/michaelbrown/envop/internal/metrics"
	"github.com/michaelbrown/envop/internal/storage"
)

// Server is the HTTP server for the envop API.
type Server struct {
	store   storage.Store
	metrics *metrics.Collector
	envs    *EnvironmentPool
	router  chi.Router
	http    *http.Server
}

// New creates a new Server. store and m may be nil; the history and metrics
// endpoints then report 503.
func New(envs *EnvironmentPool, store storage.Store, m *metrics.Collector) *Server {
	s := &Server{
		store:   store,
		metrics: m,
		envs:    envs,
		router:  chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		// Command journal
		r.Group(func(r chi.Router) {
			r.Use(jsonContentType)
			r.Get("/history", s.handleListHistory)
			r.Get("/history/{id}", s.handleGetHistory)
			r.Delete("/history/{id}", s.handleDeleteHistory)
		})

		r.Route("/{env}", func(r chi.Router) {
			// WebSocket (no JSON content-type)
			r.Get("/shell", s.handleShell)

			r.Group(func(r chi.Router) {
				r.Use(jsonContentType)
				r.Get("/files", s.handleReadFile)
				r.Put("/files", s.handleWriteFile)
				r.Get("/stat", s.handleStat)
				r.Post("/commands", s.handleRunCommand)
			})
		})
	})
}

// ServeHTTP lets the server be mounted or tested without listening.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// jsonContentType sets Content-Type to application/json for API routes.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start begins listening on the given port.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logrus.Infof("envop server starting on http://localhost%s", addr)
	return s.http.ListenAndServe()
}

// Shutdown stops accepting requests, then releases every environment.
func (s *Server) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var err error
	if s.http != nil {
		err = s.http.Shutdown(shutdownCtx)
	}
	if cerr := s.envs.CloseAll(shutdownCtx); cerr != nil {
		logrus.WithError(cerr).Warn("failed to close environments")
	}
	return err
}
