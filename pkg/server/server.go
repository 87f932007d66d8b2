// Package server exposes the memlens client over an HTTP API.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/memlens/memlens-go/pkg/core"
)

// Server is the memlens HTTP API server.
type Server struct {
	client  *core.Client
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server over a client with the given version string.
func New(client *core.Client, version string) *Server {
	s := &Server{
		client:  client,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/memories", s.handleStoreMemory)
		r.Get("/memories/{memoryID}", s.handleRetrieveMemory)
		r.Delete("/memories/{memoryID}", s.handleDeleteMemory)
		r.Post("/memories/{memoryID}/archive", s.handleArchiveMemory)
		r.Post("/memories/{memoryID}/restore", s.handleRestoreMemory)

		r.Post("/awareness", s.handleAwareness)
		r.Post("/awareness/all", s.handleAllCandidates)
		r.Post("/awareness/explain", s.handleExplain)
		r.Post("/retrieval", s.handleSelectiveRetrieval)

		r.Get("/thresholds", s.handleThresholds)
		r.Post("/thresholds/adapt", s.handleAdaptThresholds)
		r.Put("/config", s.handleUpdateConfig)

		r.Post("/lifecycle/run", s.handleLifecycleRun)
		r.Post("/lifecycle/execute", s.handleLifecycleExecute)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"version":  s.version,
		"uptime":   time.Since(s.started).Seconds(),
		"memories": s.client.Len(),
	})
}
