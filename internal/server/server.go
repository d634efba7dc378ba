// SPDX-License-Identifier: MIT

// Package server exposes the run index over a small read-only HTTP API:
// experiment summaries, run listings, per-run metadata and the stored,
// masked config snapshot of each run.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/virajmehta/MetaCURE-Public/internal/config"
	"github.com/virajmehta/MetaCURE-Public/internal/runs"
)

// Server serves the runs API backed by the SQLite index.
type Server struct {
	store     *runs.Store
	rt        config.HTTPRuntime
	version   string
	startTime time.Time
}

// New creates a Server reading from store. version is reported by the
// health endpoint.
func New(store *runs.Store, rt config.HTTPRuntime, version string) *Server {
	return &Server{
		store:     store,
		rt:        rt,
		version:   version,
		startTime: time.Now(),
	}
}

// Handler returns the HTTP handler with all routes and middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Recoverer outermost, then correlation, then observability.
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(AccessLog)
	r.Use(Metrics)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		if s.rt.RequestsPerMinute > 0 {
			api.Use(RateLimit(s.rt.RequestsPerMinute))
		}
		api.Get("/experiments", s.handleExperiments)
		api.Get("/runs", s.handleRuns)
		api.Get("/runs/{id}", s.handleRun)
		api.Get("/runs/{id}/config", s.handleRunConfig)
	})

	return r
}
