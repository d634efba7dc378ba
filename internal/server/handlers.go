// SPDX-License-Identifier: MIT

package server

import (
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"github.com/virajmehta/MetaCURE-Public/internal/config"
	"github.com/virajmehta/MetaCURE-Public/internal/log"
	"github.com/virajmehta/MetaCURE-Public/internal/metrics"
	"github.com/virajmehta/MetaCURE-Public/internal/runs"
)

const (
	defaultRunLimit = 100
	maxRunLimit     = 1000
)

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	IndexedRuns   int    `json:"indexed_runs"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// handleHealthz reports liveness. The indexed-run count comes from the
// gauge the scanner and watcher maintain, so health probes never touch
// the database beyond a ping.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "server")
		logger.Error().Err(err).Str("event", "health.db_unreachable").Msg("index database not reachable")
		writeError(w, http.StatusServiceUnavailable, "index database not reachable")
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Version:       s.version,
		IndexedRuns:   int(metrics.GetIndexedRuns()),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleExperiments(w http.ResponseWriter, r *http.Request) {
	experiments, err := s.store.ListExperiments(r.Context())
	if err != nil {
		serverError(w, r, "experiments.list_failed", err)
		return
	}
	if experiments == nil {
		experiments = []runs.ExperimentSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"experiments": experiments})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultRunLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunLimit)
	}

	status := q.Get("status")
	if status != "" && !validStatusFilter(status) {
		writeError(w, http.StatusBadRequest, "status must be one of started, finished, error")
		return
	}

	list, err := s.store.ListRuns(r.Context(), runs.Filter{
		Experiment: q.Get("experiment"),
		Status:     runs.Status(status),
		Limit:      limit,
	})
	if err != nil {
		serverError(w, r, "runs.list_failed", err)
		return
	}
	if list == nil {
		list = []runs.IndexedRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": list, "count": len(list)})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleRunConfig serves the run's stored config.yaml with credentials
// masked. The snapshot on disk is the resolved config the run was
// initialized with, so the roundtrip through RunConfig is lossless.
func (s *Server) handleRunConfig(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}

	fc, err := config.LoadFileConfig(filepath.Join(run.Dir, runs.ConfigFilename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusNotFound, "run has no stored config")
			return
		}
		serverError(w, r, "run_config.read_failed", err)
		return
	}

	masked := config.Masked(config.FromFileConfig(fc))
	out, err := yaml.Marshal(config.ToFileConfig(masked))
	if err != nil {
		serverError(w, r, "run_config.encode_failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (runs.IndexedRun, bool) {
	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, runs.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return runs.IndexedRun{}, false
	}
	if err != nil {
		serverError(w, r, "runs.get_failed", err)
		return runs.IndexedRun{}, false
	}
	return run, true
}

func validStatusFilter(s string) bool {
	switch runs.Status(s) {
	case runs.StatusStarted, runs.StatusFinished, runs.StatusError:
		return true
	}
	return false
}
