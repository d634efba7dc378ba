// SPDX-License-Identifier: MIT

package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virajmehta/MetaCURE-Public/internal/config"
	"github.com/virajmehta/MetaCURE-Public/internal/metrics"
	"github.com/virajmehta/MetaCURE-Public/internal/runs"
	"github.com/virajmehta/MetaCURE-Public/internal/server"
)

func testRunConfig(saveDir string) config.RunConfig {
	return config.RunConfig{
		Version:        "v1.2.3",
		ExperimentName: "point-robot",
		DataSource:     "s3://mlflow:hunter2@artifacts/point_robot.h5",
		SaveDir:        saveDir,
		Logger:         config.LoggerTensorBoard,
		LoggerOptions:  map[string]string{"api_key": "wnb-key-123", "project": "metacure"},
		TuneMetric:     "val_loss",
		TuneObjective:  config.ObjectiveMinimize,
		Seed:           42,
		Trainer: config.TrainerSettings{
			MaxEpochs:      100,
			Accelerator:    "auto",
			Devices:        1,
			Precision:      "32-true",
			LogEveryNSteps: 50,
		},
		Data: config.DataModuleSettings{
			Target:        "metacure.data.HDF5DataModule",
			BatchSize:     128,
			NumWorkers:    4,
			TrainFraction: 0.9,
			ValFraction:   0.1,
			Shuffle:       true,
		},
		EarlyStopping: config.EarlyStoppingSettings{
			Enabled:  true,
			Monitor:  "val_loss",
			Patience: 10,
			Mode:     "min",
		},
		Model: config.ModelSettings{
			Target:       "metacure.models.MLPRegressor",
			HiddenSizes:  []int{256, 256},
			Activation:   "relu",
			OutputDim:    1,
			Optimizer:    "adam",
			LearningRate: 0.001,
		},
	}
}

func newTestServer(t *testing.T, requestsPerMinute int) (*server.Server, *runs.Store, string) {
	t.Helper()

	saveDir := t.TempDir()
	store, err := runs.NewStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	rt := config.HTTPRuntime{
		ListenAddr:        "127.0.0.1:0",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   2 * time.Second,
		RequestsPerMinute: requestsPerMinute,
	}
	return server.New(store, rt, "test"), store, saveDir
}

// seedRun materializes a run on disk and indexes it.
func seedRun(t *testing.T, store *runs.Store, saveDir, experiment, name string) *runs.RunInfo {
	t.Helper()

	cfg := testRunConfig(saveDir)
	cfg.ExperimentName = experiment
	cfg.RunName = name

	info, err := runs.NewRunInfo(cfg)
	require.NoError(t, err)
	info.Place(runs.Layout{SaveDir: saveDir})
	require.NoError(t, info.Save(context.Background()))
	require.NoError(t, store.UpsertRun(context.Background(), info.Indexed()))
	return info
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()

	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v))
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t, 0)
	metrics.SetIndexedRuns(3)

	rr := get(t, srv.Handler(), "/healthz")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Status      string `json:"status"`
		Version     string `json:"version"`
		IndexedRuns int    `json:"indexed_runs"`
	}
	decodeJSON(t, rr, &body)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "test", body.Version)
	assert.Equal(t, 3, body.IndexedRuns)
}

func TestListExperiments(t *testing.T) {
	srv, store, saveDir := newTestServer(t, 0)
	h := srv.Handler()

	rr := get(t, h, "/api/v1/experiments")
	require.Equal(t, http.StatusOK, rr.Code)

	var empty struct {
		Experiments []runs.ExperimentSummary `json:"experiments"`
	}
	decodeJSON(t, rr, &empty)
	assert.Empty(t, empty.Experiments)

	seedRun(t, store, saveDir, "point-robot", "baseline")
	seedRun(t, store, saveDir, "cheetah", "sweep-1")

	rr = get(t, h, "/api/v1/experiments")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Experiments []runs.ExperimentSummary `json:"experiments"`
	}
	decodeJSON(t, rr, &body)
	require.Len(t, body.Experiments, 2)
	assert.Equal(t, "cheetah", body.Experiments[0].Experiment)
	assert.Equal(t, "point-robot", body.Experiments[1].Experiment)
	assert.Equal(t, 1, body.Experiments[0].Runs)
}

func TestListRuns(t *testing.T) {
	srv, store, saveDir := newTestServer(t, 0)
	h := srv.Handler()

	seedRun(t, store, saveDir, "point-robot", "baseline")
	seedRun(t, store, saveDir, "cheetah", "sweep-1")

	rr := get(t, h, "/api/v1/runs")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Runs  []runs.IndexedRun `json:"runs"`
		Count int               `json:"count"`
	}
	decodeJSON(t, rr, &body)
	assert.Equal(t, 2, body.Count)

	rr = get(t, h, "/api/v1/runs?experiment=cheetah")
	require.Equal(t, http.StatusOK, rr.Code)
	body.Runs = nil
	decodeJSON(t, rr, &body)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "cheetah", body.Runs[0].Experiment)

	rr = get(t, h, "/api/v1/runs?status=finished")
	require.Equal(t, http.StatusOK, rr.Code)
	body.Runs = nil
	decodeJSON(t, rr, &body)
	assert.Zero(t, body.Count)
}

func TestListRunsRejectsBadQuery(t *testing.T) {
	srv, _, _ := newTestServer(t, 0)
	h := srv.Handler()

	for _, path := range []string{
		"/api/v1/runs?limit=0",
		"/api/v1/runs?limit=abc",
		"/api/v1/runs?status=running",
	} {
		rr := get(t, h, path)
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)

		var body struct {
			Error  string `json:"error"`
			Status int    `json:"status"`
		}
		decodeJSON(t, rr, &body)
		assert.Equal(t, http.StatusBadRequest, body.Status, path)
		assert.NotEmpty(t, body.Error, path)
	}
}

func TestGetRun(t *testing.T) {
	srv, store, saveDir := newTestServer(t, 0)
	h := srv.Handler()

	info := seedRun(t, store, saveDir, "point-robot", "baseline")

	rr := get(t, h, "/api/v1/runs/"+info.ID)
	require.Equal(t, http.StatusOK, rr.Code)

	var run runs.IndexedRun
	decodeJSON(t, rr, &run)
	assert.Equal(t, info.ID, run.ID)
	assert.Equal(t, "point-robot", run.Experiment)
	assert.Equal(t, runs.StatusStarted, run.Status)

	rr = get(t, h, "/api/v1/runs/no-such-run")
	require.Equal(t, http.StatusNotFound, rr.Code)

	var body struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}
	decodeJSON(t, rr, &body)
	assert.Equal(t, "run not found", body.Error)
	assert.Equal(t, http.StatusNotFound, body.Status)
}

func TestGetRunConfigMasksSecrets(t *testing.T) {
	srv, store, saveDir := newTestServer(t, 0)
	h := srv.Handler()

	info := seedRun(t, store, saveDir, "point-robot", "baseline")

	rr := get(t, h, "/api/v1/runs/"+info.ID+"/config")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/yaml", rr.Header().Get("Content-Type"))

	yamlBody := rr.Body.String()
	assert.Contains(t, yamlBody, "s3://***@artifacts/point_robot.h5")
	assert.Contains(t, yamlBody, `api_key: '***'`)
	assert.Contains(t, yamlBody, "project: metacure")
	assert.NotContains(t, yamlBody, "hunter2")
	assert.NotContains(t, yamlBody, "wnb-key-123")
}

func TestGetRunConfigMissingSnapshot(t *testing.T) {
	srv, store, saveDir := newTestServer(t, 0)
	h := srv.Handler()

	info := seedRun(t, store, saveDir, "point-robot", "baseline")
	require.NoError(t, os.Remove(filepath.Join(info.Dir(), runs.ConfigFilename)))

	rr := get(t, h, "/api/v1/runs/"+info.ID+"/config")
	require.Equal(t, http.StatusNotFound, rr.Code)

	var body struct {
		Error string `json:"error"`
	}
	decodeJSON(t, rr, &body)
	assert.Equal(t, "run has no stored config", body.Error)
}

func TestRequestIDHeader(t *testing.T) {
	srv, _, _ := newTestServer(t, 0)
	h := srv.Handler()

	rr := get(t, h, "/healthz")
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "trace-me-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "trace-me-123", rr.Header().Get("X-Request-Id"))
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, 0)
	h := srv.Handler()

	// Generate at least one measured request first.
	get(t, h, "/healthz")

	rr := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "metacure_http_requests_total")
}

func TestRateLimit(t *testing.T) {
	srv, _, _ := newTestServer(t, 2)
	h := srv.Handler()

	// httptest requests share a RemoteAddr, so they count as one client.
	assert.Equal(t, http.StatusOK, get(t, h, "/api/v1/runs").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/api/v1/runs").Code)

	rr := get(t, h, "/api/v1/runs")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	// The health endpoint sits outside the rate-limited subtree.
	assert.Equal(t, http.StatusOK, get(t, h, "/healthz").Code)
}

func TestPanicRecovery(t *testing.T) {
	h := server.Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := get(t, h, "/anything")
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "internal server error")
	assert.False(t, strings.Contains(rr.Body.String(), "boom"), "panic values must not leak to clients")
}
