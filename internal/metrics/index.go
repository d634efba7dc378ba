// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus instrumentation for the run index
// and the runs API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Indexing outcome labels for RunsIndexedTotal.
const (
	ResultIndexed = "indexed" // run-info.json parsed and upserted
	ResultInvalid = "invalid" // run directory without a readable run-info.json
	ResultRemoved = "removed" // run removed from the index
	ResultError   = "error"   // store failure
)

var (
	// IndexedRuns tracks the number of runs currently in the index.
	IndexedRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "metacure_indexed_runs",
		Help: "Number of runs currently present in the run index.",
	})

	// RunsIndexedTotal counts indexing operations by outcome.
	RunsIndexedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metacure_index_runs_total",
		Help: "Total number of run indexing operations, by result.",
	}, []string{"result"}) // result=indexed|invalid|removed|error

	// ScanDurationSeconds observes full save-dir scan wall time.
	ScanDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "metacure_index_scan_duration_seconds",
		Help:    "Wall time of full save-dir scans.",
		Buckets: prometheus.DefBuckets,
	})

	// WatcherEventsTotal counts filesystem events handled by the watcher.
	WatcherEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metacure_watcher_events_total",
		Help: "Total number of filesystem events handled by the save-dir watcher, by operation.",
	}, []string{"op"}) // op=create|write|remove|rename
)

// RecordIndexResult increments the indexing counter for one outcome.
func RecordIndexResult(result string) {
	RunsIndexedTotal.WithLabelValues(result).Inc()
}

// AddIndexResults increments the indexing counter by n for one outcome.
func AddIndexResults(result string, n float64) {
	RunsIndexedTotal.WithLabelValues(result).Add(n)
}

// ObserveScanDuration records the wall time of a completed scan.
func ObserveScanDuration(seconds float64) {
	ScanDurationSeconds.Observe(seconds)
}

// SetIndexedRuns sets the indexed-run gauge.
func SetIndexedRuns(count float64) {
	IndexedRuns.Set(count)
}

// RecordWatcherEvent increments the watcher event counter.
func RecordWatcherEvent(op string) {
	WatcherEventsTotal.WithLabelValues(op).Inc()
}

// GetIndexedRuns returns the current value of the indexed-run gauge.
// The health endpoint reports it without touching the store.
func GetIndexedRuns() float64 {
	var m dto.Metric
	if err := IndexedRuns.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

// IndexResultCount returns the current value of the indexing counter
// for one outcome (for testing).
func IndexResultCount(result string) float64 {
	var m dto.Metric
	if err := RunsIndexedTotal.WithLabelValues(result).Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
