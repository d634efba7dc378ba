// SPDX-License-Identifier: MIT

package runs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/virajmehta/MetaCURE-Public/internal/config"
)

// Status describes where a run is in its lifecycle.
type Status string

const (
	// StatusUnknown is the zero value before a run has been initialized.
	StatusUnknown Status = ""
	// StatusStarted is set when the run directory has been initialized.
	StatusStarted Status = "started"
	// StatusFinished is set when the run completed and reported results.
	StatusFinished Status = "finished"
	// StatusError is set when the run aborted before finishing.
	StatusError Status = "error"
)

// String returns the string representation of Status.
func (s Status) String() string {
	return string(s)
}

// RunInfo describes one training run: identity, provenance and outcome.
// It is serialized as run-info.json inside the run directory and is the
// unit the scanner indexes.
type RunInfo struct {
	ID         string    `json:"id"` // stable directory basename, see RunID
	Experiment string    `json:"experiment"`
	Name       string    `json:"name"`
	Version    string    `json:"version"` // binary version that created the run
	CreatedAt  time.Time `json:"created_at"`

	GitCommit string `json:"git_commit,omitempty"`
	GitBranch string `json:"git_branch,omitempty"`
	Host      string `json:"host,omitempty"`
	Seed      int    `json:"seed"`

	TuneMetric    string `json:"tune_metric,omitempty"`
	TuneObjective string `json:"tune_objective,omitempty"`

	// Params is the flattened effective config, keyed by registry path
	// (e.g. "trainer.max_epochs").
	Params map[string]any `json:"params,omitempty"`

	// Results holds the final metric values reported when the run finished.
	Results map[string]float64 `json:"results,omitempty"`

	Error         string    `json:"error,omitempty"`
	Status        Status    `json:"status"`
	StatusUpdated time.Time `json:"status_updated"`

	dir       string
	cfg       config.RunConfig
	hasConfig bool
}

// NewRunInfo builds the metadata for a fresh run from an effective config.
// An empty run_name is replaced with a generated, chronologically sortable
// one. The config itself is retained so Save can snapshot it next to the
// metadata.
func NewRunInfo(cfg config.RunConfig) (*RunInfo, error) {
	name := strings.TrimSpace(cfg.RunName)
	if name == "" {
		name = generateRunName(cfg.ExperimentName)
	}

	params, err := config.Flatten(cfg)
	if err != nil {
		return nil, fmt.Errorf("flatten config: %w", err)
	}

	commit, branch := gitCommitAndBranch()
	host, _ := os.Hostname()

	info := &RunInfo{
		ID:            RunID(cfg.ExperimentName, name),
		Experiment:    cfg.ExperimentName,
		Name:          name,
		Version:       cfg.Version,
		CreatedAt:     time.Now().UTC(),
		GitCommit:     commit,
		GitBranch:     branch,
		Host:          host,
		Seed:          cfg.Seed,
		TuneMetric:    cfg.TuneMetric,
		TuneObjective: cfg.TuneObjective,
		Params:        params,
	}
	info.SetStatus(StatusStarted)

	// The snapshot written to disk carries the resolved run name so that
	// re-loading it yields the exact same identity.
	cfg.RunName = name
	info.cfg = config.Clone(cfg)
	info.hasConfig = true

	return info, nil
}

// generateRunName produces "<experiment>-<timestamp>-<6 hex>" names that
// sort chronologically within an experiment and never collide in practice.
func generateRunName(experiment string) string {
	ts := time.Now().UTC().Format("20060102-150405")
	return fmt.Sprintf("%s-%s-%s", Slug(experiment), ts, uuid.New().String()[:6])
}

// SetStatus updates the status and its timestamp.
func (r *RunInfo) SetStatus(s Status) {
	r.Status = s
	r.StatusUpdated = time.Now().UTC()
}

// MarkFinished records final results and moves the run to finished.
func (r *RunInfo) MarkFinished(results map[string]float64) {
	if len(results) > 0 {
		r.Results = make(map[string]float64, len(results))
		for k, v := range results {
			r.Results[k] = v
		}
	}
	r.Error = ""
	r.SetStatus(StatusFinished)
}

// MarkError records the failure message and moves the run to error.
func (r *RunInfo) MarkError(msg string) {
	r.Error = msg
	r.SetStatus(StatusError)
}

// BestValue returns the value of the tuned metric, if the run reported one.
func (r *RunInfo) BestValue() (float64, bool) {
	if r.TuneMetric == "" || r.Results == nil {
		return 0, false
	}
	v, ok := r.Results[r.TuneMetric]
	return v, ok
}

// Dir returns the directory the run is bound to, empty before Place/Open.
func (r *RunInfo) Dir() string {
	return r.dir
}

// Place binds the run to its directory under the layout and returns it.
// It must be called before Save on a freshly created RunInfo.
func (r *RunInfo) Place(l Layout) string {
	r.dir = filepath.Join(l.ExperimentDir(r.Experiment), r.ID)
	return r.dir
}

// Config returns the effective config the run was created from. ok is
// false for runs loaded from disk, which only carry the YAML snapshot.
func (r *RunInfo) Config() (config.RunConfig, bool) {
	if !r.hasConfig {
		return config.RunConfig{}, false
	}
	return config.Clone(r.cfg), true
}

// Indexed projects the run metadata onto an index row. The run must be
// bound to a directory.
func (r *RunInfo) Indexed() IndexedRun {
	row := IndexedRun{
		ID:            r.ID,
		Experiment:    r.Experiment,
		Name:          r.Name,
		Dir:           r.dir,
		Status:        r.Status,
		Error:         r.Error,
		GitCommit:     r.GitCommit,
		GitBranch:     r.GitBranch,
		TuneMetric:    r.TuneMetric,
		TuneObjective: r.TuneObjective,
		CreatedAt:     r.CreatedAt,
		StatusUpdated: r.StatusUpdated,
	}
	if v, ok := r.BestValue(); ok {
		row.BestValue = &v
	}
	return row
}
