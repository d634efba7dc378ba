// SPDX-License-Identifier: MIT

package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)
)

// ErrRunNotFound is returned by GetRun for IDs absent from the index.
var ErrRunNotFound = errors.New("run not found")

// IndexedRun is one row of the run index: the API-facing projection of a
// run's metadata, without params and full results.
type IndexedRun struct {
	ID            string    `json:"id"`
	Experiment    string    `json:"experiment"`
	Name          string    `json:"name"`
	Dir           string    `json:"dir"`
	Status        Status    `json:"status"`
	Error         string    `json:"error,omitempty"`
	GitCommit     string    `json:"git_commit,omitempty"`
	GitBranch     string    `json:"git_branch,omitempty"`
	TuneMetric    string    `json:"tune_metric,omitempty"`
	TuneObjective string    `json:"tune_objective,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	StatusUpdated time.Time `json:"status_updated"`
	BestValue     *float64  `json:"best_value,omitempty"`
}

// ExperimentSummary aggregates the index per experiment.
type ExperimentSummary struct {
	Experiment  string    `json:"experiment"`
	Runs        int       `json:"runs"`
	Started     int       `json:"started"`
	Finished    int       `json:"finished"`
	Errored     int       `json:"errored"`
	LastCreated time.Time `json:"last_created"`
}

// Filter narrows ListRuns. Zero fields mean "no constraint".
type Filter struct {
	Experiment string
	Status     Status
	Limit      int
}

// Store provides SQLite persistence for the run index.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating it if necessary) the index database and runs
// migrations. WAL mode plus a busy timeout keeps concurrent scanner,
// watcher and API access from tripping over each other.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
	}

	// busy_timeout avoids "database locked" errors
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection, used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs database schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		experiment TEXT NOT NULL,
		name TEXT NOT NULL,
		dir TEXT NOT NULL,
		status TEXT NOT NULL CHECK(status IN ('started', 'finished', 'error')),
		error TEXT NOT NULL DEFAULT '',
		git_commit TEXT NOT NULL DEFAULT '',
		git_branch TEXT NOT NULL DEFAULT '',
		tune_metric TEXT NOT NULL DEFAULT '',
		tune_objective TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		status_updated TEXT NOT NULL,
		last_seen TEXT NOT NULL,
		best_value REAL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_experiment ON runs(experiment);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

const runColumns = "id, experiment, name, dir, status, error, git_commit, git_branch, tune_metric, tune_objective, created_at, status_updated, best_value"

// UpsertRun inserts or refreshes one index row and stamps it as seen.
func (s *Store) UpsertRun(ctx context.Context, run IndexedRun) error {
	query := `
	INSERT INTO runs (id, experiment, name, dir, status, error, git_commit, git_branch, tune_metric, tune_objective, created_at, status_updated, last_seen, best_value)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		experiment = excluded.experiment,
		name = excluded.name,
		dir = excluded.dir,
		status = excluded.status,
		error = excluded.error,
		git_commit = excluded.git_commit,
		git_branch = excluded.git_branch,
		tune_metric = excluded.tune_metric,
		tune_objective = excluded.tune_objective,
		created_at = excluded.created_at,
		status_updated = excluded.status_updated,
		last_seen = excluded.last_seen,
		best_value = excluded.best_value
	`

	var best sql.NullFloat64
	if run.BestValue != nil {
		best = sql.NullFloat64{Float64: *run.BestValue, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Experiment,
		run.Name,
		run.Dir,
		run.Status.String(),
		run.Error,
		run.GitCommit,
		run.GitBranch,
		run.TuneMetric,
		run.TuneObjective,
		run.CreatedAt.UTC().Format(time.RFC3339),
		run.StatusUpdated.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
		best,
	)
	return err
}

// GetRun retrieves a single run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (IndexedRun, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return IndexedRun{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return IndexedRun{}, err
	}
	return run, nil
}

// ListRuns retrieves index rows matching the filter, newest first.
func (s *Store) ListRuns(ctx context.Context, f Filter) ([]IndexedRun, error) {
	query := `SELECT ` + runColumns + ` FROM runs`

	var conds []string
	var args []any
	if f.Experiment != "" {
		conds = append(conds, "experiment = ?")
		args = append(args, f.Experiment)
	}
	if f.Status != StatusUnknown {
		conds = append(conds, "status = ?")
		args = append(args, f.Status.String())
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []IndexedRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, run)
	}

	return result, rows.Err()
}

// ListExperiments aggregates the index per experiment: run counts by
// status and the most recent creation time.
func (s *Store) ListExperiments(ctx context.Context) ([]ExperimentSummary, error) {
	query := `
	SELECT experiment,
	       COUNT(*),
	       SUM(CASE WHEN status = 'started' THEN 1 ELSE 0 END),
	       SUM(CASE WHEN status = 'finished' THEN 1 ELSE 0 END),
	       SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END),
	       MAX(created_at)
	FROM runs
	GROUP BY experiment
	ORDER BY experiment
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []ExperimentSummary
	for rows.Next() {
		var e ExperimentSummary
		var lastCreated string
		if err := rows.Scan(&e.Experiment, &e.Runs, &e.Started, &e.Finished, &e.Errored, &lastCreated); err != nil {
			return nil, err
		}
		e.LastCreated, _ = time.Parse(time.RFC3339, lastCreated)
		result = append(result, e)
	}

	return result, rows.Err()
}

// CountRuns returns the total number of indexed runs.
func (s *Store) CountRuns(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}

// DeleteRunsUnder removes rows whose directory is dir or lives beneath
// it, covering both single run dirs and whole experiment dirs. Returns
// the number of rows removed.
func (s *Store) DeleteRunsUnder(ctx context.Context, dir string) (int64, error) {
	query := `DELETE FROM runs WHERE dir = ? OR dir LIKE ? || '/%'`

	res, err := s.db.ExecContext(ctx, query, dir, dir)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PruneBefore removes rows last seen before cutoff. A full scan stamps
// every surviving run, so pruning with the scan start time drops runs
// whose directories disappeared while the index was offline.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM runs WHERE last_seen < ?`

	res, err := s.db.ExecContext(ctx, query, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (IndexedRun, error) {
	var run IndexedRun
	var createdAt, statusUpdated string
	var best sql.NullFloat64

	if err := row.Scan(
		&run.ID,
		&run.Experiment,
		&run.Name,
		&run.Dir,
		&run.Status,
		&run.Error,
		&run.GitCommit,
		&run.GitBranch,
		&run.TuneMetric,
		&run.TuneObjective,
		&createdAt,
		&statusUpdated,
		&best,
	); err != nil {
		return IndexedRun{}, err
	}

	run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	run.StatusUpdated, _ = time.Parse(time.RFC3339, statusUpdated)
	if best.Valid {
		v := best.Float64
		run.BestValue = &v
	}

	return run, nil
}
