// SPDX-License-Identifier: MIT

package runs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/virajmehta/MetaCURE-Public/internal/log"
	"github.com/virajmehta/MetaCURE-Public/internal/metrics"
)

// Scanner walks the save dir and indexes every run directory holding a
// run-info.json.
type Scanner struct {
	store   *Store
	saveDir string
	workers int
}

// NewScanner creates a scanner over saveDir. workers bounds concurrent
// run-directory parses; values below 1 fall back to 1.
func NewScanner(store *Store, saveDir string, workers int) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{store: store, saveDir: saveDir, workers: workers}
}

// ScanStats summarizes one full scan.
type ScanStats struct {
	Indexed  int
	Invalid  int
	Errors   int
	Removed  int64
	Duration time.Duration
}

// Scan walks saveDir two levels deep (experiment/run), parses each
// run-info.json and upserts it into the store. Rows whose directories
// are gone are pruned afterwards, so a scan leaves the index matching
// the filesystem.
func (sc *Scanner) Scan(ctx context.Context) (ScanStats, error) {
	start := time.Now()
	logger := log.WithComponent("scanner")

	runDirs, err := sc.listRunDirs()
	if err != nil {
		return ScanStats{}, err
	}

	var indexed, invalid, failed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sc.workers)
	for _, dir := range runDirs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			switch indexRunDir(ctx, sc.store, dir) {
			case outcomeIndexed:
				indexed.Add(1)
			case outcomeMissing:
				// listed as a run dir but no metadata inside
				metrics.RecordIndexResult(metrics.ResultInvalid)
				invalid.Add(1)
			case outcomeInvalid:
				invalid.Add(1)
			case outcomeError:
				failed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ScanStats{}, err
	}

	removed, err := sc.store.PruneBefore(ctx, start)
	if err != nil {
		return ScanStats{}, fmt.Errorf("prune stale runs: %w", err)
	}
	if removed > 0 {
		metrics.AddIndexResults(metrics.ResultRemoved, float64(removed))
	}

	if n, err := sc.store.CountRuns(ctx); err == nil {
		metrics.SetIndexedRuns(float64(n))
	}

	stats := ScanStats{
		Indexed:  int(indexed.Load()),
		Invalid:  int(invalid.Load()),
		Errors:   int(failed.Load()),
		Removed:  removed,
		Duration: time.Since(start),
	}
	metrics.ObserveScanDuration(stats.Duration.Seconds())

	logger.Info().
		Int("indexed", stats.Indexed).
		Int("invalid", stats.Invalid).
		Int("errors", stats.Errors).
		Int64("removed", stats.Removed).
		Dur("duration", stats.Duration).
		Str(log.FieldSaveDir, sc.saveDir).
		Msg("save dir scan complete")

	return stats, nil
}

// listRunDirs collects candidate run directories: the second directory
// level under the save dir, skipping hidden entries.
func (sc *Scanner) listRunDirs() ([]string, error) {
	experiments, err := os.ReadDir(sc.saveDir)
	if err != nil {
		return nil, fmt.Errorf("read save dir: %w", err)
	}

	var dirs []string
	for _, exp := range experiments {
		if !exp.IsDir() || isHidden(exp.Name()) {
			continue
		}
		expDir := filepath.Join(sc.saveDir, exp.Name())
		entries, err := os.ReadDir(expDir)
		if err != nil {
			// experiment dir vanished or is unreadable mid-scan
			logger := log.WithComponent("scanner")
			logger.Warn().Err(err).Str("dir", expDir).Msg("skipping experiment dir")
			continue
		}
		for _, ent := range entries {
			if !ent.IsDir() || isHidden(ent.Name()) {
				continue
			}
			dirs = append(dirs, filepath.Join(expDir, ent.Name()))
		}
	}

	return dirs, nil
}

type indexOutcome int

const (
	outcomeIndexed indexOutcome = iota
	outcomeInvalid
	outcomeMissing
	outcomeError
)

// indexRunDir parses one run directory and upserts it into the store.
// Shared by the scanner and the watcher; records metrics for all
// outcomes except missing, whose meaning depends on the caller.
func indexRunDir(ctx context.Context, store *Store, dir string) indexOutcome {
	info, err := Open(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return outcomeMissing
	case err != nil:
		logger := log.WithComponent("index")
		logger.Warn().Err(err).Str("dir", dir).Msg("run directory with unreadable metadata")
		metrics.RecordIndexResult(metrics.ResultInvalid)
		return outcomeInvalid
	}

	if err := store.UpsertRun(ctx, info.Indexed()); err != nil {
		logger := log.WithComponent("index")
		logger.Error().Err(err).Str(log.FieldRunID, info.ID).Msg("index upsert failed")
		metrics.RecordIndexResult(metrics.ResultError)
		return outcomeError
	}

	metrics.RecordIndexResult(metrics.ResultIndexed)
	return outcomeIndexed
}

// isHidden reports whether a directory entry name is dot-prefixed. The
// index database lives in a hidden directory under the save dir and must
// never be scanned or watched.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
