// SPDX-License-Identifier: MIT

package runs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virajmehta/MetaCURE-Public/internal/runs"
)

func TestScanIndexesSaveDir(t *testing.T) {
	saveDir := t.TempDir()
	store := newTestStore(t)
	ctx := context.Background()

	cfgA := testConfig()
	cfgA.RunName = "baseline"
	a := initRun(t, saveDir, cfgA)

	cfgB := testConfig()
	cfgB.ExperimentName = "cheetah"
	cfgB.RunName = "sweep-1"
	b := initRun(t, saveDir, cfgB)
	b.MarkFinished(map[string]float64{"val_loss": 0.2})
	require.NoError(t, b.Save(ctx))

	// Run dir with unparseable metadata.
	brokenDir := filepath.Join(saveDir, "point-robot", "broken-000000")
	require.NoError(t, os.MkdirAll(brokenDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(brokenDir, runs.InfoFilename), []byte("{oops"), 0o644))

	// Run dir without metadata.
	require.NoError(t, os.MkdirAll(filepath.Join(saveDir, "point-robot", "empty-000000"), 0o755))

	// Hidden directories and stray files are ignored.
	require.NoError(t, os.MkdirAll(filepath.Join(saveDir, ".metacure"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(saveDir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(saveDir, "point-robot", "stray.log"), []byte("x"), 0o644))

	stats, err := runs.NewScanner(store, saveDir, 4).Scan(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Indexed)
	assert.Equal(t, 2, stats.Invalid)
	assert.Zero(t, stats.Errors)
	assert.Zero(t, stats.Removed)

	gotA, err := store.GetRun(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, runs.StatusStarted, gotA.Status)
	assert.Equal(t, a.Dir(), gotA.Dir)

	gotB, err := store.GetRun(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, runs.StatusFinished, gotB.Status)
	require.NotNil(t, gotB.BestValue)
	assert.Equal(t, 0.2, *gotB.BestValue)

	n, err := store.CountRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestScanIsIdempotent(t *testing.T) {
	saveDir := t.TempDir()
	store := newTestStore(t)
	ctx := context.Background()

	initRun(t, saveDir, testConfig())

	first, err := runs.NewScanner(store, saveDir, 2).Scan(ctx)
	require.NoError(t, err)
	second, err := runs.NewScanner(store, saveDir, 2).Scan(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Indexed, second.Indexed)

	n, err := store.CountRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestScanPrunesStaleRows(t *testing.T) {
	saveDir := t.TempDir()
	store := newTestStore(t)
	ctx := context.Background()

	stale := sampleRun("ghost-000000", "old-exp", runs.StatusFinished, time.Now().UTC())
	require.NoError(t, store.UpsertRun(ctx, stale))

	// last_seen has second resolution; age the stamp past the scan start.
	time.Sleep(1100 * time.Millisecond)

	stats, err := runs.NewScanner(store, saveDir, 2).Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Removed)

	_, err = store.GetRun(ctx, "ghost-000000")
	assert.ErrorIs(t, err, runs.ErrRunNotFound)
}

func TestScanMissingSaveDir(t *testing.T) {
	store := newTestStore(t)

	_, err := runs.NewScanner(store, filepath.Join(t.TempDir(), "nope"), 2).Scan(context.Background())
	require.Error(t, err)
}
