// SPDX-License-Identifier: MIT

package runs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/virajmehta/MetaCURE-Public/internal/log"
	"github.com/virajmehta/MetaCURE-Public/internal/metrics"
)

// Watcher keeps the run index current by reacting to filesystem events
// under the save dir.
//
// fsnotify watches are not recursive: the watcher registers the save dir,
// every experiment dir and every run dir, and extends the set when new
// directories appear. run-info.json writes schedule a debounced re-index
// of the owning run directory so bursts of writes collapse into one store
// update; removals drop index rows.
type Watcher struct {
	store    *Store
	saveDir  string
	debounce time.Duration
	logger   zerolog.Logger

	fsw *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool

	wg sync.WaitGroup
}

// NewWatcher creates a watcher over saveDir and registers the initial
// watch set. debounce bounds how long after the last event a run
// directory is re-indexed; non-positive values fall back to 500ms.
func NewWatcher(store *Store, saveDir string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		store:    store,
		saveDir:  saveDir,
		debounce: debounce,
		logger:   log.WithComponent("watcher"),
		fsw:      fsw,
		timers:   make(map[string]*time.Timer),
	}

	if err := w.addInitialWatches(); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return w, nil
}

// Start runs the event loop until ctx is cancelled. It only returns
// after the watcher has fully stopped: timers drained, in-flight
// re-indexes finished, watches released.
func (w *Watcher) Start(ctx context.Context) error {
	defer w.shutdown()

	w.logger.Info().
		Str("event", "watcher.started").
		Str(log.FieldSaveDir, w.saveDir).
		Msg("watching save dir")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().
				Err(err).
				Str("event", "watcher.error").
				Msg("filesystem watcher error")
		}
	}
}

// addInitialWatches registers the save dir plus every experiment and run
// directory already present.
func (w *Watcher) addInitialWatches() error {
	if err := w.fsw.Add(w.saveDir); err != nil {
		return fmt.Errorf("watch save dir: %w", err)
	}

	experiments, err := os.ReadDir(w.saveDir)
	if err != nil {
		return fmt.Errorf("read save dir: %w", err)
	}
	for _, exp := range experiments {
		if !exp.IsDir() || isHidden(exp.Name()) {
			continue
		}
		expDir := filepath.Join(w.saveDir, exp.Name())
		if err := w.fsw.Add(expDir); err != nil {
			w.logger.Warn().Err(err).Str("dir", expDir).Msg("cannot watch experiment dir")
			continue
		}
		entries, err := os.ReadDir(expDir)
		if err != nil {
			continue
		}
		for _, ent := range entries {
			if !ent.IsDir() || isHidden(ent.Name()) {
				continue
			}
			runDir := filepath.Join(expDir, ent.Name())
			if err := w.fsw.Add(runDir); err != nil {
				w.logger.Warn().Err(err).Str("dir", runDir).Msg("cannot watch run dir")
			}
		}
	}

	return nil
}

// handleEvent classifies one event by its depth below the save dir:
// depth 1 is an experiment dir, depth 2 a run dir, depth 3 a file inside
// a run dir. Only run-info.json matters at depth 3.
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	metrics.RecordWatcherEvent(opLabel(event.Op))

	rel, err := filepath.Rel(w.saveDir, event.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return
	}
	if hiddenPath(rel) {
		return
	}
	depth := strings.Count(rel, string(os.PathSeparator)) + 1

	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		// fsnotify drops watches on removed directories on its own.
		switch depth {
		case 1, 2:
			w.removeUnder(ctx, event.Name)
		case 3:
			if filepath.Base(event.Name) == InfoFilename {
				w.schedule(filepath.Dir(event.Name))
			}
		}

	case event.Has(fsnotify.Create):
		switch depth {
		case 1, 2:
			w.addDir(event.Name, depth)
		case 3:
			if filepath.Base(event.Name) == InfoFilename {
				w.schedule(filepath.Dir(event.Name))
			}
		}

	case event.Has(fsnotify.Write):
		if depth == 3 && filepath.Base(event.Name) == InfoFilename {
			w.schedule(filepath.Dir(event.Name))
		}
	}
}

// addDir extends the watch set with a newly created directory. For a new
// experiment dir the children are walked as well: run dirs may have been
// created before the watch was in place.
func (w *Watcher) addDir(dir string, depth int) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.fsw.Add(dir); err != nil {
		w.logger.Warn().Err(err).Str("dir", dir).Msg("cannot watch new dir")
		return
	}
	w.logger.Debug().
		Str("event", "watcher.dir_added").
		Str("dir", dir).
		Msg("directory added to watch set")

	if depth == 2 {
		// a run-info.json may already be inside
		w.schedule(dir)
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, ent := range entries {
		if !ent.IsDir() || isHidden(ent.Name()) {
			continue
		}
		w.addDir(filepath.Join(dir, ent.Name()), 2)
	}
}

// schedule arms (or re-arms) the debounce timer for one run directory.
func (w *Watcher) schedule(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if t, ok := w.timers[dir]; ok {
		if t.Stop() {
			w.wg.Done()
		}
	}

	w.wg.Add(1)
	w.timers[dir] = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.flush(dir)
	})
}

// flush re-indexes one run directory after its debounce window passed.
func (w *Watcher) flush(dir string) {
	w.mu.Lock()
	delete(w.timers, dir)
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}

	// Independent of the loop context: a flush triggered just before
	// shutdown still completes, bounded by its own timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch indexRunDir(ctx, w.store, dir) {
	case outcomeMissing:
		w.removeUnder(ctx, dir)
		return
	case outcomeIndexed:
		w.logger.Debug().
			Str("event", "watcher.reindexed").
			Str("dir", dir).
			Msg("run re-indexed")
	}
	w.refreshGauge(ctx)
}

// removeUnder drops index rows for dir and anything beneath it.
func (w *Watcher) removeUnder(ctx context.Context, dir string) {
	n, err := w.store.DeleteRunsUnder(ctx, dir)
	if err != nil {
		w.logger.Error().Err(err).Str("dir", dir).Msg("index delete failed")
		metrics.RecordIndexResult(metrics.ResultError)
		return
	}
	if n == 0 {
		return
	}

	metrics.AddIndexResults(metrics.ResultRemoved, float64(n))
	w.logger.Info().
		Str("event", "watcher.removed").
		Str("dir", dir).
		Int64("runs", n).
		Msg("runs removed from index")
	w.refreshGauge(ctx)
}

func (w *Watcher) refreshGauge(ctx context.Context) {
	if n, err := w.store.CountRuns(ctx); err == nil {
		metrics.SetIndexedRuns(float64(n))
	}
}

// shutdown stops pending timers, waits for in-flight re-indexes and
// releases the fsnotify watches.
func (w *Watcher) shutdown() {
	w.mu.Lock()
	w.closed = true
	for dir, t := range w.timers {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.timers, dir)
	}
	w.mu.Unlock()

	w.wg.Wait()
	if err := w.fsw.Close(); err != nil {
		w.logger.Warn().Err(err).Msg("close filesystem watcher")
	}
	w.logger.Info().Str("event", "watcher.stopped").Msg("watcher stopped")
}

// hiddenPath reports whether any segment of the relative path is hidden.
func hiddenPath(rel string) bool {
	for _, part := range strings.Split(rel, string(os.PathSeparator)) {
		if isHidden(part) {
			return true
		}
	}
	return false
}

func opLabel(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	case op.Has(fsnotify.Chmod):
		return "chmod"
	}
	return "other"
}
