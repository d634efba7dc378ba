// SPDX-License-Identifier: MIT

package runs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/virajmehta/MetaCURE-Public/internal/config"
	"github.com/virajmehta/MetaCURE-Public/internal/log"
)

// Save persists run-info.json (and, for freshly created runs, the
// config.yaml snapshot) into the run directory. Writes go through a
// temp file with fsync and an atomic rename, so readers and the watcher
// never observe partial files.
func (r *RunInfo) Save(ctx context.Context) error {
	if r.dir == "" {
		return fmt.Errorf("run %s is not bound to a directory", r.ID)
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run info: %w", err)
	}
	data = append(data, '\n')

	if err := writeAtomic(ctx, filepath.Join(r.dir, InfoFilename), data); err != nil {
		return err
	}

	if !r.hasConfig {
		return nil
	}

	snapshot, err := yaml.Marshal(config.ToFileConfig(r.cfg))
	if err != nil {
		return fmt.Errorf("marshal config snapshot: %w", err)
	}
	return writeAtomic(ctx, filepath.Join(r.dir, ConfigFilename), snapshot)
}

// writeAtomic writes data to path with full durability guarantees:
// temp file creation, fsync, atomic rename, cleanup on error.
func writeAtomic(ctx context.Context, path string, data []byte) error {
	logger := log.WithComponentFromContext(ctx, "runs")

	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending file for %s: %w", filepath.Base(path), err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending file")
		}
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Open loads the metadata of an existing run directory. The returned
// RunInfo is bound to dir but carries no in-memory config; the snapshot
// stays on disk and Save will not rewrite it.
func Open(dir string) (*RunInfo, error) {
	path := filepath.Join(dir, InfoFilename)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open run info: %w", err)
	}
	defer func() { _ = f.Close() }()

	var info RunInfo
	if err := json.NewDecoder(f).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("decode %s: missing run id", path)
	}

	info.dir = dir
	return &info, nil
}
