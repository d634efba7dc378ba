// SPDX-License-Identifier: MIT

// runsd serves the run browser API: it indexes the run directories under
// a save dir into SQLite, keeps the index fresh with a filesystem watcher
// and exposes experiments, runs and config snapshots over HTTP.
//
// The save dir is taken from -save-dir, from the config file given with
// -f, or from METACURE_SAVE_DIR. Runtime behavior (listen address, rate
// limit, watch debounce) is configured through METACURE_* environment
// variables; see docs/CONFIGURATION.md.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/virajmehta/MetaCURE-Public/internal/config"
	"github.com/virajmehta/MetaCURE-Public/internal/log"
	"github.com/virajmehta/MetaCURE-Public/internal/runs"
	"github.com/virajmehta/MetaCURE-Public/internal/server"
	"github.com/virajmehta/MetaCURE-Public/internal/version"
)

func main() {
	// .env is optional developer convenience; real ENV always wins.
	_ = godotenv.Load()

	var (
		file        string
		saveDirFlag string
		listen      string
		dbPath      string
		watch       bool
		showVersion bool
	)

	flag.StringVar(&file, "file", "", "path to YAML run configuration (save_dir is taken from it)")
	flag.StringVar(&file, "f", "", "path to YAML run configuration (shorthand)")
	flag.StringVar(&saveDirFlag, "save-dir", "", "directory holding the run directories")
	flag.StringVar(&listen, "listen", "", "HTTP listen address (default :8686)")
	flag.StringVar(&dbPath, "db", "", "index database path (default <save-dir>/.metacure/index.db)")
	flag.BoolVar(&watch, "watch", true, "watch the save dir and index changes live")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("runsd %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	saveDir, err := resolveSaveDir(file, saveDirFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	snap := config.BuildSnapshot(config.RunConfig{SaveDir: saveDir})
	rt := snap.Runtime

	// Explicit flags override the environment.
	setFlags := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	if setFlags["listen"] {
		rt.HTTP.ListenAddr = listen
	}
	if setFlags["db"] {
		rt.Index.DBPath = dbPath
	}
	if setFlags["watch"] {
		rt.Index.WatchEnabled = watch
	}

	log.Configure(log.Config{
		Level:   rt.LogLevel,
		Format:  rt.LogFormat,
		Service: "runsd",
		Version: version.Version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, saveDir, rt); err != nil {
		logger := log.WithComponent("runsd")
		logger.Error().Err(err).Msg("daemon failed")
		stop()
		os.Exit(1)
	}
}

// resolveSaveDir picks the save dir with precedence: -save-dir flag,
// config file, METACURE_SAVE_DIR, registry default. The result is
// absolute so index rows compare stably against scanner output.
func resolveSaveDir(file, saveDirFlag string) (string, error) {
	if saveDirFlag != "" {
		return filepath.Abs(saveDirFlag)
	}
	if file != "" {
		cfg, err := config.Load(file, version.Version)
		if err != nil {
			return "", fmt.Errorf("load %s: %w", file, err)
		}
		return cfg.SaveDir, nil
	}
	return filepath.Abs(config.ParseString("METACURE_SAVE_DIR", "runs"))
}

func run(ctx context.Context, saveDir string, rt config.RuntimeSnapshot) error {
	logger := log.WithComponent("runsd")
	logger.Info().
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str(log.FieldSaveDir, saveDir).
		Str(log.FieldDBPath, rt.Index.DBPath).
		Str(log.FieldAddr, rt.HTTP.ListenAddr).
		Bool("watch", rt.Index.WatchEnabled).
		Msg("starting run browser daemon")

	// An empty save dir is a valid, boring state; a missing one is not.
	if err := os.MkdirAll(saveDir, 0o755); err != nil {
		return fmt.Errorf("create save dir: %w", err)
	}

	store, err := runs.NewStore(rt.Index.DBPath)
	if err != nil {
		return fmt.Errorf("open index store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("close index store")
		}
	}()

	scanner := runs.NewScanner(store, saveDir, rt.Index.ScanConcurrency)
	stats, err := scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}
	logger.Info().
		Int("indexed", stats.Indexed).
		Int("invalid", stats.Invalid).
		Int("errors", stats.Errors).
		Int64("removed", stats.Removed).
		Dur("duration", stats.Duration).
		Msg("initial scan complete")

	g, gctx := errgroup.WithContext(ctx)

	if rt.Index.WatchEnabled {
		watcher, err := runs.NewWatcher(store, saveDir, rt.Index.WatchDebounce)
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		g.Go(func() error {
			return watcher.Start(gctx)
		})
	}

	srv := server.New(store, rt.HTTP, version.Version)
	g.Go(func() error {
		return srv.Serve(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("shutdown complete")
	return nil
}
