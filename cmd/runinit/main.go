// SPDX-License-Identifier: MIT

// runinit resolves a run configuration and initializes the run directory:
// it writes run-info.json and the resolved config.yaml snapshot under
// <save_dir>/<experiment>/<run-id> and prints the directory to stdout.
//
// Re-initializing an existing run directory is refused when the config
// changed in a way that would invalidate recorded artifacts; -force
// overrides that check.
//
// Exit codes:
//   - 0: Run directory initialized
//   - 1: Invalid configuration or initialization failure
//   - 2: Usage error (missing required flag)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/virajmehta/MetaCURE-Public/internal/config"
	"github.com/virajmehta/MetaCURE-Public/internal/log"
	"github.com/virajmehta/MetaCURE-Public/internal/model"
	"github.com/virajmehta/MetaCURE-Public/internal/runs"
	"github.com/virajmehta/MetaCURE-Public/internal/validate"
	"github.com/virajmehta/MetaCURE-Public/internal/version"
)

func main() {
	// .env is optional developer convenience; real ENV always wins.
	_ = godotenv.Load()

	var (
		file        string
		force       bool
		quiet       bool
		showVersion bool
	)

	flag.StringVar(&file, "file", "", "path to YAML run configuration")
	flag.StringVar(&file, "f", "", "path to YAML run configuration (shorthand)")
	flag.BoolVar(&force, "force", false, "reinitialize even if the stored config differs")
	flag.BoolVar(&quiet, "quiet", false, "print only the run directory")
	flag.BoolVar(&quiet, "q", false, "print only the run directory (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version.Version)
		os.Exit(0)
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "Error: --file is required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  runinit -f config.yaml")
		fmt.Fprintln(os.Stderr, "  runinit -f config.yaml -force")
		os.Exit(2)
	}

	log.Configure(log.Config{Format: "console", Service: "runinit", Version: version.Version})

	cfg, err := config.Load(file, version.Version)
	if err != nil {
		var verr validate.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(os.Stderr, "Validation error in %s:\n", file)
		} else {
			fmt.Fprintf(os.Stderr, "Configuration error in %s:\n", file)
		}
		fmt.Fprintf(os.Stderr, "  %v\n", err)
		os.Exit(1)
	}

	if _, err := model.Resolve(cfg.Model.Target); err != nil {
		fmt.Fprintf(os.Stderr, "Validation error in %s:\n", file)
		fmt.Fprintf(os.Stderr, "  model.target: %v\n", err)
		os.Exit(1)
	}

	info, err := runs.NewRunInfo(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	dir := info.Place(runs.Layout{SaveDir: cfg.SaveDir})

	next, _ := info.Config()
	if err := checkExisting(dir, next, force); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := info.Save(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: initialize run directory: %v\n", err)
		os.Exit(1)
	}

	if !quiet {
		fmt.Fprintf(os.Stderr, "✓ initialized run %s (experiment %q)\n", info.ID, info.Experiment)
	}
	// The directory goes to stdout so scripts can capture it.
	fmt.Println(dir)
}

// checkExisting guards against silently rewriting a run directory whose
// stored snapshot no longer matches the new config. Version and the
// reinit-safe fields may differ; everything else needs -force.
func checkExisting(dir string, next config.RunConfig, force bool) error {
	fc, err := config.LoadFileConfig(filepath.Join(dir, runs.ConfigFilename))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		if force {
			logger := log.WithComponent("runinit")
			logger.Warn().Err(err).Str("dir", dir).
				Msg("stored config unreadable, overwriting")
			return nil
		}
		return fmt.Errorf("run directory %s has an unreadable config snapshot (%v), use -force to overwrite", dir, err)
	}

	stored := config.FromFileConfig(fc)
	// A new binary version alone never blocks re-initialization.
	stored.Version = next.Version

	summary, err := config.Diff(stored, next)
	if err != nil {
		return fmt.Errorf("compare stored config: %w", err)
	}
	if len(summary.ChangedFields) == 0 {
		return nil
	}

	changed := displayPaths(summary.ChangedFields)
	if summary.ForceRequired && !force {
		return fmt.Errorf("run directory %s already exists and the config changed (%s), use -force to reinitialize",
			dir, strings.Join(changed, ", "))
	}

	logger := log.WithComponent("runinit")
	logger.Warn().
		Str("dir", dir).
		Strs("changed_fields", changed).
		Msg("reinitializing run with changed config")
	return nil
}

// displayPaths translates internal field paths to the user-facing config
// paths used in YAML files and docs.
func displayPaths(fieldPaths []string) []string {
	out := make([]string, 0, len(fieldPaths))
	registry, err := config.GetRegistry()
	for _, fp := range fieldPaths {
		if err == nil {
			if entry, ok := registry.ByField[fp]; ok && entry.Path != "" {
				out = append(out, entry.Path)
				continue
			}
		}
		out = append(out, fp)
	}
	return out
}
