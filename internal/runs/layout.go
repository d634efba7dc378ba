// SPDX-License-Identifier: MIT

// Package runs manages training-run directories: naming, metadata
// persistence, and the SQLite index the runs API is served from.
package runs

import (
	"crypto/sha1"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// InfoFilename is the metadata file written into every run directory.
// The scanner and watcher treat a directory as a run iff it holds one.
const InfoFilename = "run-info.json"

// ConfigFilename is the resolved-config snapshot written next to it.
const ConfigFilename = "config.yaml"

// Layout maps experiment and run names to directories under the save dir.
type Layout struct {
	SaveDir string
}

// ExperimentDir returns the directory that groups an experiment's runs.
func (l Layout) ExperimentDir(experiment string) string {
	return filepath.Join(l.SaveDir, Slug(experiment))
}

// RunDir returns the directory for one run of an experiment.
func (l Layout) RunDir(experiment, run string) string {
	return filepath.Join(l.ExperimentDir(experiment), RunID(experiment, run))
}

// RunID derives the stable directory basename for a run.
// Format: "run-name-SUFFIX" where SUFFIX is 6 hex chars hashed from the
// experiment/run pair, so equal run names in different experiments never
// produce colliding IDs and renaming-insensitive tools can rely on it.
func RunID(experiment, run string) string {
	sum := sha1.Sum([]byte(experiment + "/" + run))
	suffix := hex.EncodeToString(sum[:])[:6]
	return Slug(run) + "-" + suffix
}

var dashRuns = regexp.MustCompile(`-+`)

// Slug converts a free-form name into a filesystem- and URL-safe slug.
// Example: "MLP Baseline (lr=1e-3)" → "mlp-baseline-lr-1e-3".
func Slug(name string) string {
	if name == "" {
		return "run"
	}

	s := strings.ToLower(name)

	// Transliterate the accented characters that show up in practice.
	replacer := strings.NewReplacer(
		"ä", "ae",
		"ö", "oe",
		"ü", "ue",
		"ß", "ss",
		"à", "a",
		"á", "a",
		"â", "a",
		"è", "e",
		"é", "e",
		"ê", "e",
		"ì", "i",
		"í", "i",
		"î", "i",
		"ò", "o",
		"ó", "o",
		"ô", "o",
		"ù", "u",
		"ú", "u",
		"û", "u",
		"ç", "c",
		"ñ", "n",
	)
	s = replacer.Replace(s)

	// Keep a-z and 0-9, collapse everything else into single dashes.
	var result strings.Builder
	lastWasDash := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			lastWasDash = false
		} else if !lastWasDash {
			result.WriteRune('-')
			lastWasDash = true
		}
	}

	slug := strings.Trim(result.String(), "-")
	slug = dashRuns.ReplaceAllString(slug, "-")

	// Bound length so deep experiment names stay usable as paths.
	if len(slug) > 50 {
		slug = slug[:50]
		slug = strings.TrimRight(slug, "-")
	}

	if slug == "" {
		return "run"
	}
	return slug
}
