// SPDX-License-Identifier: MIT

package config

import (
	"path/filepath"
	"strings"
	"time"
)

// Snapshot is the immutable, effective runtime configuration for a process.
// It combines the validated RunConfig with process-level settings that are
// sourced from ENV only and never belong in a run's YAML document.
type Snapshot struct {
	Run     RunConfig
	Runtime RuntimeSnapshot
}

// RuntimeSnapshot holds the ENV-only process settings.
type RuntimeSnapshot struct {
	LogLevel  string
	LogFormat string

	HTTP  HTTPRuntime
	Index IndexRuntime
}

// HTTPRuntime configures the run browser API server.
type HTTPRuntime struct {
	ListenAddr        string // e.g. ":8686"
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	RequestsPerMinute int // per-client rate limit, 0 disables
}

// IndexRuntime configures the run index database and directory watcher.
type IndexRuntime struct {
	DBPath          string // defaults to <save_dir>/.metacure/index.db
	WatchEnabled    bool
	WatchDebounce   time.Duration
	ScanConcurrency int
}

// BuildSnapshot builds an effective, immutable runtime snapshot from an
// already validated RunConfig.
func BuildSnapshot(run RunConfig) Snapshot {
	rt := RuntimeSnapshot{
		LogLevel:  ParseString("METACURE_LOG_LEVEL", "info"),
		LogFormat: ParseString("METACURE_LOG_FORMAT", "json"),
	}

	rt.HTTP = buildHTTPRuntime()
	rt.Index = buildIndexRuntime(run)

	return Snapshot{Run: run, Runtime: rt}
}

func buildHTTPRuntime() HTTPRuntime {
	listen := ParseString("METACURE_HTTP_LISTEN", "")
	if strings.TrimSpace(listen) == "" {
		if port := strings.TrimSpace(ParseString("METACURE_HTTP_PORT", "")); port != "" {
			listen = ":" + port
		} else {
			listen = ":8686"
		}
	}

	return HTTPRuntime{
		ListenAddr:        listen,
		ReadHeaderTimeout: ParseDuration("METACURE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ShutdownTimeout:   ParseDuration("METACURE_HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		RequestsPerMinute: ParseInt("METACURE_HTTP_RATE_LIMIT", 300),
	}
}

func buildIndexRuntime(run RunConfig) IndexRuntime {
	db := ParseString("METACURE_INDEX_DB", "")
	if strings.TrimSpace(db) == "" && run.SaveDir != "" {
		// Hidden subdirectory keeps the database out of the scanner's and
		// watcher's view of save_dir.
		db = filepath.Join(run.SaveDir, ".metacure", "index.db")
	}

	return IndexRuntime{
		DBPath:          db,
		WatchEnabled:    ParseBool("METACURE_INDEX_WATCH", true),
		WatchDebounce:   ParseDuration("METACURE_INDEX_WATCH_DEBOUNCE", 500*time.Millisecond),
		ScanConcurrency: ParseInt("METACURE_INDEX_SCAN_CONCURRENCY", 4),
	}
}
