// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys

	// StrictChecks enables filesystem and URL reachability validation on top
	// of the schema checks. Off by default so configs can be validated on
	// machines that do not hold the dataset.
	StrictChecks bool
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Wrapper methods for mechanical connection tracking

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envLookup(key string) (string, bool) {
	l.ConsumedEnvKeys[key] = struct{}{}
	return os.LookupEnv(key)
}

// Load loads configuration with precedence: ENV > File > Defaults
// It enforces Strict Validated Order: Parse File (Strict) -> Apply Env -> Validate
func (l *Loader) Load() (RunConfig, error) {
	warnLegacyEnvKeys()

	cfg := RunConfig{}

	// 1. Set defaults
	if err := l.setDefaults(&cfg); err != nil {
		return cfg, fmt.Errorf("set defaults: %w", err)
	}

	// 2. Load from file (if provided)
	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		l.mergeFileConfig(&cfg, fileCfg)
	}

	// 3. Override with environment variables (highest priority)
	l.mergeEnvConfig(&cfg)

	// SAFETY: Ensure SaveDir is absolute so run layouts resolve the same way
	// regardless of the working directory artifacts are written from.
	if abs, err := filepath.Abs(cfg.SaveDir); err == nil {
		cfg.SaveDir = abs
	}

	// 4. Version from binary
	cfg.Version = l.version

	// 5. Validate final configuration
	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	if l.StrictChecks {
		if err := ValidateStrict(cfg); err != nil {
			return cfg, fmt.Errorf("strict config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// setDefaults sets default values for configuration from the registry.
func (l *Loader) setDefaults(cfg *RunConfig) error {
	registry, err := GetRegistry()
	if err != nil {
		return fmt.Errorf("get registry: %w", err)
	}
	if err := registry.ApplyDefaults(cfg); err != nil {
		return fmt.Errorf("apply defaults: %w", err)
	}
	return nil
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	// Check file extension
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// Read file
	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	checkDeprecations(data)

	// Parse YAML with strict mode (unknown fields cause errors)
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, ErrMultipleDocuments
	}

	return &fileCfg, nil
}

// Load is a convenience wrapper around NewLoader().Load() for callers that
// do not need consumed-key tracking.
func Load(configPath, version string) (RunConfig, error) {
	return NewLoader(configPath, version).Load()
}
