// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"
)

func TestParseString(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		envSet       bool
		want         string
	}{
		{
			name:         "environment variable set",
			key:          "TEST_STRING",
			defaultValue: "default",
			envValue:     "from-env",
			envSet:       true,
			want:         "from-env",
		},
		{
			name:         "environment variable not set",
			key:          "TEST_STRING_UNSET",
			defaultValue: "default",
			envSet:       false,
			want:         "default",
		},
		{
			name:         "environment variable empty string",
			key:          "TEST_STRING_EMPTY",
			defaultValue: "default",
			envValue:     "",
			envSet:       true,
			want:         "default",
		},
		{
			name:         "sensitive variable (api key)",
			key:          "TEST_API_KEY",
			defaultValue: "default",
			envValue:     "wandb-secret",
			envSet:       true,
			want:         "wandb-secret",
		},
		{
			// Sensitive keys skip the empty-value fallback: an operator
			// explicitly exporting an empty token gets an empty token.
			name:         "sensitive variable empty",
			key:          "TEST_TOKEN",
			defaultValue: "default",
			envValue:     "",
			envSet:       true,
			want:         "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv(tt.key, tt.envValue)
			}

			got := ParseString(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("ParseString() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		envSet       bool
		want         int
	}{
		{
			name:         "valid integer",
			key:          "TEST_INT",
			defaultValue: 42,
			envValue:     "100",
			envSet:       true,
			want:         100,
		},
		{
			name:         "negative integer",
			key:          "TEST_INT_NEG",
			defaultValue: 42,
			envValue:     "-1",
			envSet:       true,
			want:         -1,
		},
		{
			name:         "invalid integer",
			key:          "TEST_INT_INVALID",
			defaultValue: 42,
			envValue:     "not-a-number",
			envSet:       true,
			want:         42, // falls back to default
		},
		{
			name:         "empty string",
			key:          "TEST_INT_EMPTY",
			defaultValue: 42,
			envValue:     "",
			envSet:       true,
			want:         42,
		},
		{
			name:         "not set",
			key:          "TEST_INT_UNSET",
			defaultValue: 42,
			envSet:       false,
			want:         42,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv(tt.key, tt.envValue)
			}

			got := ParseInt(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("ParseInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue float64
		envValue     string
		envSet       bool
		want         float64
	}{
		{
			name:         "valid float",
			key:          "TEST_FLOAT",
			defaultValue: 0.5,
			envValue:     "0.25",
			envSet:       true,
			want:         0.25,
		},
		{
			name:         "scientific notation",
			key:          "TEST_FLOAT_SCI",
			defaultValue: 0.5,
			envValue:     "1e-3",
			envSet:       true,
			want:         0.001,
		},
		{
			name:         "integer literal",
			key:          "TEST_FLOAT_INT",
			defaultValue: 0.5,
			envValue:     "2",
			envSet:       true,
			want:         2.0,
		},
		{
			name:         "invalid float",
			key:          "TEST_FLOAT_INVALID",
			defaultValue: 0.5,
			envValue:     "fast",
			envSet:       true,
			want:         0.5, // falls back to default
		},
		{
			name:         "empty string",
			key:          "TEST_FLOAT_EMPTY",
			defaultValue: 0.5,
			envValue:     "",
			envSet:       true,
			want:         0.5,
		},
		{
			name:         "not set",
			key:          "TEST_FLOAT_UNSET",
			defaultValue: 0.5,
			envSet:       false,
			want:         0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv(tt.key, tt.envValue)
			}

			got := ParseFloat(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("ParseFloat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue time.Duration
		envValue     string
		envSet       bool
		want         time.Duration
	}{
		{
			name:         "valid duration",
			key:          "TEST_DURATION",
			defaultValue: 5 * time.Second,
			envValue:     "10s",
			envSet:       true,
			want:         10 * time.Second,
		},
		{
			name:         "complex duration",
			key:          "TEST_DURATION_COMPLEX",
			defaultValue: 5 * time.Second,
			envValue:     "1h30m45s",
			envSet:       true,
			want:         1*time.Hour + 30*time.Minute + 45*time.Second,
		},
		{
			name:         "invalid duration",
			key:          "TEST_DURATION_INVALID",
			defaultValue: 5 * time.Second,
			envValue:     "not-a-duration",
			envSet:       true,
			want:         5 * time.Second, // falls back to default
		},
		{
			name:         "empty string",
			key:          "TEST_DURATION_EMPTY",
			defaultValue: 5 * time.Second,
			envValue:     "",
			envSet:       true,
			want:         5 * time.Second,
		},
		{
			name:         "not set",
			key:          "TEST_DURATION_UNSET",
			defaultValue: 5 * time.Second,
			envSet:       false,
			want:         5 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv(tt.key, tt.envValue)
			}

			got := ParseDuration(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("ParseDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue bool
		envValue     string
		envSet       bool
		want         bool
	}{
		{
			name:         "true string",
			key:          "TEST_BOOL_TRUE",
			defaultValue: false,
			envValue:     "true",
			envSet:       true,
			want:         true,
		},
		{
			name:         "TRUE uppercase",
			key:          "TEST_BOOL_TRUE_UPPER",
			defaultValue: false,
			envValue:     "TRUE",
			envSet:       true,
			want:         true,
		},
		{
			name:         "1 as true",
			key:          "TEST_BOOL_1",
			defaultValue: false,
			envValue:     "1",
			envSet:       true,
			want:         true,
		},
		{
			name:         "yes as true",
			key:          "TEST_BOOL_YES",
			defaultValue: false,
			envValue:     "yes",
			envSet:       true,
			want:         true,
		},
		{
			name:         "false string",
			key:          "TEST_BOOL_FALSE",
			defaultValue: true,
			envValue:     "false",
			envSet:       true,
			want:         false,
		},
		{
			name:         "0 as false",
			key:          "TEST_BOOL_0",
			defaultValue: true,
			envValue:     "0",
			envSet:       true,
			want:         false,
		},
		{
			name:         "no as false",
			key:          "TEST_BOOL_NO",
			defaultValue: true,
			envValue:     "no",
			envSet:       true,
			want:         false,
		},
		{
			name:         "invalid boolean",
			key:          "TEST_BOOL_INVALID",
			defaultValue: true,
			envValue:     "maybe",
			envSet:       true,
			want:         true, // falls back to default
		},
		{
			name:         "empty string",
			key:          "TEST_BOOL_EMPTY",
			defaultValue: true,
			envValue:     "",
			envSet:       true,
			want:         true,
		},
		{
			name:         "not set",
			key:          "TEST_BOOL_UNSET",
			defaultValue: false,
			envSet:       false,
			want:         false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv(tt.key, tt.envValue)
			}

			got := ParseBool(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("ParseBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_EXPAND_ROOT", "/mnt/datasets")

	got := expandEnv("${TEST_EXPAND_ROOT}/train.h5")
	if got != "/mnt/datasets/train.h5" {
		t.Errorf("expandEnv() = %v, want /mnt/datasets/train.h5", got)
	}

	got = expandEnv("plain-string")
	if got != "plain-string" {
		t.Errorf("expandEnv() = %v, want plain-string", got)
	}
}

// warnLegacyEnvKeys only logs; the legacy value must never leak into the
// loaded configuration.
func TestLegacyEnvKeysAreIgnored(t *testing.T) {
	configPath := writeConfig(t, minimalConfig)

	t.Setenv("METACURE_LR", "0.9")

	loader := NewLoader(configPath, "1.0.0")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Model.LearningRate != 0.001 {
		t.Errorf("expected legacy METACURE_LR to be ignored, got LearningRate=%v", cfg.Model.LearningRate)
	}
}
