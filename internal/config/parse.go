// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseHiddenSizes parses METACURE_MODEL_HIDDEN_SIZES.
// Supported form: comma-separated widths, e.g. "512,256,128".
// Order is preserved because widths are positional layer sizes.
func ParseHiddenSizes(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil // nil => "not configured"
	}

	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid hidden size %q: %w", p, err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("hidden size must be > 0 (got %d)", v)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// ParseOptionPairs parses METACURE_LOGGER_OPTIONS.
// Supported form: comma-separated key=value pairs, e.g. "project=metacure,entity=lab".
// Later duplicates overwrite earlier ones.
func ParseOptionPairs(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil // nil => "not configured"
	}

	out := make(map[string]string)
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid option pair %q: expected key=value", p)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("invalid option pair %q: empty key", p)
		}
		out[key] = strings.TrimSpace(value)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
