// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/virajmehta/MetaCURE-Public/internal/log"
)

// Deprecation represents a deprecated configuration field
type Deprecation struct {
	OldField        string // The deprecated field name (e.g. "lr")
	NewField        string // The replacement field name (e.g. "model.learning_rate")
	DeprecatedSince string // Version when it was deprecated
	RemovalVersion  string // Version when it will be removed
}

// deprecationRegistry contains all known deprecated configuration fields.
// The old keys still parse (they are kept in FileConfig so strict mode
// accepts them); the merge step maps them onto their replacements.
var deprecationRegistry = map[string]Deprecation{
	"lr": {
		OldField:        "lr",
		NewField:        "model.learning_rate",
		DeprecatedSince: "0.3.0",
		RemovalVersion:  "1.0.0",
	},
	"val_split": {
		OldField:        "val_split",
		NewField:        "data_module.val_fraction",
		DeprecatedSince: "0.3.0",
		RemovalVersion:  "1.0.0",
	},
	"log_dir": {
		OldField:        "log_dir",
		NewField:        "save_dir",
		DeprecatedSince: "0.2.0",
		RemovalVersion:  "1.0.0",
	},
}

// checkDeprecations scans the raw YAML document for deprecated keys and logs
// a warning for each one found. The scan is lenient: a malformed document is
// skipped here and rejected by the strict decode that follows.
func checkDeprecations(data []byte) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return
	}
	warnDeprecatedKeys(raw)
}

func warnDeprecatedKeys(node map[string]any) {
	for key, value := range node {
		if dep, found := deprecationRegistry[key]; found {
			LogDeprecationWarning(dep)
		}
		if nested, ok := value.(map[string]any); ok {
			warnDeprecatedKeys(nested)
		}
	}
}

// LogDeprecationWarning logs a structured warning for a deprecated field
func LogDeprecationWarning(dep Deprecation) {
	logger := log.WithComponent("config")
	logger.Warn().
		Str("old_field", dep.OldField).
		Str("new_field", dep.NewField).
		Str("deprecated_since", dep.DeprecatedSince).
		Str("removal_version", dep.RemovalVersion).
		Msgf("deprecated configuration field '%s' detected, please use '%s' instead (will be removed in %s)",
			dep.OldField, dep.NewField, dep.RemovalVersion)
}

// GetDeprecation looks up a deprecation by old field name
func GetDeprecation(oldField string) (Deprecation, bool) {
	dep, found := deprecationRegistry[oldField]
	return dep, found
}

// DeprecationSummary returns a human-readable summary of all registered deprecations
func DeprecationSummary() string {
	if len(deprecationRegistry) == 0 {
		return "No deprecated configuration fields"
	}

	fields := make([]string, 0, len(deprecationRegistry))
	for field := range deprecationRegistry {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString("Deprecated configuration fields:\n")
	for _, field := range fields {
		dep := deprecationRegistry[field]
		fmt.Fprintf(&b, "  - %s -> %s (deprecated since %s, will be removed in %s)\n",
			dep.OldField, dep.NewField, dep.DeprecatedSince, dep.RemovalVersion)
	}
	return b.String()
}
