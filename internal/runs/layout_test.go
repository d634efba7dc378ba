// SPDX-License-Identifier: MIT

package runs

import (
	"path/filepath"
	"testing"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple lowercase",
			input:    "Point Robot",
			expected: "point-robot",
		},
		{
			name:     "parentheses and equals",
			input:    "MLP Baseline (lr=1e-3)",
			expected: "mlp-baseline-lr-1e-3",
		},
		{
			name:     "umlauts",
			input:    "Größere Läufe",
			expected: "groessere-laeufe",
		},
		{
			name:     "multiple spaces",
			input:    "sweep    batch64",
			expected: "sweep-batch64",
		},
		{
			name:     "leading/trailing spaces",
			input:    "  ablation  ",
			expected: "ablation",
		},
		{
			name:     "dots and underscores",
			input:    "point_robot.v2",
			expected: "point-robot-v2",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "run",
		},
		{
			name:     "only special chars",
			input:    "!!!###",
			expected: "run",
		},
		{
			name:     "very long name",
			input:    "This Is A Very Very Very Long Experiment Name That Should Be Truncated",
			expected: "this-is-a-very-very-very-long-experiment-name-that",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Slug(tt.input)
			if result != tt.expected {
				t.Errorf("Slug(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRunIDStability(t *testing.T) {
	id1 := RunID("point-robot", "baseline")
	id2 := RunID("point-robot", "baseline")

	if id1 != id2 {
		t.Errorf("RunID() not stable: %q != %q", id1, id2)
	}
}

func TestRunIDUniqueAcrossExperiments(t *testing.T) {
	// Equal run names in different experiments must not collide.
	id1 := RunID("point-robot", "baseline")
	id2 := RunID("cheetah", "baseline")

	if id1 == id2 {
		t.Errorf("RunID() collided across experiments: %q == %q", id1, id2)
	}

	// The human-readable prefix stays the same.
	prefix1 := id1[:len(id1)-7]
	prefix2 := id2[:len(id2)-7]
	if prefix1 != prefix2 {
		t.Errorf("RunID() prefixes differ: %q != %q", prefix1, prefix2)
	}
}

func TestRunIDSuffixIsHex(t *testing.T) {
	id := RunID("point-robot", "baseline")

	suffix := id[len(id)-6:]
	for _, c := range suffix {
		if (c < 'a' || c > 'f') && (c < '0' || c > '9') {
			t.Errorf("RunID() suffix %q contains non-hex char %c", suffix, c)
		}
	}
	if id[len(id)-7] != '-' {
		t.Errorf("RunID() = %q, want dash before suffix", id)
	}
}

func TestLayoutPaths(t *testing.T) {
	l := Layout{SaveDir: "/srv/experiments"}

	expDir := l.ExperimentDir("Point Robot")
	if expDir != filepath.Join("/srv/experiments", "point-robot") {
		t.Errorf("ExperimentDir() = %q", expDir)
	}

	runDir := l.RunDir("Point Robot", "Baseline LR")
	wantBase := RunID("Point Robot", "Baseline LR")
	if runDir != filepath.Join(expDir, wantBase) {
		t.Errorf("RunDir() = %q, want %q", runDir, filepath.Join(expDir, wantBase))
	}
}
