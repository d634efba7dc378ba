// SPDX-License-Identifier: MIT

package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/virajmehta/MetaCURE-Public/internal/config"
)

// ErrUnknownTarget is returned when a target string resolves to no
// registered builder.
var ErrUnknownTarget = errors.New("unknown model target")

// Builder validates the model section of a run configuration and produces
// the architecture spec for its target.
type Builder func(config.ModelSettings) (*Spec, error)

var (
	mu       sync.RWMutex
	builders = make(map[string]Builder)
)

// Register adds a builder under its target path. Builders register from
// init functions; a duplicate target is a programmer error and panics.
func Register(target string, b Builder) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := builders[target]; exists {
		panic(fmt.Sprintf("model target %q already registered", target))
	}
	builders[target] = b
}

// Resolve returns the builder for a target. Unknown targets are reported
// together with every registered target so a typo is visible from the error.
func Resolve(target string) (Builder, error) {
	mu.RLock()
	b, ok := builders[target]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (known targets: %s)", ErrUnknownTarget, target, strings.Join(Targets(), ", "))
	}
	return b, nil
}

// Targets returns all registered target paths in sorted order.
func Targets() []string {
	mu.RLock()
	defer mu.RUnlock()

	targets := make([]string, 0, len(builders))
	for t := range builders {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// Build resolves the target named in the settings and runs its builder.
func Build(settings config.ModelSettings) (*Spec, error) {
	b, err := Resolve(settings.Target)
	if err != nil {
		return nil, err
	}
	return b(settings)
}
