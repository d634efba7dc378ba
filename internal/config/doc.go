// SPDX-License-Identifier: MIT

// Package config defines the declarative run configuration for MetaCURE
// training experiments and the loader that materializes it.
//
// Precedence is ENV > file > defaults. Files are parsed strictly: unknown
// keys are rejected so typos fail fast instead of silently training with
// default hyperparameters.
package config
