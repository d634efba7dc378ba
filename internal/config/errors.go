// SPDX-License-Identifier: MIT

package config

import "errors"

var (
	// ErrUnknownConfigField classifies strict YAML parse failures caused by unknown keys.
	// Use errors.Is(err, ErrUnknownConfigField) instead of string matching.
	ErrUnknownConfigField = errors.New("unknown config field")

	// ErrMultipleDocuments classifies config files that contain more than one
	// YAML document. A run is described by exactly one document.
	ErrMultipleDocuments = errors.New("config file contains multiple documents or trailing content")
)
