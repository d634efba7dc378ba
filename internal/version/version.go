// SPDX-License-Identifier: MIT

// Package version carries the build identity shared by all binaries.
package version

var (
	// Version is the semantic version of the build.
	// Populated by the release build via ldflags; "dev" otherwise.
	Version = "dev"

	// Commit is the short git hash of the build.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)
