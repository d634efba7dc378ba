// SPDX-License-Identifier: MIT

package runs

import (
	"os"
	"os/exec"
	"strings"
)

// gitCommitAndBranch resolves the current commit hash and branch via the
// git CLI, falling back to the GIT_COMMIT / GIT_BRANCH environment
// variables (set by most CI systems). Values stay empty when neither
// source is available; provenance is best-effort.
func gitCommitAndBranch() (commit, branch string) {
	if out, err := exec.Command("git", "rev-parse", "HEAD").Output(); err == nil {
		commit = strings.TrimSpace(string(out))
	} else {
		commit = os.Getenv("GIT_COMMIT")
	}

	if out, err := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD").Output(); err == nil {
		branch = strings.TrimSpace(string(out))
	} else {
		branch = os.Getenv("GIT_BRANCH")
	}

	return commit, branch
}
