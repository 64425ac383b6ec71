// Package collector gathers repository and project state for the context
// engine. Collectors only read; they never mutate a snapshot themselves.
package collector

import (
	"context"
	"errors"
	"os/exec"
)

// ErrNotRepository is returned when the working directory is not inside a
// git work tree.
var ErrNotRepository = errors.New("not a git repository")

// GitRunner executes a git command and returns its output.
// This abstraction allows mocking in tests.
type GitRunner func(ctx context.Context, workDir string, args ...string) (string, error)

// defaultGitRunner runs git as a real subprocess.
func defaultGitRunner(ctx context.Context, workDir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = workDir
	out, err := cmd.Output()
	return string(out), err
}

// isExitCode128 reports whether err is an *exec.ExitError with exit code 128.
func isExitCode128(err error) bool {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode() == 128
	}
	return false
}
