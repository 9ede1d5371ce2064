// Package process runs external command-line tools and captures their output.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Result is the outcome of a finished process.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports a zero exit code.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// TrimmedStderr returns stderr without surrounding whitespace.
func (r *Result) TrimmedStderr() string {
	return strings.TrimSpace(r.Stderr)
}

// Runner executes an external program and waits for it to exit.
// A non-zero exit is reported through Result, not as an error; the error
// return is reserved for failures to start the program at all.
type Runner interface {
	Run(ctx context.Context, executable string, args ...string) (*Result, error)
}

// ExecRunner implements Runner with os/exec.
type ExecRunner struct {
	// Dir is the working directory for spawned processes (optional)
	Dir string
}

// NewExecRunner creates a runner using the current working directory.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run starts the program and blocks until it exits. Both output streams are
// copied into buffers by exec's own goroutines, so a chatty tool cannot
// deadlock on a full pipe before the exit status is read.
func (r *ExecRunner) Run(ctx context.Context, executable string, args ...string) (*Result, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, executable, args...)
	cmd.Dir = r.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("start %s: %w", executable, err)
	}

	return result, nil
}
