package pkgmgr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Runner executes external commands. Resolvers and the installer take a
// Runner instead of calling os/exec directly so tests can substitute a fake.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (*Output, error)
}

// ExecRunner runs commands through os/exec. Cancelling ctx kills the process.
type ExecRunner struct {
	// For mocking in tests
	commandContext func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewExecRunner returns a Runner backed by exec.CommandContext.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{commandContext: exec.CommandContext}
}

// Run executes name with args in dir, capturing stdout and stderr
// separately. The returned Output is non-nil even when err is set so callers
// can report the exact failure text.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (*Output, error) {
	cmd := r.commandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	out := &Output{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err == nil {
		return out, nil
	}

	out.ExitCode = -1
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, fmt.Errorf("%s %s failed: %w (stderr: %s)",
			name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}

	return out, fmt.Errorf("failed to start %s: %w", name, err)
}

// runWithTimeout bounds a single command by timeout. A zero timeout leaves
// ctx unchanged.
func runWithTimeout(ctx context.Context, r Runner, timeout time.Duration, dir, name string, args ...string) (*Output, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return r.Run(ctx, dir, name, args...)
}
