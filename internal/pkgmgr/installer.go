package pkgmgr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInstallFailed marks a package manager install that did not exit cleanly.
var ErrInstallFailed = errors.New("install failed")

// Install runs argv (manager verb plus package specifiers) once in dir.
// The result is always returned, carrying captured stdout and stderr; a
// failed install additionally returns an error wrapping ErrInstallFailed.
// There is no retry.
func Install(ctx context.Context, r Runner, dir string, argv []string, timeout time.Duration) (*InstallResult, error) {
	result := &InstallResult{Command: append([]string(nil), argv...), ExitCode: -1}
	if len(argv) < 2 {
		return result, fmt.Errorf("%w: incomplete install command %q", ErrInstallFailed, strings.Join(argv, " "))
	}

	out, err := runWithTimeout(ctx, r, timeout, dir, argv[0], argv[1:]...)
	if out != nil {
		result.Stdout = string(out.Stdout)
		result.Stderr = string(out.Stderr)
		result.ExitCode = out.ExitCode
		result.Duration = out.Duration
	}
	if err != nil {
		return result, fmt.Errorf("%w: %s: %v", ErrInstallFailed, strings.Join(argv, " "), err)
	}

	result.Success = true
	return result, nil
}
