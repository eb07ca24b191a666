// Package pkgmgrtest provides a scripted pkgmgr.Runner for tests.
package pkgmgrtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/blackwell-systems/connectkit/internal/pkgmgr"
)

// Response is the canned result for one command line.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Delay    time.Duration // honours ctx cancellation
}

// Call records one invocation.
type Call struct {
	Dir  string
	Name string
	Args []string
}

// Line returns the call as a space-joined command line.
func (c Call) Line() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// ErrCommandNotFound is returned for command lines with no scripted response.
var ErrCommandNotFound = errors.New("executable file not found in $PATH")

// Runner answers commands from a table keyed by the full command line,
// e.g. "npm view @btc-connect/core --json". Safe for concurrent use.
type Runner struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     []Call
}

// NewRunner returns an empty Runner; every command fails until scripted.
func NewRunner() *Runner {
	return &Runner{responses: make(map[string]Response)}
}

// On scripts the response for a command line and returns the Runner for
// chaining.
func (r *Runner) On(line string, resp Response) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[line] = resp
	return r
}

// Run implements pkgmgr.Runner.
func (r *Runner) Run(ctx context.Context, dir, name string, args ...string) (*pkgmgr.Output, error) {
	call := Call{Dir: dir, Name: name, Args: append([]string(nil), args...)}

	r.mu.Lock()
	r.calls = append(r.calls, call)
	resp, ok := r.responses[call.Line()]
	r.mu.Unlock()

	if !ok {
		return &pkgmgr.Output{ExitCode: -1}, fmt.Errorf("failed to start %s: %w", name, ErrCommandNotFound)
	}

	if resp.Delay > 0 {
		select {
		case <-ctx.Done():
			return &pkgmgr.Output{ExitCode: -1}, fmt.Errorf("%s: %w", call.Line(), ctx.Err())
		case <-time.After(resp.Delay):
		}
	}

	out := &pkgmgr.Output{
		Stdout:   []byte(resp.Stdout),
		Stderr:   []byte(resp.Stderr),
		ExitCode: resp.ExitCode,
		Duration: resp.Delay,
	}
	if resp.ExitCode != 0 {
		return out, fmt.Errorf("%s failed: exit status %d (stderr: %s)", call.Line(), resp.ExitCode, resp.Stderr)
	}
	return out, nil
}

// Calls returns a copy of every recorded invocation.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallCount returns how many recorded calls start with prefix.
func (r *Runner) CallCount(prefix string) int {
	n := 0
	for _, c := range r.Calls() {
		if strings.HasPrefix(c.Line(), prefix) {
			n++
		}
	}
	return n
}
