package pkgmgr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"golang.org/x/exp/maps"
)

// InstalledSource reports the version of a package actually resolved in a
// project's dependency tree.
type InstalledSource interface {
	Installed(ctx context.Context, dir, name string) (string, error)
}

// npmTreeNode represents one entry of `npm list --json` output. The shape
// also matches lockfileVersion 1 package-lock.json dependencies.
type npmTreeNode struct {
	Version      string                 `json:"version"`
	Dependencies map[string]npmTreeNode `json:"dependencies,omitempty"`
}

// NPMList resolves installed versions with `npm list <pkg> --json`.
type NPMList struct {
	runner  Runner
	timeout time.Duration
}

// NewNPMList creates an NPMList that bounds each listing by timeout.
func NewNPMList(runner Runner, timeout time.Duration) *NPMList {
	return &NPMList{runner: runner, timeout: timeout}
}

// Installed runs npm list in dir and searches the printed tree for name.
// npm exits non-zero for problems unrelated to the target (extraneous or
// invalid peers) while still printing the tree, so a non-zero exit is only
// fatal when nothing parseable was printed.
func (n *NPMList) Installed(ctx context.Context, dir, name string) (string, error) {
	out, runErr := runWithTimeout(ctx, n.runner, n.timeout, dir, "npm", "list", name, "--json")
	if out == nil || len(bytes.TrimSpace(out.Stdout)) == 0 || ctx.Err() != nil {
		if runErr == nil {
			runErr = ErrNotFound
		}
		return "", fmt.Errorf("npm list %s: %w", name, runErr)
	}

	var root npmTreeNode
	if err := json.Unmarshal(out.Stdout, &root); err != nil {
		if runErr != nil {
			return "", fmt.Errorf("npm list %s: %w", name, runErr)
		}
		return "", fmt.Errorf("failed to parse npm list output for %s: %w", name, err)
	}

	if v, ok := findInTree(root.Dependencies, name); ok {
		return v, nil
	}
	return "", fmt.Errorf("%s: %w", name, ErrNotFound)
}

// findInTree looks for target among deps, checking the direct level before
// descending so a top-level install wins over a transitive copy. Keys are
// visited in sorted order to keep the result deterministic.
func findInTree(deps map[string]npmTreeNode, target string) (string, bool) {
	if node, ok := deps[target]; ok && node.Version != "" {
		return node.Version, true
	}

	keys := maps.Keys(deps)
	slices.Sort(keys)
	for _, key := range keys {
		if v, ok := findInTree(deps[key].Dependencies, target); ok {
			return v, true
		}
	}
	return "", false
}

// FallbackInstalled tries each source in order and returns the first hit.
type FallbackInstalled []InstalledSource

// Installed implements InstalledSource.
func (f FallbackInstalled) Installed(ctx context.Context, dir, name string) (string, error) {
	var lastErr error = ErrNotFound
	for _, src := range f {
		v, err := src.Installed(ctx, dir, name)
		if err == nil && v != "" {
			return v, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	return "", lastErr
}
