package project

import (
	"context"
	"time"

	"github.com/blackwell-systems/connectkit/internal/pkgmgr"
)

// DefaultProbeTimeout bounds each `<manager> --version` probe.
const DefaultProbeTimeout = 5 * time.Second

// DetectManager picks the package manager for d. The lockfile decides when
// one exists; otherwise the first manager that answers `--version` wins.
// KindUnknown means neither produced an answer.
func DetectManager(ctx context.Context, d *Descriptor, r pkgmgr.Runner, probeTimeout time.Duration) pkgmgr.Kind {
	if _, kind := d.Lockfile(); kind.Known() {
		return kind
	}
	if r == nil {
		return pkgmgr.KindUnknown
	}
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	return pkgmgr.Probe(ctx, r, probeTimeout)
}

// DependencyFiles returns package.json followed by every known lockfile
// name: the files an install rewrites.
func DependencyFiles() []string {
	names := []string{ManifestFile}
	for _, lf := range pkgmgr.Lockfiles {
		names = append(names, lf.Name)
	}
	return names
}
