package pkgmgr

import (
	"context"
	"strings"
	"time"
)

// probeOrder lists managers tried when a project has no lockfile.
var probeOrder = []Kind{KindBun, KindYarn, KindNPM}

// Probe returns the first manager whose `--version` runs successfully
// within timeout, or KindUnknown. Failures are not errors: a missing binary
// simply moves on to the next candidate.
func Probe(ctx context.Context, r Runner, timeout time.Duration) Kind {
	for _, kind := range probeOrder {
		if _, ok := Available(ctx, r, kind, timeout); ok {
			return kind
		}
		if ctx.Err() != nil {
			break
		}
	}
	return KindUnknown
}

// Available runs `<kind> --version` and returns the reported version when
// the command succeeds within timeout.
func Available(ctx context.Context, r Runner, kind Kind, timeout time.Duration) (string, bool) {
	if !kind.Known() {
		return "", false
	}
	out, err := runWithTimeout(ctx, r, timeout, "", string(kind), "--version")
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(out.Stdout)), true
}
