package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/blackwell-systems/connectkit/internal/checker"
	"github.com/blackwell-systems/connectkit/internal/config"
	"github.com/blackwell-systems/connectkit/internal/pkgmgr"
	"github.com/blackwell-systems/connectkit/internal/project"
	"github.com/blackwell-systems/connectkit/internal/snapshots"
)

// newRunner builds the command runner used by every checker. Tests replace
// it with a scripted runner.
var newRunner = func() pkgmgr.Runner { return pkgmgr.NewExecRunner() }

// newChecker builds a checker from the loaded config, recording into the
// history database when it is open.
func newChecker() *checker.Checker {
	var rec checker.Recorder
	if history != nil {
		rec = checker.StoreRecorder{Store: history}
	}
	chk := checker.FromConfig(cfg, newRunner(), rec, logger)
	if cfg.Snapshots.Enabled {
		if mgr, err := newSnapshots(); err != nil {
			logger.WithError(err).Debug("snapshots disabled for this run")
		} else {
			chk.SetSnapshots(mgr)
		}
	}
	return chk
}

// newSnapshots returns the snapshot manager backed by the history database
// and prunes snapshots older than snapshots.keep_days.
func newSnapshots() (*snapshots.Manager, error) {
	if history == nil {
		return nil, fmt.Errorf("snapshots need the history database")
	}
	dir, err := cfg.SnapshotDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot directory: %w", err)
	}
	mgr := snapshots.New(history, dir)

	if maxAge := cfg.SnapshotMaxAge(); maxAge > 0 {
		if n, err := mgr.CleanupOldSnapshots(maxAge); err != nil {
			logger.WithError(err).Warn("failed to clean up old snapshots")
		} else if n > 0 {
			logger.WithField("count", n).Debug("old snapshots removed")
		}
	}
	return mgr, nil
}

// parseOverrides converts --manager and --type flag values.
func parseOverrides(manager, projectType string) (checker.InstallOptions, error) {
	var opts checker.InstallOptions
	if manager != "" {
		kind, err := pkgmgr.ParseKind(manager)
		if err != nil {
			return opts, err
		}
		opts.Manager = kind
	}
	t, err := project.ParseType(projectType)
	if err != nil {
		return opts, err
	}
	opts.Type = t
	return opts, nil
}

// stateFile returns name inside the connectkit config directory, creating
// the directory if needed.
func stateFile(name string) (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return filepath.Join(dir, name), nil
}

// getDefaultPIDFile returns the default watch daemon PID file path
func getDefaultPIDFile() (string, error) {
	return stateFile("watch.pid")
}

// getDefaultLogFile returns the default watch daemon log file path
func getDefaultLogFile() (string, error) {
	return stateFile("watch.log")
}
