package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/connectkit/internal/checker"
	"github.com/blackwell-systems/connectkit/internal/pkgmgr"
	"github.com/blackwell-systems/connectkit/internal/project"
	"github.com/blackwell-systems/connectkit/internal/watcher"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose common setup problems",
	Long: `Runs diagnostic checks on the project and the local toolchain.

Checks:
  • package.json exists and parses
  • The project type can be detected
  • A lockfile decides the package manager
  • The selected package manager is on PATH
  • The registry answers for the core package
  • The history database is usable

Exits 1 when a critical check fails and 2 when only warnings were found.`,
	RunE: runDoctor,
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}

// diagnosis tallies doctor results.
type diagnosis struct {
	out      io.Writer
	critical int
	warnings int
}

func (d *diagnosis) ok(format string, a ...interface{}) {
	fmt.Fprintf(d.out, "✓ "+format+"\n", a...)
}

func (d *diagnosis) warn(action, format string, a ...interface{}) {
	fmt.Fprintf(d.out, "⚠ "+format+"\n", a...)
	if action != "" {
		fmt.Fprintf(d.out, "  Action: %s\n", action)
	}
	d.warnings++
}

func (d *diagnosis) fail(action, format string, a ...interface{}) {
	fmt.Fprintf(d.out, "✗ "+format+"\n", a...)
	if action != "" {
		fmt.Fprintf(d.out, "  Action: %s\n", action)
	}
	d.critical++
}

func runDoctor(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Running connectkit diagnostics...")
	fmt.Fprintln(out)

	d := &diagnosis{out: out}
	ctx := cmd.Context()
	runner := newRunner()

	// Check 1: package.json
	desc := project.Load(root)
	switch desc.Status() {
	case project.ManifestOK:
		d.ok("package.json found (%d dependencies)", len(desc.Names()))
	case project.ManifestMissing:
		d.fail("Run connectkit inside your web project, or pass --dir", "package.json not found in %s", root)
	default:
		d.fail("Fix the JSON syntax in package.json", "package.json is not valid JSON: %v", desc.Err())
	}

	// Check 2: project type
	t := project.Classify(desc)
	if t == project.TypeUnknown {
		d.warn("Pass --type to install and plan", "Project type could not be detected")
	} else {
		d.ok("Project type: %s", t)
	}

	// Check 3: lockfile
	lockfile, kind := desc.Lockfile()
	if lockfile == "" {
		d.warn("Install dependencies once so the manager is pinned by a lockfile", "No lockfile; the package manager is picked from PATH")
	} else {
		d.ok("Lockfile: %s (%s)", lockfile, kind)
	}

	// Check 4: package manager on PATH
	manager := kind
	if !manager.Known() {
		manager = project.DetectManager(ctx, desc, runner, cfg.Timeouts.Probe)
	}
	if !manager.Known() {
		manager = cfg.Manager()
	}
	if version, ok := pkgmgr.Available(ctx, runner, manager, cfg.Timeouts.Probe); ok {
		d.ok("%s %s is available", manager, version)
	} else {
		d.fail(fmt.Sprintf("Install %s or pass --manager", manager), "%s is not on PATH", manager)
	}

	// Check 5: registry
	checkRegistry(ctx, d, checker.LatestSource(cfg, runner))

	// Check 6: history database
	switch {
	case !cfg.History.Enabled || noHistory:
		d.ok("History disabled")
	case history == nil:
		d.warn("Check history.path in your config", "History database could not be opened")
	default:
		if n, err := history.CountRuns(); err != nil {
			d.warn("Delete the history database to recreate it", "Cannot read history: %v", err)
		} else {
			d.ok("History database: %d run(s) recorded", n)
		}
	}

	// Snapshots ride on the history database.
	if history != nil && cfg.Snapshots.Enabled {
		if snaps, err := history.ListSnapshots(root, 0); err == nil {
			d.ok("Snapshots: %d saved for this project", len(snaps))
		}
	}

	// Watch daemon status is informational only.
	if pidFile, err := getDefaultPIDFile(); err == nil {
		if running, _ := watcher.IsDaemonRunning(pidFile); running {
			d.ok("Watch daemon running")
		}
	}

	if len(cfg.Files) > 0 {
		fmt.Fprintf(out, "\nConfig: %s\n", strings.Join(cfg.Files, ", "))
	}

	fmt.Fprintln(out)
	if d.critical == 0 && d.warnings == 0 {
		fmt.Fprintln(out, "✓ All checks passed!")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Next steps:")
		fmt.Fprintln(out, "  • Install packages: connectkit install")
		fmt.Fprintln(out, "  • Verify versions: connectkit check")
		return nil
	}

	if d.critical > 0 {
		fmt.Fprintf(out, "Found %d critical issue(s) and %d warning(s).\n", d.critical, d.warnings)
		return fmt.Errorf("diagnostics failed")
	}

	fmt.Fprintf(out, "Found %d warning(s). connectkit will work, with reduced detection.\n", d.warnings)
	return &exitError{code: 2}
}

func checkRegistry(ctx context.Context, d *diagnosis, src pkgmgr.LatestSource) {
	core := cfg.Packages.Core
	info, err := src.Latest(ctx, core)
	if err != nil {
		d.warn("Check your network or registry settings; versions will show as unknown", "Registry lookup for %s failed: %v", core, err)
		return
	}
	d.ok("Registry reachable (%s latest: %s)", core, info.Version)
}
