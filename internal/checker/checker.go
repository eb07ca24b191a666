// Package checker runs the connectkit pipeline: load the project, classify
// it, resolve package versions, analyze compatibility and plan or perform
// the install.
package checker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/connectkit/internal/analyzer"
	"github.com/blackwell-systems/connectkit/internal/config"
	"github.com/blackwell-systems/connectkit/internal/pkgmgr"
	"github.com/blackwell-systems/connectkit/internal/planner"
	"github.com/blackwell-systems/connectkit/internal/project"
)

// Recorder persists run history. Failures are logged, never returned to
// the caller of Check or Install.
type Recorder interface {
	RecordRun(r *Report) error
	RecordInstall(root string, res *pkgmgr.InstallResult) error
}

// Snapshotter saves the project's dependency files before an install and
// puts them back if it fails.
type Snapshotter interface {
	CreateSnapshot(root, reason string) (int64, error)
	RestoreSnapshot(id int64) error
}

// Options wires a Checker. Nil fields get working defaults.
type Options struct {
	Runner         pkgmgr.Runner
	Resolver       *pkgmgr.Resolver
	Planner        *planner.Planner
	Minimums       []analyzer.Minimum
	ProbeTimeout   time.Duration
	InstallTimeout time.Duration
	Recorder       Recorder
	Snapshots      Snapshotter
	Logger         *logrus.Entry
}

// Checker runs checks and installs against project directories. It holds
// no per-project state and may be reused.
type Checker struct {
	runner         pkgmgr.Runner
	resolver       *pkgmgr.Resolver
	planner        *planner.Planner
	minimums       []analyzer.Minimum
	probeTimeout   time.Duration
	installTimeout time.Duration
	recorder       Recorder
	snapshots      Snapshotter
	log            *logrus.Entry
}

// New creates a Checker from opts.
func New(opts Options) *Checker {
	c := &Checker{
		runner:         opts.Runner,
		resolver:       opts.Resolver,
		planner:        opts.Planner,
		minimums:       opts.Minimums,
		probeTimeout:   opts.ProbeTimeout,
		installTimeout: opts.InstallTimeout,
		recorder:       opts.Recorder,
		snapshots:      opts.Snapshots,
		log:            opts.Logger,
	}

	if c.log == nil {
		c.log = logrus.NewEntry(logrus.StandardLogger())
	}
	if c.runner == nil {
		c.runner = pkgmgr.NewExecRunner()
	}
	if c.planner == nil {
		c.planner = planner.New(planner.DefaultCatalog())
	}
	if c.resolver == nil {
		c.resolver = pkgmgr.NewResolver(
			pkgmgr.NewNPMView(c.runner, 30*time.Second),
			pkgmgr.FallbackInstalled{pkgmgr.NewNPMList(c.runner, 30*time.Second), pkgmgr.LockfileReader{}},
			c.log,
		)
	}
	if c.minimums == nil {
		cat := c.planner.Catalog()
		c.minimums = analyzer.DefaultMinimums(cat.Core, cat.React, cat.Vue, "")
	}
	if c.probeTimeout <= 0 {
		c.probeTimeout = project.DefaultProbeTimeout
	}
	if c.installTimeout <= 0 {
		c.installTimeout = 5 * time.Minute
	}
	return c
}

// FromConfig builds a Checker whose sources, package names and timeouts
// follow cfg.
func FromConfig(cfg *config.Config, runner pkgmgr.Runner, recorder Recorder, log *logrus.Logger) *Checker {
	if runner == nil {
		runner = pkgmgr.NewExecRunner()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	entry := log.WithField("component", "checker")

	var installed pkgmgr.InstalledSource
	switch cfg.Installed.Source {
	case "npm":
		installed = pkgmgr.NewNPMList(runner, cfg.Timeouts.Registry)
	case "lockfile":
		installed = pkgmgr.LockfileReader{}
	default:
		installed = pkgmgr.FallbackInstalled{pkgmgr.NewNPMList(runner, cfg.Timeouts.Registry), pkgmgr.LockfileReader{}}
	}

	catalog := planner.Catalog{
		Core:  cfg.Packages.Core,
		React: cfg.Packages.React,
		Vue:   cfg.Packages.Vue,
	}
	p := planner.New(catalog, planner.WithDefaultManager(cfg.Manager()))
	cat := p.Catalog()

	return New(Options{
		Runner:         runner,
		Resolver:       pkgmgr.NewResolver(LatestSource(cfg, runner), installed, log.WithField("component", "resolver")),
		Planner:        p,
		Minimums:       analyzer.DefaultMinimums(cat.Core, cat.React, cat.Vue, cfg.MinimumVersion),
		ProbeTimeout:   cfg.Timeouts.Probe,
		InstallTimeout: cfg.Timeouts.Install,
		Recorder:       recorder,
		Logger:         entry,
	})
}

// LatestSource returns the latest-version source selected by
// cfg.Registry.Source.
func LatestSource(cfg *config.Config, runner pkgmgr.Runner) pkgmgr.LatestSource {
	if cfg.Registry.Source == "http" {
		return pkgmgr.NewHTTPRegistry(cfg.Registry.URL, cfg.Timeouts.Registry)
	}
	return pkgmgr.NewNPMView(runner, cfg.Timeouts.Registry)
}

// SetSnapshots enables snapshots around installs. A nil s disables them.
func (c *Checker) SetSnapshots(s Snapshotter) { c.snapshots = s }

// Planner returns the planner in use.
func (c *Checker) Planner() *planner.Planner { return c.planner }

// Inspect loads and classifies the project at root and picks its manager.
// It runs no registry lookups.
func (c *Checker) Inspect(ctx context.Context, root string) (*project.Descriptor, project.Type, pkgmgr.Kind) {
	d := project.Load(root)
	log := c.log.WithField("root", root)
	if d.Status() != project.ManifestOK {
		entry := log.WithField("manifest", d.Status().String())
		if err := d.Err(); err != nil {
			entry = entry.WithError(err)
		}
		entry.Warn("package.json unavailable, continuing with an empty descriptor")
	}

	t := project.Classify(d)
	m := project.DetectManager(ctx, d, c.runner, c.probeTimeout)
	log.WithFields(logrus.Fields{"type": t, "manager": m}).Debug("project inspected")
	return d, t, m
}

// Check runs the full analysis for the project at root. Lookup failures
// degrade single fields; the returned error is reserved for cancellation.
func (c *Checker) Check(ctx context.Context, root string) (*Report, error) {
	start := time.Now()
	d, t, m := c.Inspect(ctx, root)

	names := c.planner.Catalog().Names()
	resolutions := c.resolver.ResolveAll(ctx, root, names)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]Record, len(resolutions))
	for i, res := range resolutions {
		declared, ok := d.Declared(res.Name)
		if !ok {
			declared, _ = d.Peer(res.Name)
		}
		records[i] = Record{
			Name:        res.Name,
			Declared:    declared,
			Installed:   res.Installed,
			Latest:      res.Latest,
			Description: res.Description,
		}
	}

	issues := c.analyze(d, records)
	plan := c.planner.Plan(t, m)

	states := make([]analyzer.PackageState, len(records))
	for i, rec := range records {
		states[i] = rec.state()
	}
	lockfile, _ := d.Lockfile()

	report := &Report{
		Root:            root,
		Name:            d.Name(),
		Manifest:        d.Status().String(),
		Type:            t,
		Manager:         m,
		Lockfile:        lockfile,
		Environment:     project.ScanEnvironment(root, t),
		Records:         records,
		Issues:          issues,
		Plan:            plan,
		Recommendations: analyzer.Recommend(states, plan.Command),
		Summary:         summarize(records, issues),
		StartedAt:       start,
		Duration:        time.Since(start),
	}

	if c.recorder != nil {
		if err := c.recorder.RecordRun(report); err != nil {
			c.log.WithError(err).Warn("failed to record run history")
		}
	}
	return report, nil
}

// analyze compares installed bindings with the installed core, then audits
// peers and ranges and checks declared minimums.
func (c *Checker) analyze(d *project.Descriptor, records []Record) []analyzer.Issue {
	issues := []analyzer.Issue{}

	if len(records) > 0 && records[0].Installed != nil {
		bindings := make([]analyzer.Binding, 0, len(records)-1)
		for _, rec := range records[1:] {
			bindings = append(bindings, analyzer.Binding{Name: rec.Name, Version: rec.Installed})
		}
		issues = append(issues, analyzer.Analyze(*records[0].Installed, bindings)...)
	}

	issues = append(issues, analyzer.Audit(d)...)
	issues = append(issues, analyzer.CheckMinimums(d, c.minimums)...)
	return issues
}

func summarize(records []Record, issues []analyzer.Issue) Summary {
	s := Summary{Total: len(records)}
	for _, rec := range records {
		if rec.Installed != nil {
			s.Installed++
		}
		if rec.Outdated() {
			s.Outdated = true
		}
	}
	for _, issue := range issues {
		switch issue.Severity {
		case analyzer.SeverityWarning:
			s.Warnings++
		case analyzer.SeverityInfo:
			s.Infos++
		}
	}
	return s
}

// Plan inspects the project and returns the install plan without running
// anything beyond manager detection.
func (c *Checker) Plan(ctx context.Context, root string, opts InstallOptions) (project.Type, planner.Plan) {
	_, t, m := c.Inspect(ctx, root)
	if opts.Type != "" && opts.Type != project.TypeUnknown {
		t = opts.Type
	}
	if opts.Manager.Known() {
		m = opts.Manager
	}
	return t, c.planner.Plan(t, m)
}

// Install plans and runs the install for the project at root. The command
// runs at most once. On failure the report still carries the captured
// output and the error wraps pkgmgr.ErrInstallFailed. When snapshots are
// enabled the dependency files are saved first and restored on failure.
func (c *Checker) Install(ctx context.Context, root string, opts InstallOptions) (*InstallReport, error) {
	t, plan := c.Plan(ctx, root, opts)
	report := &InstallReport{Root: root, Type: t, Plan: plan, DryRun: opts.DryRun}
	if opts.DryRun {
		return report, nil
	}

	log := c.log.WithFields(logrus.Fields{"root": root, "manager": plan.Manager})
	log.WithField("command", plan.String()).Info("running install")

	if c.snapshots != nil {
		id, err := c.snapshots.CreateSnapshot(root, "before install: "+plan.String())
		if err != nil {
			log.WithError(err).Warn("failed to snapshot dependency files")
		} else {
			report.SnapshotID = id
		}
	}

	res, err := pkgmgr.Install(ctx, c.runner, root, plan.Args(), c.installTimeout)
	report.Result = res

	if c.recorder != nil {
		if recErr := c.recorder.RecordInstall(root, res); recErr != nil {
			log.WithError(recErr).Warn("failed to record install history")
		}
	}
	if err != nil {
		log.WithError(err).Error("install failed")
		if report.SnapshotID != 0 {
			if rErr := c.snapshots.RestoreSnapshot(report.SnapshotID); rErr != nil {
				log.WithError(rErr).WithField("snapshot", report.SnapshotID).Error("failed to restore dependency files")
			} else {
				report.Restored = true
				log.WithField("snapshot", report.SnapshotID).Info("dependency files restored")
			}
		}
		return report, err
	}

	fresh := project.Load(root)
	report.Declared = map[string]string{}
	for _, name := range c.planner.Catalog().Names() {
		if rng, ok := fresh.Declared(name); ok {
			report.Declared[name] = rng
		}
	}
	report.Issues = analyzer.CheckMinimums(fresh, c.minimums)
	return report, nil
}
