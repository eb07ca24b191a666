package pkgmgr

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/connectkit/internal/semver"
)

// Resolution holds the latest and installed versions of one package. A nil
// version means that lookup failed or found nothing; the cause is kept in
// the matching Err field.
type Resolution struct {
	Name         string
	Latest       *semver.Version
	Installed    *semver.Version
	Description  string
	LatestErr    error
	InstalledErr error
}

// Resolver looks up package versions. Lookups never fail as a whole: each
// field degrades to absent on its own.
type Resolver struct {
	latest    LatestSource
	installed InstalledSource
	log       *logrus.Entry
}

// NewResolver creates a Resolver. Either source may be nil, in which case
// that field is always absent.
func NewResolver(latest LatestSource, installed InstalledSource, log *logrus.Entry) *Resolver {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Resolver{latest: latest, installed: installed, log: log}
}

// Resolve runs the latest and installed lookups for name concurrently.
func (r *Resolver) Resolve(ctx context.Context, dir, name string) Resolution {
	res := Resolution{Name: name}
	log := r.log.WithField("package", name)

	var g errgroup.Group
	if r.latest != nil {
		g.Go(func() error {
			info, err := r.latest.Latest(ctx, name)
			if err != nil {
				res.LatestErr = err
				log.WithError(err).Debug("latest version unavailable")
				return nil
			}
			res.Latest = semver.ParseOptional(info.Version)
			res.Description = info.Description
			return nil
		})
	}
	if r.installed != nil {
		g.Go(func() error {
			v, err := r.installed.Installed(ctx, dir, name)
			if err != nil {
				res.InstalledErr = err
				log.WithError(err).Debug("installed version unavailable")
				return nil
			}
			res.Installed = semver.ParseOptional(v)
			return nil
		})
	}
	_ = g.Wait()

	return res
}

// ResolveAll resolves every name concurrently. Results keep the input order.
func (r *Resolver) ResolveAll(ctx context.Context, dir string, names []string) []Resolution {
	results := make([]Resolution, len(names))

	var g errgroup.Group
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			results[i] = r.Resolve(ctx, dir, name)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
