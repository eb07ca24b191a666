// Package planner decides which connect packages to install for a project
// and builds the package manager command that installs them.
package planner

import (
	"strings"

	"github.com/blackwell-systems/connectkit/internal/pkgmgr"
	"github.com/blackwell-systems/connectkit/internal/project"
)

// Default package names.
const (
	DefaultCore  = "@btc-connect/core"
	DefaultReact = "@btc-connect/react"
	DefaultVue   = "@btc-connect/vue"
)

// DefaultManager is used when no manager could be detected.
const DefaultManager = pkgmgr.KindBun

// Catalog names the core package and its UI bindings.
type Catalog struct {
	Core  string
	React string
	Vue   string
}

// DefaultCatalog returns the published package names.
func DefaultCatalog() Catalog {
	return Catalog{Core: DefaultCore, React: DefaultReact, Vue: DefaultVue}
}

// Names returns core, react and vue in that order.
func (c Catalog) Names() []string {
	return []string{c.Core, c.React, c.Vue}
}

// Bindings returns the react and vue binding names.
func (c Catalog) Bindings() []string {
	return []string{c.React, c.Vue}
}

// Plan is an install command ready to run. It is not modified after
// construction; accessors return copies.
type Plan struct {
	Type     project.Type `json:"type"`
	Manager  pkgmgr.Kind  `json:"manager"`
	Command  []string     `json:"command"`  // manager verb, e.g. ["bun", "add"]
	Packages []string     `json:"packages"` // specifiers, e.g. "@btc-connect/core@latest"
}

// Args returns the full argv: verb followed by package specifiers.
func (p Plan) Args() []string {
	args := make([]string, 0, len(p.Command)+len(p.Packages))
	args = append(args, p.Command...)
	return append(args, p.Packages...)
}

func (p Plan) String() string {
	return strings.Join(p.Args(), " ")
}

// Planner builds Plans from a Catalog.
type Planner struct {
	catalog        Catalog
	defaultManager pkgmgr.Kind
}

// Option configures a Planner.
type Option func(*Planner)

// WithDefaultManager overrides the manager used when detection found none.
// Unknown kinds are ignored.
func WithDefaultManager(k pkgmgr.Kind) Option {
	return func(p *Planner) {
		if k.Known() {
			p.defaultManager = k
		}
	}
}

// New creates a Planner. Empty catalog fields fall back to the published
// package names.
func New(catalog Catalog, opts ...Option) *Planner {
	def := DefaultCatalog()
	if catalog.Core == "" {
		catalog.Core = def.Core
	}
	if catalog.React == "" {
		catalog.React = def.React
	}
	if catalog.Vue == "" {
		catalog.Vue = def.Vue
	}

	p := &Planner{catalog: catalog, defaultManager: DefaultManager}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Catalog returns the package names this Planner installs.
func (p *Planner) Catalog() Catalog { return p.catalog }

// Packages returns the package names for t, without version pins. The core
// package always comes first.
func (p *Planner) Packages(t project.Type) []string {
	pkgs := []string{p.catalog.Core}
	switch {
	case t.UsesReact():
		pkgs = append(pkgs, p.catalog.React)
	case t.UsesVue():
		pkgs = append(pkgs, p.catalog.Vue)
	}
	return pkgs
}

// Manager returns m, or the default manager when m is unknown.
func (p *Planner) Manager(m pkgmgr.Kind) pkgmgr.Kind {
	if m.Known() {
		return m
	}
	return p.defaultManager
}

// Plan builds the install plan for a project type and manager. Every
// package is pinned to @latest; the manager only changes the verb.
func (p *Planner) Plan(t project.Type, m pkgmgr.Kind) Plan {
	manager := p.Manager(m)

	names := p.Packages(t)
	specs := make([]string, len(names))
	for i, name := range names {
		specs[i] = name + "@latest"
	}

	return Plan{
		Type:     t,
		Manager:  manager,
		Command:  manager.InstallCommand(),
		Packages: specs,
	}
}
