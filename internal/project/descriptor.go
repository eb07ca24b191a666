// Package project reads a JavaScript project's manifest and lockfiles and
// classifies the framework it is built on.
package project

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/exp/maps"

	"github.com/blackwell-systems/connectkit/internal/pkgmgr"
)

// ManifestFile is the project manifest read from the root.
const ManifestFile = "package.json"

// ManifestStatus records how loading package.json went.
type ManifestStatus int

const (
	ManifestOK ManifestStatus = iota
	ManifestMissing
	ManifestInvalid
)

func (s ManifestStatus) String() string {
	switch s {
	case ManifestOK:
		return "ok"
	case ManifestMissing:
		return "missing"
	case ManifestInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Descriptor is an immutable snapshot of a project: its merged dependency
// ranges, peer ranges and the lockfile found on disk.
type Descriptor struct {
	root     string
	name     string
	deps     map[string]string
	peers    map[string]string
	lockfile string
	lockKind pkgmgr.Kind
	status   ManifestStatus
	loadErr  error
}

// Load reads the project at root. A missing or unparsable package.json is
// not an error: the descriptor is simply empty and Status says why.
func Load(root string) *Descriptor {
	d := &Descriptor{
		root:     root,
		deps:     map[string]string{},
		peers:    map[string]string{},
		lockKind: pkgmgr.KindUnknown,
	}
	d.lockfile, d.lockKind = DetectLockfile(root)

	data, err := os.ReadFile(filepath.Join(root, ManifestFile))
	if err != nil {
		d.status = ManifestMissing
		if !errors.Is(err, os.ErrNotExist) {
			d.loadErr = err
		}
		return d
	}

	var manifest map[string]json.RawMessage
	if err := json.Unmarshal(data, &manifest); err != nil {
		d.status = ManifestInvalid
		d.loadErr = err
		return d
	}

	if raw, ok := manifest["name"]; ok {
		_ = json.Unmarshal(raw, &d.name)
	}

	// devDependencies first so production entries overwrite on collision.
	for _, group := range []string{"devDependencies", "dependencies"} {
		for name, rng := range decodeGroup(manifest[group]) {
			d.deps[name] = rng
		}
	}
	d.peers = decodeGroup(manifest["peerDependencies"])

	return d
}

// decodeGroup reads one dependency group, skipping entries whose value is
// not a string. A group that is absent or not an object yields an empty map.
func decodeGroup(raw json.RawMessage) map[string]string {
	out := map[string]string{}
	if len(raw) == 0 {
		return out
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return out
	}
	for name, value := range entries {
		var rng string
		if err := json.Unmarshal(value, &rng); err != nil {
			continue
		}
		out[name] = rng
	}
	return out
}

// DetectLockfile returns the highest-priority lockfile present in root and
// the manager it implies, or ("", KindUnknown).
func DetectLockfile(root string) (string, pkgmgr.Kind) {
	for _, lf := range pkgmgr.Lockfiles {
		info, err := os.Stat(filepath.Join(root, lf.Name))
		if err == nil && !info.IsDir() {
			return lf.Name, lf.Kind
		}
	}
	return "", pkgmgr.KindUnknown
}

// Root returns the project directory.
func (d *Descriptor) Root() string { return d.root }

// Name returns the manifest "name" field, if any.
func (d *Descriptor) Name() string { return d.name }

// Status reports whether package.json was found and parsed.
func (d *Descriptor) Status() ManifestStatus { return d.status }

// Err returns the read or parse error behind a non-OK status. A plain
// missing file has no error.
func (d *Descriptor) Err() error { return d.loadErr }

// Lockfile returns the detected lockfile name and its manager.
func (d *Descriptor) Lockfile() (string, pkgmgr.Kind) { return d.lockfile, d.lockKind }

// Declared returns the declared range for name from dependencies or
// devDependencies.
func (d *Descriptor) Declared(name string) (string, bool) {
	rng, ok := d.deps[name]
	return rng, ok
}

// Has reports whether name is declared in dependencies or devDependencies.
func (d *Descriptor) Has(name string) bool {
	_, ok := d.deps[name]
	return ok
}

// Peer returns the range for name from peerDependencies.
func (d *Descriptor) Peer(name string) (string, bool) {
	rng, ok := d.peers[name]
	return rng, ok
}

// Dependencies returns a copy of the merged dependency map.
func (d *Descriptor) Dependencies() map[string]string {
	return maps.Clone(d.deps)
}

// Names returns the merged dependency names in sorted order.
func (d *Descriptor) Names() []string {
	names := maps.Keys(d.deps)
	slices.Sort(names)
	return names
}

// Empty reports whether no dependencies were declared.
func (d *Descriptor) Empty() bool { return len(d.deps) == 0 }
