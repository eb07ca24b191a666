package pkgmgr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/exp/maps"
	"gopkg.in/yaml.v3"
)

// npmLockPackage is an entry of the lockfileVersion 2+ "packages" map.
type npmLockPackage struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// npmLockfile covers both lockfile generations. v1 uses nested
// "dependencies", v2+ uses the flat "packages" map keyed by install path.
type npmLockfile struct {
	LockfileVersion int                       `json:"lockfileVersion"`
	Dependencies    map[string]npmTreeNode    `json:"dependencies,omitempty"`
	Packages        map[string]npmLockPackage `json:"packages,omitempty"`
}

// pnpmDep accepts both the v5 scalar form (`name: 1.2.3`) and the v6+
// mapping form (`name: {specifier: ^1.2.0, version: 1.2.3}`).
type pnpmDep struct {
	Version string
}

func (d *pnpmDep) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		d.Version = n.Value
		return nil
	}
	var m struct {
		Version string `yaml:"version"`
	}
	if err := n.Decode(&m); err != nil {
		return err
	}
	d.Version = m.Version
	return nil
}

type pnpmImporter struct {
	Dependencies    map[string]pnpmDep `yaml:"dependencies"`
	DevDependencies map[string]pnpmDep `yaml:"devDependencies"`
}

type pnpmLockfile struct {
	Importers       map[string]pnpmImporter `yaml:"importers"`
	Dependencies    map[string]pnpmDep      `yaml:"dependencies"`
	DevDependencies map[string]pnpmDep      `yaml:"devDependencies"`
	Packages        map[string]any          `yaml:"packages"`
}

// LockfileReader resolves installed versions from lockfiles on disk. It is
// the fallback when the npm CLI is unavailable or the tree cannot be listed.
type LockfileReader struct{}

// Installed implements InstalledSource. package-lock.json is consulted
// before pnpm-lock.yaml.
func (LockfileReader) Installed(_ context.Context, dir, name string) (string, error) {
	readers := []struct {
		file  string
		parse func([]byte, string) (string, error)
	}{
		{"package-lock.json", findInNPMLock},
		{"pnpm-lock.yaml", findInPNPMLock},
	}

	var lastErr error = ErrNotFound
	for _, r := range readers {
		data, err := os.ReadFile(filepath.Join(dir, r.file))
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				lastErr = fmt.Errorf("failed to read %s: %w", r.file, err)
			}
			continue
		}
		v, err := r.parse(data, name)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return "", lastErr
}

func findInNPMLock(data []byte, name string) (string, error) {
	var lock npmLockfile
	if err := json.Unmarshal(data, &lock); err != nil {
		return "", fmt.Errorf("failed to parse package-lock.json: %w", err)
	}

	if lock.Packages != nil {
		if pkg, ok := lock.Packages["node_modules/"+name]; ok && pkg.Version != "" {
			return pkg.Version, nil
		}
		// Nested installs live under "<parent>/node_modules/<name>".
		keys := maps.Keys(lock.Packages)
		slices.Sort(keys)
		for _, key := range keys {
			if strings.HasSuffix(key, "/node_modules/"+name) && lock.Packages[key].Version != "" {
				return lock.Packages[key].Version, nil
			}
		}
	}

	if v, ok := findInTree(lock.Dependencies, name); ok {
		return v, nil
	}
	return "", fmt.Errorf("%s in package-lock.json: %w", name, ErrNotFound)
}

func findInPNPMLock(data []byte, name string) (string, error) {
	var lock pnpmLockfile
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return "", fmt.Errorf("failed to parse pnpm-lock.yaml: %w", err)
	}

	direct := []map[string]pnpmDep{lock.Dependencies, lock.DevDependencies}
	if root, ok := lock.Importers["."]; ok {
		direct = append([]map[string]pnpmDep{root.Dependencies, root.DevDependencies}, direct...)
	}
	for _, deps := range direct {
		if dep, ok := deps[name]; ok && dep.Version != "" {
			return trimPeerSuffix(dep.Version), nil
		}
	}

	// Transitive entries are keyed "/name@1.2.3" (v6) or "name@1.2.3" (v9).
	keys := maps.Keys(lock.Packages)
	slices.Sort(keys)
	for _, key := range keys {
		pkgName, version, ok := splitPNPMKey(key)
		if ok && pkgName == name {
			return trimPeerSuffix(version), nil
		}
	}
	return "", fmt.Errorf("%s in pnpm-lock.yaml: %w", name, ErrNotFound)
}

func splitPNPMKey(key string) (name, version string, ok bool) {
	key = trimPeerSuffix(strings.TrimPrefix(key, "/"))
	// Skip the scope marker so "@scope/pkg@1.0.0" splits on the second '@'.
	i := strings.LastIndex(key, "@")
	if i <= 0 {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}

// trimPeerSuffix drops pnpm's peer annotation: "1.2.3(react@18.2.0)".
func trimPeerSuffix(v string) string {
	if i := strings.IndexByte(v, '('); i >= 0 {
		return v[:i]
	}
	return v
}
