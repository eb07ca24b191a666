package pkgmgr

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies a JavaScript package manager.
type Kind string

const (
	KindBun     Kind = "bun"
	KindYarn    Kind = "yarn"
	KindNPM     Kind = "npm"
	KindPNPM    Kind = "pnpm"
	KindUnknown Kind = "unknown"
)

// Lockfile pairs a lockfile name with the manager that writes it.
type Lockfile struct {
	Name string
	Kind Kind
}

// Lockfiles is checked in order; the first file present decides the manager.
// A project carrying several lockfiles resolves to the earliest entry.
var Lockfiles = []Lockfile{
	{Name: "bun.lockb", Kind: KindBun},
	{Name: "bun.lock", Kind: KindBun},
	{Name: "yarn.lock", Kind: KindYarn},
	{Name: "package-lock.json", Kind: KindNPM},
	{Name: "pnpm-lock.yaml", Kind: KindPNPM},
}

// ParseKind converts a user-supplied manager name. "" and "auto" map to
// KindUnknown so callers fall through to detection.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", "unknown":
		return KindUnknown, nil
	case "bun":
		return KindBun, nil
	case "yarn":
		return KindYarn, nil
	case "npm":
		return KindNPM, nil
	case "pnpm":
		return KindPNPM, nil
	default:
		return KindUnknown, fmt.Errorf("unsupported package manager %q (want bun, yarn, npm or pnpm)", s)
	}
}

// InstallCommand returns the argv prefix used to add packages, or nil for
// KindUnknown.
func (k Kind) InstallCommand() []string {
	switch k {
	case KindNPM:
		return []string{"npm", "install"}
	case KindYarn:
		return []string{"yarn", "add"}
	case KindBun:
		return []string{"bun", "add"}
	case KindPNPM:
		return []string{"pnpm", "add"}
	default:
		return nil
	}
}

// Known reports whether k names a concrete manager.
func (k Kind) Known() bool {
	return k.InstallCommand() != nil
}

func (k Kind) String() string {
	if k == "" {
		return string(KindUnknown)
	}
	return string(k)
}

// Output is the captured result of one external command.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int // -1 when the process never ran or was killed
	Duration time.Duration
}

// PackageInfo is the registry's view of a package's newest release.
type PackageInfo struct {
	Name        string
	Version     string
	Description string
}

// InstallResult describes a single install invocation.
type InstallResult struct {
	Command  []string
	Success  bool
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}
