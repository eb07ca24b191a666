package analyzer

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/connectkit/internal/semver"
)

// Severity ranks an Issue.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// IssueKind names the rule that produced an Issue.
type IssueKind string

const (
	KindMajorMismatch  IssueKind = "major-mismatch"
	KindVersionDrift   IssueKind = "version-drift"
	KindMissingPeer    IssueKind = "missing-peer"
	KindRangeHeuristic IssueKind = "range-heuristic"
	KindBelowMinimum   IssueKind = "below-minimum"
)

// Issue is one compatibility finding.
type Issue struct {
	Severity Severity  `json:"severity"`
	Kind     IssueKind `json:"kind"`
	Packages []string  `json:"packages"` // subject packages, most specific first
	Message  string    `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Severity, strings.Join(i.Packages, ", "), i.Message)
}

// Binding is an optional UI adapter package with its installed version.
// A nil Version means the binding is not installed.
type Binding struct {
	Name    string
	Version *semver.Version
}

// Manifest is the read-only view of package.json the auditor needs.
// *project.Descriptor satisfies it.
type Manifest interface {
	Declared(name string) (string, bool)
	Peer(name string) (string, bool)
}

// Recommendation is a suggested follow-up command for one package.
type Recommendation struct {
	Action  string   `json:"action"` // "install" or "update"
	Package string   `json:"package"`
	Command []string `json:"command"`
}

func (r Recommendation) String() string {
	return fmt.Sprintf("%s %s: %s", r.Action, r.Package, strings.Join(r.Command, " "))
}

// HasWarnings reports whether any issue is a warning.
func HasWarnings(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityWarning {
			return true
		}
	}
	return false
}
