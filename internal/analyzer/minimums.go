package analyzer

import (
	"fmt"
	"strings"

	version "github.com/hashicorp/go-version"

	"github.com/blackwell-systems/connectkit/internal/semver"
)

// Minimum is the lowest supported release of a package.
type Minimum struct {
	Package string
	Version string
}

// DefaultMinimumVersion is the oldest release of the connect packages with
// Nuxt 3 and the current Vue bindings.
const DefaultMinimumVersion = "0.4.0"

// DefaultMinimums applies DefaultMinimumVersion to the core and both
// bindings.
func DefaultMinimums(core, react, vue, minimum string) []Minimum {
	if minimum == "" {
		minimum = DefaultMinimumVersion
	}
	return []Minimum{
		{Package: core, Version: minimum},
		{Package: react, Version: minimum},
		{Package: vue, Version: minimum},
	}
}

// CheckMinimums flags declared ranges whose base version is older than the
// package's minimum. Ranges that are not a plain version after operators are
// stripped ("latest", "*", git URLs) are skipped.
func CheckMinimums(m Manifest, mins []Minimum) []Issue {
	issues := []Issue{}

	for _, req := range mins {
		rng, ok := m.Declared(req.Package)
		if !ok {
			continue
		}

		base := semver.Clean(rng)
		if base == "" || strings.EqualFold(base, "latest") {
			continue
		}
		declared, err := version.NewVersion(base)
		if err != nil {
			continue
		}
		constraint, err := version.NewConstraint(">= " + req.Version)
		if err != nil {
			continue
		}
		if constraint.Check(declared) {
			continue
		}

		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Kind:     KindBelowMinimum,
			Packages: []string{req.Package},
			Message:  fmt.Sprintf("declared range %q is below the minimum supported version %s", rng, req.Version),
		})
	}

	return issues
}
