// Package analyzer turns resolved versions and manifest ranges into
// compatibility issues and follow-up recommendations.
package analyzer

import (
	"fmt"

	"github.com/blackwell-systems/connectkit/internal/semver"
)

// MaxMinorDrift is the largest minor-version gap between the core package
// and a binding that is still considered in step.
const MaxMinorDrift = 2

// Analyze compares each installed binding against core. Bindings without a
// version are skipped. Issues follow the order bindings were given.
func Analyze(core semver.Version, bindings []Binding) []Issue {
	issues := []Issue{}

	for _, b := range bindings {
		if b.Version == nil {
			continue
		}
		v := *b.Version

		if v.Major != core.Major {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Kind:     KindMajorMismatch,
				Packages: []string{b.Name},
				Message: fmt.Sprintf("major version %d does not match core major version %d (%s vs %s)",
					v.Major, core.Major, v, core),
			})
			continue
		}

		if drift := v.MinorDrift(core); drift > MaxMinorDrift {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Kind:     KindVersionDrift,
				Packages: []string{b.Name},
				Message: fmt.Sprintf("minor version drifts %d releases from core (%s vs %s)",
					drift, v, core),
			})
		}
	}

	return issues
}
