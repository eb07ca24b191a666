// Package semver parses the loosely formatted version strings found in
// package.json ranges and registry output.
//
// Parsing never fails: missing or non-numeric components are read as zero so
// that a single odd version string cannot abort a whole compatibility run.
package semver

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed major.minor.patch triple with an optional
// pre-release/build tag.
type Version struct {
	Major int
	Minor int
	Patch int
	Pre   string // text after the first '-', if any
	Raw   string // input as given
}

// rangeOperators are stripped from the front of a declared range.
const rangeOperators = "^~>=<v "

// Clean strips leading range operators and truncates at the first '-'.
// "^1.4.0-beta.1" becomes "1.4.0".
func Clean(raw string) string {
	s := strings.TrimLeft(strings.TrimSpace(raw), rangeOperators)
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s = s[:i]
	}
	return s
}

// Parse reads raw permissively. Components that are missing or malformed
// are zero; "garbage" parses as 0.0.0.
func Parse(raw string) Version {
	v := Version{Raw: raw}

	s := strings.TrimLeft(strings.TrimSpace(raw), rangeOperators)
	if i := strings.IndexByte(s, '-'); i >= 0 {
		v.Pre = s[i+1:]
		s = s[:i]
	}
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}

	parts := strings.Split(s, ".")
	if len(parts) > 0 {
		v.Major = leadingInt(parts[0])
	}
	if len(parts) > 1 {
		v.Minor = leadingInt(parts[1])
	}
	if len(parts) > 2 {
		v.Patch = leadingInt(parts[2])
	}
	return v
}

// ParseOptional returns nil for an empty string, otherwise a parsed Version.
func ParseOptional(raw string) *Version {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	v := Parse(raw)
	return &v
}

// LeadingMajor returns the leading integer of a declared range after range
// operators are removed, and whether one was present at all.
func LeadingMajor(raw string) (int, bool) {
	s := strings.TrimLeft(strings.TrimSpace(raw), rangeOperators)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// leadingInt parses the digits at the start of s. "3rc" is 3, "x" is 0.
func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// String renders the numeric triple, plus "-pre" when a tag is present.
func (v Version) String() string {
	if v.Pre != "" {
		return fmt.Sprintf("%d.%d.%d-%s", v.Major, v.Minor, v.Patch, v.Pre)
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Equal reports whether two versions share the same numeric triple and tag.
func (v Version) Equal(o Version) bool {
	return v.Major == o.Major && v.Minor == o.Minor && v.Patch == o.Patch && v.Pre == o.Pre
}

// MinorDrift returns the absolute difference between the minor components.
func (v Version) MinorDrift(o Version) int {
	d := v.Minor - o.Minor
	if d < 0 {
		return -d
	}
	return d
}

// MarshalText renders v as its String form so JSON output shows "1.2.3".
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}
