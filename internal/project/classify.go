package project

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/connectkit/internal/semver"
)

// Type is the framework a project is built on.
type Type string

const (
	TypeUnknown Type = "unknown"
	TypeReact   Type = "react"
	TypeVue     Type = "vue"
	TypeNextJS  Type = "nextjs"
	TypeNuxt    Type = "nuxt"
	TypeNuxt3   Type = "nuxt3"
	TypeNodeJS  Type = "nodejs"

	// TypeCore is never detected. It is an override that installs the core
	// package without UI bindings.
	TypeCore Type = "core"
)

// Types lists every Type in classification order.
var Types = []Type{TypeNextJS, TypeNuxt3, TypeNuxt, TypeReact, TypeVue, TypeNodeJS, TypeUnknown}

// ParseType converts a user-supplied type name. "" and "auto" map to
// TypeUnknown so callers fall through to classification; "core" forces a
// core-only install.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "auto":
		return TypeUnknown, nil
	case string(TypeCore):
		return TypeCore, nil
	}
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return TypeUnknown, fmt.Errorf("unsupported project type %q", s)
}

// UsesReact reports whether the type renders with React.
func (t Type) UsesReact() bool { return t == TypeReact || t == TypeNextJS }

// UsesVue reports whether the type renders with Vue.
func (t Type) UsesVue() bool { return t == TypeVue || t == TypeNuxt || t == TypeNuxt3 }

func (t Type) String() string {
	if t == "" {
		return string(TypeUnknown)
	}
	return string(t)
}

// Classify maps a descriptor to a Type. Meta-frameworks are checked before
// the UI libraries they wrap; the first match wins.
func Classify(d *Descriptor) Type {
	if d == nil {
		return TypeUnknown
	}

	switch {
	case d.Has("next"):
		return TypeNextJS
	case d.Has("nuxt"):
		rng, _ := d.Declared("nuxt")
		if major, ok := semver.LeadingMajor(rng); ok && major >= 3 {
			return TypeNuxt3
		}
		return TypeNuxt
	case d.Has("react"):
		return TypeReact
	case d.Has("vue"):
		return TypeVue
	}

	for _, name := range d.Names() {
		if strings.Contains(name, "express") {
			return TypeNodeJS
		}
	}
	return TypeUnknown
}
