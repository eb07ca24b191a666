package analyzer

import (
	"fmt"
	"strings"
)

// PeerRequirement lists the packages a binding expects the host to provide.
type PeerRequirement struct {
	Binding string
	Peers   []string
}

// DefaultPeers is the peer table for the published bindings.
var DefaultPeers = []PeerRequirement{
	{Binding: "@btc-connect/react", Peers: []string{"react", "react-dom"}},
	{Binding: "@btc-connect/vue", Peers: []string{"vue"}},
}

// RangeRule flags a declared range that contains none of the accepted
// tokens. When Binding is set the rule only applies if that binding is
// declared as well.
type RangeRule struct {
	Package  string
	Binding  string
	Accepted []string
	Severity Severity
	Advice   string
}

// DefaultRangeRules is a substring heuristic, not range intersection:
// ">=18.0.0" is flagged even though it admits React 18.
var DefaultRangeRules = []RangeRule{
	{
		Package:  "react",
		Binding:  "@btc-connect/react",
		Accepted: []string{"^17", "^18", "^19"},
		Severity: SeverityWarning,
		Advice:   "React 18 or newer is recommended",
	},
	{
		Package:  "vue",
		Binding:  "@btc-connect/vue",
		Accepted: []string{"^2", "^3"},
		Severity: SeverityWarning,
		Advice:   "Vue 3 is recommended",
	},
	{
		Package:  "typescript",
		Accepted: []string{"^4", "^5"},
		Severity: SeverityInfo,
		Advice:   "TypeScript 5 is recommended",
	},
}

// Auditor checks a manifest for missing peers and suspicious ranges.
type Auditor struct {
	Peers []PeerRequirement
	Rules []RangeRule
}

// Audit runs the default peer table and range rules against m.
func Audit(m Manifest) []Issue {
	return Auditor{Peers: DefaultPeers, Rules: DefaultRangeRules}.Audit(m)
}

// Audit returns one missing-peer issue per absent peer, in table order,
// followed by range-heuristic issues in rule order.
func (a Auditor) Audit(m Manifest) []Issue {
	issues := []Issue{}

	for _, req := range a.Peers {
		if !present(m, req.Binding) {
			continue
		}
		for _, peer := range req.Peers {
			if present(m, peer) {
				continue
			}
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Kind:     KindMissingPeer,
				Packages: []string{req.Binding, peer},
				Message:  fmt.Sprintf("%s requires peer dependency %s, which is not declared", req.Binding, peer),
			})
		}
	}

	for _, rule := range a.Rules {
		rng, ok := m.Declared(rule.Package)
		if !ok {
			continue
		}
		if rule.Binding != "" {
			if _, ok := m.Declared(rule.Binding); !ok {
				continue
			}
		}
		if matchesAny(rng, rule.Accepted) {
			continue
		}

		pkgs := []string{rule.Package}
		if rule.Binding != "" {
			pkgs = append(pkgs, rule.Binding)
		}
		issues = append(issues, Issue{
			Severity: rule.Severity,
			Kind:     KindRangeHeuristic,
			Packages: pkgs,
			Message:  fmt.Sprintf("%s range %q may not be compatible; %s", rule.Package, rng, rule.Advice),
		})
	}

	return issues
}

// present reports whether name is declared in any dependency group,
// peerDependencies included.
func present(m Manifest, name string) bool {
	if _, ok := m.Declared(name); ok {
		return true
	}
	_, ok := m.Peer(name)
	return ok
}

func matchesAny(rng string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(rng, tok) {
			return true
		}
	}
	return false
}
