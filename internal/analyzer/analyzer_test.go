package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/connectkit/internal/semver"
)

func ver(s string) *semver.Version {
	v := semver.Parse(s)
	return &v
}

func TestAnalyze(t *testing.T) {
	core := semver.Parse("1.4.0")

	tests := []struct {
		name     string
		binding  string
		wantKind []IssueKind
	}{
		{"major mismatch", "2.0.0", []IssueKind{KindMajorMismatch}},
		{"drift of three", "1.1.0", []IssueKind{KindVersionDrift}},
		{"drift of one", "1.3.0", nil},
		{"drift of two", "1.6.0", nil},
		{"drift ahead", "1.7.2", []IssueKind{KindVersionDrift}},
		{"same", "1.4.0", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := Analyze(core, []Binding{{Name: "@btc-connect/react", Version: ver(tt.binding)}})

			require.Len(t, issues, len(tt.wantKind))
			for i, kind := range tt.wantKind {
				assert.Equal(t, kind, issues[i].Kind)
				assert.Equal(t, SeverityWarning, issues[i].Severity)
				assert.Equal(t, []string{"@btc-connect/react"}, issues[i].Packages)
			}
		})
	}
}

func TestAnalyze_MajorMismatchSkipsDrift(t *testing.T) {
	issues := Analyze(semver.Parse("1.0.0"), []Binding{{Name: "b", Version: ver("2.9.0")}})
	require.Len(t, issues, 1)
	assert.Equal(t, KindMajorMismatch, issues[0].Kind)
}

func TestAnalyze_KeepsBindingOrder(t *testing.T) {
	core := semver.Parse("0.4.0")
	bindings := []Binding{
		{Name: "@btc-connect/vue", Version: ver("0.9.0")},
		{Name: "@btc-connect/react", Version: ver("1.0.0")},
	}

	issues := Analyze(core, bindings)

	require.Len(t, issues, 2)
	assert.Equal(t, "@btc-connect/vue", issues[0].Packages[0])
	assert.Equal(t, KindVersionDrift, issues[0].Kind)
	assert.Equal(t, "@btc-connect/react", issues[1].Packages[0])
	assert.Equal(t, KindMajorMismatch, issues[1].Kind)
}

func TestAnalyze_SkipsAbsentBindings(t *testing.T) {
	issues := Analyze(semver.Parse("1.0.0"), []Binding{{Name: "@btc-connect/vue"}})
	assert.Empty(t, issues)
	assert.NotNil(t, issues)
}

func TestAnalyze_MalformedVersions(t *testing.T) {
	// "garbage" reads as 0.0.0 rather than failing.
	issues := Analyze(semver.Parse("garbage"), []Binding{{Name: "b", Version: ver("0.1.0")}})
	assert.Empty(t, issues)
}

func TestHasWarnings(t *testing.T) {
	assert.False(t, HasWarnings(nil))
	assert.False(t, HasWarnings([]Issue{{Severity: SeverityInfo}}))
	assert.True(t, HasWarnings([]Issue{{Severity: SeverityInfo}, {Severity: SeverityWarning}}))
}
