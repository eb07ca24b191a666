package checker

import (
	"time"

	"github.com/blackwell-systems/connectkit/internal/analyzer"
	"github.com/blackwell-systems/connectkit/internal/pkgmgr"
	"github.com/blackwell-systems/connectkit/internal/planner"
	"github.com/blackwell-systems/connectkit/internal/project"
	"github.com/blackwell-systems/connectkit/internal/semver"
)

// Record is the version state of one connect package in a project.
type Record struct {
	Name        string          `json:"name"`
	Declared    string          `json:"declared,omitempty"`
	Installed   *semver.Version `json:"installed"`
	Latest      *semver.Version `json:"latest"`
	Description string          `json:"description,omitempty"`
}

// Absent reports whether the package is neither declared nor installed.
func (r Record) Absent() bool {
	return r.Declared == "" && r.Installed == nil
}

// Outdated reports whether an installed package is behind the latest
// release. Unknown latest versions are never outdated.
func (r Record) Outdated() bool {
	return r.Installed != nil && r.Latest != nil && !r.Installed.Equal(*r.Latest)
}

func (r Record) state() analyzer.PackageState {
	s := analyzer.PackageState{Name: r.Name}
	if r.Installed != nil {
		s.Installed = r.Installed.String()
	}
	if r.Latest != nil {
		s.Latest = r.Latest.String()
	}
	return s
}

// Summary condenses a Report for status lines.
type Summary struct {
	Installed int  `json:"installed"`
	Total     int  `json:"total"`
	Outdated  bool `json:"outdated"`
	Warnings  int  `json:"warnings"`
	Infos     int  `json:"infos"`
}

// Report is the result of one check run.
type Report struct {
	Root            string                    `json:"root"`
	Name            string                    `json:"name,omitempty"`
	Manifest        string                    `json:"manifest"`
	Type            project.Type              `json:"type"`
	Manager         pkgmgr.Kind               `json:"manager"`
	Lockfile        string                    `json:"lockfile,omitempty"`
	Environment     project.Environment       `json:"environment"`
	Records         []Record                  `json:"records"`
	Issues          []analyzer.Issue          `json:"issues"`
	Plan            planner.Plan              `json:"plan"`
	Recommendations []analyzer.Recommendation `json:"recommendations"`
	Summary         Summary                   `json:"summary"`
	StartedAt       time.Time                 `json:"started_at"`
	Duration        time.Duration             `json:"duration"`
}

// Record returns the record for name, if the report has one.
func (r *Report) Record(name string) (Record, bool) {
	for _, rec := range r.Records {
		if rec.Name == name {
			return rec, true
		}
	}
	return Record{}, false
}

// InstallOptions adjusts an install run. Zero values mean auto-detect.
type InstallOptions struct {
	DryRun  bool
	Manager pkgmgr.Kind
	Type    project.Type
}

// InstallReport is the result of an install run.
type InstallReport struct {
	Root   string                `json:"root"`
	Type   project.Type          `json:"type"`
	Plan   planner.Plan          `json:"plan"`
	DryRun bool                  `json:"dry_run"`
	Result *pkgmgr.InstallResult `json:"result,omitempty"`

	// Declared holds the connect packages found in package.json after a
	// successful install.
	Declared map[string]string `json:"declared,omitempty"`
	// Issues holds minimum-version findings on the fresh manifest.
	Issues []analyzer.Issue `json:"issues,omitempty"`

	// SnapshotID is the snapshot taken before the install, 0 if none.
	SnapshotID int64 `json:"snapshot_id,omitempty"`
	// Restored is set when a failed install was rolled back to SnapshotID.
	Restored bool `json:"restored,omitempty"`
}
