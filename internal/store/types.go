package store

import "time"

// Run is one recorded `check`.
type Run struct {
	ID             int64        `json:"id"`
	StartedAt      time.Time    `json:"started_at"`
	Root           string       `json:"root"`
	ProjectType    string       `json:"project_type"`
	Manager        string       `json:"manager"`
	ManifestStatus string       `json:"manifest_status"`
	WarningCount   int          `json:"warning_count"`
	InfoCount      int          `json:"info_count"`
	Packages       []RunPackage `json:"packages,omitempty"` // filled by GetRun and InsertRun
	Issues         []RunIssue   `json:"issues,omitempty"`   // filled by GetRun and InsertRun
}

// RunPackage is the version state of one package in a run. Empty strings
// mean unknown.
type RunPackage struct {
	Name      string `json:"name"`
	Declared  string `json:"declared,omitempty"`
	Installed string `json:"installed,omitempty"`
	Latest    string `json:"latest,omitempty"`
}

// RunIssue is one compatibility issue raised in a run.
type RunIssue struct {
	Severity string   `json:"severity"`
	Kind     string   `json:"kind"`
	Packages []string `json:"packages"`
	Message  string   `json:"message"`
}

// Install is one recorded install attempt.
type Install struct {
	ID       int64         `json:"id"`
	RunAt    time.Time     `json:"run_at"`
	Root     string        `json:"root"`
	Command  []string      `json:"command"`
	Success  bool          `json:"success"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
	Stderr   string        `json:"stderr,omitempty"`
}

// Snapshot is the index entry for a saved copy of a project's manifest and
// lockfiles. The files themselves live under Path.
type Snapshot struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Root      string    `json:"root"`
	Reason    string    `json:"reason"`
	Path      string    `json:"path"`
	FileCount int       `json:"file_count"`
}
