// Package snapshots saves and restores a project's package.json and
// lockfiles around installs.
//
// Each snapshot is a directory holding copies of the files plus a
// snapshot.json manifest; the history store indexes them by ID. Only the
// manifest and lockfiles are saved, never node_modules.
package snapshots

import (
	"os"
	"time"

	"github.com/blackwell-systems/connectkit/internal/store"
)

// DefaultMaxAge is how long snapshots are kept by CleanupOldSnapshots.
const DefaultMaxAge = 90 * 24 * time.Hour

// metadataFile is the manifest written into every snapshot directory.
const metadataFile = "snapshot.json"

// SnapshotData is the JSON manifest stored with each snapshot.
type SnapshotData struct {
	CreatedAt time.Time      `json:"created_at"`
	Root      string         `json:"root"`
	Reason    string         `json:"reason"`
	Files     []FileSnapshot `json:"files"`

	// Absent lists dependency files that did not exist when the snapshot
	// was taken. Restore removes them.
	Absent []string `json:"absent"`
}

// FileSnapshot describes one saved file.
type FileSnapshot struct {
	Name string      `json:"name"`
	Size int64       `json:"size"`
	Mode os.FileMode `json:"mode"`
}

// Manager manages snapshot creation, restoration, and cleanup.
type Manager struct {
	store       *store.Store
	snapshotDir string
}

// New creates a new snapshot Manager.
func New(store *store.Store, snapshotDir string) *Manager {
	return &Manager{
		store:       store,
		snapshotDir: snapshotDir,
	}
}
