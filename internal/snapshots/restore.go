package snapshots

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadSnapshot returns the manifest of snapshot id.
func (m *Manager) LoadSnapshot(id int64) (*SnapshotData, error) {
	snapshot, err := m.store.GetSnapshot(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return loadSnapshotFile(filepath.Join(snapshot.Path, metadataFile))
}

// RestoreSnapshot writes the saved files of snapshot id back into the
// project and removes dependency files that did not exist when it was
// taken. Every file is attempted; the error lists the ones that failed.
func (m *Manager) RestoreSnapshot(id int64) error {
	snapshot, err := m.store.GetSnapshot(id)
	if err != nil {
		return fmt.Errorf("failed to get snapshot: %w", err)
	}

	data, err := loadSnapshotFile(filepath.Join(snapshot.Path, metadataFile))
	if err != nil {
		return fmt.Errorf("failed to load snapshot file: %w", err)
	}

	var failures []string
	restored := 0
	for _, f := range data.Files {
		src := filepath.Join(snapshot.Path, f.Name)
		dst := filepath.Join(data.Root, f.Name)
		if err := copyFile(src, dst, f.Mode); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", f.Name, err))
			continue
		}
		restored++
	}
	for _, name := range data.Absent {
		path := filepath.Join(data.Root, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("restored %d/%d files, failures: %v",
			restored, len(data.Files), failures)
	}
	return nil
}

// loadSnapshotFile reads and parses a snapshot JSON file.
func loadSnapshotFile(path string) (*SnapshotData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var snapshotData SnapshotData
	if err := json.Unmarshal(data, &snapshotData); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot JSON: %w", err)
	}

	return &snapshotData, nil
}
