package snapshots

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/blackwell-systems/connectkit/internal/project"
	"github.com/blackwell-systems/connectkit/internal/store"
)

// CreateSnapshot copies the dependency files of the project at root into a
// new snapshot directory and returns the snapshot ID.
func (m *Manager) CreateSnapshot(root, reason string) (int64, error) {
	if err := os.MkdirAll(m.snapshotDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	now := time.Now()
	dir, err := os.MkdirTemp(m.snapshotDir, now.Format("2006-01-02-150405")+"-")
	if err != nil {
		return 0, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	data := &SnapshotData{
		CreatedAt: now,
		Root:      root,
		Reason:    reason,
		Files:     []FileSnapshot{},
		Absent:    []string{},
	}

	for _, name := range project.DependencyFiles() {
		src := filepath.Join(root, name)
		info, err := os.Stat(src)
		if os.IsNotExist(err) {
			data.Absent = append(data.Absent, name)
			continue
		}
		if err != nil {
			os.RemoveAll(dir)
			return 0, fmt.Errorf("failed to stat %s: %w", src, err)
		}
		if info.IsDir() {
			continue
		}

		if err := copyFile(src, filepath.Join(dir, name), info.Mode().Perm()); err != nil {
			os.RemoveAll(dir)
			return 0, err
		}
		data.Files = append(data.Files, FileSnapshot{Name: name, Size: info.Size(), Mode: info.Mode().Perm()})
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		os.RemoveAll(dir)
		return 0, fmt.Errorf("failed to marshal snapshot data: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), jsonData, 0644); err != nil {
		os.RemoveAll(dir)
		return 0, fmt.Errorf("failed to write snapshot file: %w", err)
	}

	id, err := m.store.InsertSnapshot(&store.Snapshot{
		CreatedAt: now,
		Root:      root,
		Reason:    reason,
		Path:      dir,
		FileCount: len(data.Files),
	})
	if err != nil {
		// Try to clean up the files if DB insert fails
		os.RemoveAll(dir)
		return 0, fmt.Errorf("failed to insert snapshot into database: %w", err)
	}

	return id, nil
}

// ListSnapshots returns the snapshots for root, newest first. An empty root
// lists every project.
func (m *Manager) ListSnapshots(root string) ([]*store.Snapshot, error) {
	snapshots, err := m.store.ListSnapshots(root, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return snapshots, nil
}

// CleanupOldSnapshots removes snapshot files older than maxAge and returns
// how many were removed. Index rows are kept as an audit log.
func (m *Manager) CleanupOldSnapshots(maxAge time.Duration) (int, error) {
	snapshots, err := m.store.ListSnapshots("", 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list snapshots: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	deleted := 0
	for _, snapshot := range snapshots {
		if !snapshot.CreatedAt.Before(cutoff) {
			continue
		}
		if _, err := os.Stat(snapshot.Path); os.IsNotExist(err) {
			continue
		}
		if err := os.RemoveAll(snapshot.Path); err != nil {
			return deleted, fmt.Errorf("failed to delete snapshot %s: %w", snapshot.Path, err)
		}
		deleted++
	}
	return deleted, nil
}

// copyFile copies src to dst, creating dst with perm.
func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}
