package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Snapshot operations

// InsertSnapshot records a snapshot and returns its ID.
func (s *Store) InsertSnapshot(snap *Snapshot) (int64, error) {
	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := s.db.Exec(`
		INSERT INTO snapshots (created_at, root, reason, snapshot_path, file_count)
		VALUES (?, ?, ?, ?, ?)
	`,
		createdAt.UTC().Format(time.RFC3339),
		snap.Root,
		snap.Reason,
		snap.Path,
		snap.FileCount,
	)
	if err != nil {
		return 0, wrapErr("failed to insert snapshot", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get snapshot ID: %w", err)
	}
	snap.ID = id
	snap.CreatedAt = createdAt
	return id, nil
}

// GetSnapshot retrieves a snapshot by ID.
func (s *Store) GetSnapshot(id int64) (*Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT id, created_at, root, reason, snapshot_path, file_count
		FROM snapshots
		WHERE id = ?
	`, id)

	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot %d not found", id)
	}
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("failed to get snapshot %d", id), err)
	}
	return snap, nil
}

// ListSnapshots returns snapshots newest first, filtered like ListRuns.
func (s *Store) ListSnapshots(root string, limit int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(`
		SELECT id, created_at, root, reason, snapshot_path, file_count
		FROM snapshots
		WHERE (? = '' OR root = ?)
		ORDER BY id DESC
		LIMIT ?
	`, root, root, limit)
	if err != nil {
		return nil, wrapErr("failed to list snapshots", err)
	}
	defer rows.Close()

	var snaps []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		snaps = append(snaps, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return snaps, nil
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var snap Snapshot
	var createdAt string

	if err := row.Scan(&snap.ID, &createdAt, &snap.Root, &snap.Reason, &snap.Path, &snap.FileCount); err != nil {
		return nil, err
	}

	var err error
	snap.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at for snapshot %d: %w", snap.ID, err)
	}
	return &snap, nil
}
