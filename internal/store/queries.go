package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Run operations

// InsertRun records a run together with its packages and issues in one
// transaction and returns the new run ID.
func (s *Store) InsertRun(run *Run) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	startedAt := run.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	result, err := tx.Exec(`
		INSERT INTO runs (started_at, root, project_type, manager, manifest_status, warning_count, info_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		startedAt.UTC().Format(time.RFC3339),
		run.Root,
		run.ProjectType,
		run.Manager,
		run.ManifestStatus,
		run.WarningCount,
		run.InfoCount,
	)
	if err != nil {
		return 0, wrapErr("failed to insert run", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	for _, pkg := range run.Packages {
		_, err := tx.Exec(`
			INSERT INTO run_packages (run_id, name, declared, installed, latest)
			VALUES (?, ?, ?, ?, ?)
		`, id, pkg.Name, pkg.Declared, pkg.Installed, pkg.Latest)
		if err != nil {
			return 0, wrapErr(fmt.Sprintf("failed to insert run package %s", pkg.Name), err)
		}
	}

	for _, issue := range run.Issues {
		packagesJSON, err := json.Marshal(issue.Packages)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal issue packages: %w", err)
		}
		_, err = tx.Exec(`
			INSERT INTO run_issues (run_id, severity, kind, packages, message)
			VALUES (?, ?, ?, ?, ?)
		`, id, issue.Severity, issue.Kind, string(packagesJSON), issue.Message)
		if err != nil {
			return 0, wrapErr("failed to insert run issue", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	run.ID = id
	run.StartedAt = startedAt
	return id, nil
}

// GetRun retrieves a run by ID with its packages and issues.
func (s *Store) GetRun(id int64) (*Run, error) {
	query := `
		SELECT id, started_at, root, project_type, manager, manifest_status, warning_count, info_count
		FROM runs
		WHERE id = ?
	`

	run, err := scanRun(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d not found", id)
	}
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("failed to get run %d", id), err)
	}

	if run.Packages, err = s.runPackages(id); err != nil {
		return nil, err
	}
	if run.Issues, err = s.runIssues(id); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs newest first. An empty root lists every project;
// limit <= 0 means no limit. Packages and issues are not loaded.
func (s *Store) ListRuns(root string, limit int) ([]*Run, error) {
	query := `
		SELECT id, started_at, root, project_type, manager, manifest_status, warning_count, info_count
		FROM runs
		WHERE (? = '' OR root = ?)
		ORDER BY id DESC
		LIMIT ?
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(query, root, root, limit)
	if err != nil {
		return nil, wrapErr("failed to list runs", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// CountRuns returns the number of recorded runs.
func (s *Store) CountRuns() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count)
	if err != nil {
		return 0, wrapErr("failed to count runs", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var startedAt string

	err := row.Scan(
		&run.ID,
		&startedAt,
		&run.Root,
		&run.ProjectType,
		&run.Manager,
		&run.ManifestStatus,
		&run.WarningCount,
		&run.InfoCount,
	)
	if err != nil {
		return nil, err
	}

	run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at for run %d: %w", run.ID, err)
	}
	return &run, nil
}

func (s *Store) runPackages(runID int64) ([]RunPackage, error) {
	rows, err := s.db.Query(`
		SELECT name, declared, installed, latest
		FROM run_packages
		WHERE run_id = ?
		ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, wrapErr("failed to get run packages", err)
	}
	defer rows.Close()

	var packages []RunPackage
	for rows.Next() {
		var pkg RunPackage
		if err := rows.Scan(&pkg.Name, &pkg.Declared, &pkg.Installed, &pkg.Latest); err != nil {
			return nil, fmt.Errorf("failed to scan run package row: %w", err)
		}
		packages = append(packages, pkg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run packages: %w", err)
	}
	return packages, nil
}

func (s *Store) runIssues(runID int64) ([]RunIssue, error) {
	rows, err := s.db.Query(`
		SELECT severity, kind, packages, message
		FROM run_issues
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, wrapErr("failed to get run issues", err)
	}
	defer rows.Close()

	var issues []RunIssue
	for rows.Next() {
		var issue RunIssue
		var packagesJSON string
		if err := rows.Scan(&issue.Severity, &issue.Kind, &packagesJSON, &issue.Message); err != nil {
			return nil, fmt.Errorf("failed to scan run issue row: %w", err)
		}
		if err := json.Unmarshal([]byte(packagesJSON), &issue.Packages); err != nil {
			return nil, fmt.Errorf("failed to unmarshal issue packages: %w", err)
		}
		issues = append(issues, issue)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run issues: %w", err)
	}
	return issues, nil
}

// Install operations

// InsertInstall records an install attempt and returns its ID.
func (s *Store) InsertInstall(in *Install) (int64, error) {
	commandJSON, err := json.Marshal(in.Command)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal install command: %w", err)
	}

	runAt := in.RunAt
	if runAt.IsZero() {
		runAt = time.Now()
	}

	result, err := s.db.Exec(`
		INSERT INTO installs (run_at, root, command, success, exit_code, duration_ms, stderr)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		runAt.UTC().Format(time.RFC3339),
		in.Root,
		string(commandJSON),
		in.Success,
		in.ExitCode,
		in.Duration.Milliseconds(),
		in.Stderr,
	)
	if err != nil {
		return 0, wrapErr("failed to insert install", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get install ID: %w", err)
	}

	in.ID = id
	in.RunAt = runAt
	return id, nil
}

// ListInstalls returns install attempts newest first, filtered like ListRuns.
func (s *Store) ListInstalls(root string, limit int) ([]*Install, error) {
	query := `
		SELECT id, run_at, root, command, success, exit_code, duration_ms, stderr
		FROM installs
		WHERE (? = '' OR root = ?)
		ORDER BY id DESC
		LIMIT ?
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(query, root, root, limit)
	if err != nil {
		return nil, wrapErr("failed to list installs", err)
	}
	defer rows.Close()

	var installs []*Install
	for rows.Next() {
		var in Install
		var runAt, commandJSON string
		var durationMS int64

		err := rows.Scan(
			&in.ID,
			&runAt,
			&in.Root,
			&commandJSON,
			&in.Success,
			&in.ExitCode,
			&durationMS,
			&in.Stderr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan install row: %w", err)
		}

		in.RunAt, err = time.Parse(time.RFC3339, runAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse run_at for install %d: %w", in.ID, err)
		}
		if err := json.Unmarshal([]byte(commandJSON), &in.Command); err != nil {
			return nil, fmt.Errorf("failed to unmarshal install command: %w", err)
		}
		in.Duration = time.Duration(durationMS) * time.Millisecond

		installs = append(installs, &in)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating installs: %w", err)
	}

	return installs, nil
}
