package store

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TIMESTAMP NOT NULL,
    root TEXT NOT NULL,
    project_type TEXT NOT NULL,
    manager TEXT NOT NULL,
    manifest_status TEXT NOT NULL,
    warning_count INTEGER NOT NULL DEFAULT 0,
    info_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_packages (
    run_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    declared TEXT,
    installed TEXT,
    latest TEXT,
    PRIMARY KEY (run_id, name),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS run_issues (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    severity TEXT NOT NULL,
    kind TEXT NOT NULL,
    packages TEXT NOT NULL,
    message TEXT NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS installs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_at TIMESTAMP NOT NULL,
    root TEXT NOT NULL,
    command TEXT NOT NULL,
    success BOOLEAN NOT NULL,
    exit_code INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    stderr TEXT
);

CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TIMESTAMP NOT NULL,
    root TEXT NOT NULL,
    reason TEXT NOT NULL,
    snapshot_path TEXT NOT NULL,
    file_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root);
CREATE INDEX IF NOT EXISTS idx_run_issues_run ON run_issues(run_id);
CREATE INDEX IF NOT EXISTS idx_installs_root ON installs(root);
CREATE INDEX IF NOT EXISTS idx_snapshots_root ON snapshots(root);
`
