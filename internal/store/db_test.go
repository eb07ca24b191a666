package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	if err := s.CreateSchema(); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(root string) *Run {
	return &Run{
		StartedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Root:           root,
		ProjectType:    "nuxt3",
		Manager:        "bun",
		ManifestStatus: "ok",
		WarningCount:   1,
		Packages: []RunPackage{
			{Name: "@btc-connect/core", Declared: "^0.4.0", Installed: "0.4.2", Latest: "0.5.0"},
			{Name: "@btc-connect/vue", Declared: "^0.4.0", Installed: "0.4.2", Latest: "0.5.0"},
			{Name: "@btc-connect/react"},
		},
		Issues: []RunIssue{
			{Severity: "warning", Kind: "missing-peer", Packages: []string{"@btc-connect/vue", "vue"}, Message: "vue missing"},
		},
	}
}

func TestListRuns_NoSchema_ReturnsErrNotInitialized(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	// No CreateSchema: simulate an uninitialized database.
	_, err = s.ListRuns("", 0)
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("ListRuns() error = %v; want ErrNotInitialized", err)
	}

	_, err = s.InsertInstall(&Install{Command: []string{"bun", "add"}})
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("InsertInstall() error = %v; want ErrNotInitialized", err)
	}
}

func TestErrNotInitialized_ErrorMessage(t *testing.T) {
	if !strings.Contains(ErrNotInitialized.Error(), "connectkit check") {
		t.Errorf("ErrNotInitialized message %q should mention 'connectkit check'", ErrNotInitialized.Error())
	}
}

func TestInsertAndGetRun(t *testing.T) {
	s := setupTestStore(t)

	run := sampleRun("/projects/shop")
	id, err := s.InsertRun(run)
	if err != nil {
		t.Fatalf("InsertRun() failed: %v", err)
	}
	if id == 0 || run.ID != id {
		t.Errorf("run ID = %d / %d", id, run.ID)
	}

	got, err := s.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun() failed: %v", err)
	}

	if got.Root != "/projects/shop" || got.ProjectType != "nuxt3" || got.Manager != "bun" {
		t.Errorf("run = %+v", got)
	}
	if !got.StartedAt.Equal(run.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, run.StartedAt)
	}
	if len(got.Packages) != 3 {
		t.Fatalf("expected 3 packages, got %d", len(got.Packages))
	}
	if got.Packages[0].Name != "@btc-connect/core" || got.Packages[0].Installed != "0.4.2" {
		t.Errorf("Packages[0] = %+v", got.Packages[0])
	}
	if got.Packages[2].Installed != "" {
		t.Errorf("absent package should have empty installed, got %q", got.Packages[2].Installed)
	}
	if len(got.Issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(got.Issues))
	}
	if got.Issues[0].Kind != "missing-peer" || len(got.Issues[0].Packages) != 2 || got.Issues[0].Packages[1] != "vue" {
		t.Errorf("Issues[0] = %+v", got.Issues[0])
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.GetRun(42); err == nil {
		t.Error("expected error for missing run")
	}
}

func TestListRuns_FilterAndLimit(t *testing.T) {
	s := setupTestStore(t)

	for i := 0; i < 3; i++ {
		if _, err := s.InsertRun(sampleRun("/a")); err != nil {
			t.Fatalf("InsertRun() failed: %v", err)
		}
	}
	if _, err := s.InsertRun(sampleRun("/b")); err != nil {
		t.Fatalf("InsertRun() failed: %v", err)
	}

	all, err := s.ListRuns("", 0)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 runs, got %d", len(all))
	}
	if all[0].Root != "/b" {
		t.Errorf("newest run should come first, got %q", all[0].Root)
	}

	onlyA, err := s.ListRuns("/a", 2)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(onlyA) != 2 {
		t.Errorf("expected 2 runs with limit, got %d", len(onlyA))
	}
	for _, r := range onlyA {
		if r.Root != "/a" {
			t.Errorf("unexpected root %q", r.Root)
		}
	}

	count, err := s.CountRuns()
	if err != nil || count != 4 {
		t.Errorf("CountRuns() = (%d, %v), want 4", count, err)
	}
}

func TestInsertAndListInstalls(t *testing.T) {
	s := setupTestStore(t)

	in := &Install{
		Root:     "/projects/shop",
		Command:  []string{"bun", "add", "@btc-connect/core@latest"},
		Success:  false,
		ExitCode: 1,
		Duration: 1500 * time.Millisecond,
		Stderr:   "error: network",
	}
	if _, err := s.InsertInstall(in); err != nil {
		t.Fatalf("InsertInstall() failed: %v", err)
	}

	installs, err := s.ListInstalls("/projects/shop", 10)
	if err != nil {
		t.Fatalf("ListInstalls() failed: %v", err)
	}
	if len(installs) != 1 {
		t.Fatalf("expected 1 install, got %d", len(installs))
	}
	got := installs[0]
	if got.Success || got.ExitCode != 1 || got.Stderr != "error: network" {
		t.Errorf("install = %+v", got)
	}
	if len(got.Command) != 3 || got.Command[2] != "@btc-connect/core@latest" {
		t.Errorf("Command = %v", got.Command)
	}
	if got.Duration != 1500*time.Millisecond {
		t.Errorf("Duration = %v", got.Duration)
	}
	if got.RunAt.IsZero() {
		t.Error("RunAt should default to now")
	}

	other, err := s.ListInstalls("/elsewhere", 0)
	if err != nil || len(other) != 0 {
		t.Errorf("ListInstalls(/elsewhere) = (%d, %v)", len(other), err)
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := s.InsertRun(sampleRun("/x")); err != nil {
		t.Fatalf("InsertRun() after Open failed: %v", err)
	}
}

func TestSnapshots(t *testing.T) {
	s := setupTestStore(t)

	for i, root := range []string{"/projects/shop", "/projects/blog", "/projects/shop"} {
		snap := &Snapshot{
			Root:      root,
			Reason:    fmt.Sprintf("before install %d", i),
			Path:      fmt.Sprintf("/snapshots/%d", i),
			FileCount: 2,
		}
		id, err := s.InsertSnapshot(snap)
		if err != nil {
			t.Fatalf("InsertSnapshot() failed: %v", err)
		}
		if id != snap.ID || snap.CreatedAt.IsZero() {
			t.Errorf("snapshot not updated after insert: %+v", snap)
		}
	}

	snaps, err := s.ListSnapshots("/projects/shop", 0)
	if err != nil {
		t.Fatalf("ListSnapshots() failed: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].Reason != "before install 2" {
		t.Errorf("snapshots not newest first: %q", snaps[0].Reason)
	}

	got, err := s.GetSnapshot(snaps[1].ID)
	if err != nil {
		t.Fatalf("GetSnapshot() failed: %v", err)
	}
	if got.Path != "/snapshots/0" || got.FileCount != 2 || got.Root != "/projects/shop" {
		t.Errorf("GetSnapshot() = %+v", got)
	}

	if _, err := s.GetSnapshot(999); err == nil {
		t.Error("GetSnapshot(999) expected error")
	}

	all, err := s.ListSnapshots("", 1)
	if err != nil || len(all) != 1 {
		t.Errorf("ListSnapshots(\"\", 1) = (%d, %v), want 1", len(all), err)
	}
}
