package snapshots

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blackwell-systems/connectkit/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestCreateSnapshot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"name":"shop"}`)
	writeFile(t, filepath.Join(root, "yarn.lock"), "# yarn lockfile v1\n")
	writeFile(t, filepath.Join(root, "index.js"), "ignored")

	st := setupTestStore(t)
	m := New(st, filepath.Join(t.TempDir(), "snapshots"))

	id, err := m.CreateSnapshot(root, "before install")
	if err != nil {
		t.Fatalf("CreateSnapshot() error: %v", err)
	}

	snap, err := st.GetSnapshot(id)
	if err != nil {
		t.Fatalf("GetSnapshot() error: %v", err)
	}
	if snap.FileCount != 2 || snap.Root != root || snap.Reason != "before install" {
		t.Errorf("snapshot = %+v", snap)
	}
	if got := readFile(t, filepath.Join(snap.Path, "package.json")); got != `{"name":"shop"}` {
		t.Errorf("saved package.json = %q", got)
	}
	if _, err := os.Stat(filepath.Join(snap.Path, "index.js")); !os.IsNotExist(err) {
		t.Error("non-dependency file should not be saved")
	}

	data, err := m.LoadSnapshot(id)
	if err != nil {
		t.Fatalf("LoadSnapshot() error: %v", err)
	}
	if len(data.Files) != 2 {
		t.Errorf("Files = %v, want 2", data.Files)
	}
	for _, name := range data.Absent {
		if name == "package.json" || name == "yarn.lock" {
			t.Errorf("%s listed as absent", name)
		}
	}
	if len(data.Absent) == 0 {
		t.Error("missing lockfiles should be listed as absent")
	}
}

func TestCreateSnapshot_Unique(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{}`)

	st := setupTestStore(t)
	m := New(st, t.TempDir())

	first, err := m.CreateSnapshot(root, "a")
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.CreateSnapshot(root, "b")
	if err != nil {
		t.Fatal(err)
	}

	a, _ := st.GetSnapshot(first)
	b, _ := st.GetSnapshot(second)
	if a.Path == b.Path {
		t.Errorf("snapshots share directory %s", a.Path)
	}
}

func TestRestoreSnapshot(t *testing.T) {
	root := t.TempDir()
	manifest := `{"dependencies":{"react":"^18.2.0"}}`
	writeFile(t, filepath.Join(root, "package.json"), manifest)
	writeFile(t, filepath.Join(root, "yarn.lock"), "original lock\n")

	st := setupTestStore(t)
	m := New(st, t.TempDir())

	id, err := m.CreateSnapshot(root, "before install")
	if err != nil {
		t.Fatal(err)
	}

	// Simulate a half-finished install.
	writeFile(t, filepath.Join(root, "package.json"), `{"dependencies":{"react":"^18.2.0","@btc-connect/core":"^0.4.2"}}`)
	writeFile(t, filepath.Join(root, "yarn.lock"), "rewritten lock\n")
	writeFile(t, filepath.Join(root, "package-lock.json"), `{"lockfileVersion":3}`)

	if err := m.RestoreSnapshot(id); err != nil {
		t.Fatalf("RestoreSnapshot() error: %v", err)
	}

	if got := readFile(t, filepath.Join(root, "package.json")); got != manifest {
		t.Errorf("package.json = %q, want original", got)
	}
	if got := readFile(t, filepath.Join(root, "yarn.lock")); got != "original lock\n" {
		t.Errorf("yarn.lock = %q, want original", got)
	}
	if _, err := os.Stat(filepath.Join(root, "package-lock.json")); !os.IsNotExist(err) {
		t.Error("lockfile created after the snapshot should be removed")
	}
}

func TestRestoreSnapshot_NotFound(t *testing.T) {
	m := New(setupTestStore(t), t.TempDir())
	if err := m.RestoreSnapshot(42); err == nil {
		t.Error("RestoreSnapshot(42) expected error")
	}
}

func TestListSnapshots(t *testing.T) {
	st := setupTestStore(t)
	m := New(st, t.TempDir())

	shop := t.TempDir()
	blog := t.TempDir()
	for _, root := range []string{shop, blog, shop} {
		writeFile(t, filepath.Join(root, "package.json"), `{}`)
		if _, err := m.CreateSnapshot(root, "test"); err != nil {
			t.Fatal(err)
		}
	}

	snaps, err := m.ListSnapshots(shop)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Errorf("ListSnapshots(shop) = %d, want 2", len(snaps))
	}

	all, err := m.ListSnapshots("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("ListSnapshots(\"\") = %d, want 3", len(all))
	}
}

func TestCleanupOldSnapshots(t *testing.T) {
	st := setupTestStore(t)
	dir := t.TempDir()
	m := New(st, dir)

	oldPath := filepath.Join(dir, "old")
	if err := os.MkdirAll(oldPath, 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := st.InsertSnapshot(&store.Snapshot{
		CreatedAt: time.Now().Add(-100 * 24 * time.Hour),
		Root:      "/x",
		Reason:    "old",
		Path:      oldPath,
	}); err != nil {
		t.Fatal(err)
	}

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{}`)
	recentID, err := m.CreateSnapshot(root, "recent")
	if err != nil {
		t.Fatal(err)
	}

	deleted, err := m.CleanupOldSnapshots(DefaultMaxAge)
	if err != nil {
		t.Fatalf("CleanupOldSnapshots() error: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Error("old snapshot directory should be removed")
	}

	recent, _ := st.GetSnapshot(recentID)
	if _, err := os.Stat(recent.Path); err != nil {
		t.Errorf("recent snapshot removed: %v", err)
	}
}
