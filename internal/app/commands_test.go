package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackwell-systems/connectkit/internal/planner"
	"github.com/blackwell-systems/connectkit/internal/pkgmgr/pkgmgrtest"
)

func TestDetectCommand_JSON(t *testing.T) {
	isolate(t)
	root := writeProject(t, map[string]string{
		"package.json":  `{"name":"shop","dependencies":{"next":"14.1.0","react":"^18.2.0"}}`,
		"yarn.lock":     "",
		"tsconfig.json": "{}",
	})

	out, err := execute(t, pkgmgrtest.NewRunner(), "", "detect", "--json", "-C", root)
	if err != nil {
		t.Fatalf("detect error: %v", err)
	}

	var det detection
	if err := json.Unmarshal([]byte(out), &det); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if det.Name != "shop" || det.Type != "nextjs" || det.Manager != "yarn" || det.Lockfile != "yarn.lock" {
		t.Errorf("detection = %+v", det)
	}
	if !det.Environment.TypeScript {
		t.Error("expected TypeScript to be detected")
	}
}

func TestPlanCommand(t *testing.T) {
	isolate(t)
	root := writeProject(t, map[string]string{
		"package.json": `{"dependencies":{"vue":"^3.4.0"}}`,
		"yarn.lock":    "",
	})

	t.Run("detected", func(t *testing.T) {
		out, err := execute(t, pkgmgrtest.NewRunner(), "", "plan", "--json", "-C", root)
		if err != nil {
			t.Fatalf("plan error: %v", err)
		}
		var plan planner.Plan
		if err := json.Unmarshal([]byte(out), &plan); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out)
		}
		if got := plan.String(); got != "yarn add @btc-connect/core@latest @btc-connect/vue@latest" {
			t.Errorf("plan = %q", got)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		out, err := execute(t, pkgmgrtest.NewRunner(), "", "plan", "--manager", "npm", "--type", "react", "-C", root)
		if err != nil {
			t.Fatalf("plan error: %v", err)
		}
		if !strings.Contains(out, "npm install @btc-connect/core@latest @btc-connect/react@latest") {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("core only", func(t *testing.T) {
		out, err := execute(t, pkgmgrtest.NewRunner(), "", "plan", "--type", "core", "-C", root)
		if err != nil {
			t.Fatalf("plan error: %v", err)
		}
		if !strings.Contains(out, "yarn add @btc-connect/core@latest") || strings.Contains(out, "@btc-connect/vue") {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("bad manager", func(t *testing.T) {
		if _, err := execute(t, pkgmgrtest.NewRunner(), "", "plan", "--manager", "cargo", "-C", root); err == nil {
			t.Error("expected error for unknown manager")
		}
	})
}

func TestInstallCommand_DryRun(t *testing.T) {
	isolate(t)
	root := writeProject(t, map[string]string{"package.json": `{"dependencies":{"react":"^18.2.0"}}`})
	r := pkgmgrtest.NewRunner()

	out, err := execute(t, r, "", "install", "--dry-run", "--manager", "pnpm", "-C", root)
	if err != nil {
		t.Fatalf("install error: %v", err)
	}
	if !strings.Contains(out, "Dry run") || !strings.Contains(out, "pnpm add @btc-connect/core@latest @btc-connect/react@latest") {
		t.Errorf("output = %q", out)
	}
	if n := r.CallCount("pnpm add"); n != 0 {
		t.Errorf("dry run ran the install %d time(s)", n)
	}
}

func TestInstallCommand_FailureRestoresSnapshot(t *testing.T) {
	isolate(t)
	root := writeProject(t, map[string]string{"package.json": `{}`, "bun.lockb": ""})
	r := pkgmgrtest.NewRunner().
		On("bun add @btc-connect/core@latest", pkgmgrtest.Response{Stderr: "error: 404", ExitCode: 1})

	out, err := execute(t, r, "", "install", "-C", root)
	if err == nil || !strings.Contains(err.Error(), "install failed") {
		t.Fatalf("expected install failure, got %v", err)
	}
	if !strings.Contains(out, "exited with code 1") || !strings.Contains(out, "restored from snapshot 1") {
		t.Errorf("output = %q", out)
	}
	if r.CallCount("bun add") != 1 {
		t.Errorf("install ran %d times, want 1", r.CallCount("bun add"))
	}
}

func TestInstallThenUndo(t *testing.T) {
	isolate(t)
	original := `{"name":"shop"}`
	root := writeProject(t, map[string]string{"package.json": original, "bun.lockb": ""})
	r := pkgmgrtest.NewRunner().
		On("bun add @btc-connect/core@latest", pkgmgrtest.Response{Stdout: "installed @btc-connect/core"})

	out, err := execute(t, r, "", "install", "-C", root)
	if err != nil {
		t.Fatalf("install error: %v", err)
	}
	if !strings.Contains(out, "Snapshot 1 saved") {
		t.Errorf("install output = %q", out)
	}

	// What the real install would have written.
	manifest := filepath.Join(root, "package.json")
	if err := os.WriteFile(manifest, []byte(`{"name":"shop","dependencies":{"@btc-connect/core":"^0.4.2"}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "package-lock.json"), []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}

	out, err = execute(t, r, "", "undo", "--list", "-C", root)
	if err != nil {
		t.Fatalf("undo --list error: %v", err)
	}
	if !strings.Contains(out, "before install") {
		t.Errorf("undo --list output = %q", out)
	}

	out, err = execute(t, r, "", "undo", "latest", "--yes", "-C", root)
	if err != nil {
		t.Fatalf("undo error: %v", err)
	}
	if !strings.Contains(out, "Restored") {
		t.Errorf("undo output = %q", out)
	}

	data, err := os.ReadFile(manifest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != original {
		t.Errorf("package.json = %s, want %s", data, original)
	}
	if _, err := os.Stat(filepath.Join(root, "package-lock.json")); !os.IsNotExist(err) {
		t.Error("lockfile written after the snapshot should be removed")
	}
}

func TestCheckCommand(t *testing.T) {
	isolate(t)
	root := writeProject(t, map[string]string{
		"package.json": `{"dependencies":{"@btc-connect/react":"^0.4.0"}}`,
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, pkgmgrtest.NewRunner(), "", "check", "--json", "-C", root)
		if err != nil {
			t.Fatalf("check error: %v", err)
		}
		var report struct {
			Root    string `json:"root"`
			Records []struct {
				Name string `json:"name"`
			} `json:"records"`
		}
		if err := json.Unmarshal([]byte(out), &report); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out)
		}
		if report.Root != root || len(report.Records) != 3 {
			t.Errorf("report = %+v", report)
		}
	})

	t.Run("strict exits 2 on warnings", func(t *testing.T) {
		_, err := execute(t, pkgmgrtest.NewRunner(), "", "check", "--json", "--strict", "-C", root)
		if got := ExitCode(err); got != 2 {
			t.Errorf("ExitCode() = %d, want 2 (err: %v)", got, err)
		}
	})

	t.Run("text", func(t *testing.T) {
		out, err := execute(t, pkgmgrtest.NewRunner(), "", "check", "-C", root)
		if err != nil {
			t.Fatalf("check error: %v", err)
		}
		if !strings.Contains(out, "@btc-connect/react") {
			t.Errorf("output = %q", out)
		}
	})
}

func TestHistoryCommand(t *testing.T) {
	isolate(t)
	root := writeProject(t, map[string]string{"package.json": `{}`})

	if _, err := execute(t, pkgmgrtest.NewRunner(), "", "check", "--json", "-C", root); err != nil {
		t.Fatalf("check error: %v", err)
	}

	out, err := execute(t, pkgmgrtest.NewRunner(), "", "history", "--json", "-C", root)
	if err != nil {
		t.Fatalf("history error: %v", err)
	}
	var runs []struct {
		ID   int64  `json:"id"`
		Root string `json:"root"`
	}
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(runs) != 1 || runs[0].Root != root {
		t.Errorf("runs = %+v", runs)
	}

	if _, err := execute(t, pkgmgrtest.NewRunner(), "", "history", "--no-history", "-C", root); err == nil {
		t.Error("expected error with history disabled")
	}
}

func TestDoctorCommand_MissingManifest(t *testing.T) {
	isolate(t)
	out, err := execute(t, pkgmgrtest.NewRunner(), "", "doctor", "-C", t.TempDir())
	if err == nil {
		t.Fatal("expected doctor to fail without package.json")
	}
	if ExitCode(err) != 0 {
		t.Errorf("critical failure should use the default exit code, got %d", ExitCode(err))
	}
	if !strings.Contains(out, "package.json not found") {
		t.Errorf("output = %q", out)
	}
}

func TestDoctorCommand_WarningsOnly(t *testing.T) {
	isolate(t)
	root := writeProject(t, map[string]string{
		"package.json": `{"dependencies":{"react":"^18.2.0"}}`,
		"yarn.lock":    "",
	})
	r := pkgmgrtest.NewRunner().
		On("yarn --version", pkgmgrtest.Response{Stdout: "1.22.19\n"})

	out, err := execute(t, r, "", "doctor", "-C", root)
	if got := ExitCode(err); got != 2 {
		t.Fatalf("ExitCode() = %d, want 2 (err: %v)\n%s", got, err, out)
	}
	for _, want := range []string{"Project type: react", "yarn 1.22.19 is available", "Registry lookup"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}
