package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blackwell-systems/connectkit/internal/pkgmgr"
	"github.com/blackwell-systems/connectkit/internal/pkgmgr/pkgmgrtest"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func projectWith(t *testing.T, manifest string) *Descriptor {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, ManifestFile, manifest)
	return Load(dir)
}

func TestLoad_MergesGroups(t *testing.T) {
	d := projectWith(t, `{
  "name": "shop",
  "dependencies": {"react": "^18.2.0", "shared": "1.0.0"},
  "devDependencies": {"typescript": "^5.3.0", "shared": "2.0.0"},
  "peerDependencies": {"react-dom": "^18.0.0"}
}`)

	if d.Status() != ManifestOK {
		t.Fatalf("Status = %v, want ok", d.Status())
	}
	if d.Name() != "shop" {
		t.Errorf("Name = %q", d.Name())
	}
	if rng, _ := d.Declared("shared"); rng != "1.0.0" {
		t.Errorf("shared = %q, want production range 1.0.0", rng)
	}
	if !d.Has("typescript") {
		t.Error("devDependencies should be merged")
	}
	if d.Has("react-dom") {
		t.Error("peerDependencies must not be merged into dependencies")
	}
	if rng, ok := d.Peer("react-dom"); !ok || rng != "^18.0.0" {
		t.Errorf("Peer(react-dom) = (%q, %v)", rng, ok)
	}
}

func TestLoad_SkipsNonStringValues(t *testing.T) {
	d := projectWith(t, `{"dependencies": {"vue": "^3.4.0", "weird": {"nested": true}, "num": 3}}`)

	if !d.Has("vue") {
		t.Error("vue should be declared")
	}
	if d.Has("weird") || d.Has("num") {
		t.Error("non-string ranges should be skipped")
	}
}

func TestLoad_GroupNotAnObject(t *testing.T) {
	d := projectWith(t, `{"dependencies": ["react"], "devDependencies": {"vue": "3.0.0"}}`)
	if d.Status() != ManifestOK {
		t.Errorf("Status = %v, want ok", d.Status())
	}
	if d.Has("react") || !d.Has("vue") {
		t.Errorf("deps = %v", d.Dependencies())
	}
}

func TestLoad_MissingManifest(t *testing.T) {
	d := Load(t.TempDir())
	if d.Status() != ManifestMissing {
		t.Errorf("Status = %v, want missing", d.Status())
	}
	if !d.Empty() {
		t.Error("descriptor should be empty")
	}
	if d.Err() != nil {
		t.Errorf("Err = %v, want nil for a plain missing file", d.Err())
	}
	if Classify(d) != TypeUnknown {
		t.Errorf("Classify = %v, want unknown", Classify(d))
	}
}

func TestLoad_InvalidManifest(t *testing.T) {
	d := projectWith(t, `{"dependencies": {`)
	if d.Status() != ManifestInvalid {
		t.Errorf("Status = %v, want invalid", d.Status())
	}
	if d.Err() == nil {
		t.Error("expected parse error to be kept")
	}
	if !d.Empty() {
		t.Error("descriptor should be empty")
	}
}

func TestDependencies_ReturnsCopy(t *testing.T) {
	d := projectWith(t, `{"dependencies": {"react": "^18.0.0"}}`)
	deps := d.Dependencies()
	deps["vue"] = "3.0.0"
	delete(deps, "react")

	if d.Has("vue") || !d.Has("react") {
		t.Error("mutating the returned map changed the descriptor")
	}
}

func TestDetectLockfile_Priority(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  pkgmgr.Kind
		file  string
	}{
		{"bun over yarn", []string{"yarn.lock", "bun.lockb"}, pkgmgr.KindBun, "bun.lockb"},
		{"text bun lock", []string{"bun.lock", "package-lock.json"}, pkgmgr.KindBun, "bun.lock"},
		{"yarn over npm", []string{"package-lock.json", "yarn.lock"}, pkgmgr.KindYarn, "yarn.lock"},
		{"npm over pnpm", []string{"pnpm-lock.yaml", "package-lock.json"}, pkgmgr.KindNPM, "package-lock.json"},
		{"pnpm alone", []string{"pnpm-lock.yaml"}, pkgmgr.KindPNPM, "pnpm-lock.yaml"},
		{"none", nil, pkgmgr.KindUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				writeFile(t, dir, f, "")
			}
			// Repeat to make sure the choice is stable.
			for i := 0; i < 3; i++ {
				file, kind := DetectLockfile(dir)
				if kind != tt.want || file != tt.file {
					t.Fatalf("DetectLockfile = (%q, %q), want (%q, %q)", file, kind, tt.file, tt.want)
				}
			}
		})
	}
}

func TestDetectLockfile_IgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "yarn.lock"), 0755); err != nil {
		t.Fatal(err)
	}
	if _, kind := DetectLockfile(dir); kind != pkgmgr.KindUnknown {
		t.Errorf("kind = %q, want unknown", kind)
	}
}

func TestDetectManager(t *testing.T) {
	t.Run("lockfile wins without probing", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "yarn.lock", "")
		r := pkgmgrtest.NewRunner().On("bun --version", pkgmgrtest.Response{Stdout: "1.1.0"})

		if got := DetectManager(context.Background(), Load(dir), r, time.Second); got != pkgmgr.KindYarn {
			t.Errorf("DetectManager = %q, want yarn", got)
		}
		if len(r.Calls()) != 0 {
			t.Errorf("unexpected probes: %+v", r.Calls())
		}
	})

	t.Run("probe when no lockfile", func(t *testing.T) {
		r := pkgmgrtest.NewRunner().On("npm --version", pkgmgrtest.Response{Stdout: "10.2.0"})
		if got := DetectManager(context.Background(), Load(t.TempDir()), r, time.Second); got != pkgmgr.KindNPM {
			t.Errorf("DetectManager = %q, want npm", got)
		}
		if r.CallCount("bun --version") != 1 || r.CallCount("yarn --version") != 1 {
			t.Errorf("expected bun and yarn to be probed first: %+v", r.Calls())
		}
	})

	t.Run("nothing available", func(t *testing.T) {
		got := DetectManager(context.Background(), Load(t.TempDir()), pkgmgrtest.NewRunner(), time.Second)
		if got != pkgmgr.KindUnknown {
			t.Errorf("DetectManager = %q, want unknown", got)
		}
	})

	t.Run("slow probe times out", func(t *testing.T) {
		r := pkgmgrtest.NewRunner().
			On("bun --version", pkgmgrtest.Response{Delay: time.Second}).
			On("yarn --version", pkgmgrtest.Response{Stdout: "1.22.19"})
		got := DetectManager(context.Background(), Load(t.TempDir()), r, 20*time.Millisecond)
		if got != pkgmgr.KindYarn {
			t.Errorf("DetectManager = %q, want yarn", got)
		}
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		want     Type
	}{
		{"empty", `{}`, TypeUnknown},
		{"unrelated deps", `{"dependencies": {"lodash": "^4.17.21"}}`, TypeUnknown},
		{"react", `{"dependencies": {"react": "^18.2.0"}}`, TypeReact},
		{"vue", `{"dependencies": {"vue": "^3.4.0"}}`, TypeVue},
		{"next wraps react", `{"dependencies": {"react": "^18.2.0", "next": "14.1.0"}}`, TypeNextJS},
		{"next before nuxt", `{"dependencies": {"nuxt": "^3.0.0", "next": "14.1.0"}}`, TypeNextJS},
		{"nuxt 3.5.0", `{"dependencies": {"nuxt": "3.5.0", "vue": "^3.3.0"}}`, TypeNuxt3},
		{"nuxt caret 3", `{"devDependencies": {"nuxt": "^3.10.0"}}`, TypeNuxt3},
		{"nuxt 4", `{"dependencies": {"nuxt": "~4.0.0"}}`, TypeNuxt3},
		{"nuxt 2.9.0", `{"dependencies": {"nuxt": "2.9.0", "vue": "^2.6.0"}}`, TypeNuxt},
		{"nuxt garbage", `{"dependencies": {"nuxt": "latest"}}`, TypeNuxt},
		{"nuxt empty", `{"dependencies": {"nuxt": ""}}`, TypeNuxt},
		{"react before vue", `{"dependencies": {"vue": "3.0.0", "react": "18.0.0"}}`, TypeReact},
		{"express", `{"dependencies": {"express": "^4.18.0"}}`, TypeNodeJS},
		{"express plugin", `{"dependencies": {"express-session": "^1.17.0"}}`, TypeNodeJS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := projectWith(t, tt.manifest)
			if got := Classify(d); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassify_Idempotent(t *testing.T) {
	d := projectWith(t, `{"dependencies": {"nuxt": "^3.5.0", "vue": "^3.3.0"}}`)
	before := d.Dependencies()

	first := Classify(d)
	second := Classify(d)
	if first != second {
		t.Errorf("Classify not stable: %q then %q", first, second)
	}
	after := d.Dependencies()
	if len(before) != len(after) {
		t.Fatalf("descriptor changed: %v -> %v", before, after)
	}
	for k, v := range before {
		if after[k] != v {
			t.Errorf("descriptor changed at %q: %q -> %q", k, v, after[k])
		}
	}
}

func TestClassify_Nil(t *testing.T) {
	if got := Classify(nil); got != TypeUnknown {
		t.Errorf("Classify(nil) = %q", got)
	}
}

func TestParseType(t *testing.T) {
	for _, typ := range Types {
		got, err := ParseType(string(typ))
		if err != nil || got != typ {
			t.Errorf("ParseType(%q) = (%q, %v)", typ, got, err)
		}
	}
	if got, err := ParseType("auto"); err != nil || got != TypeUnknown {
		t.Errorf("ParseType(auto) = (%q, %v)", got, err)
	}
	if got, err := ParseType(" Core "); err != nil || got != TypeCore {
		t.Errorf("ParseType(core) = (%q, %v)", got, err)
	}
	if TypeCore.UsesReact() || TypeCore.UsesVue() {
		t.Error("core type should not use a UI binding")
	}
	if _, err := ParseType("svelte"); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestScanEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tsconfig.json", "{}")
	writeFile(t, dir, "nuxt.config.ts", "export default {}")
	writeFile(t, dir, "server/api/hello.ts", "")
	writeFile(t, dir, "pages/index.vue", "")

	env := ScanEnvironment(dir, TypeNuxt3)

	if env.Type != TypeNuxt3 {
		t.Errorf("Type = %q", env.Type)
	}
	if !env.TypeScript {
		t.Error("TypeScript should be detected")
	}
	if len(env.ConfigFiles) != 2 || env.ConfigFiles[0] != "tsconfig.json" || env.ConfigFiles[1] != "nuxt.config.ts" {
		t.Errorf("ConfigFiles = %v", env.ConfigFiles)
	}
	if len(env.SSRIndicators) != 2 || env.SSRIndicators[0] != "pages/" || env.SSRIndicators[1] != "server/" {
		t.Errorf("SSRIndicators = %v", env.SSRIndicators)
	}
	if !env.SSR() {
		t.Error("SSR should be true")
	}
}

func TestScanEnvironment_Empty(t *testing.T) {
	env := ScanEnvironment(t.TempDir(), TypeUnknown)
	if len(env.ConfigFiles) != 0 || len(env.SSRIndicators) != 0 || env.SSR() || env.TypeScript {
		t.Errorf("expected empty environment, got %+v", env)
	}
}
