package project

import (
	"os"
	"path/filepath"
)

// configFiles are the build and compiler configs worth reporting.
var configFiles = []string{
	"tsconfig.json",
	"vite.config.js",
	"vite.config.ts",
	"webpack.config.js",
	"next.config.js",
	"next.config.mjs",
	"nuxt.config.ts",
}

// ssrDirs hint that the project renders on the server.
var ssrDirs = []string{"pages", "app", "server"}

// Environment describes the build setup found next to package.json.
type Environment struct {
	Type          Type     `json:"type"`
	ConfigFiles   []string `json:"config_files"`
	SSRIndicators []string `json:"ssr_indicators"`
	TypeScript    bool     `json:"typescript"`
}

// SSR reports whether any server-rendering directory was found.
func (e Environment) SSR() bool { return len(e.SSRIndicators) > 0 }

// ScanEnvironment lists which known config files and SSR directories exist
// under root. Unreadable entries are treated as absent.
func ScanEnvironment(root string, t Type) Environment {
	env := Environment{
		Type:          t,
		ConfigFiles:   []string{},
		SSRIndicators: []string{},
	}

	for _, name := range configFiles {
		if info, err := os.Stat(filepath.Join(root, name)); err == nil && !info.IsDir() {
			env.ConfigFiles = append(env.ConfigFiles, name)
			if name == "tsconfig.json" {
				env.TypeScript = true
			}
		}
	}

	for _, dir := range ssrDirs {
		if info, err := os.Stat(filepath.Join(root, dir)); err == nil && info.IsDir() {
			env.SSRIndicators = append(env.SSRIndicators, dir+"/")
		}
	}

	return env
}
