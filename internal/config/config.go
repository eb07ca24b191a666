// Package config loads connectkit settings from YAML files and CONNECTKIT_
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/blackwell-systems/connectkit/internal/pkgmgr"
)

// ProjectFile is the per-project config file name.
const ProjectFile = ".connectkit.yaml"

// EnvPrefix prefixes every environment override, e.g.
// CONNECTKIT_TIMEOUTS_REGISTRY=10s.
const EnvPrefix = "CONNECTKIT"

// Dir returns the connectkit config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/connectkit if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "connectkit"), nil
}

// PackagesConfig names the core package and its bindings.
type PackagesConfig struct {
	Core  string `mapstructure:"core"`
	React string `mapstructure:"react"`
	Vue   string `mapstructure:"vue"`
}

// TimeoutsConfig bounds each kind of external command.
type TimeoutsConfig struct {
	Registry time.Duration `mapstructure:"registry"`
	Install  time.Duration `mapstructure:"install"`
	Probe    time.Duration `mapstructure:"probe"`
}

// RegistryConfig selects where latest versions come from.
type RegistryConfig struct {
	Source string `mapstructure:"source"` // npm or http
	URL    string `mapstructure:"url"`
}

// InstalledConfig selects where installed versions come from.
type InstalledConfig struct {
	Source string `mapstructure:"source"` // auto, npm or lockfile
}

// LoggingConfig defines the logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ServerConfig configures `connectkit serve`.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// WatchConfig configures `connectkit watch`.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// SnapshotsConfig controls the dependency file backups taken before
// installs.
type SnapshotsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Dir      string `mapstructure:"dir"`
	KeepDays int    `mapstructure:"keep_days"`
}

// Config is the top-level configuration.
type Config struct {
	Packages       PackagesConfig  `mapstructure:"packages"`
	MinimumVersion string          `mapstructure:"minimum_version"`
	DefaultManager string          `mapstructure:"default_manager"`
	Timeouts       TimeoutsConfig  `mapstructure:"timeouts"`
	Registry       RegistryConfig  `mapstructure:"registry"`
	Installed      InstalledConfig `mapstructure:"installed"`
	Logging        LoggingConfig   `mapstructure:"logging"`
	History        HistoryConfig   `mapstructure:"history"`
	Server         ServerConfig    `mapstructure:"server"`
	Watch          WatchConfig     `mapstructure:"watch"`
	Snapshots      SnapshotsConfig `mapstructure:"snapshots"`

	// Files lists the config files that were read, lowest precedence first.
	Files []string `mapstructure:"-"`
}

// Manager returns DefaultManager as a pkgmgr.Kind.
func (c *Config) Manager() pkgmgr.Kind {
	k, err := pkgmgr.ParseKind(c.DefaultManager)
	if err != nil {
		return pkgmgr.KindUnknown
	}
	return k
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("packages.core", "@btc-connect/core")
	v.SetDefault("packages.react", "@btc-connect/react")
	v.SetDefault("packages.vue", "@btc-connect/vue")
	v.SetDefault("minimum_version", "0.4.0")
	v.SetDefault("default_manager", "bun")
	v.SetDefault("timeouts.registry", 30*time.Second)
	v.SetDefault("timeouts.install", 5*time.Minute)
	v.SetDefault("timeouts.probe", 5*time.Second)
	v.SetDefault("registry.source", "npm")
	v.SetDefault("registry.url", pkgmgr.DefaultRegistryURL)
	v.SetDefault("installed.source", "auto")
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")
	v.SetDefault("server.addr", "127.0.0.1:7433")
	v.SetDefault("watch.debounce", 500*time.Millisecond)
	v.SetDefault("snapshots.enabled", true)
	v.SetDefault("snapshots.dir", "")
	v.SetDefault("snapshots.keep_days", 90)
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Defaults always decode.
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads the user config from Dir() and then projectRoot/.connectkit.yaml,
// each overriding the last, with CONNECTKIT_* variables on top. Missing
// files are skipped.
func Load(projectRoot string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var files []string
	if dir, err := Dir(); err == nil {
		files = append(files, filepath.Join(dir, "config.yaml"))
	}
	if projectRoot != "" {
		files = append(files, filepath.Join(projectRoot, ProjectFile))
	}

	var used []string
	for _, path := range files {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		used = append(used, path)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Files = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the rest of the program cannot act on.
func (c *Config) Validate() error {
	if c.Packages.Core == "" {
		return fmt.Errorf("packages.core must not be empty")
	}
	if _, err := pkgmgr.ParseKind(c.DefaultManager); err != nil {
		return fmt.Errorf("default_manager: %w", err)
	}
	switch c.Registry.Source {
	case "npm", "http":
	default:
		return fmt.Errorf("registry.source must be npm or http, got %q", c.Registry.Source)
	}
	switch c.Installed.Source {
	case "auto", "npm", "lockfile":
	default:
		return fmt.Errorf("installed.source must be auto, npm or lockfile, got %q", c.Installed.Source)
	}
	if c.Timeouts.Registry <= 0 || c.Timeouts.Install <= 0 || c.Timeouts.Probe <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.Snapshots.KeepDays < 0 {
		return fmt.Errorf("snapshots.keep_days must not be negative")
	}
	return nil
}

// HistoryPath returns the history database path, defaulting to
// Dir()/history.db.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// SnapshotDir returns the snapshot directory, defaulting to Dir()/snapshots.
func (c *Config) SnapshotDir() (string, error) {
	if c.Snapshots.Dir != "" {
		return c.Snapshots.Dir, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "snapshots"), nil
}

// SnapshotMaxAge is how long snapshots are kept. Zero keeps them forever.
func (c *Config) SnapshotMaxAge() time.Duration {
	return time.Duration(c.Snapshots.KeepDays) * 24 * time.Hour
}
