package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/connectkit/internal/config"
	"github.com/blackwell-systems/connectkit/internal/logging"
	"github.com/blackwell-systems/connectkit/internal/store"
)

var (
	projectDir string
	logLevel   string
	noHistory  bool

	// Set by setup for every subcommand.
	cfg     *config.Config
	logger  *logrus.Logger
	history *store.Store

	// RootCmd is the root command for connectkit
	RootCmd = &cobra.Command{
		Use:   "connectkit",
		Short: "Install and verify @btc-connect packages in a web project",
		Long: `connectkit inspects a JavaScript/TypeScript project, installs the
@btc-connect wallet-connection packages that fit its framework, and checks
that the installed core and UI bindings are compatible with each other.

Project types: react, vue, nextjs, nuxt, nuxt3, nodejs.
Package managers: bun, yarn, npm, pnpm (picked from the lockfile, or the
first one found on PATH).

Examples:
  # Show what kind of project this is
  connectkit detect

  # Preview the install command
  connectkit install --dry-run

  # Install with a specific manager
  connectkit install --manager pnpm

  # Check versions and compatibility
  connectkit check

  # Re-check whenever package.json or the lockfile changes
  connectkit watch`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "connectkit: install and verify @btc-connect packages")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Run 'connectkit check' in your project to get started.")
			fmt.Fprintln(out, "Run 'connectkit --help' for all commands.")
			return nil
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", "", "project directory (default: current directory)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	RootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "do not record this run in the history database")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command and releases the history database.
// SIGINT and SIGTERM cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer closeHistory()
	return RootCmd.ExecuteContext(ctx)
}

// exitError carries a process exit code without an extra message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// ExitCode returns the exit code err asks for, or 0 when it asks for none.
func ExitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 0
}

// setup loads configuration for the project directory, initializes logging
// and opens the history database.
func setup(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot()
	if err != nil {
		return err
	}

	c, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	cfg = c
	logger = logging.Init(cfg.Logging)
	logger.WithField("files", cfg.Files).Debug("configuration loaded")

	closeHistory()
	if cfg.History.Enabled && !noHistory {
		if st, err := openHistory(); err != nil {
			logger.WithError(err).Warn("history disabled for this run")
		} else {
			history = st
		}
	}
	return nil
}

// resolveRoot returns the absolute project directory from --dir or the
// working directory.
func resolveRoot() (string, error) {
	dir := projectDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project directory %s is not a directory", abs)
	}
	return abs, nil
}

func openHistory() (*store.Store, error) {
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get history path: %w", err)
	}
	return store.Open(path)
}

func closeHistory() {
	if history != nil {
		history.Close()
		history = nil
	}
}
