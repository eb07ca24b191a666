package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/connectkit/internal/checker"
	"github.com/blackwell-systems/connectkit/internal/logging"
	"github.com/blackwell-systems/connectkit/internal/output"
	"github.com/blackwell-systems/connectkit/internal/watcher"
)

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchPIDFile     string
	watchLogFile     string
	watchStop        bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Re-run checks when dependencies change",
		Long: `Watch package.json and the lockfiles in the project directory and run
'connectkit check' again whenever they change.

A check runs once at startup. Bursts of changes, such as a package manager
rewriting package.json and its lockfile, are coalesced into one check after
a short quiet period (watch.debounce in the config, default 500ms).

Watch modes:
  • Foreground (default): print a summary after every check, Ctrl+C to stop
  • Daemon: run in the background, logging to a file
  • Stop: stop a running daemon`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  connectkit watch

  # Run as background daemon
  connectkit watch --daemon

  # Stop running daemon
  connectkit watch --stop`,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: <config dir>/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "log file path (default: <config dir>/watch.log)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")

	// Hide the internal daemon-child flag from help
	watchCmd.Flags().MarkHidden("daemon-child")

	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchPIDFile == "" {
		defaultPID, err := getDefaultPIDFile()
		if err != nil {
			return fmt.Errorf("failed to get default PID file path: %w", err)
		}
		watchPIDFile = defaultPID
	}

	if watchLogFile == "" {
		defaultLog, err := getDefaultLogFile()
		if err != nil {
			return fmt.Errorf("failed to get default log file path: %w", err)
		}
		watchLogFile = defaultLog
	}

	if watchStop {
		return stopWatchDaemon(cmd)
	}

	root, err := resolveRoot()
	if err != nil {
		return err
	}

	if watchDaemon {
		return startWatchDaemon(cmd, root)
	}

	chk := newChecker()
	if watchDaemonChild {
		return runWatchDaemonChild(cmd.Context(), chk, root)
	}
	return runWatchForeground(cmd, chk, root)
}

func stopWatchDaemon(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	if err := watcher.StopDaemon(watchPIDFile); err != nil {
		if errors.Is(err, watcher.ErrDaemonNotRunning) {
			fmt.Fprintln(out, "Daemon is not running")
			return nil
		}
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	fmt.Fprintln(out, "✓ Daemon stopped")
	return nil
}

func startWatchDaemon(cmd *cobra.Command, root string) error {
	level := logLevel
	if level == "" {
		level = "info"
	}
	childArgs := []string{
		"watch", "--daemon-child",
		"--dir", root,
		"--pid-file", watchPIDFile,
		"--log-level", level,
	}
	if err := watcher.StartDaemon(watchPIDFile, watchLogFile, childArgs...); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "✓ Watch daemon started")
	fmt.Fprintf(out, "  Project:  %s\n", root)
	fmt.Fprintf(out, "  PID file: %s\n", watchPIDFile)
	fmt.Fprintf(out, "  Log file: %s\n", watchLogFile)
	fmt.Fprintln(out, "\nTo stop: connectkit watch --stop")
	return nil
}

// runWatchDaemonChild runs in the daemon process. Its stdout and stderr go
// to the log file, so results are logged rather than rendered.
func runWatchDaemonChild(ctx context.Context, chk *checker.Checker, root string) error {
	log := logging.Component(logger, "watch")

	handle := func(ctx context.Context, changed []string) {
		report, err := chk.Check(ctx, root)
		if err != nil {
			log.WithError(err).Warn("check aborted")
			return
		}
		entry := log.WithField("changed", changed).
			WithField("installed", report.Summary.Installed).
			WithField("warnings", report.Summary.Warnings)
		for _, issue := range report.Issues {
			entry.Warn(issue.String())
		}
		entry.Info("check complete")
	}

	w, err := watcher.New(root, cfg.Watch.Debounce, handle, log)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	handle(ctx, nil)
	return w.RunDaemon(ctx, watchPIDFile)
}

func runWatchForeground(cmd *cobra.Command, chk *checker.Checker, root string) error {
	out := cmd.OutOrStdout()

	handle := func(ctx context.Context, changed []string) {
		if len(changed) > 0 {
			fmt.Fprintf(out, "\nChanged: %s\n\n", strings.Join(changed, ", "))
		}
		report, err := chk.Check(ctx, root)
		if err != nil {
			if ctx.Err() == nil {
				fmt.Fprintf(out, "check aborted: %v\n", err)
			}
			return
		}
		fmt.Fprint(out, output.RenderReport(report))
	}

	w, err := watcher.New(root, cfg.Watch.Debounce, handle, logging.Component(logger, "watch"))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	fmt.Fprintf(out, "Watching %s (press Ctrl+C to stop)...\n\n", root)
	handle(cmd.Context(), nil)

	if err := w.Run(cmd.Context()); err != nil {
		return fmt.Errorf("watcher stopped with error: %w", err)
	}
	fmt.Fprintln(out, "\nWatch stopped")
	return nil
}
