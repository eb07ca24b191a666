// Package watcher re-runs connectkit checks when a project's dependencies
// change.
//
// The Watcher subscribes to the project root with fsnotify and reacts to
// writes, creates, renames and removals of package.json and the known
// lockfiles. Bursts of events (a package manager rewriting several files)
// are coalesced into a single callback after a quiet period.
//
// Key features:
//   - Directory-level watch, so editors that replace files atomically are seen
//   - Trailing debounce with the changed file names passed to the callback
//   - Daemon mode with PID file management
//   - Graceful shutdown with SIGTERM/SIGINT handling
//
// Example usage:
//
//	w, err := watcher.New(root, 500*time.Millisecond, func(ctx context.Context, changed []string) {
//		report, err := chk.Check(ctx, root)
//		...
//	}, log)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Run in the foreground until ctx is cancelled
//	if err := w.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
package watcher
