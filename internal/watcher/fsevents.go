package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/connectkit/internal/project"
)

// DefaultDebounce is used when New is given a non-positive debounce.
const DefaultDebounce = 500 * time.Millisecond

// Handler is called after a burst of changes settles. changed holds the
// base names of the files that changed, sorted. Calls are serialized.
type Handler func(ctx context.Context, changed []string)

// WatchedFiles returns the file names that trigger a Handler call.
func WatchedFiles() []string {
	return project.DependencyFiles()
}

// Watcher watches one project directory for dependency changes.
type Watcher struct {
	root     string
	debounce time.Duration
	handle   Handler
	log      *logrus.Entry
	names    map[string]bool

	fsw      *fsnotify.Watcher
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a Watcher for root. It does not touch the filesystem until
// Start.
func New(root string, debounce time.Duration, h Handler, log *logrus.Entry) (*Watcher, error) {
	if root == "" {
		return nil, fmt.Errorf("root cannot be empty")
	}
	if h == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	names := make(map[string]bool)
	for _, name := range WatchedFiles() {
		names[name] = true
	}

	return &Watcher{
		root:     root,
		debounce: debounce,
		handle:   h,
		log:      log.WithField("root", root),
		names:    names,
	}, nil
}

// Start subscribes to root and begins dispatching changes in the
// background. Stop must be called to release the watch.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(w.root); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.root, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel

	w.wg.Add(1)
	go w.loop(ctx)

	w.log.WithField("files", WatchedFiles()).Debug("watching for dependency changes")
	return nil
}

// Run starts the watcher and blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return w.Stop()
}

// Stop halts the watcher and waits for an in-flight Handler call to return.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		w.wg.Wait()
		if w.fsw != nil {
			err = w.fsw.Close()
		}
	})
	return err
}

// relevant reports whether ev touches a watched file in a way that can
// change its contents.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !w.names[filepath.Base(ev.Name)] {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) ||
		ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove)
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	pending := make(map[string]bool)
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.WithFields(logrus.Fields{"file": ev.Name, "op": ev.Op.String()}).Debug("change detected")
			pending[filepath.Base(ev.Name)] = true
			fire = time.After(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("file watcher error")

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for name := range pending {
				changed = append(changed, name)
			}
			sort.Strings(changed)
			pending = make(map[string]bool)

			w.handle(ctx, changed)
		}
	}
}
