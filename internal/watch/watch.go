// Package watch re-runs a sync whenever scanned sources change.
//
// Directories below each root are watched with fsnotify (new directories are
// added as they appear). Events are debounced so that a burst of writes
// triggers a single run. An optional interval runs the sync periodically
// even when no event arrives.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/gubarz/srcscan/internal/logging"
)

// RunFunc performs one sync
type RunFunc func(ctx context.Context) error

// Option configures a Watcher
type Option func(*Watcher)

// WithInterval runs the sync every d in addition to change events.
// Zero disables periodic runs.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		w.interval = d
	}
}

// WithDebounce sets how long the watcher waits for events to settle
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithFilter limits the files whose changes trigger a run
func WithFilter(match func(path string) bool) Option {
	return func(w *Watcher) {
		w.match = match
	}
}

// WithSkipDir excludes directories by name from watching
func WithSkipDir(skip func(name string) bool) Option {
	return func(w *Watcher) {
		w.skipDir = skip
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		w.logger = logging.OrNop(l)
	}
}

// Watcher triggers a RunFunc on source changes
type Watcher struct {
	run      RunFunc
	interval time.Duration
	debounce time.Duration
	match    func(path string) bool
	skipDir  func(name string) bool
	logger   *zap.Logger
}

// New creates a Watcher
func New(run RunFunc, opts ...Option) *Watcher {
	w := &Watcher{
		run:      run,
		debounce: 200 * time.Millisecond,
		match:    func(string) bool { return true },
		skipDir:  func(string) bool { return false },
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run performs an initial sync, then syncs again on changes below roots
// until ctx is cancelled. A failing sync is logged and does not stop the
// watcher.
func (w *Watcher) Run(ctx context.Context, roots ...string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	for _, root := range roots {
		if err := w.addTree(fw, root); err != nil {
			return err
		}
	}

	w.sync(ctx)

	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	// debounce timer, armed by relevant events
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.handle(fw, ev) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-timer.C:
			w.sync(ctx)

		case <-tick:
			w.sync(ctx)
		}
	}
}

// handle reacts to one event and reports whether it should trigger a run
func (w *Watcher) handle(fw *fsnotify.Watcher, ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if w.skipDir(info.Name()) {
				return false
			}
			if err := w.addTree(fw, ev.Name); err != nil {
				w.logger.Warn("watching new directory", zap.String("dir", ev.Name), zap.Error(err))
			}
			return true
		}
	}
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return false
	}
	if !w.match(ev.Name) {
		return false
	}
	w.logger.Debug("change detected", zap.String("file", ev.Name), zap.Stringer("op", ev.Op))
	return true
}

// addTree watches dir and every directory below it
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path != dir {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	return nil
}

func (w *Watcher) sync(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := w.run(ctx); err != nil {
		w.logger.Error("sync failed", zap.Error(err))
	}
}
