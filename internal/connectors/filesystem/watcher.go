// Package filesystem watches a directory tree and feeds its changes into
// the ingestion queue.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driving"
	"github.com/custodia-labs/tinyrag/internal/logger"
)

// DefaultDebounce is how long a path must stay quiet before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

type action int

const (
	actionNone action = iota
	actionIngest
	actionRetract
	actionWatchDir
)

// Watcher translates filesystem notifications under root into queue jobs.
// Creates and writes are debounced per path; removals and renames are
// submitted immediately and cancel any pending ingest of the same path.
type Watcher struct {
	root     string
	queue    driving.WatchQueue
	debounce time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	dirs    map[string]bool
	pending map[string]*time.Timer
}

// New creates a watcher for root. Nothing is watched until Watch is called.
func New(root string, queue driving.WatchQueue) *Watcher {
	return &Watcher{
		root:     filepath.Clean(root),
		queue:    queue,
		debounce: DefaultDebounce,
		dirs:     make(map[string]bool),
		pending:  make(map[string]*time.Timer),
	}
}

// SetDebounce overrides the quiet period. Zero submits ingests at once.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// Root returns the watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Watch registers the tree and relays events until ctx is cancelled.
// Pending debounced ingests are dropped on return.
func (w *Watcher) Watch(ctx context.Context) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("stat %s: %w", w.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, w.root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()
	defer w.cancelPending()

	if _, err := w.addTree(w.root); err != nil {
		return err
	}
	logger.Info("watch: %s (%d directories)", w.root, w.watchedDirs())

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.dispatch(ctx, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)
		}
	}
}

// classify maps one notification to the job it should produce.
func (w *Watcher) classify(event fsnotify.Event) action {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || isHidden(rel) {
		return actionNone
	}

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err != nil {
			return actionNone
		}
		if info.IsDir() {
			return actionWatchDir
		}
		return actionIngest
	case event.Has(fsnotify.Write):
		return actionIngest
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// A rename reports the old name; the new name arrives as a Create.
		return actionRetract
	}
	return actionNone
}

func (w *Watcher) dispatch(ctx context.Context, event fsnotify.Event) {
	switch w.classify(event) {
	case actionIngest:
		w.schedule(ctx, event.Name)
	case actionRetract:
		w.retract(ctx, event.Name)
	case actionWatchDir:
		files, err := w.addTree(event.Name)
		if err != nil {
			logger.Warn("watch: %v", err)
		}
		// Files written before the watch was attached produce no events.
		for _, f := range files {
			w.schedule(ctx, f)
		}
	}
}

// schedule (re)arms the debounce timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if err := w.queue.SubmitIngest(ctx, path); err != nil {
			logSubmitError("ingest", path, err)
		}
	})
}

func (w *Watcher) retract(ctx context.Context, path string) {
	w.mu.Lock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
	wasDir := w.dirs[path]
	if wasDir {
		for dir := range w.dirs {
			if dir == path || strings.HasPrefix(dir, path+string(filepath.Separator)) {
				delete(w.dirs, dir)
			}
		}
	}
	w.mu.Unlock()

	if wasDir {
		// Every record under the vanished directory goes with it.
		if err := w.queue.Reconcile(ctx, path); err != nil {
			logSubmitError("reconcile", path, err)
		}
		return
	}
	if err := w.queue.SubmitRetract(ctx, path); err != nil {
		logSubmitError("retract", path, err)
	}
}

// addTree watches dir and every non-hidden directory below it, returning
// the regular files found along the way.
func (w *Watcher) addTree(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			if d.Type().IsRegular() && !strings.HasPrefix(d.Name(), ".") {
				files = append(files, path)
			}
			return nil
		}
		if path != w.root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.addDir(path)
	})
	if err != nil {
		return files, fmt.Errorf("watch %s: %w", dir, err)
	}
	return files, nil
}

func (w *Watcher) addDir(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dirs[path] {
		return nil
	}
	if w.fsw != nil {
		if err := w.fsw.Add(path); err != nil {
			return err
		}
	}
	w.dirs[path] = true
	logger.Debug("watch: add %s", path)
	return nil
}

func (w *Watcher) watchedDirs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirs)
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func logSubmitError(kind, path string, err error) {
	if errors.Is(err, domain.ErrQueueClosed) || errors.Is(err, context.Canceled) {
		logger.Debug("watch: %s %s: %v", kind, path, err)
		return
	}
	logger.Error("watch: %s %s: %v", kind, path, err)
}
