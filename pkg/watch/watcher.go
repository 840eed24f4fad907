// Package watch regenerates reports whenever the skeleton file
// changes on disk.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors a single skeleton file and triggers regeneration
// after changes settle.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	path      string
	debounce  time.Duration
	callback  func(path string)
	errs      func(err error)

	mu      sync.Mutex
	changed time.Time
	pending bool
}

// NewWatcher creates a watcher for the skeleton at path. The parent
// directory is watched rather than the file itself: editors and build
// tools replace files by rename, which would otherwise drop the watch.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		path:      abs,
		debounce:  debounce,
	}, nil
}

// SetCallback sets the function to call after the skeleton changed and
// the debounce period passed.
func (w *Watcher) SetCallback(cb func(path string)) {
	w.callback = cb
}

// SetErrorHandler sets the function invoked for watch errors. Without
// one, errors are dropped.
func (w *Watcher) SetErrorHandler(fn func(err error)) {
	w.errs = fn
}

// Start begins watching. It blocks until ctx is cancelled or the
// underlying watcher closes.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			if w.errs != nil {
				w.errs(err)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	abs, err := filepath.Abs(event.Name)
	if err != nil || abs != w.path {
		return
	}

	w.mu.Lock()
	w.changed = time.Now()
	w.pending = true
	w.mu.Unlock()
}

func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.firePending()
		}
	}
}

// firePending invokes the callback once the file has been stable for
// the debounce period. Changes arriving during a callback coalesce
// into one later run.
func (w *Watcher) firePending() {
	w.mu.Lock()
	ready := w.pending && time.Since(w.changed) >= w.debounce
	if ready {
		w.pending = false
	}
	w.mu.Unlock()

	if ready && w.callback != nil {
		w.callback(w.path)
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}
