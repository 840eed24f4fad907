package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestNewWatcherDefaultDebounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skeleton.xml")

	tests := []struct {
		name     string
		debounce time.Duration
		want     time.Duration
	}{
		{"zero debounce defaults", 0, 500 * time.Millisecond},
		{"negative debounce defaults", -time.Second, 500 * time.Millisecond},
		{"custom debounce kept", time.Second, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWatcher(path, tt.debounce)
			if err != nil {
				t.Fatalf("NewWatcher() error = %v", err)
			}
			defer w.Stop()

			if w.debounce != tt.want {
				t.Errorf("debounce = %v, want %v", w.debounce, tt.want)
			}
			if !filepath.IsAbs(w.path) {
				t.Errorf("path should be absolute, got %q", w.path)
			}
		})
	}
}

func TestHandleEventFiltersOtherFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "skeleton.xml")

	w, err := NewWatcher(target, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.handleEvent(fsnotify.Event{Name: filepath.Join(dir, "other.xml"), Op: fsnotify.Write})
	if w.pending {
		t.Error("a write to another file should not mark the watcher pending")
	}

	w.handleEvent(fsnotify.Event{Name: target, Op: fsnotify.Chmod})
	if w.pending {
		t.Error("a chmod should not mark the watcher pending")
	}

	w.handleEvent(fsnotify.Event{Name: target, Op: fsnotify.Write})
	if !w.pending {
		t.Error("a write to the target should mark the watcher pending")
	}
}

func TestFirePendingDebounces(t *testing.T) {
	target := filepath.Join(t.TempDir(), "skeleton.xml")

	w, err := NewWatcher(target, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	var calls atomic.Int32
	w.SetCallback(func(string) { calls.Add(1) })

	w.handleEvent(fsnotify.Event{Name: target, Op: fsnotify.Write})
	w.firePending()
	if calls.Load() != 0 {
		t.Error("callback should not fire before the debounce period")
	}

	time.Sleep(60 * time.Millisecond)
	w.firePending()
	if calls.Load() != 1 {
		t.Errorf("callback fired %d times, want 1", calls.Load())
	}

	// No further changes, no further calls.
	w.firePending()
	if calls.Load() != 1 {
		t.Errorf("callback fired %d times after settling, want 1", calls.Load())
	}
}

func TestStartTriggersOnWrite(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "skeleton.xml")
	if err := os.WriteFile(target, []byte("<skeleton/>"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(target, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	fired := make(chan string, 1)
	w.SetCallback(func(path string) {
		select {
		case fired <- path:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(target, []byte("<skeleton version=\"2\"/>"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-fired:
		if path != w.path {
			t.Errorf("callback path = %q, want %q", path, w.path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("callback did not fire after a write")
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	target := filepath.Join(t.TempDir(), "skeleton.xml")

	w, err := NewWatcher(target, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Start() = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}
