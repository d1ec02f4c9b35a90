// Package watcher reports when the images in a reviewed folder change on
// disk, so the UI can offer a rescan.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/picsweep/pkg/picsweep/logging"
	"github.com/jamesainslie/picsweep/pkg/picsweep/pattern"
)

// DefaultDebounce is how long events must settle before a change is reported.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches one folder, non-recursively, for image changes.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	log      *logging.Logger

	mu     sync.Mutex
	dir    string
	closed bool
}

// New creates a watcher. A debounce of zero uses DefaultDebounce.
func New(debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		fsw:      fsw,
		debounce: debounce,
		log:      logging.Get("watcher"),
	}, nil
}

// Watch switches the watch to dir, dropping the previous folder.
func (w *Watcher) Watch(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || abs == w.dir {
		return nil
	}
	if w.dir != "" {
		_ = w.fsw.Remove(w.dir)
		w.dir = ""
	}
	if err := w.fsw.Add(abs); err != nil {
		w.log.Warn("failed to add watch", "path", abs, "error", err)
		return err
	}
	w.dir = abs
	w.log.Debug("watching folder", "path", abs)
	return nil
}

// Dir returns the watched folder, or "".
func (w *Watcher) Dir() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dir
}

// Run delivers debounced changes until ctx is cancelled or the watcher is
// closed. onChange receives the watched folder once per burst of events.
func (w *Watcher) Run(ctx context.Context, onChange func(dir string)) {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	pending := false
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			w.log.Debug("folder event", "path", event.Name, "op", event.Op.String())
			pending = true
			timer.Reset(w.debounce)

		case <-timer.C:
			if pending && onChange != nil {
				pending = false
				if dir := w.Dir(); dir != "" {
					onChange(dir)
				}
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

// relevant reports whether event may change the scan result. Chmod alone
// never does.
func relevant(event fsnotify.Event) bool {
	if !pattern.IsImageFile(filepath.Base(event.Name)) {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.dir = ""
	return w.fsw.Close()
}
