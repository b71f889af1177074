// pattern: Imperative Shell

package syncer

import (
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"benchup/internal/logging"
)

// skipDirs are never watched; they churn constantly and are excluded
// from the mirror anyway.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"tmp":          true,
}

// Watcher re-syncs a folder whenever its local side changes. Change
// bursts are debounced into one sync.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   *logging.Logger
}

// NewWatcher creates a filesystem watcher with the given debounce window.
func NewWatcher(debounce time.Duration, logger *logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{fsw: fsw, debounce: debounce, logger: logger}, nil
}

// Add registers a directory tree for watching, skipping noisy subtrees.
func (w *Watcher) Add(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree: watch what we can
		}
		if !d.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if skipDirs[base] || (strings.HasPrefix(base, ".") && path != root) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Run delivers debounced change notifications to onBatch until done is
// closed. New directories are added to the watch as they appear.
func (w *Watcher) Run(done <-chan struct{}, onBatch func()) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				// Best effort: a failed add just means we miss events
				// under the new directory until the next full sync.
				_ = w.Add(event.Name)
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)

		case <-timerC:
			timer = nil
			timerC = nil
			onBatch()
		}
	}
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
