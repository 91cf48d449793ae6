// Package watcher watches the remote version subtrees and reports which
// version changed once its activity has settled.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/logging"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/types"
)

// Watcher watches version roots recursively and debounces their events.
type Watcher struct {
	watcher  *fsnotify.Watcher
	roots    map[string]types.VersionID // absolute root -> version
	order    []types.VersionID
	paths    map[string]bool
	mu       sync.RWMutex
	closed   bool
	debounce time.Duration
	log      *logging.Logger
}

// New creates a Watcher that reports a version once no event has been seen
// for it during debounce.
func New(debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		return nil, errors.New("debounce must be positive")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:  fsw,
		roots:    make(map[string]types.VersionID),
		paths:    make(map[string]bool),
		debounce: debounce,
		log:      logging.Get("watcher"),
	}, nil
}

// WatchVersion starts watching root and all its subdirectories as the
// subtree of version. Symlinks are not followed to avoid loops.
func (w *Watcher) WatchVersion(version types.VersionID, root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	info, err := os.Lstat(absRoot)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", absRoot)
	}

	w.mu.Lock()
	if _, ok := w.roots[absRoot]; !ok {
		w.order = append(w.order, version)
	}
	w.roots[absRoot] = version
	w.mu.Unlock()

	return w.addTree(absRoot)
}

// addTree adds a watch for dir and every directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Skip entries with errors
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			return w.addWatch(path)
		}
		return nil
	})
}

// addWatch adds a single directory to the watch list.
func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}

	if err := w.watcher.Add(path); err != nil {
		w.log.Warn("failed to add watch", "path", path, "error", err)
		return err
	}

	w.paths[path] = true
	return nil
}

// removeTree drops the watch on path and every watched directory below it.
func (w *Watcher) removeTree(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for p := range w.paths {
		if p == path || isSubPath(p, path) {
			_ = w.watcher.Remove(p)
			delete(w.paths, p)
		}
	}
}

// Unwatch stops watching a version root and all its subdirectories.
func (w *Watcher) Unwatch(root string) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	delete(w.roots, absRoot)
	w.mu.Unlock()

	w.removeTree(absRoot)
}

// VersionOf returns the version whose root contains path.
func (w *Watcher) VersionOf(path string) (types.VersionID, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for root, v := range w.roots {
		if path == root || isSubPath(path, root) {
			return v, true
		}
	}
	return "", false
}

// Run starts the event loop and blocks until ctx is cancelled. onChange is
// called from the Run goroutine, once per version whose subtree changed and
// then stayed quiet for the debounce interval. Versions that settle
// together are reported in the order they were watched.
func (w *Watcher) Run(ctx context.Context, onChange func(types.VersionID)) {
	pending := make(map[types.VersionID]time.Time)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	schedule := func() {
		var next time.Time
		for _, due := range pending {
			if next.IsZero() || due.Before(next) {
				next = due
			}
		}
		if !next.IsZero() {
			timer.Reset(max(time.Until(next), 0))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if v, ok := w.handleEvent(event); ok {
				w.log.Debug("remote change", "version", v, "path", event.Name, "op", event.Op.String())
				pending[v] = time.Now().Add(w.debounce)
				schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", "error", err)

		case <-timer.C:
			now := time.Now()
			for _, v := range w.versions() {
				due, ok := pending[v]
				if !ok || due.After(now) {
					continue
				}
				delete(pending, v)
				if ctx.Err() != nil {
					return
				}
				onChange(v)
			}
			schedule()
		}
	}
}

func (w *Watcher) versions() []types.VersionID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]types.VersionID(nil), w.order...)
}

// handleEvent keeps the watch list in step with directory changes and
// returns the version the event belongs to.
func (w *Watcher) handleEvent(event fsnotify.Event) (types.VersionID, bool) {
	if event.Op == fsnotify.Chmod {
		return "", false
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		info, err := os.Lstat(event.Name)
		if err == nil && info.IsDir() && info.Mode()&fs.ModeSymlink == 0 {
			_ = w.addTree(event.Name)
		}
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// A rename is seen as a remove; the new name arrives as a create.
		w.removeTree(event.Name)
	}

	return w.VersionOf(event.Name)
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	w.paths = make(map[string]bool)
	return w.watcher.Close()
}

// isSubPath checks if path is under parent directory.
func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}
