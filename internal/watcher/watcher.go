// Package watcher observes the library directory and marks completed runs
// stale when files change underneath them.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// StaleMarker flags persisted runs whose library content changed.
type StaleMarker interface {
	MarkRunsStale(ctx context.Context, libraryPath string) (int, error)
}

// Watcher recursively watches a library path. Filesystem events are
// debounced so a burst of writes produces one staleness pass.
type Watcher struct {
	path     string
	debounce time.Duration
	marker   StaleMarker
	logger   *slog.Logger
}

// New creates a watcher over the given library path.
func New(path string, debounce time.Duration, marker StaleMarker, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		marker:   marker,
		logger:   logger,
	}
}

// Run watches until the context is canceled. Subdirectories are registered
// at startup and as they are created; fsnotify does not recurse on its own.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addRecursive(fsw, w.path); err != nil {
		return err
	}
	w.logger.Info("library watcher started", "path", w.path, "debounce", w.debounce)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.ignore(event) {
				continue
			}
			if event.Has(fsnotify.Create) {
				// New directories need their own watch.
				if err := w.addRecursive(fsw, event.Name); err != nil {
					w.logger.Warn("failed to watch new path", "path", event.Name, "error", err)
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)

		case <-fire:
			timer = nil
			fire = nil
			marked, err := w.marker.MarkRunsStale(ctx, w.path)
			if err != nil {
				w.logger.Error("failed to mark runs stale", "error", err)
				continue
			}
			if marked > 0 {
				w.logger.Info("library changed, runs marked stale", "runs", marked)
			}
		}
	}
}

// ignore filters events for hidden paths and pure chmod noise.
func (w *Watcher) ignore(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return true
	}
	base := filepath.Base(event.Name)
	return base != "." && strings.HasPrefix(base, ".")
}

// addRecursive registers path and every directory below it. Non-directory
// paths are ignored.
func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// The path may already be gone; watching is best effort.
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if name := filepath.Base(path); name != "." && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			w.logger.Warn("failed to add watch", "path", path, "error", err)
		}
		return nil
	})
}
