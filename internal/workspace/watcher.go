package workspace

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/databrowser/internal/storage"
)

// EventCallback is called after a watcher-driven load or unload.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

const reconcileDelay = 200 * time.Millisecond

// Watch follows the data directory rooted at root until ctx is cancelled.
// Written files are reloaded, removed files are unloaded, and new
// directories are added to the watch list. Renames trigger a debounced Sync
// that picks up the new name.
func (w *Workspace) Watch(ctx context.Context, root string, cb EventCallback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, root); err != nil {
		return err
	}

	w.logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	emit := func(kind, rel string) {
		if cb != nil {
			cb(kind, rel)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if err := w.Sync(ctx); err != nil {
				w.logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(fw, ev.Name); addErr != nil {
						w.logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name), slog.String("error", addErr.Error()))
					}
					w.loadDir(ctx, root, ev.Name, emit)
					continue
				}
			}

			if !storage.IsContainerFile(ev.Name) || isHidden(ev.Name) {
				continue
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if loadErr := w.Load(ctx, rel); loadErr != nil {
					w.logger.Warn("watcher: load failed", slog.String("path", rel), slog.String("error", loadErr.Error()))
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				w.logger.Debug("watcher: loaded", slog.String("path", rel), slog.String("op", kind))
				emit(kind, rel)

			case ev.Op&fsnotify.Remove != 0:
				if unloadErr := w.Unload(ctx, rel); unloadErr != nil {
					w.logger.Warn("watcher: unload failed", slog.String("path", rel), slog.String("error", unloadErr.Error()))
					continue
				}
				emit("deleted", rel)

			case ev.Op&fsnotify.Rename != 0:
				// Rename fires on the old name only; the new name arrives as
				// a Create if it stays under a watched directory.
				if unloadErr := w.Unload(ctx, rel); unloadErr == nil {
					emit("deleted", rel)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// loadDir loads the container files found in a newly created directory.
func (w *Workspace) loadDir(ctx context.Context, root, dir string, emit func(kind, rel string)) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !storage.IsContainerFile(path) || isHidden(path) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if loadErr := w.Load(ctx, rel); loadErr == nil {
			emit("created", rel)
		}
		return nil
	})
}

func isHidden(path string) bool {
	name := filepath.Base(path)
	return len(name) > 0 && name[0] == '.'
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
