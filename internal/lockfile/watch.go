package lockfile

import (
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// removalWatcher signals when the lock file disappears so waiters can retry
// before their poll timer fires. A nil watcher never signals.
type removalWatcher struct {
	w       *fsnotify.Watcher
	removed chan struct{}
	done    chan struct{}
}

func watchRemoval(path string, logger *slog.Logger) *removalWatcher {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Debug("lock: watcher unavailable", slog.String("error", err.Error()))
		return nil
	}
	// Watch the directory: the file itself is about to be deleted.
	if err := w.Add(filepath.Dir(path)); err != nil {
		logger.Debug("lock: watcher unavailable", slog.String("error", err.Error()))
		w.Close()
		return nil
	}

	rw := &removalWatcher{
		w:       w,
		removed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	target := filepath.Clean(path)
	go func() {
		defer close(rw.done)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					select {
					case rw.removed <- struct{}{}:
					default:
					}
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return rw
}

// Removed returns a channel that receives after the lock file is removed.
func (rw *removalWatcher) Removed() <-chan struct{} {
	if rw == nil {
		return nil
	}
	return rw.removed
}

func (rw *removalWatcher) Close() {
	if rw == nil {
		return
	}
	rw.w.Close()
	<-rw.done
}
