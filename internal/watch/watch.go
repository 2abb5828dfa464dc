package watch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"media-variants/internal/cachepath"
	"media-variants/internal/logging"
	"media-variants/internal/mediatypes"
	"media-variants/internal/metrics"

	"github.com/fsnotify/fsnotify"
)

// PrefixDeleter is a lookup cache keyed by absolute source path.
type PrefixDeleter interface {
	DeletePrefix(prefix string) int
}

// Watcher removes an asset's derivatives after its source is written,
// replaced or removed.
type Watcher struct {
	paths  *cachepath.Resolver
	caches []PrefixDeleter
	fs     *fsnotify.Watcher

	mu      sync.Mutex
	watched map[string]bool
	started bool
	closed  bool

	done chan struct{}
}

// New creates a Watcher. Lookup caches whose keys start with the absolute
// source path followed by "|" are purged alongside the files.
func New(paths *cachepath.Resolver, caches ...PrefixDeleter) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatcherErrors.Inc()
		return nil, err
	}
	return &Watcher{
		paths:   paths,
		caches:  caches,
		fs:      fw,
		watched: make(map[string]bool),
		done:    make(chan struct{}),
	}, nil
}

// Start processes events until Close is called.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.closed {
		return
	}
	w.started = true
	go w.processEvents()
}

// WatchAsset adds the folder containing rel. It is safe to call repeatedly.
func (w *Watcher) WatchAsset(rel string) {
	abs, err := w.paths.Abs(rel)
	if err != nil {
		return
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.watched[dir] {
		return
	}
	if err := w.fs.Add(dir); err != nil {
		logging.Warn("failed to add path to watcher %s: %v", dir, err)
		metrics.WatcherErrors.Inc()
		return
	}
	w.watched[dir] = true
	metrics.WatchedDirectories.Inc()
	logging.Debug("Watching %s for source changes", dir)
}

// Watched returns the number of watched folders.
func (w *Watcher) Watched() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watched)
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	n := len(w.watched)
	started := w.started
	w.mu.Unlock()

	err := w.fs.Close()
	if started {
		<-w.done
	}
	metrics.WatchedDirectories.Sub(float64(n))
	return err
}

func (w *Watcher) processEvents() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatcherErrors.Inc()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if cachepath.IsHidden(name) || strings.HasPrefix(name, ".") {
		return
	}
	if strings.Contains(filepath.ToSlash(event.Name), "/"+cachepath.HiddenDir+"/") {
		return
	}

	eventType := getEventType(event.Op)
	metrics.WatcherEventsTotal.WithLabelValues(eventType).Inc()

	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}
	if mediatypes.KindOf(mediatypes.Ext(name)) == mediatypes.KindOther {
		return
	}
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			return
		}
	}
	w.invalidate(event.Name)
}

func (w *Watcher) invalidate(absPath string) {
	rel, err := filepath.Rel(w.paths.Root(), absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	removed, err := w.paths.Invalidate(rel)
	if err != nil {
		logging.Warn("Invalidating derivatives of %s: %v", rel, err)
	}
	for _, c := range w.caches {
		c.DeletePrefix(absPath + "|")
	}
	if removed > 0 {
		metrics.CacheInvalidations.Add(float64(removed))
		logging.Info("Source %s changed, removed %d cached derivative(s)", rel, removed)
	}
}

// getEventType returns a string representation of the fsnotify operation
func getEventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}
