package protocol

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"solace/internal/logging"
)

// Watcher hot-reloads the catalog when its file changes on disk. Editors
// save in bursts (write, rename, chmod), so events are debounced and the
// store reloads once per burst.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	store       *Store
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity for debugging.
type WatcherStats struct {
	EventsSeen      int
	ReloadsOK       int
	ReloadsRejected int
	Errors          int
	LastEventTime   time.Time
}

// NewWatcher creates a watcher for the store's catalog file.
func NewWatcher(store *Store) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		store:       store,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine.
// The parent directory is watched, not the file: editors replace files by
// rename and a file watch would go stale after the first save.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.store.Path())
	if err := w.watcher.Add(dir); err != nil {
		logging.ProtocolWarn("catalog watch failed for %s: %v", dir, err)
	} else {
		logging.Protocol("watching catalog directory: %s", dir)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to drain.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.ProtocolWarn("error closing catalog watcher: %v", err)
	}
	logging.Protocol("catalog watcher stopped")
}

// IsWatching reports whether the event loop is running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Stats returns a snapshot of watcher activity.
func (w *Watcher) Stats() WatcherStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.ProtocolWarn("catalog watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-debounceTicker.C:
			w.processDebouncedEvents()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.store.Path()) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	w.stats.EventsSeen++
	w.stats.LastEventTime = time.Now()
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processDebouncedEvents() {
	w.mu.Lock()
	now := time.Now()
	var settled bool
	for path, eventTime := range w.debounceMap {
		if now.Sub(eventTime) >= w.debounceDur {
			settled = true
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	if !settled {
		return
	}

	if err := w.store.Reload(); err != nil {
		logging.ProtocolWarn("catalog reload rejected, previous catalog stays active: %v", err)
		w.mu.Lock()
		w.stats.ReloadsRejected++
		w.mu.Unlock()
		return
	}
	w.mu.Lock()
	w.stats.ReloadsOK++
	w.mu.Unlock()
}
