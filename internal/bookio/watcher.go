package bookio

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-metrics"
	"go.uber.org/zap"

	"github.com/scoobiii/HVMx/internal/core"
)

// Watcher hot-reloads a book file into a live book when the file changes.
// Rapid saves are debounced; a reload that fails to parse keeps the previous
// definitions.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	book        *core.Book
	path        string
	log         *zap.Logger
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity for debugging.
type WatcherStats struct {
	Reloads       int
	Errors        int
	LastEventTime time.Time
}

// NewWatcher creates a watcher that reloads path into bk. The watch starts
// on Start.
func NewWatcher(path string, bk *core.Book, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		watcher:     fw,
		book:        bk,
		path:        filepath.Clean(path),
		log:         log,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start loads the file once and begins watching its directory. Non-blocking;
// the event loop runs in a goroutine until Stop or ctx cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.reload(); err != nil {
		w.abortStart()
		return err
	}

	// Editors replace files by rename, so the directory is watched and
	// events are filtered down to the book file.
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.abortStart()
		return err
	}
	w.log.Info("watching book file", zap.String("path", w.path))

	go w.run(ctx)
	return nil
}

// abortStart unwinds a failed Start: the event loop never ran, so the
// underlying watcher is closed here rather than in Stop.
func (w *Watcher) abortStart() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	if err := w.watcher.Close(); err != nil {
		w.log.Error("closing book watcher", zap.Error(err))
	}
}

// Stop halts the watcher and waits for the event loop to exit.
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
		w.log.Error("closing book watcher", zap.Error(err))
	}
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
			w.log.Error("book watcher error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-debounceTicker.C:
			w.processDebounced()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	w.log.Debug("book file event", zap.String("op", event.Op.String()))

	w.mu.Lock()
	w.stats.LastEventTime = time.Now()
	w.debounceMap[w.path] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processDebounced() {
	w.mu.Lock()
	now := time.Now()
	fire := false
	if at, ok := w.debounceMap[w.path]; ok && now.Sub(at) >= w.debounceDur {
		delete(w.debounceMap, w.path)
		fire = true
	}
	w.mu.Unlock()

	if !fire {
		return
	}
	if err := w.reload(); err != nil {
		w.log.Error("book reload failed, keeping previous definitions",
			zap.String("path", w.path), zap.Error(err))
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
	}
}

func (w *Watcher) reload() error {
	if _, err := os.Stat(w.path); err != nil {
		return err
	}
	if err := LoadInto(w.book, w.path); err != nil {
		return err
	}
	w.mu.Lock()
	w.stats.Reloads++
	w.mu.Unlock()
	metrics.IncrCounter(core.MetricBookReloads, 1)
	w.log.Info("book reloaded",
		zap.String("path", w.path), zap.Int("defs", w.book.Len()))
	return nil
}

// Stats returns a copy of the watcher statistics.
func (w *Watcher) Stats() WatcherStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// IsWatching reports whether the event loop is running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}
