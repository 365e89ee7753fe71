package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"
)

// DefaultDebounceInterval is how long the watcher waits for further changes
// before reloading.
const DefaultDebounceInterval = 500 * time.Millisecond

// Watcher reloads a catalog when files in its tools or templates directory
// change. Bursts of changes cause a single reload.
type Watcher struct {
	mu sync.Mutex

	catalog  *Catalog
	interval time.Duration
	watcher  *fsnotify.Watcher
	timer    *time.Timer
	stopCh   chan struct{}
	running  bool
}

// NewWatcher creates a watcher for the directory of catalog.
func NewWatcher(catalog *Catalog, interval time.Duration) *Watcher {
	if interval == 0 {
		interval = DefaultDebounceInterval
	}
	return &Watcher{
		catalog:  catalog,
		interval: interval,
	}
}

// Start begins watching. It returns once the watches are in place.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	if w.catalog.Dir() == "" {
		return fmt.Errorf("catalog has no directory to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, sub := range []string{ToolsDir, TemplatesDir} {
		dir := filepath.Join(w.catalog.Dir(), sub)
		if err := os.MkdirAll(dir, 0755); err != nil {
			watcher.Close()
			return err
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return err
		}
		logging.Debug("CatalogWatcher", "Watching directory: %s", dir)
	}

	w.watcher = watcher
	w.stopCh = make(chan struct{})
	w.running = true
	go w.processEvents(ctx, watcher, w.stopCh)

	logging.Info("CatalogWatcher", "Started watching %s for catalog changes", w.catalog.Dir())
	return nil
}

func (w *Watcher) processEvents(ctx context.Context, watcher *fsnotify.Watcher, stopCh chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-stopCh:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isYAMLFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logging.Debug("CatalogWatcher", "Catalog file changed: %s (%s)", event.Name, event.Op)
			w.scheduleReload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error("CatalogWatcher", err, "Filesystem watcher error")
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.interval, func() {
		if err := w.catalog.Load(); err != nil {
			logging.Error("CatalogWatcher", err, "Failed to reload catalog")
		}
	})
}

// Stop ends watching. Pending reloads are dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	close(w.stopCh)
	if err := w.watcher.Close(); err != nil {
		logging.Debug("CatalogWatcher", "Error closing watcher: %v", err)
	}
	logging.Info("CatalogWatcher", "Stopped watching %s", w.catalog.Dir())
}

func isYAMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
