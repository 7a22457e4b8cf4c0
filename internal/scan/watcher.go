package scan

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the pattern directory and triggers hot reload on changes.
type Watcher struct {
	analyzer *Analyzer
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	wg       sync.WaitGroup

	// Debounce rapid file changes
	debounce     time.Duration
	pendingTimer *time.Timer
	timerMu      sync.Mutex
}

// NewWatcher creates a pattern-directory watcher for the analyzer.
func NewWatcher(analyzer *Analyzer) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		analyzer: analyzer,
		watcher:  fsWatcher,
		stopChan: make(chan struct{}),
		debounce: 500 * time.Millisecond,
	}, nil
}

// Start begins watching the pattern directory.
func (w *Watcher) Start() error {
	dir := w.analyzer.Loader().UserDir()
	if dir == "" {
		log.Warn("No pattern directory configured, watcher not started")
		return nil
	}

	if err := w.watcher.Add(dir); err != nil {
		// Directory might not exist yet
		log.Warn("Cannot watch pattern directory (may not exist yet): %v", err)
		return nil
	}

	w.wg.Add(1)
	go w.run()

	log.Info("Watching pattern directory: %s", dir)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.stopChan)
	w.wg.Wait()

	w.timerMu.Lock()
	if w.pendingTimer != nil {
		w.pendingTimer.Stop()
	}
	w.timerMu.Unlock()

	return w.watcher.Close()
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("Watcher error: %v", err)

		case <-w.stopChan:
			return
		}
	}
}

// handleEvent debounces bursts of filesystem events into a single reload.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(filepath.Ext(event.Name), ".yaml") {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.pendingTimer != nil {
		w.pendingTimer.Stop()
	}
	w.pendingTimer = time.AfterFunc(w.debounce, func() {
		if err := w.analyzer.Reload(); err != nil {
			log.Warn("Pattern reload failed: %v", err)
			return
		}
		d, c := w.analyzer.PatternCounts()
		log.Info("Patterns reloaded (%d destructive, %d capability)", d, c)
	})
}
