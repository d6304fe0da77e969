package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 2 * time.Second

// Watcher monitors a store drop directory and emits a debounced event when matching files appear.
// It only nudges the poller; the poll loop stays the source of truth.
type Watcher struct {
	watcher       *fsnotify.Watcher
	storeID       string
	watchPath     string
	match         func(name string) bool
	debounce      time.Duration
	debounceTimer *time.Timer
	debounceMutex sync.Mutex
	running       bool
	stopOnce      sync.Once
	stopChan      chan struct{}
	eventChan     chan<- FileEvent
	lastEvent     FileEventType
}

// NewWatcher creates a new file system watcher for one store.
// match filters file base names; nil accepts everything.
func NewWatcher(storeID string, match func(string) bool, debounce time.Duration, eventChan chan<- FileEvent) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if match == nil {
		match = func(string) bool { return true }
	}

	return &Watcher{
		watcher:   watcher,
		storeID:   storeID,
		match:     match,
		debounce:  debounce,
		eventChan: eventChan,
		stopChan:  make(chan struct{}),
	}, nil
}

// Start begins watching the drop directory for file changes
func (w *Watcher) Start(ctx context.Context, watchPath string) error {
	w.watchPath = watchPath
	slog.Debug("Watcher.Start: starting file watcher", "store_id", w.storeID, "path", watchPath)

	if err := w.watcher.Add(watchPath); err != nil {
		w.watcher.Close()
		return err
	}

	w.running = true
	go w.watchLoop(ctx)
	return nil
}

// Stop stops the file watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		slog.Debug("Watcher.Stop: stopping file watcher", "store_id", w.storeID)
		w.running = false
		close(w.stopChan)

		w.debounceMutex.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
			w.debounceTimer = nil
		}
		w.debounceMutex.Unlock()

		w.watcher.Close()
	})
}

func (w *Watcher) watchLoop(ctx context.Context) {
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
			slog.Warn("Watcher.watchLoop: file watcher error", "store_id", w.storeID, "error", err)

		case <-w.stopChan:
			return

		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	var kind FileEventType
	switch {
	case event.Has(fsnotify.Create):
		kind = FileCreated
	case event.Has(fsnotify.Write):
		kind = FileModified
	default:
		return
	}
	if !w.match(filepath.Base(event.Name)) {
		return
	}

	w.debounceMutex.Lock()
	defer w.debounceMutex.Unlock()

	select {
	case <-w.stopChan:
		return
	default:
	}

	w.lastEvent = kind
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, w.emitDebounceEvent)
}

// emitDebounceEvent emits a file event after debounce period
func (w *Watcher) emitDebounceEvent() {
	w.debounceMutex.Lock()
	kind := w.lastEvent
	w.debounceMutex.Unlock()

	event := FileEvent{
		StoreID:   w.storeID,
		Path:      w.watchPath,
		EventType: kind,
		Timestamp: time.Now(),
	}

	select {
	case <-w.stopChan:
	case w.eventChan <- event:
	default:
		// A nudge is already pending; the next tick picks everything up.
	}
}
