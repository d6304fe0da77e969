// Package watching runs one polling watcher per store and exposes the registry that controls them.
package watching

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/contre95/posxchange/src/exchange"
	"github.com/contre95/posxchange/src/features/importing"
	"github.com/contre95/posxchange/src/infra/files"
	"github.com/contre95/posxchange/src/infra/watcher"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultDedupCacheSize bounds the session dedup set when Options leaves it unset.
const DefaultDedupCacheSize = 4096

// Processor runs a document through the import pipeline.
type Processor interface {
	Process(ctx context.Context, req importing.Request) exchange.ProcessingResult
}

// Options tune the registry.
type Options struct {
	// DedupCacheSize bounds the per-store set of hashes seen this session.
	DedupCacheSize int
	// FSNotify enables an early poll when files appear in a watch directory.
	FSNotify bool
	// Debounce is the quiet period before an fsnotify event triggers a poll.
	Debounce time.Duration
}

// handle is the running state of one store watcher. The loop only reads the
// copies held here, so UpdateConfig and SetContext never affect a running watcher.
type handle struct {
	cfg     exchange.WatcherConfig
	sc      exchange.StoreContext
	matcher *files.Matcher
	dedup   *lru.Cache[string, struct{}]
	status  *exchange.WatcherStatus
	cancel  context.CancelFunc
	ctx     context.Context
	nudges  chan watcher.FileEvent
	nudger  *watcher.Watcher
	done    chan struct{}
}

// Service is the watcher registry.
type Service struct {
	processor Processor
	bus       *EventBus
	logger    *slog.Logger
	opts      Options
	now       func() time.Time

	mu       sync.RWMutex
	configs  map[string]exchange.WatcherConfig
	contexts map[string]exchange.StoreContext
	statuses map[string]*exchange.WatcherStatus
	handles  map[string]*handle
	loops    sync.WaitGroup
}

// NewService creates a new watcher registry.
func NewService(processor Processor, bus *EventBus, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if bus == nil {
		bus = NewEventBus(logger)
	}
	if opts.DedupCacheSize <= 0 {
		opts.DedupCacheSize = DefaultDedupCacheSize
	}
	return &Service{
		processor: processor,
		bus:       bus,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
		configs:   make(map[string]exchange.WatcherConfig),
		contexts:  make(map[string]exchange.StoreContext),
		statuses:  make(map[string]*exchange.WatcherStatus),
		handles:   make(map[string]*handle),
	}
}

// Events returns the bus the registry publishes to.
func (s *Service) Events() *EventBus {
	return s.bus
}

// StartWatching registers and starts a watcher for cfg.StoreID. It returns after the first poll.
func (s *Service) StartWatching(ctx context.Context, cfg exchange.WatcherConfig, sc exchange.StoreContext) error {
	if s.IsWatchingStore(cfg.StoreID) {
		return fmt.Errorf("%w: store %s", exchange.ErrWatcherAlreadyRunning, cfg.StoreID)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	watchPath, err := files.ValidatePath(cfg.WatchPath)
	if err != nil {
		return err
	}
	cfg.WatchPath = watchPath
	for _, dir := range []string{cfg.ProcessedPath, cfg.ErrorPath} {
		if dir == "" {
			continue
		}
		if err := files.EnsureDirectoryExists(dir); err != nil {
			return err
		}
	}
	matcher, err := files.NewMatcher(cfg.Patterns())
	if err != nil {
		return fmt.Errorf("%w: %v", exchange.ErrInvalidPath, err)
	}
	dedup, err := lru.New[string, struct{}](s.opts.DedupCacheSize)
	if err != nil {
		return fmt.Errorf("failed to create dedup cache: %w", err)
	}
	if sc.StoreID == "" {
		sc.StoreID = cfg.StoreID
	}

	startedAt := s.now()
	loopCtx, cancel := context.WithCancel(context.Background())
	h := &handle{
		cfg:     cfg,
		sc:      sc,
		matcher: matcher,
		dedup:   dedup,
		status: &exchange.WatcherStatus{
			StoreID:       cfg.StoreID,
			IsRunning:     true,
			WatchPath:     cfg.WatchPath,
			ProcessedPath: cfg.ProcessedPath,
			ErrorPath:     cfg.ErrorPath,
			StartedAt:     &startedAt,
		},
		cancel: cancel,
		ctx:    loopCtx,
		nudges: make(chan watcher.FileEvent, 1),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	if _, running := s.handles[cfg.StoreID]; running {
		s.mu.Unlock()
		cancel()
		return fmt.Errorf("%w: store %s", exchange.ErrWatcherAlreadyRunning, cfg.StoreID)
	}
	s.configs[cfg.StoreID] = cfg
	s.contexts[cfg.StoreID] = sc
	s.statuses[cfg.StoreID] = h.status
	s.handles[cfg.StoreID] = h
	s.loops.Add(1)
	s.mu.Unlock()

	if s.opts.FSNotify {
		s.startNudger(h)
	}

	s.logger.Info("Service.StartWatching: watcher started", "store_id", cfg.StoreID, "path", cfg.WatchPath, "interval", cfg.PollInterval(), "patterns", cfg.Patterns())
	s.bus.Publish(Event{Type: EventWatcherStarted, StoreID: cfg.StoreID, Path: cfg.WatchPath})

	ready := make(chan struct{})
	go s.loop(h, ready)
	select {
	case <-ready:
	case <-ctx.Done():
	}
	return nil
}

func (s *Service) startNudger(h *handle) {
	w, err := watcher.NewWatcher(h.cfg.StoreID, h.matcher.Match, s.opts.Debounce, h.nudges)
	if err != nil {
		s.logger.Warn("Service.startNudger: fsnotify unavailable, polling only", "store_id", h.cfg.StoreID, "error", err)
		return
	}
	if err := w.Start(h.ctx, h.cfg.WatchPath); err != nil {
		s.logger.Warn("Service.startNudger: failed to watch directory, polling only", "store_id", h.cfg.StoreID, "error", err)
		return
	}
	s.mu.Lock()
	h.nudger = w
	s.mu.Unlock()
	if h.ctx.Err() != nil {
		w.Stop()
	}
}

// loop runs the first poll, signals ready and then polls on every tick or nudge.
// Polls of one store never overlap since they all run on this goroutine.
func (s *Service) loop(h *handle, ready chan<- struct{}) {
	defer s.loops.Done()
	defer close(h.done)

	s.poll(h)
	close(ready)

	ticker := time.NewTicker(h.cfg.PollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			s.poll(h)
		case ev := <-h.nudges:
			s.logger.Debug("Service.loop: early poll requested", "store_id", ev.StoreID, "event", ev.EventType)
			s.poll(h)
		}
	}
}

// StopWatching stops future polls of the store. A file being processed is finished.
func (s *Service) StopWatching(storeID string) error {
	s.mu.Lock()
	h, ok := s.handles[storeID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: store %s", exchange.ErrWatcherNotFound, storeID)
	}
	delete(s.handles, storeID)
	delete(s.configs, storeID)
	delete(s.contexts, storeID)
	h.status.IsRunning = false
	nudger := h.nudger
	s.mu.Unlock()

	h.cancel()
	if nudger != nil {
		nudger.Stop()
	}

	s.logger.Info("Service.StopWatching: watcher stopped", "store_id", storeID)
	s.bus.Publish(Event{Type: EventWatcherStopped, StoreID: storeID})
	return nil
}

// StopAll stops every running watcher.
func (s *Service) StopAll() {
	s.mu.RLock()
	ids := make([]string, 0, len(s.handles))
	for id := range s.handles {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		if err := s.StopWatching(id); err != nil {
			s.logger.Debug("Service.StopAll: watcher already stopped", "store_id", id)
		}
	}
}

// Shutdown stops every watcher and waits for in-flight polls to finish or ctx to expire.
func (s *Service) Shutdown(ctx context.Context) error {
	s.StopAll()
	done := make(chan struct{})
	go func() {
		s.loops.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RestartWatcher stops the store watcher if running and starts it with the stored config and context.
func (s *Service) RestartWatcher(ctx context.Context, storeID string) error {
	s.mu.RLock()
	cfg, hasCfg := s.configs[storeID]
	sc, hasCtx := s.contexts[storeID]
	old, running := s.handles[storeID]
	s.mu.RUnlock()
	if !hasCfg || !hasCtx {
		return fmt.Errorf("%w: no stored config and context for store %s", exchange.ErrWatcherNotFound, storeID)
	}

	if running {
		if err := s.StopWatching(storeID); err != nil {
			return err
		}
		// The old loop finishes its in-flight file before the new one may poll.
		select {
		case <-old.done:
		case <-ctx.Done():
			// Keep the store restartable once the old loop has drained.
			s.mu.Lock()
			s.configs[storeID] = cfg
			s.contexts[storeID] = sc
			s.mu.Unlock()
			return ctx.Err()
		}
	}
	return s.StartWatching(ctx, cfg, sc)
}

// GetStatus returns a snapshot of the store watcher status.
func (s *Service) GetStatus(storeID string) (exchange.WatcherStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statuses[storeID]
	if !ok {
		return exchange.WatcherStatus{}, false
	}
	return *st, true
}

// GetAllStatuses returns snapshots of every known watcher ordered by store id.
func (s *Service) GetAllStatuses() []exchange.WatcherStatus {
	s.mu.RLock()
	out := make([]exchange.WatcherStatus, 0, len(s.statuses))
	for _, st := range s.statuses {
		out = append(out, *st)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StoreID < out[j].StoreID })
	return out
}

// IsWatchingStore reports whether a watcher for the store is running.
func (s *Service) IsWatchingStore(storeID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.handles[storeID]
	return ok
}

// UpdateConfig replaces the stored config used by the next restart.
func (s *Service) UpdateConfig(cfg exchange.WatcherConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.StoreID] = cfg
	return nil
}

// SetContext replaces the stored context of the store. Last write wins.
func (s *Service) SetContext(sc exchange.StoreContext) error {
	if sc.StoreID == "" {
		return fmt.Errorf("%w: store context without store id", exchange.ErrInvalidPath)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[sc.StoreID] = sc
	return nil
}

// registered returns the stored config and context of the store.
func (s *Service) registered(storeID string) (exchange.WatcherConfig, bool, exchange.StoreContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, hasCfg := s.configs[storeID]
	sc, hasCtx := s.contexts[storeID]
	return cfg, hasCfg, sc, hasCtx
}
