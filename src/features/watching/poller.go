package watching

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/contre95/posxchange/src/exchange"
	"github.com/contre95/posxchange/src/features/importing"
)

// poll runs one tick for the store. Per-file failures never escape it.
func (s *Service) poll(h *handle) {
	storeID := h.cfg.StoreID
	logger := s.logger.With("store_id", storeID)

	matched, err := s.list(h)
	now := s.now()
	s.mu.Lock()
	h.status.LastPollAt = &now
	s.mu.Unlock()
	if err != nil {
		logger.Error("Service.poll: failed to list watch directory", "path", h.cfg.WatchPath, "error", err)
		return
	}

	s.bus.Publish(Event{Type: EventPollCompleted, StoreID: storeID, Path: h.cfg.WatchPath, FilesFound: len(matched)})

	for _, path := range matched {
		if h.ctx.Err() != nil {
			logger.Debug("Service.poll: watcher stopped, leaving remaining files for the next run", "remaining", len(matched))
			return
		}
		s.handleFile(h, path)
	}
}

// list returns the regular files of the watch directory whose names match the store patterns.
func (s *Service) list(h *handle) ([]string, error) {
	entries, err := os.ReadDir(h.cfg.WatchPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", exchange.ErrFileNotFound, h.cfg.WatchPath)
		}
		return nil, err
	}
	matched := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if h.matcher.Match(e.Name()) {
			matched = append(matched, filepath.Join(h.cfg.WatchPath, e.Name()))
		}
	}
	return matched, nil
}

func (s *Service) handleFile(h *handle, path string) {
	storeID := h.cfg.StoreID
	logger := s.logger.With("store_id", storeID, "path", path)

	content, err := os.ReadFile(path)
	if err != nil {
		// Moved away or unreadable between listing and reading.
		s.fileFailed(h, path, fmt.Errorf("%w: reading %s: %v", exchange.ErrProcessing, path, err))
		return
	}
	hash := exchange.HashContent(content)
	if h.dedup.Contains(hash) {
		logger.Debug("Service.handleFile: already seen this session", "hash", hash)
		return
	}

	s.bus.Publish(Event{Type: EventFileDetected, StoreID: storeID, Path: path})

	// Stopping the watcher must not interrupt a document half way through.
	ctx := context.WithoutCancel(h.ctx)
	result, err := s.safeProcess(ctx, importing.Request{
		Path:    path,
		Context: h.sc,
		Dirs:    importing.Dirs{ProcessedPath: h.cfg.ProcessedPath, ErrorPath: h.cfg.ErrorPath},
	})
	if err != nil {
		s.fileFailed(h, path, err)
		return
	}

	if result.FileHash == "" {
		result.FileHash = hash
	}
	h.dedup.Add(result.FileHash, struct{}{})

	s.mu.Lock()
	if result.Status == exchange.StatusFailed {
		h.status.FilesErrored++
	} else {
		h.status.FilesProcessed++
	}
	s.mu.Unlock()

	s.bus.Publish(Event{Type: EventFileProcessed, StoreID: storeID, Path: path, Result: &result})
}

// fileFailed counts a file that never produced a processing result.
func (s *Service) fileFailed(h *handle, path string, err error) {
	s.logger.Error("Service.handleFile: file failed", "store_id", h.cfg.StoreID, "path", path, "error", err)
	s.mu.Lock()
	h.status.FilesErrored++
	s.mu.Unlock()
	s.bus.Publish(Event{Type: EventFileError, StoreID: h.cfg.StoreID, Path: path, Err: err})
}

// safeProcess turns a processor panic into an error.
func (s *Service) safeProcess(ctx context.Context, req importing.Request) (result exchange.ProcessingResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic while processing %s: %v", exchange.ErrProcessing, req.Path, r)
		}
	}()
	return s.processor.Process(ctx, req), nil
}
