package watching

import (
	"context"

	"github.com/contre95/posxchange/src/exchange"
	"github.com/contre95/posxchange/src/features/importing"
	"github.com/contre95/posxchange/src/infra/files"
)

// resolveContext picks the explicit context, then the registered one, then the fallback.
func (s *Service) resolveContext(storeID string, explicit *exchange.StoreContext) exchange.StoreContext {
	if explicit != nil {
		sc := *explicit
		if sc.StoreID == "" {
			sc.StoreID = storeID
		}
		return sc
	}
	if _, _, sc, ok := s.registered(storeID); ok {
		return sc
	}
	s.logger.Debug("Service.resolveContext: store not registered, using fallback context", "store_id", storeID)
	return exchange.FallbackContext(storeID)
}

// QueueManualImport processes one file for the store outside of the poll loop.
// It uses the registered archive directories of the store when there are any.
func (s *Service) QueueManualImport(ctx context.Context, storeID, path string, typeHint exchange.DocumentType, sc *exchange.StoreContext) (exchange.ProcessingResult, error) {
	clean, err := files.ValidatePath(path)
	if err != nil {
		return exchange.ProcessingResult{}, err
	}
	resolved := s.resolveContext(storeID, sc)

	var dirs importing.Dirs
	if cfg, ok, _, _ := s.registered(storeID); ok {
		dirs = importing.Dirs{ProcessedPath: cfg.ProcessedPath, ErrorPath: cfg.ErrorPath}
	}

	s.logger.Info("Service.QueueManualImport: importing file", "store_id", storeID, "path", clean, "type_hint", typeHint)
	result, err := s.safeProcess(ctx, importing.Request{
		Path:     clean,
		Context:  resolved,
		Dirs:     dirs,
		TypeHint: typeHint,
	})
	if err != nil {
		s.bus.Publish(Event{Type: EventFileError, StoreID: storeID, Path: clean, Err: err, Manual: true})
		return exchange.ProcessingResult{}, err
	}
	s.bus.Publish(Event{Type: EventFileProcessed, StoreID: storeID, Path: clean, Result: &result, Manual: true})
	return result, nil
}

// ProcessFile processes one file for the store with its registered context.
func (s *Service) ProcessFile(ctx context.Context, storeID, path string) (exchange.ProcessingResult, error) {
	return s.QueueManualImport(ctx, storeID, path, "", nil)
}

// ProcessContent imports submitted content. It never touches the filesystem or the session dedup set;
// the durable duplicate check still applies.
func (s *Service) ProcessContent(ctx context.Context, content []byte, fileName string, sc exchange.StoreContext) (exchange.ProcessingResult, error) {
	result, err := s.safeProcess(ctx, importing.Request{
		Content:  content,
		FileName: fileName,
		Context:  sc,
	})
	if err != nil {
		s.bus.Publish(Event{Type: EventFileError, StoreID: sc.StoreID, Path: fileName, Err: err, Manual: true})
		return exchange.ProcessingResult{}, err
	}
	s.bus.Publish(Event{Type: EventFileProcessed, StoreID: sc.StoreID, Path: fileName, Result: &result, Manual: true})
	return result, nil
}
