package watching

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/contre95/posxchange/src/exchange"
	"github.com/contre95/posxchange/src/features/jobs"
	"github.com/contre95/posxchange/src/infra/files"
)

const ManualImportJobType = "manual_import"

// ImportStats summarises a manual import job.
type ImportStats struct {
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Records   int `json:"records"`
}

// ManualImportTask implements jobs.Task for manual imports of a file or a directory.
type ManualImportTask struct {
	service *Service
}

// NewManualImportTask creates a new ManualImportTask.
func NewManualImportTask(service *Service) *ManualImportTask {
	return &ManualImportTask{service: service}
}

// MetadataKeys returns the required metadata keys for a manual import job.
func (t *ManualImportTask) MetadataKeys() []string {
	return []string{"store_id", "path"}
}

// Execute imports the path. Directories are imported file by file using the store patterns.
func (t *ManualImportTask) Execute(ctx context.Context, job *jobs.Job, progressUpdater func(int, string)) (map[string]any, error) {
	storeID, _ := job.Metadata["store_id"].(string)
	path, _ := job.Metadata["path"].(string)
	hint, _ := job.Metadata["type_hint"].(string)
	var sc *exchange.StoreContext
	if v, ok := job.Metadata["context"].(exchange.StoreContext); ok {
		sc = &v
	}
	var typeHint exchange.DocumentType
	if hint != "" {
		dt, ok := exchange.ParseDocumentType(hint)
		if !ok {
			return nil, fmt.Errorf("unknown document type hint %q", hint)
		}
		typeHint = dt
	}

	targets, err := t.targets(storeID, path)
	if err != nil {
		return nil, err
	}

	var stats ImportStats
	results := make([]exchange.ProcessingResult, 0, len(targets))
	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			return map[string]any{"stats": stats, "results": results}, err
		}
		progressUpdater(i*100/len(targets), "Importing "+filepath.Base(target))

		res, err := t.service.QueueManualImport(ctx, storeID, target, typeHint, sc)
		if err != nil {
			job.Logger.Error("ManualImportTask.Execute: import failed", "path", target, "error", err)
			stats.Failed++
			continue
		}
		job.Logger.Info("ManualImportTask.Execute: file imported", "path", target, "status", res.Status, "records", res.RecordCount)
		results = append(results, res)
		switch res.Status {
		case exchange.StatusSuccess:
			stats.Succeeded++
			stats.Records += res.RecordCount
		case exchange.StatusSkipped:
			stats.Skipped++
		default:
			stats.Failed++
		}
	}

	msg := fmt.Sprintf("Manual import finished. %d succeeded, %d skipped, %d failed, %d records.", stats.Succeeded, stats.Skipped, stats.Failed, stats.Records)
	out := map[string]any{"stats": stats, "results": results, "msg": msg}
	switch {
	case stats.Failed > 0 && stats.Succeeded+stats.Skipped == 0:
		return out, fmt.Errorf("no files were imported: %d failed", stats.Failed)
	case stats.Failed > 0:
		return out, fmt.Errorf("%w: %d of %d files failed", jobs.ErrPartial, stats.Failed, len(targets))
	}
	return out, nil
}

// Cleanup does nothing for manual imports.
func (t *ManualImportTask) Cleanup(job *jobs.Job) error {
	return nil
}

// targets expands a directory into its matching regular files.
func (t *ManualImportTask) targets(storeID, path string) ([]string, error) {
	clean, err := files.ValidatePath(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(clean)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{clean}, nil
	}

	patterns := exchange.DefaultFilePatterns
	if cfg, ok, _, _ := t.service.registered(storeID); ok {
		patterns = cfg.Patterns()
	}
	matcher, err := files.NewMatcher(patterns)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(clean)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && matcher.Match(e.Name()) {
			out = append(out, filepath.Join(clean, e.Name()))
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no matching files in %s", exchange.ErrFileNotFound, clean)
	}
	sort.Strings(out)
	return out, nil
}

// StartManualImport queues a manual import job and returns its id.
func (s *Service) StartManualImport(jobService jobs.JobService, storeID, path string, typeHint exchange.DocumentType, sc *exchange.StoreContext) (string, error) {
	metadata := map[string]any{
		"store_id":  storeID,
		"path":      path,
		"type_hint": string(typeHint),
	}
	if sc != nil {
		metadata["context"] = *sc
	}
	jobID, err := jobService.StartJob(ManualImportJobType, "Manual import "+filepath.Base(path), metadata)
	if err != nil {
		s.logger.Error("Service.StartManualImport: failed to start job", "error", err)
		return "", fmt.Errorf("failed to start manual import job: %w", err)
	}
	return jobID, nil
}
