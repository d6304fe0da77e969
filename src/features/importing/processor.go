package importing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/contre95/posxchange/src/exchange"
	"github.com/contre95/posxchange/src/infra/files"
)

// ExchangeIDPrefix prefixes every audit exchange id created by the processor.
const ExchangeIDPrefix = "POS"

const duplicateMessage = "File already processed (duplicate hash)"

// FileMover moves a document out of the watch directory.
type FileMover interface {
	// MoveFile moves src into dstDir under name and returns the destination path.
	MoveFile(src, dstDir, name string) (string, error)
}

// Dirs are the archive destinations of a path-mode run. Empty paths disable the move.
type Dirs struct {
	ProcessedPath string
	ErrorPath     string
}

// Request describes one pipeline run. Path mode when Path is set, content mode otherwise.
type Request struct {
	Path     string
	Content  []byte
	FileName string
	Context  exchange.StoreContext
	Dirs     Dirs
	// TypeHint overrides the pre-classification and is used when the validator cannot tell the type.
	TypeHint exchange.DocumentType
}

// Processor runs exchange documents through validation, import, bookkeeping and archival.
type Processor struct {
	validator exchange.Validator
	importer  exchange.Importer
	fileLog   exchange.FileLog
	audit     exchange.AuditStore
	mover     FileMover
	now       func() time.Time
	logger    *slog.Logger
}

// NewProcessor creates a new Processor.
func NewProcessor(validator exchange.Validator, importer exchange.Importer, fileLog exchange.FileLog, audit exchange.AuditStore, mover FileMover, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		validator: validator,
		importer:  importer,
		fileLog:   fileLog,
		audit:     audit,
		mover:     mover,
		now:       time.Now,
		logger:    logger,
	}
}

// ProcessFile runs the pipeline for a file on disk.
func (p *Processor) ProcessFile(ctx context.Context, path string, sc exchange.StoreContext, dirs Dirs) exchange.ProcessingResult {
	return p.Process(ctx, Request{Path: path, Context: sc, Dirs: dirs})
}

// ProcessContent runs the pipeline for submitted content. It never touches the filesystem.
func (p *Processor) ProcessContent(ctx context.Context, content []byte, fileName string, sc exchange.StoreContext) exchange.ProcessingResult {
	return p.Process(ctx, Request{Content: content, FileName: fileName, Context: sc})
}

// run holds the state of a single pipeline execution.
type run struct {
	req     Request
	start   time.Time
	result  exchange.ProcessingResult
	logID   string
	auditID string
	logger  *slog.Logger
}

func (r *run) pathMode() bool { return r.req.Path != "" }

// Process runs the full pipeline. Per-document failures are reported in the result, never returned.
func (p *Processor) Process(ctx context.Context, req Request) exchange.ProcessingResult {
	r := &run{req: req, start: p.now()}
	r.result.FilePath = req.Path
	r.result.FileName = req.FileName
	if r.pathMode() && r.result.FileName == "" {
		r.result.FileName = filepath.Base(req.Path)
	}
	r.logger = p.logger.With("store_id", req.Context.StoreID, "file", r.result.FileName)

	content := req.Content
	if r.pathMode() {
		data, err := os.ReadFile(req.Path)
		if err != nil {
			r.logger.Warn("Processor.Process: failed to read file", "path", req.Path, "error", err)
			return p.finish(r, exchange.StatusFailed, fmt.Sprintf("failed to read file: %v", err))
		}
		content = data
	}
	r.result.FileSize = int64(len(content))
	r.result.FileHash = exchange.HashContent(content)

	done, err := p.fileLog.IsAlreadyProcessed(ctx, req.Context.StoreID, r.result.FileHash)
	if err != nil {
		r.logger.Warn("Processor.Process: duplicate check failed, continuing", "hash", r.result.FileHash, "error", err)
	}
	if done {
		r.logger.Info("Processor.Process: skipping already processed document", "hash", r.result.FileHash)
		return p.finish(r, exchange.StatusSkipped, duplicateMessage)
	}

	docType, category := exchange.Classify(r.result.FileName, content)
	if req.TypeHint != "" && req.TypeHint != exchange.DocumentUnknown {
		docType, category = req.TypeHint, req.TypeHint.Category()
	}
	r.result.DocumentType = docType

	if skipped := p.open(ctx, r, docType, category); skipped {
		return p.finish(r, exchange.StatusSkipped, duplicateMessage)
	}
	if r.logID != "" {
		p.bestEffort(r, "FileLog.MarkProcessingStarted", func() error {
			return p.fileLog.MarkProcessingStarted(ctx, r.logID)
		})
	}

	validation, err := p.validator.Validate(ctx, content)
	if err != nil {
		return p.fail(ctx, r, exchange.ReasonProcessingError, fmt.Sprintf("validation error: %v", err))
	}
	if !validation.Valid {
		msg := "validation failed"
		if len(validation.Errors) > 0 {
			msg = "validation failed: " + strings.Join(validation.Errors, "; ")
		}
		return p.fail(ctx, r, exchange.ReasonValidationFailed, msg)
	}
	switch {
	case validation.DocumentType == "":
		// No opinion from the validator, keep the pre-classification.
	case validation.DocumentType != exchange.DocumentUnknown:
		r.result.DocumentType = validation.DocumentType
	case req.TypeHint == "":
		r.result.DocumentType = exchange.DocumentUnknown
	}

	imported, err := p.dispatch(ctx, req.Context, r.result.DocumentType, content)
	if err != nil {
		return p.fail(ctx, r, exchange.ReasonProcessingError, fmt.Sprintf("import failed: %v", err))
	}
	r.result.RecordCount = imported.RecordCount

	var archiveErr error
	if r.pathMode() && req.Dirs.ProcessedPath != "" {
		name := files.ArchiveName(r.result.FileName, p.now())
		movedTo, err := p.mover.MoveFile(req.Path, req.Dirs.ProcessedPath, name)
		if err != nil {
			// The records are already imported; the result stays a success.
			archiveErr = err
			r.logger.Error("Processor.Process: failed to archive processed file", "path", req.Path, "error", err)
		} else {
			r.result.MovedTo = movedTo
		}
	}

	elapsed := p.now().Sub(r.start)
	if r.logID != "" {
		p.bestEffort(r, "FileLog.MarkProcessingSuccess", func() error {
			return p.fileLog.MarkProcessingSuccess(ctx, r.logID, r.result.RecordCount, elapsed, r.result.MovedTo)
		})
	}
	if r.auditID != "" {
		p.bestEffort(r, "AuditStore.UpdateRecord", func() error {
			return p.audit.UpdateRecord(ctx, r.auditID, exchange.AuditUpdate{
				Status:      exchange.StatusSuccess,
				RecordCount: r.result.RecordCount,
				DataSize:    r.result.FileSize,
				FileHash:    r.result.FileHash,
			})
		})
	}

	r.logger.Info("Processor.Process: document imported", "document_type", r.result.DocumentType, "records", r.result.RecordCount, "moved_to", r.result.MovedTo)
	msg := ""
	if archiveErr != nil {
		msg = fmt.Sprintf("imported but archival failed: %v", archiveErr)
	}
	return p.finish(r, exchange.StatusSuccess, msg)
}

// open creates the file-log entry and the audit record. It reports true when the file log
// rejects the hash as a duplicate.
func (p *Processor) open(ctx context.Context, r *run, docType exchange.DocumentType, category exchange.DataCategory) bool {
	source := exchange.SourceContent
	if r.pathMode() {
		source = exchange.SourceFile
	}
	exchangeID := p.audit.GenerateExchangeID(ExchangeIDPrefix)

	id, err := p.fileLog.CreateEntry(ctx, exchange.FileLogEntry{
		StoreID:      r.req.Context.StoreID,
		FileName:     r.result.FileName,
		FilePath:     r.req.Path,
		FileHash:     r.result.FileHash,
		FileSize:     r.result.FileSize,
		DocumentType: docType,
		Source:       source,
		ExchangeID:   exchangeID,
	})
	switch {
	case errors.Is(err, exchange.ErrDuplicateFile):
		r.logger.Info("Processor.open: file log reports duplicate hash", "hash", r.result.FileHash)
		return true
	case err != nil:
		r.logger.Warn("Processor.open: failed to create file log entry", "error", err)
	default:
		r.logID = id
	}

	sc := r.req.Context
	auditID, err := p.audit.CreateRecord(ctx, exchange.AuditRecord{
		ExchangeID:       exchangeID,
		StoreID:          sc.StoreID,
		CompanyID:        sc.CompanyID,
		POSIntegrationID: sc.POSIntegrationID,
		UserID:           sc.UserID,
		DocumentType:     docType,
		DataCategory:     category,
		FileName:         r.result.FileName,
		FileHash:         r.result.FileHash,
		DataSize:         r.result.FileSize,
	})
	if err != nil {
		r.logger.Warn("Processor.open: failed to create audit record", "error", err)
	} else {
		r.auditID = auditID
	}
	return false
}

// dispatch hands the content to the importer of its document type.
// Valid documents of an unknown type are accepted with zero records.
func (p *Processor) dispatch(ctx context.Context, sc exchange.StoreContext, docType exchange.DocumentType, content []byte) (exchange.ImportResult, error) {
	switch docType {
	case exchange.DocumentTransaction:
		return p.importer.ImportTransactions(ctx, sc, content)
	case exchange.DocumentDepartment:
		return p.importer.ImportDepartments(ctx, sc, content)
	case exchange.DocumentTender:
		return p.importer.ImportTenderTypes(ctx, sc, content)
	case exchange.DocumentTaxRate:
		return p.importer.ImportTaxRates(ctx, sc, content)
	default:
		return exchange.ImportResult{}, nil
	}
}

// fail records the failure and moves a path-mode file to the error directory under its original name.
func (p *Processor) fail(ctx context.Context, r *run, reason exchange.FailureReason, msg string) exchange.ProcessingResult {
	r.logger.Warn("Processor.fail: document failed", "reason", reason, "error", msg)

	elapsed := p.now().Sub(r.start)
	if r.logID != "" {
		p.bestEffort(r, "FileLog.MarkProcessingFailed", func() error {
			return p.fileLog.MarkProcessingFailed(ctx, r.logID, reason, msg, elapsed)
		})
	}
	if r.auditID != "" {
		p.bestEffort(r, "AuditStore.FailRecord", func() error {
			return p.audit.FailRecord(ctx, r.auditID, reason, msg)
		})
	}

	if r.pathMode() && r.req.Dirs.ErrorPath != "" {
		movedTo, err := p.mover.MoveFile(r.req.Path, r.req.Dirs.ErrorPath, r.result.FileName)
		if err != nil {
			r.logger.Error("Processor.fail: failed to move file to error directory", "path", r.req.Path, "error", err)
		} else {
			r.result.MovedTo = movedTo
		}
	}
	return p.finish(r, exchange.StatusFailed, msg)
}

func (p *Processor) finish(r *run, status exchange.ProcessingStatus, msg string) exchange.ProcessingResult {
	r.result.Status = status
	r.result.Success = status == exchange.StatusSuccess
	r.result.ErrorMessage = msg
	r.result.ProcessingTimeMs = p.now().Sub(r.start).Milliseconds()
	return r.result
}

// bestEffort runs a bookkeeping call whose failure must never affect the document outcome.
func (p *Processor) bestEffort(r *run, op string, fn func() error) {
	if err := fn(); err != nil {
		r.logger.Warn("Processor.bestEffort: bookkeeping call failed", "op", op, "error", err)
	}
}
