package exchange

import (
	"context"
	"time"
)

// ValidationResult is returned by a Validator.
type ValidationResult struct {
	Valid        bool
	DocumentType DocumentType
	Errors       []string
}

// Validator parses and validates document content.
type Validator interface {
	Validate(ctx context.Context, content []byte) (ValidationResult, error)
}

// ImportResult is returned by every Importer method.
type ImportResult struct {
	RecordCount int
}

// Importer loads a validated document into the store's data.
type Importer interface {
	ImportTransactions(ctx context.Context, sc StoreContext, content []byte) (ImportResult, error)
	ImportDepartments(ctx context.Context, sc StoreContext, content []byte) (ImportResult, error)
	ImportTenderTypes(ctx context.Context, sc StoreContext, content []byte) (ImportResult, error)
	ImportTaxRates(ctx context.Context, sc StoreContext, content []byte) (ImportResult, error)
}

// Source tells whether a document came from the filesystem or was submitted as content.
type Source string

const (
	SourceFile    Source = "FILE"
	SourceContent Source = "CONTENT"
)

// FileLogEntry is the metadata recorded before a document is validated.
type FileLogEntry struct {
	StoreID      string
	FileName     string
	FilePath     string
	FileHash     string
	FileSize     int64
	DocumentType DocumentType
	Source       Source
	ExchangeID   string
}

// FileLog is the durable record of every import attempt.
// CreateEntry returns an error wrapping ErrDuplicateFile when the hash was already accepted.
type FileLog interface {
	IsAlreadyProcessed(ctx context.Context, storeID, hash string) (bool, error)
	CreateEntry(ctx context.Context, entry FileLogEntry) (string, error)
	MarkProcessingStarted(ctx context.Context, id string) error
	MarkProcessingSuccess(ctx context.Context, id string, recordCount int, elapsed time.Duration, movedTo string) error
	MarkProcessingFailed(ctx context.Context, id string, reason FailureReason, message string, elapsed time.Duration) error
}

// AuditRecord is the compliance trail entry of one data exchange.
type AuditRecord struct {
	ExchangeID       string
	StoreID          string
	CompanyID        string
	POSIntegrationID string
	UserID           string
	DocumentType     DocumentType
	DataCategory     DataCategory
	FileName         string
	FileHash         string
	DataSize         int64
}

// AuditUpdate finalizes an audit record.
type AuditUpdate struct {
	Status      ProcessingStatus
	RecordCount int
	DataSize    int64
	FileHash    string
}

// AuditStore records data exchange events.
type AuditStore interface {
	GenerateExchangeID(prefix string) string
	CreateRecord(ctx context.Context, record AuditRecord) (string, error)
	UpdateRecord(ctx context.Context, id string, update AuditUpdate) error
	FailRecord(ctx context.Context, id string, reason FailureReason, message string) error
}

// FileLogView is a read-only file log row for operators.
type FileLogView struct {
	ID           string       `json:"id"`
	StoreID      string       `json:"storeId"`
	FileName     string       `json:"fileName"`
	FileHash     string       `json:"fileHash"`
	FileSize     int64        `json:"fileSize"`
	DocumentType DocumentType `json:"documentType,omitempty"`
	Source       Source       `json:"source,omitempty"`
	ExchangeID   string       `json:"exchangeId,omitempty"`
	Status       string       `json:"status"`
	ReasonCode   string       `json:"reasonCode,omitempty"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	RecordCount  int          `json:"recordCount"`
	ProcessingMs int64        `json:"processingMs"`
	MovedTo      string       `json:"movedTo,omitempty"`
	CreatedAt    string       `json:"createdAt"`
	FinishedAt   string       `json:"finishedAt,omitempty"`
}

// FileLogHistory lists the latest file log rows of a store, newest first.
type FileLogHistory interface {
	RecentEntries(ctx context.Context, storeID string, limit int) ([]FileLogView, error)
}
