package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/contre95/posxchange/src/exchange"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

const (
	fileStatusPending    = "pending"
	fileStatusProcessing = "processing"
	fileStatusSuccess    = "success"
	fileStatusFailed     = "failed"
)

// FileLogStore is the SQLite implementation of exchange.FileLog.
type FileLogStore struct {
	db *sqlx.DB
}

// FileLogRecord is a row of the file log.
type FileLogRecord struct {
	ID           string         `db:"id"`
	StoreID      string         `db:"store_id"`
	FileName     string         `db:"file_name"`
	FilePath     sql.NullString `db:"file_path"`
	FileHash     string         `db:"file_hash"`
	FileSize     int64          `db:"file_size"`
	DocumentType sql.NullString `db:"document_type"`
	Source       sql.NullString `db:"source"`
	ExchangeID   sql.NullString `db:"exchange_id"`
	Status       string         `db:"status"`
	ReasonCode   sql.NullString `db:"reason_code"`
	ErrorMessage sql.NullString `db:"error_message"`
	RecordCount  int            `db:"record_count"`
	ProcessingMs int64          `db:"processing_ms"`
	MovedTo      sql.NullString `db:"moved_to"`
	CreatedAt    string         `db:"created_at"`
	StartedAt    sql.NullString `db:"started_at"`
	FinishedAt   sql.NullString `db:"finished_at"`
}

// IsAlreadyProcessed reports whether the store already imported content with this hash successfully.
func (s *FileLogStore) IsAlreadyProcessed(ctx context.Context, storeID, hash string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(1) FROM file_log WHERE store_id = ? AND file_hash = ? AND status = ?`,
		storeID, hash, fileStatusSuccess)
	if err != nil {
		return false, fmt.Errorf("failed to check file log: %w", err)
	}
	return count > 0, nil
}

// CreateEntry records a pending import. A hash already pending, processing or imported for the
// store yields exchange.ErrDuplicateFile.
func (s *FileLogStore) CreateEntry(ctx context.Context, entry exchange.FileLogEntry) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO file_log (id, store_id, file_name, file_path, file_hash, file_size, document_type,
			source, exchange_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, entry.StoreID, entry.FileName, entry.FilePath, entry.FileHash, entry.FileSize,
		string(entry.DocumentType), string(entry.Source), entry.ExchangeID, fileStatusPending, now())
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: store %s hash %s", exchange.ErrDuplicateFile, entry.StoreID, entry.FileHash)
		}
		return "", fmt.Errorf("failed to create file log entry: %w", err)
	}
	return id, nil
}

// MarkProcessingStarted flags the entry as in progress.
func (s *FileLogStore) MarkProcessingStarted(ctx context.Context, id string) error {
	return s.update(ctx, `UPDATE file_log SET status = ?, started_at = ? WHERE id = ?`,
		fileStatusProcessing, now(), id)
}

// MarkProcessingSuccess finalizes a successful import.
func (s *FileLogStore) MarkProcessingSuccess(ctx context.Context, id string, recordCount int, elapsed time.Duration, movedTo string) error {
	return s.update(ctx, `
		UPDATE file_log SET status = ?, record_count = ?, processing_ms = ?, moved_to = ?, finished_at = ?
		WHERE id = ?
	`, fileStatusSuccess, recordCount, elapsed.Milliseconds(), movedTo, now(), id)
}

// MarkProcessingFailed finalizes a failed import. Failed rows do not block a later retry of the same content.
func (s *FileLogStore) MarkProcessingFailed(ctx context.Context, id string, reason exchange.FailureReason, message string, elapsed time.Duration) error {
	return s.update(ctx, `
		UPDATE file_log SET status = ?, reason_code = ?, error_message = ?, processing_ms = ?, finished_at = ?
		WHERE id = ?
	`, fileStatusFailed, string(reason), message, elapsed.Milliseconds(), now(), id)
}

// RecentEntries returns the latest file log rows of a store, newest first.
func (s *FileLogStore) RecentEntries(ctx context.Context, storeID string, limit int) ([]exchange.FileLogView, error) {
	if limit <= 0 {
		limit = 50
	}
	records := []FileLogRecord{}
	err := s.db.SelectContext(ctx, &records,
		`SELECT * FROM file_log WHERE store_id = ? ORDER BY created_at DESC LIMIT ?`, storeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list file log: %w", err)
	}
	views := make([]exchange.FileLogView, 0, len(records))
	for _, r := range records {
		views = append(views, r.View())
	}
	return views, nil
}

// View converts the row into its operator-facing form.
func (r FileLogRecord) View() exchange.FileLogView {
	return exchange.FileLogView{
		ID:           r.ID,
		StoreID:      r.StoreID,
		FileName:     r.FileName,
		FileHash:     r.FileHash,
		FileSize:     r.FileSize,
		DocumentType: exchange.DocumentType(r.DocumentType.String),
		Source:       exchange.Source(r.Source.String),
		ExchangeID:   r.ExchangeID.String,
		Status:       r.Status,
		ReasonCode:   r.ReasonCode.String,
		ErrorMessage: r.ErrorMessage.String,
		RecordCount:  r.RecordCount,
		ProcessingMs: r.ProcessingMs,
		MovedTo:      r.MovedTo.String,
		CreatedAt:    r.CreatedAt,
		FinishedAt:   r.FinishedAt.String,
	}
}

// Get returns a single file log row.
func (s *FileLogStore) Get(ctx context.Context, id string) (*FileLogRecord, error) {
	var record FileLogRecord
	if err := s.db.GetContext(ctx, &record, `SELECT * FROM file_log WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *FileLogStore) update(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update file log: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("file log entry not found")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// timestampFormat is fixed width so timestamps sort as strings.
const timestampFormat = "2006-01-02T15:04:05.000000000Z"

func now() string {
	return time.Now().UTC().Format(timestampFormat)
}
