package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/contre95/posxchange/src/exchange"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	auditStatusPending = "PENDING"
	auditStatusFailed  = "FAILED"

	directionInbound = "INBOUND"
)

// AuditStore is the SQLite implementation of exchange.AuditStore.
type AuditStore struct {
	db *sqlx.DB
}

// AuditRow is a row of the audit trail.
type AuditRow struct {
	ID           string `db:"id" json:"id"`
	ExchangeID   string `db:"exchange_id" json:"exchangeId"`
	StoreID      string `db:"store_id" json:"storeId"`
	DocumentType string `db:"document_type" json:"documentType"`
	DataCategory string `db:"data_category" json:"dataCategory"`
	FileName     string `db:"file_name" json:"fileName"`
	Status       string `db:"status" json:"status"`
	RecordCount  int    `db:"record_count" json:"recordCount"`
	DataSize     int64  `db:"data_size" json:"dataSize"`
	ReasonCode   string `db:"reason_code" json:"reasonCode,omitempty"`
	ErrorMessage string `db:"error_message" json:"errorMessage,omitempty"`
}

// GenerateExchangeID returns PREFIX-YYYYMMDD-xxxxxxxx.
func (s *AuditStore) GenerateExchangeID(prefix string) string {
	if prefix == "" {
		prefix = "EXC"
	}
	short := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s-%s-%s", strings.ToUpper(prefix), time.Now().UTC().Format("20060102"), strings.ToUpper(short))
}

// CreateRecord inserts a pending audit record.
func (s *AuditStore) CreateRecord(ctx context.Context, record exchange.AuditRecord) (string, error) {
	id := uuid.New().String()
	ts := now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_records (id, exchange_id, store_id, company_id, pos_integration_id, user_id,
			direction, document_type, data_category, file_name, status, data_size, file_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, record.ExchangeID, record.StoreID, record.CompanyID, record.POSIntegrationID, record.UserID,
		directionInbound, string(record.DocumentType), string(record.DataCategory), record.FileName,
		auditStatusPending, record.DataSize, record.FileHash, ts, ts)
	if err != nil {
		return "", fmt.Errorf("failed to create audit record: %w", err)
	}
	return id, nil
}

// UpdateRecord finalizes an audit record.
func (s *AuditStore) UpdateRecord(ctx context.Context, id string, update exchange.AuditUpdate) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE audit_records SET status = ?, record_count = ?, data_size = ?, file_hash = ?, updated_at = ?
		WHERE id = ?
	`, string(update.Status), update.RecordCount, update.DataSize, update.FileHash, now(), id)
	if err != nil {
		return fmt.Errorf("failed to update audit record: %w", err)
	}
	return nil
}

// FailRecord marks an audit record failed.
func (s *AuditStore) FailRecord(ctx context.Context, id string, reason exchange.FailureReason, message string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE audit_records SET status = ?, reason_code = ?, error_message = ?, updated_at = ?
		WHERE id = ?
	`, auditStatusFailed, string(reason), message, now(), id)
	if err != nil {
		return fmt.Errorf("failed to fail audit record: %w", err)
	}
	return nil
}

// Get returns one audit record.
func (s *AuditStore) Get(ctx context.Context, id string) (*AuditRow, error) {
	var row AuditRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, exchange_id, store_id, COALESCE(document_type, '') AS document_type,
			COALESCE(data_category, '') AS data_category, COALESCE(file_name, '') AS file_name, status,
			record_count, data_size, COALESCE(reason_code, '') AS reason_code,
			COALESCE(error_message, '') AS error_message
		FROM audit_records WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	return &row, nil
}
