package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Database holds the SQLite connection shared by the file log and the audit store.
type Database struct {
	db *sqlx.DB
}

// NewSqliteDatabase opens (or creates) the SQLite database at path and creates the tables.
func NewSqliteDatabase(path string) (*Database, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer; one connection also keeps ":memory:" databases consistent.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &Database{db: db}, nil
}

// FileLog returns the durable file log backed by this database.
func (d *Database) FileLog() *FileLogStore {
	return &FileLogStore{db: d.db}
}

// Audit returns the audit store backed by this database.
func (d *Database) Audit() *AuditStore {
	return &AuditStore{db: d.db}
}

// Close closes the underlying connection.
func (d *Database) Close() error {
	return d.db.Close()
}

func createTables(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS file_log (
			id TEXT PRIMARY KEY,
			store_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			file_path TEXT,
			file_hash TEXT NOT NULL,
			file_size INTEGER,
			document_type TEXT,
			source TEXT,
			exchange_id TEXT,
			status TEXT NOT NULL,
			reason_code TEXT,
			error_message TEXT,
			record_count INTEGER DEFAULT 0,
			processing_ms INTEGER DEFAULT 0,
			moved_to TEXT,
			created_at TEXT,
			started_at TEXT,
			finished_at TEXT
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_file_log_store_hash
			ON file_log(store_id, file_hash) WHERE status != 'failed';
		CREATE INDEX IF NOT EXISTS idx_file_log_store_created ON file_log(store_id, created_at);

		CREATE TABLE IF NOT EXISTS audit_records (
			id TEXT PRIMARY KEY,
			exchange_id TEXT NOT NULL UNIQUE,
			store_id TEXT NOT NULL,
			company_id TEXT,
			pos_integration_id TEXT,
			direction TEXT,
			document_type TEXT,
			data_category TEXT,
			file_name TEXT,
			status TEXT NOT NULL,
			record_count INTEGER DEFAULT 0,
			data_size INTEGER DEFAULT 0,
			file_hash TEXT,
			reason_code TEXT,
			error_message TEXT,
			created_at TEXT,
			updated_at TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_audit_records_store ON audit_records(store_id);
	`)
	if err != nil {
		return err
	}

	// Columns added after the first release.
	_, err = db.Exec(`ALTER TABLE audit_records ADD COLUMN user_id TEXT;`)
	// Ignore errors if columns already exist
	if err != nil && !strings.Contains(err.Error(), "duplicate column name") {
		return err
	}
	return nil
}
