package database

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/contre95/posxchange/src/exchange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewSqliteDatabase(filepath.Join(t.TempDir(), "posx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testEntry(hash string) exchange.FileLogEntry {
	return exchange.FileLogEntry{
		StoreID:      "S1",
		FileName:     "TLOG_1.xml",
		FilePath:     "/w/TLOG_1.xml",
		FileHash:     hash,
		FileSize:     42,
		DocumentType: exchange.DocumentTransaction,
		Source:       exchange.SourceFile,
		ExchangeID:   "POS-20250101-ABCDEF12",
	}
}

func TestNewSqliteDatabase_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posx.db")
	db, err := NewSqliteDatabase(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = NewSqliteDatabase(path)
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}

func TestFileLogStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestDatabase(t).FileLog()

	processed, err := store.IsAlreadyProcessed(ctx, "S1", "h1")
	require.NoError(t, err)
	assert.False(t, processed)

	id, err := store.CreateEntry(ctx, testEntry("h1"))
	require.NoError(t, err)
	require.NoError(t, store.MarkProcessingStarted(ctx, id))

	record, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, fileStatusProcessing, record.Status)

	require.NoError(t, store.MarkProcessingSuccess(ctx, id, 7, 150*time.Millisecond, "/p/TLOG_1_x.xml"))

	processed, err = store.IsAlreadyProcessed(ctx, "S1", "h1")
	require.NoError(t, err)
	assert.True(t, processed)

	processed, err = store.IsAlreadyProcessed(ctx, "S2", "h1")
	require.NoError(t, err)
	assert.False(t, processed, "hashes are scoped per store")

	record, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, fileStatusSuccess, record.Status)
	assert.Equal(t, 7, record.RecordCount)
	assert.Equal(t, int64(150), record.ProcessingMs)
	assert.Equal(t, "/p/TLOG_1_x.xml", record.MovedTo.String)
}

func TestFileLogStore_DuplicateHash(t *testing.T) {
	ctx := context.Background()
	store := newTestDatabase(t).FileLog()

	_, err := store.CreateEntry(ctx, testEntry("h1"))
	require.NoError(t, err)

	_, err = store.CreateEntry(ctx, testEntry("h1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, exchange.ErrDuplicateFile))

	other := testEntry("h1")
	other.StoreID = "S2"
	_, err = store.CreateEntry(ctx, other)
	assert.NoError(t, err)
}

func TestFileLogStore_FailedEntryAllowsRetry(t *testing.T) {
	ctx := context.Background()
	store := newTestDatabase(t).FileLog()

	id, err := store.CreateEntry(ctx, testEntry("h1"))
	require.NoError(t, err)
	require.NoError(t, store.MarkProcessingFailed(ctx, id, exchange.ReasonValidationFailed, "bad xml", time.Millisecond))

	record, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, fileStatusFailed, record.Status)
	assert.Equal(t, "VALIDATION_FAILED", record.ReasonCode.String)
	assert.Equal(t, "bad xml", record.ErrorMessage.String)

	_, err = store.CreateEntry(ctx, testEntry("h1"))
	assert.NoError(t, err)

	entries, err := store.RecentEntries(ctx, "S1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, fileStatusPending, entries[0].Status)
	assert.Equal(t, "VALIDATION_FAILED", entries[1].ReasonCode)
	assert.Equal(t, exchange.DocumentTransaction, entries[1].DocumentType)
}

func TestFileLogStore_UnknownEntry(t *testing.T) {
	store := newTestDatabase(t).FileLog()
	assert.Error(t, store.MarkProcessingStarted(context.Background(), "missing"))
}

func TestAuditStore(t *testing.T) {
	ctx := context.Background()
	audit := newTestDatabase(t).Audit()

	exchangeID := audit.GenerateExchangeID("pos")
	assert.Regexp(t, regexp.MustCompile(`^POS-\d{8}-[0-9A-F]{8}$`), exchangeID)
	assert.NotEqual(t, exchangeID, audit.GenerateExchangeID("pos"))

	id, err := audit.CreateRecord(ctx, exchange.AuditRecord{
		ExchangeID:       exchangeID,
		StoreID:          "S1",
		CompanyID:        "C1",
		POSIntegrationID: "I1",
		DocumentType:     exchange.DocumentDepartment,
		DataCategory:     exchange.CategoryMaintenance,
		FileName:         "dept.xml",
		FileHash:         "h1",
		DataSize:         10,
	})
	require.NoError(t, err)

	row, err := audit.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, auditStatusPending, row.Status)
	assert.Equal(t, "MAINTENANCE", row.DataCategory)

	require.NoError(t, audit.UpdateRecord(ctx, id, exchange.AuditUpdate{
		Status: exchange.StatusSuccess, RecordCount: 3, DataSize: 10, FileHash: "h1",
	}))
	row, err = audit.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", row.Status)
	assert.Equal(t, 3, row.RecordCount)

	require.NoError(t, audit.FailRecord(ctx, id, exchange.ReasonProcessingError, "boom"))
	row, err = audit.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, auditStatusFailed, row.Status)
	assert.Equal(t, "PROCESSING_ERROR", row.ReasonCode)
	assert.Equal(t, "boom", row.ErrorMessage)
}
