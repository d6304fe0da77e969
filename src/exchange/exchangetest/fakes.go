// Package exchangetest provides in-memory collaborators for tests.
package exchangetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/contre95/posxchange/src/exchange"
)

// FileLogEntry is a recorded file-log row.
type FileLogEntry struct {
	exchange.FileLogEntry
	ID          string
	Status      string
	Reason      exchange.FailureReason
	Message     string
	RecordCount int
	MovedTo     string
}

// FileLog is an in-memory exchange.FileLog with the same duplicate semantics as the sqlite store.
type FileLog struct {
	mu      sync.Mutex
	entries map[string]*FileLogEntry
	order   []string
	seq     int

	// CreateErr, when set, is returned by CreateEntry.
	CreateErr error
	// CheckErr, when set, is returned by IsAlreadyProcessed.
	CheckErr error
}

func NewFileLog() *FileLog {
	return &FileLog{entries: make(map[string]*FileLogEntry)}
}

func (f *FileLog) IsAlreadyProcessed(ctx context.Context, storeID, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CheckErr != nil {
		return false, f.CheckErr
	}
	for _, e := range f.entries {
		if e.StoreID == storeID && e.FileHash == hash && e.Status == "success" {
			return true, nil
		}
	}
	return false, nil
}

func (f *FileLog) CreateEntry(ctx context.Context, entry exchange.FileLogEntry) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	for _, e := range f.entries {
		if e.StoreID == entry.StoreID && e.FileHash == entry.FileHash && e.Status != "failed" {
			return "", fmt.Errorf("%w: %s", exchange.ErrDuplicateFile, entry.FileHash)
		}
	}
	f.seq++
	id := fmt.Sprintf("log-%d", f.seq)
	f.entries[id] = &FileLogEntry{FileLogEntry: entry, ID: id, Status: "pending"}
	f.order = append(f.order, id)
	return id, nil
}

func (f *FileLog) MarkProcessingStarted(ctx context.Context, id string) error {
	return f.update(id, func(e *FileLogEntry) { e.Status = "processing" })
}

func (f *FileLog) MarkProcessingSuccess(ctx context.Context, id string, recordCount int, elapsed time.Duration, movedTo string) error {
	return f.update(id, func(e *FileLogEntry) {
		e.Status = "success"
		e.RecordCount = recordCount
		e.MovedTo = movedTo
	})
}

func (f *FileLog) MarkProcessingFailed(ctx context.Context, id string, reason exchange.FailureReason, message string, elapsed time.Duration) error {
	return f.update(id, func(e *FileLogEntry) {
		e.Status = "failed"
		e.Reason = reason
		e.Message = message
	})
}

func (f *FileLog) update(id string, fn func(*FileLogEntry)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return errors.New("file log entry not found")
	}
	fn(e)
	return nil
}

// Entries returns copies of all entries in creation order.
func (f *FileLog) Entries() []FileLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FileLogEntry, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, *f.entries[id])
	}
	return out
}

// AuditRecord is a recorded audit row.
type AuditRecord struct {
	exchange.AuditRecord
	ID          string
	Status      exchange.ProcessingStatus
	RecordCount int
	Reason      exchange.FailureReason
	Message     string
}

// AuditStore is an in-memory exchange.AuditStore.
type AuditStore struct {
	mu      sync.Mutex
	records map[string]*AuditRecord
	order   []string
	seq     int

	// CreateErr, when set, is returned by CreateRecord.
	CreateErr error
}

func NewAuditStore() *AuditStore {
	return &AuditStore{records: make(map[string]*AuditRecord)}
}

func (a *AuditStore) GenerateExchangeID(prefix string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	return fmt.Sprintf("%s-TEST-%04d", prefix, a.seq)
}

func (a *AuditStore) CreateRecord(ctx context.Context, record exchange.AuditRecord) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.CreateErr != nil {
		return "", a.CreateErr
	}
	id := fmt.Sprintf("audit-%d", len(a.order)+1)
	a.records[id] = &AuditRecord{AuditRecord: record, ID: id, Status: "PENDING"}
	a.order = append(a.order, id)
	return id, nil
}

func (a *AuditStore) UpdateRecord(ctx context.Context, id string, update exchange.AuditUpdate) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.records[id]
	if !ok {
		return errors.New("audit record not found")
	}
	r.Status = update.Status
	r.RecordCount = update.RecordCount
	return nil
}

func (a *AuditStore) FailRecord(ctx context.Context, id string, reason exchange.FailureReason, message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.records[id]
	if !ok {
		return errors.New("audit record not found")
	}
	r.Status = exchange.StatusFailed
	r.Reason = reason
	r.Message = message
	return nil
}

// Records returns copies of all records in creation order.
func (a *AuditStore) Records() []AuditRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]AuditRecord, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, *a.records[id])
	}
	return out
}

// Importer counts calls per document type and returns RecordCount for each.
type Importer struct {
	RecordCount int
	// Err, when set, is returned by every method.
	Err error
	// Panic, when set, makes every method panic with it.
	Panic any

	transactions atomic.Int32
	departments  atomic.Int32
	tenders      atomic.Int32
	taxRates     atomic.Int32
}

func (i *Importer) ImportTransactions(ctx context.Context, sc exchange.StoreContext, content []byte) (exchange.ImportResult, error) {
	i.transactions.Add(1)
	return i.result()
}

func (i *Importer) ImportDepartments(ctx context.Context, sc exchange.StoreContext, content []byte) (exchange.ImportResult, error) {
	i.departments.Add(1)
	return i.result()
}

func (i *Importer) ImportTenderTypes(ctx context.Context, sc exchange.StoreContext, content []byte) (exchange.ImportResult, error) {
	i.tenders.Add(1)
	return i.result()
}

func (i *Importer) ImportTaxRates(ctx context.Context, sc exchange.StoreContext, content []byte) (exchange.ImportResult, error) {
	i.taxRates.Add(1)
	return i.result()
}

func (i *Importer) result() (exchange.ImportResult, error) {
	if i.Panic != nil {
		panic(i.Panic)
	}
	if i.Err != nil {
		return exchange.ImportResult{}, i.Err
	}
	return exchange.ImportResult{RecordCount: i.RecordCount}, nil
}

// Calls returns the total number of importer invocations.
func (i *Importer) Calls() int {
	return int(i.transactions.Load() + i.departments.Load() + i.tenders.Load() + i.taxRates.Load())
}

// CallsFor returns the number of invocations for one document type.
func (i *Importer) CallsFor(doc exchange.DocumentType) int {
	switch doc {
	case exchange.DocumentTransaction:
		return int(i.transactions.Load())
	case exchange.DocumentDepartment:
		return int(i.departments.Load())
	case exchange.DocumentTender:
		return int(i.tenders.Load())
	case exchange.DocumentTaxRate:
		return int(i.taxRates.Load())
	}
	return 0
}
