package importing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/contre95/posxchange/src/exchange"
	"github.com/contre95/posxchange/src/exchange/exchangetest"
	"github.com/contre95/posxchange/src/infra/files"
	"github.com/contre95/posxchange/src/infra/naxml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deptXML = `<?xml version="1.0"?><NAXML-MaintenanceRequest><DepartmentMaintenance><DEPDetail/></DepartmentMaintenance></NAXML-MaintenanceRequest>`
const journalXML = `<?xml version="1.0"?><NAXML-POSJournal><JournalReport><SaleEvent/></JournalReport></NAXML-POSJournal>`

type fixture struct {
	proc     *Processor
	fileLog  *exchangetest.FileLog
	audit    *exchangetest.AuditStore
	importer *exchangetest.Importer
	watch    string
	dirs     Dirs
	sc       exchange.StoreContext
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		fileLog:  exchangetest.NewFileLog(),
		audit:    exchangetest.NewAuditStore(),
		importer: &exchangetest.Importer{RecordCount: 3},
		watch:    filepath.Join(root, "in"),
		dirs:     Dirs{ProcessedPath: filepath.Join(root, "processed"), ErrorPath: filepath.Join(root, "error")},
		sc:       exchange.StoreContext{StoreID: "S1", POSIntegrationID: "pos-1", CompanyID: "c-1"},
	}
	require.NoError(t, os.MkdirAll(f.watch, 0o755))
	f.proc = NewProcessor(naxml.NewValidator(), f.importer, f.fileLog, f.audit, files.NewArchiver(nil), nil)
	return f
}

func (f *fixture) drop(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.watch, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessFile_SuccessArchivesWithTimestamp(t *testing.T) {
	f := newFixture(t)
	path := f.drop(t, "TLOG_20250101.xml", journalXML)

	res := f.proc.ProcessFile(context.Background(), path, f.sc, f.dirs)

	require.Equal(t, exchange.StatusSuccess, res.Status, res.ErrorMessage)
	assert.True(t, res.Success)
	assert.Equal(t, exchange.DocumentTransaction, res.DocumentType)
	assert.Equal(t, 3, res.RecordCount)
	assert.Equal(t, exchange.HashContent([]byte(journalXML)), res.FileHash)
	assert.Equal(t, int64(len(journalXML)), res.FileSize)

	assert.NoFileExists(t, path)
	assert.Equal(t, f.dirs.ProcessedPath, filepath.Dir(res.MovedTo))
	assert.Regexp(t, regexp.MustCompile(`^TLOG_20250101_\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}-\d{3}Z\.xml$`), filepath.Base(res.MovedTo))
	assert.FileExists(t, res.MovedTo)

	entries := f.fileLog.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "success", entries[0].Status)
	assert.Equal(t, exchange.SourceFile, entries[0].Source)
	assert.Equal(t, res.MovedTo, entries[0].MovedTo)

	records := f.audit.Records()
	require.Len(t, records, 1)
	assert.Equal(t, exchange.StatusSuccess, records[0].Status)
	assert.Equal(t, "pos-1", records[0].POSIntegrationID)
	assert.Equal(t, exchange.CategoryTransaction, records[0].DataCategory)
}

func TestProcessFile_ValidationFailureMovesToErrorDir(t *testing.T) {
	f := newFixture(t)
	path := f.drop(t, "dept.xml", "<DepartmentMaintenance><unclosed>")

	res := f.proc.ProcessFile(context.Background(), path, f.sc, f.dirs)

	assert.Equal(t, exchange.StatusFailed, res.Status)
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "validation failed")
	assert.Equal(t, filepath.Join(f.dirs.ErrorPath, "dept.xml"), res.MovedTo)
	assert.FileExists(t, res.MovedTo)
	assert.NoFileExists(t, path)
	assert.Zero(t, f.importer.Calls())

	entries := f.fileLog.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "failed", entries[0].Status)
	assert.Equal(t, exchange.ReasonValidationFailed, entries[0].Reason)
	assert.Equal(t, exchange.StatusFailed, f.audit.Records()[0].Status)
}

func TestProcessContent_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.proc.ProcessContent(ctx, []byte(deptXML), "dept.xml", f.sc)
	second := f.proc.ProcessContent(ctx, []byte(deptXML), "dept.xml", f.sc)

	assert.Equal(t, exchange.StatusSuccess, first.Status)
	assert.Equal(t, exchange.DocumentDepartment, first.DocumentType)
	assert.Equal(t, exchange.StatusSkipped, second.Status)
	assert.Equal(t, "File already processed (duplicate hash)", second.ErrorMessage)
	assert.Equal(t, 1, f.importer.Calls())
	assert.Len(t, f.fileLog.Entries(), 1)
	assert.Len(t, f.audit.Records(), 1)
}

func TestProcessContent_DuplicateIsPerStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := f.sc
	other.StoreID = "S2"
	assert.Equal(t, exchange.StatusSuccess, f.proc.ProcessContent(ctx, []byte(deptXML), "d.xml", f.sc).Status)
	assert.Equal(t, exchange.StatusSuccess, f.proc.ProcessContent(ctx, []byte(deptXML), "d.xml", other).Status)
	assert.Equal(t, 2, f.importer.Calls())
}

func TestProcessContent_GarbageFailsWithoutFilesystem(t *testing.T) {
	f := newFixture(t)

	res := f.proc.ProcessContent(context.Background(), []byte("<garbage>"), "bad.xml", f.sc)

	assert.False(t, res.Success)
	assert.Equal(t, exchange.StatusFailed, res.Status)
	assert.Contains(t, res.ErrorMessage, "malformed XML")
	assert.Empty(t, res.MovedTo)
	assert.Empty(t, res.FilePath)
	for _, dir := range []string{f.dirs.ProcessedPath, f.dirs.ErrorPath} {
		assert.NoDirExists(t, dir)
	}
}

func TestProcessFile_CreateEntryDuplicateSkips(t *testing.T) {
	f := newFixture(t)
	f.fileLog.CreateErr = exchange.ErrDuplicateFile
	path := f.drop(t, "dept.xml", deptXML)

	res := f.proc.ProcessFile(context.Background(), path, f.sc, f.dirs)

	assert.Equal(t, exchange.StatusSkipped, res.Status)
	assert.Zero(t, f.importer.Calls())
	assert.Empty(t, f.audit.Records())
	assert.FileExists(t, path)
}

func TestProcessFile_BookkeepingFailuresDoNotBlock(t *testing.T) {
	f := newFixture(t)
	f.fileLog.CheckErr = errors.New("db down")
	f.fileLog.CreateErr = errors.New("db down")
	f.audit.CreateErr = errors.New("audit down")
	path := f.drop(t, "dept.xml", deptXML)

	res := f.proc.ProcessFile(context.Background(), path, f.sc, f.dirs)

	assert.Equal(t, exchange.StatusSuccess, res.Status)
	assert.Equal(t, 1, f.importer.CallsFor(exchange.DocumentDepartment))
	assert.FileExists(t, res.MovedTo)
}

func TestProcessFile_ImporterErrorIsProcessingError(t *testing.T) {
	f := newFixture(t)
	f.importer.Err = errors.New("constraint violation")
	path := f.drop(t, "dept.xml", deptXML)

	res := f.proc.ProcessFile(context.Background(), path, f.sc, f.dirs)

	assert.Equal(t, exchange.StatusFailed, res.Status)
	assert.Contains(t, res.ErrorMessage, "constraint violation")
	assert.Equal(t, filepath.Join(f.dirs.ErrorPath, "dept.xml"), res.MovedTo)

	entries := f.fileLog.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, exchange.ReasonProcessingError, entries[0].Reason)
	assert.Equal(t, exchange.ReasonProcessingError, f.audit.Records()[0].Reason)
}

func TestProcessFile_FailedDocumentCanBeRetried(t *testing.T) {
	f := newFixture(t)
	f.importer.Err = errors.New("temporary")
	ctx := context.Background()

	assert.Equal(t, exchange.StatusFailed, f.proc.ProcessContent(ctx, []byte(deptXML), "d.xml", f.sc).Status)
	f.importer.Err = nil
	assert.Equal(t, exchange.StatusSuccess, f.proc.ProcessContent(ctx, []byte(deptXML), "d.xml", f.sc).Status)
}

func TestProcessFile_ReadFailure(t *testing.T) {
	f := newFixture(t)

	res := f.proc.ProcessFile(context.Background(), filepath.Join(f.watch, "missing.xml"), f.sc, f.dirs)

	assert.Equal(t, exchange.StatusFailed, res.Status)
	assert.Equal(t, "missing.xml", res.FileName)
	assert.Empty(t, f.fileLog.Entries())
	assert.Empty(t, f.audit.Records())
}

func TestProcess_UnknownTypeAcceptedWithZeroRecords(t *testing.T) {
	f := newFixture(t)

	res := f.proc.ProcessContent(context.Background(), []byte(`<Inventory><Item/></Inventory>`), "inventory.xml", f.sc)

	assert.Equal(t, exchange.StatusSuccess, res.Status)
	assert.Equal(t, exchange.DocumentUnknown, res.DocumentType)
	assert.Zero(t, res.RecordCount)
	assert.Zero(t, f.importer.Calls())
}

func TestProcess_TypeHintDispatch(t *testing.T) {
	f := newFixture(t)

	res := f.proc.Process(context.Background(), Request{
		Content:  []byte(`<Export><Row/></Export>`),
		FileName: "export.xml",
		Context:  f.sc,
		TypeHint: exchange.DocumentTender,
	})

	assert.Equal(t, exchange.StatusSuccess, res.Status)
	assert.Equal(t, exchange.DocumentTender, res.DocumentType)
	assert.Equal(t, 1, f.importer.CallsFor(exchange.DocumentTender))
}
