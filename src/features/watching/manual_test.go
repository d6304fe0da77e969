package watching

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/contre95/posxchange/src/exchange"
	"github.com/contre95/posxchange/src/features/config"
	"github.com/contre95/posxchange/src/features/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueManualImport_FallbackContext(t *testing.T) {
	e := newEnv(t)
	path := write(t, e.root, "dept.xml", deptXML)

	res, err := e.svc.QueueManualImport(context.Background(), "S9", path, "", nil)

	require.NoError(t, err)
	assert.Equal(t, exchange.StatusSuccess, res.Status)
	assert.Empty(t, res.MovedTo)
	assert.FileExists(t, path)

	records := e.audit.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "S9", records[0].StoreID)
	assert.Equal(t, exchange.ManualIntegrationID, records[0].POSIntegrationID)
	assert.Equal(t, exchange.UnassignedCompanyID, records[0].CompanyID)

	processed := e.rec.filter(EventFileProcessed, "S9")
	require.Len(t, processed, 1)
	assert.True(t, processed[0].Manual)
}

func TestQueueManualImport_UsesRegisteredStore(t *testing.T) {
	e := newEnv(t)
	cfg := e.store(t, "S1")
	cfg.PollIntervalSeconds = 3600
	require.NoError(t, e.svc.StartWatching(context.Background(), cfg, contextFor("S1")))
	path := write(t, e.root, "tender.xml", `<Export><Row/></Export>`)

	res, err := e.svc.QueueManualImport(context.Background(), "S1", path, exchange.DocumentTender, nil)

	require.NoError(t, err)
	assert.Equal(t, exchange.StatusSuccess, res.Status)
	assert.Equal(t, exchange.DocumentTender, res.DocumentType)
	assert.Equal(t, cfg.ProcessedPath, filepath.Dir(res.MovedTo))
	assert.Equal(t, "pos-S1", e.audit.Records()[0].POSIntegrationID)
	assert.Equal(t, 1, e.importer.CallsFor(exchange.DocumentTender))
}

func TestQueueManualImport_ExplicitContextWins(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.svc.SetContext(contextFor("S1")))
	path := write(t, e.root, "dept.xml", deptXML)

	explicit := exchange.StoreContext{POSIntegrationID: "override", CompanyID: "other"}
	_, err := e.svc.QueueManualImport(context.Background(), "S1", path, "", &explicit)

	require.NoError(t, err)
	rec := e.audit.Records()[0]
	assert.Equal(t, "override", rec.POSIntegrationID)
	assert.Equal(t, "S1", rec.StoreID)
}

func TestQueueManualImport_PathErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.QueueManualImport(ctx, "S1", e.root+"/../etc/passwd", "", nil)
	assert.ErrorIs(t, err, exchange.ErrPathTraversal)

	_, err = e.svc.ProcessFile(ctx, "S1", filepath.Join(e.root, "missing.xml"))
	assert.ErrorIs(t, err, exchange.ErrFileNotFound)
	assert.Zero(t, e.importer.Calls())
}

func TestProcessContent_IdempotentAndNoFilesystem(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sc := contextFor("S1")

	first, err := e.svc.ProcessContent(ctx, []byte(deptXML), "dept.xml", sc)
	require.NoError(t, err)
	second, err := e.svc.ProcessContent(ctx, []byte(deptXML), "dept.xml", sc)
	require.NoError(t, err)

	assert.Equal(t, exchange.StatusSuccess, first.Status)
	assert.Equal(t, exchange.StatusSkipped, second.Status)
	assert.Equal(t, "File already processed (duplicate hash)", second.ErrorMessage)
	assert.Equal(t, 1, e.importer.Calls())

	bad, err := e.svc.ProcessContent(ctx, []byte("<garbage>"), "bad.xml", sc)
	require.NoError(t, err)
	assert.False(t, bad.Success)
	assert.Equal(t, exchange.StatusFailed, bad.Status)
	assert.Contains(t, bad.ErrorMessage, "validation failed")
	assert.Empty(t, bad.MovedTo)
}

func TestManualImportTask_Directory(t *testing.T) {
	e := newEnv(t)
	dir := filepath.Join(e.root, "batch")
	require.NoError(t, mkdir(dir))
	write(t, dir, "a.xml", deptXML)
	write(t, dir, "b.xml", "<broken>")
	write(t, dir, "skip.txt", "ignored")

	jobService := jobs.NewService(&config.Jobs{Log: false})
	jobService.RegisterHandler(ManualImportJobType, jobs.NewBaseTaskHandler(NewManualImportTask(e.svc)))

	id, err := e.svc.StartManualImport(jobService, "S1", dir, "", nil)
	require.NoError(t, err)
	jobService.Wait()

	job, ok := jobService.GetJob(id)
	require.True(t, ok)
	assert.Equal(t, jobs.JobStatusCompleted, job.Status)
	assert.Contains(t, job.Message, "completed with errors")
	stats, ok := job.Metadata["stats"].(ImportStats)
	require.True(t, ok)
	assert.Equal(t, ImportStats{Succeeded: 1, Failed: 1, Records: 2}, stats)
}

func TestManualImportTask_BadTypeHint(t *testing.T) {
	e := newEnv(t)
	path := write(t, e.root, "dept.xml", deptXML)

	jobService := jobs.NewService(&config.Jobs{Log: false})
	jobService.RegisterHandler(ManualImportJobType, jobs.NewBaseTaskHandler(NewManualImportTask(e.svc)))

	id, err := jobService.StartJob(ManualImportJobType, "bad", map[string]any{"store_id": "S1", "path": path, "type_hint": "nonsense"})
	require.NoError(t, err)
	jobService.Wait()

	job, _ := jobService.GetJob(id)
	assert.Equal(t, jobs.JobStatusFailed, job.Status)
	assert.Zero(t, e.importer.Calls())
}

func mkdir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
