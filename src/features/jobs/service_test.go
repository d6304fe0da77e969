package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/contre95/posxchange/src/features/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcTask struct {
	keys []string
	fn   func(ctx context.Context, job *Job, progress func(int, string)) (map[string]any, error)
}

func (t *funcTask) MetadataKeys() []string { return t.keys }
func (t *funcTask) Execute(ctx context.Context, job *Job, progress func(int, string)) (map[string]any, error) {
	return t.fn(ctx, job, progress)
}
func (t *funcTask) Cleanup(job *Job) error { return nil }

func newTestService() *Service {
	return NewService(&config.Jobs{Log: false})
}

func waitStatus(t *testing.T, s *Service, id string, want JobStatus) *Job {
	t.Helper()
	var job *Job
	require.Eventually(t, func() bool {
		j, ok := s.GetJob(id)
		job = j
		return ok && j.Status == want
	}, 2*time.Second, 10*time.Millisecond)
	return job
}

func TestService_CompletesJobAndMergesStats(t *testing.T) {
	s := newTestService()
	s.RegisterHandler("test", NewBaseTaskHandler(&funcTask{
		keys: []string{"path"},
		fn: func(ctx context.Context, job *Job, progress func(int, string)) (map[string]any, error) {
			progress(50, "halfway")
			return map[string]any{"processed": 3}, nil
		},
	}))

	id, err := s.StartJob("test", "Test", map[string]any{"path": "/in"})
	require.NoError(t, err)

	job := waitStatus(t, s, id, JobStatusCompleted)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, 3, job.Metadata["processed"])
	assert.Equal(t, "/in", job.Metadata["path"])
}

func TestService_MissingMetadataFails(t *testing.T) {
	s := newTestService()
	s.RegisterHandler("test", NewBaseTaskHandler(&funcTask{
		keys: []string{"path"},
		fn: func(ctx context.Context, job *Job, progress func(int, string)) (map[string]any, error) {
			return nil, nil
		},
	}))

	id, err := s.StartJob("test", "Test", nil)
	require.NoError(t, err)

	job := waitStatus(t, s, id, JobStatusFailed)
	assert.Contains(t, job.Error, "missing path")
}

func TestService_PartialSuccessCompletesWithErrors(t *testing.T) {
	s := newTestService()
	s.RegisterHandler("test", NewBaseTaskHandler(&funcTask{
		fn: func(ctx context.Context, job *Job, progress func(int, string)) (map[string]any, error) {
			return nil, fmt.Errorf("%w: 1 of 3 files failed", ErrPartial)
		},
	}))

	id, err := s.StartJob("test", "Test", nil)
	require.NoError(t, err)

	job := waitStatus(t, s, id, JobStatusCompleted)
	assert.Contains(t, job.Message, "completed with errors")
}

func TestService_NoHandlerFails(t *testing.T) {
	s := newTestService()
	id, err := s.StartJob("unknown", "Unknown", nil)
	require.NoError(t, err)
	waitStatus(t, s, id, JobStatusFailed)
}

func TestService_CancelRunningJob(t *testing.T) {
	s := newTestService()
	started := make(chan struct{})
	s.RegisterHandler("test", NewBaseTaskHandler(&funcTask{
		fn: func(ctx context.Context, job *Job, progress func(int, string)) (map[string]any, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}))

	id, err := s.StartJob("test", "Test", nil)
	require.NoError(t, err)
	<-started

	require.NoError(t, s.CancelJob(id))
	waitStatus(t, s, id, JobStatusCancelled)
	s.Wait()

	assert.ErrorIs(t, s.CancelJob("missing"), ErrJobNotFound)
	assert.Error(t, s.CancelJob(id))
}

func TestService_SameTypeRunsSequentially(t *testing.T) {
	s := newTestService()
	release := make(chan struct{})
	s.RegisterHandler("test", NewBaseTaskHandler(&funcTask{
		fn: func(ctx context.Context, job *Job, progress func(int, string)) (map[string]any, error) {
			<-release
			return nil, nil
		},
	}))

	first, err := s.StartJob("test", "First", nil)
	require.NoError(t, err)
	second, err := s.StartJob("test", "Second", nil)
	require.NoError(t, err)

	job, _ := s.GetJob(second)
	assert.Equal(t, JobStatusPending, job.Status)

	close(release)
	waitStatus(t, s, first, JobStatusCompleted)
	waitStatus(t, s, second, JobStatusCompleted)
	s.Wait()
}

func TestService_CleanupOldJobs(t *testing.T) {
	s := newTestService()
	s.RegisterHandler("test", NewBaseTaskHandler(&funcTask{
		fn: func(ctx context.Context, job *Job, progress func(int, string)) (map[string]any, error) {
			return nil, errors.New("boom")
		},
	}))
	id, err := s.StartJob("test", "Test", nil)
	require.NoError(t, err)
	waitStatus(t, s, id, JobStatusFailed)
	s.Wait()

	assert.Equal(t, 0, s.CleanupOldJobs(time.Hour))
	assert.Equal(t, 1, s.CleanupOldJobs(-time.Second))
	_, ok := s.GetJob(id)
	assert.False(t, ok)
}
