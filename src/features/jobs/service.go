package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/contre95/posxchange/src/features/config"
	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// ErrPartial is wrapped by tasks that finished with some failed items.
// Such jobs complete with errors instead of failing.
var ErrPartial = errors.New("partial success")

var ErrJobNotFound = errors.New("job not found")

type Job struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Name       string             `json:"name"`
	Status     JobStatus          `json:"status"`
	Progress   int                `json:"progress"`
	Message    string             `json:"message"`
	Error      string             `json:"error,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
	Metadata   map[string]any     `json:"metadata,omitempty"`
	cancelFunc context.CancelFunc `json:"-"`
	Logger     *slog.Logger       `json:"-"`
	LogPath    string             `json:"logPath,omitempty"`
	cancelled  bool               // Track if job has been cancelled
}

func (j *Job) isTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed || j.Status == JobStatusCancelled
}

// snapshot copies the job so callers never share mutable state with the runner.
func (j *Job) snapshot() *Job {
	cp := *j
	cp.Metadata = maps.Clone(j.Metadata)
	cp.cancelFunc = nil
	return &cp
}

type JobProgress struct {
	JobID    string
	Progress int
	Message  string
}

type TaskHandler interface {
	Execute(ctx context.Context, job *Job, progressChan chan<- JobProgress) (map[string]any, error)
	Cancel(jobID string) error
}

// Task defines the specific logic for a job type.
type Task interface {
	MetadataKeys() []string
	Execute(ctx context.Context, job *Job, progressUpdater func(int, string)) (map[string]any, error)
	Cleanup(job *Job) error
}

// BaseTaskHandler provides a base implementation for TaskHandler.
type BaseTaskHandler struct {
	Task Task
}

// NewBaseTaskHandler creates a new BaseTaskHandler.
func NewBaseTaskHandler(task Task) *BaseTaskHandler {
	return &BaseTaskHandler{Task: task}
}

// Execute runs the job using the provided task.
func (h *BaseTaskHandler) Execute(ctx context.Context, job *Job, progressChan chan<- JobProgress) (map[string]any, error) {
	job.Logger.Info("Starting job", "name", job.Name)

	for _, key := range h.Task.MetadataKeys() {
		if _, ok := job.Metadata[key]; !ok {
			err := fmt.Errorf("missing %s in job metadata", key)
			job.Logger.Error("Error: " + err.Error())
			return nil, err
		}
	}

	progressUpdater := func(percentage int, status string) {
		progressChan <- JobProgress{
			JobID:    job.ID,
			Progress: percentage,
			Message:  status,
		}
		job.Logger.Info("Progress", "percentage", percentage, "status", status)
	}

	defer func() {
		if err := h.Task.Cleanup(job); err != nil {
			job.Logger.Error("Error during job cleanup", "error", err)
		}
	}()

	stats, err := h.Task.Execute(ctx, job, progressUpdater)
	if err != nil {
		job.Logger.Error("Error during job execution", "error", err)
		return stats, err
	}

	job.Logger.Info("Job finished successfully", "name", job.Name)
	return stats, nil
}

// Cancel stops a running job.
// The actual cancellation is handled by the context in the job service,
// this method is for any specific cleanup required by the handler.
func (h *BaseTaskHandler) Cancel(jobID string) error {
	return nil
}

// JobService defines the interface for job management that other services will use
type JobService interface {
	StartJob(jobType string, name string, metadata map[string]any) (string, error)
	UpdateJobProgress(jobID string, progress int, message string)
	GetJob(jobID string) (*Job, bool)
	CancelJob(jobID string) error
	GetJobs() []*Job
}

type Service struct {
	jobs     map[string]*Job
	handlers map[string]TaskHandler
	mu       sync.RWMutex
	config   *config.Jobs
	wg       sync.WaitGroup
}

func NewService(cfg *config.Jobs) *Service {
	return &Service{
		jobs:     make(map[string]*Job),
		handlers: make(map[string]TaskHandler),
		config:   cfg,
	}
}

func (s *Service) RegisterHandler(jobType string, handler TaskHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[jobType] = handler
}

func (s *Service) StartJob(jobType string, name string, metadata map[string]any) (string, error) {
	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Name:      name,
		Status:    JobStatusPending,
		Progress:  0,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Metadata:  metadata,
	}
	if job.Metadata == nil {
		job.Metadata = make(map[string]any)
	}

	if s.config.Log {
		logDir := s.config.LogPath
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create log directory: %w", err)
		}
		logName := fmt.Sprintf("%s-%s.log", time.Now().Format("2006-01-02"), job.ID)
		logPath := filepath.Join(logDir, logName)
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return "", fmt.Errorf("failed to open log file: %w", err)
		}
		job.Logger = slog.New(slog.NewTextHandler(logFile, nil))
		job.LogPath = logPath
	} else {
		// If logging is disabled, use a discard logger to prevent nil pointer errors
		job.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s.mu.Lock()
	s.jobs[job.ID] = job

	// One job per type runs at a time; the rest wait as pending.
	if !s.isJobTypeRunning(jobType) {
		job.Status = JobStatusRunning
		s.wg.Add(1)
		s.mu.Unlock()
		go s.executeJob(job)
	} else {
		s.mu.Unlock()
	}

	slog.Debug("Service.StartJob: job created", "id", job.ID, "type", jobType)
	return job.ID, nil
}

func (s *Service) executeJob(job *Job) {
	defer s.wg.Done()

	s.mu.RLock()
	handler, exists := s.handlers[job.Type]
	s.mu.RUnlock()
	if !exists {
		s.finishJob(job.ID, JobStatusFailed, "No handler registered", nil)
		s.startNextPendingJob(job.Type)
		return
	}

	progressChan := make(chan JobProgress, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.mu.Lock()
	job.cancelFunc = cancel
	s.mu.Unlock()
	s.updateJobStatus(job.ID, JobStatusRunning, "Starting...")

	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for progress := range progressChan {
			s.UpdateJobProgress(progress.JobID, progress.Progress, progress.Message)
		}
	}()
	stats, err := handler.Execute(ctx, job, progressChan)
	close(progressChan)
	<-progressDone

	s.mu.Lock()
	cancelled := job.cancelled
	s.mu.Unlock()

	switch {
	case cancelled || errors.Is(err, context.Canceled):
		s.finishJob(job.ID, JobStatusCancelled, "Job cancelled", stats)
	case errors.Is(err, ErrPartial):
		s.finishJob(job.ID, JobStatusCompleted, "Job completed with errors - "+err.Error(), stats)
	case err != nil:
		s.finishJob(job.ID, JobStatusFailed, err.Error(), stats)
	default:
		s.finishJob(job.ID, JobStatusCompleted, "Job completed successfully", stats)
	}
	s.executeWebhook(job.ID)

	// After job completes, check for pending jobs of the same type
	s.startNextPendingJob(job.Type)
}

func (s *Service) updateJobStatus(jobID string, status JobStatus, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, exists := s.jobs[jobID]; exists {
		job.Status = status
		job.Message = message
		job.UpdatedAt = time.Now()
		if status == JobStatusCompleted {
			job.Progress = 100
		}
	}
}

// finishJob sets the terminal status and merges the task stats into the job metadata.
func (s *Service) finishJob(jobID string, status JobStatus, message string, stats map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, exists := s.jobs[jobID]
	if !exists {
		return
	}
	job.Status = status
	job.Message = message
	job.UpdatedAt = time.Now()
	if status == JobStatusFailed {
		job.Error = message
	}
	if status == JobStatusCompleted {
		job.Progress = 100
	}
	maps.Copy(job.Metadata, stats)
}

func (s *Service) UpdateJobProgress(jobID string, progress int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, exists := s.jobs[jobID]; exists {
		if job.isTerminal() {
			return
		}
		job.Progress = progress
		job.Message = message
		job.UpdatedAt = time.Now()
	}
}

func (s *Service) CancelJob(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, exists := s.jobs[jobID]
	if !exists {
		return ErrJobNotFound
	}
	if job.isTerminal() {
		return fmt.Errorf("job %s already %s", jobID, job.Status)
	}

	job.cancelled = true
	job.Status = JobStatusCancelled
	job.Message = "Job cancelled"
	job.UpdatedAt = time.Now()

	if job.cancelFunc != nil {
		job.cancelFunc()
	}
	if handler, exists := s.handlers[job.Type]; exists {
		return handler.Cancel(jobID)
	}
	return nil
}

// GetJob returns a copy of the job.
func (s *Service) GetJob(jobID string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, exists := s.jobs[jobID]
	if !exists {
		return nil, false
	}
	return job.snapshot(), true
}

// GetJobs returns copies of every job, newest first.
func (s *Service) GetJobs() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.snapshot())
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs
}

// Wait blocks until every started job has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) isJobTypeRunning(jobType string) bool {
	for _, job := range s.jobs {
		if job.Type == jobType && job.Status == JobStatusRunning {
			return true
		}
	}
	return false
}

func (s *Service) startNextPendingJob(jobType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Find the oldest pending job of this type
	var nextJob *Job
	for _, job := range s.jobs {
		if job.Type == jobType && job.Status == JobStatusPending {
			if nextJob == nil || job.CreatedAt.Before(nextJob.CreatedAt) {
				nextJob = job
			}
		}
	}
	if nextJob != nil {
		nextJob.Status = JobStatusRunning
		s.wg.Add(1)
		go s.executeJob(nextJob)
	}
}

func (s *Service) CleanupOldJobs(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > maxAge && job.isTerminal() {
			if job.LogPath != "" {
				os.Remove(job.LogPath)
			}
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// RunCleanup removes finished jobs older than maxAge every interval until ctx is done.
func (s *Service) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.CleanupOldJobs(maxAge); n > 0 {
				slog.Debug("Service.RunCleanup: removed old jobs", "count", n)
			}
		}
	}
}

// executeWebhook executes the configured webhook command for job completion
func (s *Service) executeWebhook(jobID string) {
	if !s.config.Webhooks.Enabled {
		return
	}

	job, ok := s.GetJob(jobID)
	if !ok {
		return
	}

	shouldNotify := false
	for _, jobType := range s.config.Webhooks.JobTypes {
		if jobType == job.Type || jobType == "*" {
			shouldNotify = true
			break
		}
	}
	if !shouldNotify {
		return
	}

	message := job.Message
	if msg, ok := job.Metadata["msg"].(string); ok && msg != "" {
		message = msg
	}

	data := struct {
		Name     string
		Type     string
		Status   string
		Message  string
		Duration string
	}{
		Name:     job.Name,
		Type:     job.Type,
		Status:   string(job.Status),
		Message:  message,
		Duration: time.Since(job.CreatedAt).Round(time.Second).String(),
	}

	tmpl, err := template.New("webhook").Parse(s.config.Webhooks.Command)
	if err != nil {
		job.Logger.Error("Failed to parse webhook template", "error", err)
		return
	}

	var command strings.Builder
	if err := tmpl.Execute(&command, data); err != nil {
		job.Logger.Error("Failed to execute webhook template", "error", err)
		return
	}

	go s.executeWebhookCommand(command.String(), job.Logger)
}

// executeWebhookCommand executes the webhook command safely
func (s *Service) executeWebhookCommand(command string, logger *slog.Logger) {
	// Use shell to properly handle quoted strings and complex commands
	cmd := exec.Command("/bin/sh", "-c", command)
	cmd.Env = os.Environ()

	timer := time.AfterFunc(30*time.Second, func() {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	})
	defer timer.Stop()

	if err := cmd.Run(); err != nil {
		logger.Error("Webhook execution failed", "command", command, "error", err)
	} else {
		logger.Info("Webhook executed successfully", "command", command)
	}
}
