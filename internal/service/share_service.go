package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/weeklyworks-api/internal/events"
	appErrors "github.com/noah-isme/weeklyworks-api/pkg/errors"
	"github.com/noah-isme/weeklyworks-api/pkg/jobs"
	"github.com/noah-isme/weeklyworks-api/pkg/storage"
)

// ShareStatus is the lifecycle state of a share request.
type ShareStatus string

const (
	ShareStatusQueued     ShareStatus = "queued"
	ShareStatusProcessing ShareStatus = "processing"
	ShareStatusReady      ShareStatus = "ready"
	ShareStatusFailed     ShareStatus = "failed"
)

// ShareJob tracks one request to publish an export as a downloadable file.
type ShareJob struct {
	ID         string       `json:"id"`
	Format     ExportFormat `json:"format"`
	Status     ShareStatus  `json:"status"`
	URL        string       `json:"url,omitempty"`
	ExpiresAt  *time.Time   `json:"expires_at,omitempty"`
	Error      string       `json:"error,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

// ShareRequest asks for a shareable export.
type ShareRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf ics"`
}

// ShareDownload is an opened export file.
type ShareDownload struct {
	File      *os.File
	Filename  string
	Format    ExportFormat
	ExpiresAt time.Time
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type shareGenerator interface {
	Generate(ctx context.Context, jobID string, format ExportFormat) (*ExportResult, error)
	ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error)
	Open(relPath string) (*os.File, error)
}

// ShareService queues export files for sharing and announces them once written.
type ShareService struct {
	exporter   shareGenerator
	queue      jobDispatcher
	publisher  EventPublisher
	logger     *zap.Logger
	maxRetries int

	mu   sync.RWMutex
	jobs map[string]*ShareJob
}

// NewShareService constructs the share service.
func NewShareService(exporter shareGenerator, queue jobDispatcher, publisher EventPublisher, maxRetries int, logger *zap.Logger) *ShareService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &ShareService{
		exporter:   exporter,
		queue:      queue,
		publisher:  publisher,
		logger:     logger,
		maxRetries: maxRetries,
		jobs:       make(map[string]*ShareJob),
	}
}

// Request registers a share job and hands it to the worker queue.
func (s *ShareService) Request(ctx context.Context, req ShareRequest) (*ShareJob, error) {
	format, ok := ParseExportFormat(req.Format)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	job := &ShareJob{ID: uuid.NewString(), Format: format, Status: ShareStatusQueued, CreatedAt: time.Now().UTC()}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "export.share", Payload: format}); err != nil {
		s.finish(job.ID, func(j *ShareJob) {
			j.Status = ShareStatusFailed
			j.Error = "failed to enqueue export"
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export")
	}
	return s.Status(job.ID)
}

// Status returns a copy of the job state.
func (s *ShareService) Status(id string) (*ShareJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "share job not found")
	}
	clone := *job
	return &clone, nil
}

// Handle is the queue worker: it writes the export and signs its link.
func (s *ShareService) Handle(ctx context.Context, job jobs.Job) error {
	format, ok := job.Payload.(ExportFormat)
	if !ok {
		err := fmt.Errorf("share job %s: unexpected payload %T", job.ID, job.Payload)
		s.finish(job.ID, func(j *ShareJob) {
			j.Status = ShareStatusFailed
			j.Error = err.Error()
		})
		return jobs.Permanent(err)
	}
	s.update(job.ID, func(j *ShareJob) { j.Status = ShareStatusProcessing })

	result, err := s.exporter.Generate(ctx, job.ID, format)
	if err != nil {
		if job.Attempt >= s.maxRetries || errors.Is(err, appErrors.ErrValidation) {
			s.finish(job.ID, func(j *ShareJob) {
				j.Status = ShareStatusFailed
				j.Error = err.Error()
			})
			s.logger.Warn("share export failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			return jobs.Permanent(err)
		}
		s.update(job.ID, func(j *ShareJob) {
			j.Status = ShareStatusQueued
			j.Error = err.Error()
		})
		return err
	}

	expiresAt := result.ExpiresAt
	s.finish(job.ID, func(j *ShareJob) {
		j.Status = ShareStatusReady
		j.URL = result.URL
		j.ExpiresAt = &expiresAt
		j.Error = ""
	})
	if status, err := s.Status(job.ID); err == nil {
		s.publisher.Publish(ctx, events.NewEvent(events.TopicExportReady, events.ActionCreated, job.ID, status))
	}
	return nil
}

// ResolveDownload validates token and opens the stored export file.
func (s *ShareService) ResolveDownload(token string) (*ShareDownload, error) {
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if errors.Is(err, storage.ErrTokenExpired) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
	}
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	job, err := s.Status(jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != ShareStatusReady {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ShareDownload{File: file, Filename: filepath.Base(relPath), Format: job.Format, ExpiresAt: expiresAt}, nil
}

// Forget drops jobs that finished before cutoff and returns how many were removed.
func (s *ShareService) Forget(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

func (s *ShareService) update(id string, fn func(*ShareJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		fn(job)
	}
}

func (s *ShareService) finish(id string, fn func(*ShareJob)) {
	now := time.Now().UTC()
	s.update(id, func(j *ShareJob) {
		fn(j)
		j.FinishedAt = &now
	})
}
