package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"validity.app/auditor/common/id"
	"validity.app/auditor/common/logger"
	"validity.app/auditor/internal/document"
	"validity.app/auditor/internal/model"
	"validity.app/auditor/internal/queue"
	"validity.app/auditor/internal/store"
)

var (
	ErrJobNotFound = errors.New("job not found")
	// ErrJobsDisabled is returned when no queue is configured.
	ErrJobsDisabled = errors.New("async jobs are not configured")
)

type JobService interface {
	Submit(ctx context.Context, documentText string, timeout time.Duration) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
}

type jobService struct {
	jobs     store.JobStore
	producer queue.Producer
}

// NewJobService returns a service that rejects every call with
// ErrJobsDisabled when jobs or producer is nil.
func NewJobService(jobs store.JobStore, producer queue.Producer) JobService {
	return &jobService{
		jobs:     jobs,
		producer: producer,
	}
}

// Submit rejects too-short documents up front so they never reach the queue.
func (s *jobService) Submit(ctx context.Context, documentText string, timeout time.Duration) (*model.Job, error) {
	if s.jobs == nil || s.producer == nil {
		return nil, ErrJobsDisabled
	}
	if _, err := document.Normalize(documentText); err != nil {
		return nil, err
	}

	job := &model.Job{
		ID:             id.NewString(),
		Status:         model.JobStatusQueued,
		Document:       documentText,
		TimeoutSeconds: timeout.Seconds(),
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{JobID: logger.Ptr(job.ID)})

	if err := s.jobs.Create(ctx, job); err != nil {
		slog.ErrorContext(ctx, "failed to store job", "error", err)
		return nil, fmt.Errorf("creating job: %w", err)
	}

	if err := s.producer.Enqueue(ctx, queue.JobMessage{
		JobID:   job.ID,
		TraceID: logger.TraceID(ctx),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to enqueue job", "error", err)
		if failErr := s.jobs.Fail(ctx, job.ID, nil, "enqueue failed"); failErr != nil {
			slog.WarnContext(ctx, "failed to mark unqueued job failed", "error", failErr)
		}
		return nil, fmt.Errorf("enqueueing job: %w", err)
	}

	slog.InfoContext(ctx, "job submitted", "timeout_seconds", job.TimeoutSeconds)
	job.Document = ""
	return job, nil
}

func (s *jobService) Get(ctx context.Context, id string) (*model.Job, error) {
	if s.jobs == nil {
		return nil, ErrJobsDisabled
	}
	job, err := s.jobs.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading job: %w", err)
	}
	job.Document = ""
	return job, nil
}
