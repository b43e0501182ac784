package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"validity.app/auditor/common/logger"
	"validity.app/auditor/internal/model"
	"validity.app/auditor/internal/queue"
	"validity.app/auditor/internal/store"
)

type Config struct {
	MaxAttempts int
	// ErrorBackoff is the pause after a failed read.
	ErrorBackoff time.Duration
}

// transientError marks a job outcome worth another attempt.
type transientError struct {
	result *model.Result
}

func (e *transientError) Error() string {
	return e.result.Error
}

type Worker struct {
	consumer Consumer
	jobs     JobStore
	runner   JobRunner
	cfg      Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, jobs JobStore, runner JobRunner, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = time.Second
	}
	return &Worker{
		consumer:  consumer,
		jobs:      jobs,
		runner:    runner,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "validity.worker"})
	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				select {
				case <-ctx.Done():
				case <-w.stopCh:
				case <-time.After(w.cfg.ErrorBackoff):
				}
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		_ = w.Handle(ctx, msg)
	}

	return nil
}

// Handle processes one delivery and routes failures to retry or the DLQ.
// The reclaimer uses it for stale deliveries.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) error {
	err := w.processMessageSafe(ctx, msg)
	if err != nil {
		slog.ErrorContext(ctx, "message processing failed",
			"error", err,
			"message_id", msg.ID,
			"job_id", msg.JobID)
		w.handleFailedMessage(ctx, msg, err)
	}
	return err
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"job_id", msg.JobID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage runs one job. Unsuccessful analyses caused by the oracle
// being unavailable are returned as errors so the job is retried; any other
// outcome is stored on the job and acknowledged.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		JobID:     logger.Ptr(msg.JobID),
		MessageID: logger.Ptr(msg.ID),
	})
	sc := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_job",
		trace.WithAttributes(
			attribute.String("job.id", msg.JobID),
			attribute.Int("job.attempt", msg.Attempt),
		))
	defer sc.End()
	ctx = sc.Context()

	slog.InfoContext(ctx, "processing job", "attempt", msg.Attempt)

	job, err := w.jobs.Get(ctx, msg.JobID)
	if errors.Is(err, store.ErrNotFound) {
		slog.WarnContext(ctx, "job expired or unknown, dropping message")
		w.ack(ctx, msg)
		return nil
	}
	if err != nil {
		sc.RecordError(err)
		return fmt.Errorf("loading job: %w", err)
	}
	if job.Terminal() {
		slog.InfoContext(ctx, "job already finished, skipping", "status", job.Status)
		w.ack(ctx, msg)
		return nil
	}

	if err := w.jobs.MarkRunning(ctx, job.ID, msg.Attempt); err != nil {
		sc.RecordError(err)
		return fmt.Errorf("marking job running: %w", err)
	}

	start := time.Now()
	result := w.runner.RunJob(ctx, job)

	switch {
	case result.Success:
		if err := w.jobs.Complete(ctx, job.ID, result); err != nil {
			sc.RecordError(err)
			return fmt.Errorf("completing job: %w", err)
		}
	case result.ErrorCode == model.ErrorCodeAllChunksFailed:
		err := &transientError{result: result}
		sc.RecordError(err)
		return err
	default:
		if err := w.jobs.Fail(ctx, job.ID, result, result.Error); err != nil {
			sc.RecordError(err)
			return fmt.Errorf("failing job: %w", err)
		}
	}

	w.ack(ctx, msg)
	slog.InfoContext(ctx, "job processed",
		"success", result.Success,
		"outcome", result.Outcome,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *Worker) ack(ctx context.Context, msg queue.Message) {
	if err := w.consumer.Ack(ctx, msg); err != nil {
		// the reclaimer will redeliver; a finished job is skipped then
		slog.WarnContext(ctx, "failed to ACK message", "error", err, "message_id", msg.ID)
	}
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"job_id", msg.JobID,
			"attempts", msg.Attempt)

		var result *model.Result
		var te *transientError
		if errors.As(err, &te) {
			result = te.result
		}
		if failErr := w.jobs.Fail(ctx, msg.JobID, result, err.Error()); failErr != nil && !errors.Is(failErr, store.ErrNotFound) {
			slog.ErrorContext(ctx, "failed to mark job failed", "error", failErr)
		}
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"job_id", msg.JobID,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
