package worker

import (
	"context"

	"validity.app/auditor/internal/model"
	"validity.app/auditor/internal/queue"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// JobStore is the part of store.JobStore the worker needs.
type JobStore interface {
	Get(ctx context.Context, id string) (*model.Job, error)
	MarkRunning(ctx context.Context, id string, attempt int) error
	Complete(ctx context.Context, id string, result *model.Result) error
	Fail(ctx context.Context, id string, result *model.Result, errMsg string) error
}

// JobRunner runs the analysis for one job.
type JobRunner interface {
	RunJob(ctx context.Context, job *model.Job) *model.Result
}
