package store

import (
	"context"
	"errors"

	"validity.app/auditor/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// OracleCallStore is the append-only ledger of oracle round-trips.
type OracleCallStore interface {
	Record(ctx context.Context, call model.OracleCall) error
	ListByAnalysis(ctx context.Context, analysisID string) ([]model.OracleCall, error)
}

// JobStore holds asynchronous analysis jobs until they expire.
type JobStore interface {
	Create(ctx context.Context, job *model.Job) error
	Get(ctx context.Context, id string) (*model.Job, error)
	MarkRunning(ctx context.Context, id string, attempt int) error
	Complete(ctx context.Context, id string, result *model.Result) error
	Fail(ctx context.Context, id string, result *model.Result, errMsg string) error
}
