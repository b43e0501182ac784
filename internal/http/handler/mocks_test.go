package handler_test

import (
	"context"
	"time"

	"validity.app/auditor/internal/model"
)

type mockAnalysisService struct {
	analyzeFn func(ctx context.Context, doc string, timeout time.Duration) *model.Result
}

func (m *mockAnalysisService) Analyze(ctx context.Context, doc string, timeout time.Duration) *model.Result {
	return m.analyzeFn(ctx, doc, timeout)
}

func (m *mockAnalysisService) RunJob(ctx context.Context, job *model.Job) *model.Result {
	return m.analyzeFn(ctx, job.Document, 0)
}

type mockJobService struct {
	submitFn func(ctx context.Context, doc string, timeout time.Duration) (*model.Job, error)
	getFn    func(ctx context.Context, id string) (*model.Job, error)
}

func (m *mockJobService) Submit(ctx context.Context, doc string, timeout time.Duration) (*model.Job, error) {
	return m.submitFn(ctx, doc, timeout)
}

func (m *mockJobService) Get(ctx context.Context, id string) (*model.Job, error) {
	return m.getFn(ctx, id)
}

type mockCallService struct {
	listFn func(ctx context.Context, analysisID string) ([]model.OracleCall, error)
}

func (m *mockCallService) ListByAnalysis(ctx context.Context, analysisID string) ([]model.OracleCall, error) {
	return m.listFn(ctx, analysisID)
}
