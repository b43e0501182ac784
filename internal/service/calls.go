package service

import (
	"context"
	"errors"
	"fmt"

	"validity.app/auditor/internal/model"
	"validity.app/auditor/internal/store"
)

// ErrLedgerDisabled is returned when no database is configured.
var ErrLedgerDisabled = errors.New("oracle call ledger is not configured")

type CallService interface {
	ListByAnalysis(ctx context.Context, analysisID string) ([]model.OracleCall, error)
}

type callService struct {
	calls store.OracleCallStore
}

func NewCallService(calls store.OracleCallStore) CallService {
	return &callService{calls: calls}
}

func (s *callService) ListByAnalysis(ctx context.Context, analysisID string) ([]model.OracleCall, error) {
	if s.calls == nil {
		return nil, ErrLedgerDisabled
	}
	calls, err := s.calls.ListByAnalysis(ctx, analysisID)
	if err != nil {
		return nil, fmt.Errorf("listing oracle calls: %w", err)
	}
	return calls, nil
}
