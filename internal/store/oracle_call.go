package store

import (
	"context"
	"fmt"

	"validity.app/auditor/core/db"
	"validity.app/auditor/internal/model"
)

type oracleCallStore struct {
	db db.DBTX
}

func NewOracleCallStore(conn db.DBTX) OracleCallStore {
	return &oracleCallStore{db: conn}
}

const insertOracleCall = `
INSERT INTO oracle_calls (
    id, analysis_id, chunk_index, stage, provider, model, prompt_version,
    taxonomy_version, input_sha256, input_chars, output_chars, outcome, error,
    latency_ms, prompt_tokens, completion_tokens, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

func (s *oracleCallStore) Record(ctx context.Context, call model.OracleCall) error {
	_, err := s.db.Exec(ctx, insertOracleCall,
		call.ID,
		call.AnalysisID,
		call.ChunkIndex,
		string(call.Stage),
		call.Provider,
		call.Model,
		call.PromptVersion,
		call.TaxonomyVersion,
		call.InputSHA256,
		call.InputChars,
		call.OutputChars,
		string(call.Outcome),
		call.Error,
		call.LatencyMs,
		call.PromptTokens,
		call.CompletionTokens,
		call.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting oracle call: %w", err)
	}
	return nil
}

const listOracleCallsByAnalysis = `
SELECT id, analysis_id, chunk_index, stage, provider, model, prompt_version,
       taxonomy_version, input_sha256, input_chars, output_chars, outcome, error,
       latency_ms, prompt_tokens, completion_tokens, created_at
FROM oracle_calls
WHERE analysis_id = $1
ORDER BY created_at, id`

func (s *oracleCallStore) ListByAnalysis(ctx context.Context, analysisID string) ([]model.OracleCall, error) {
	rows, err := s.db.Query(ctx, listOracleCallsByAnalysis, analysisID)
	if err != nil {
		return nil, fmt.Errorf("listing oracle calls: %w", err)
	}
	defer rows.Close()

	var calls []model.OracleCall
	for rows.Next() {
		var c model.OracleCall
		var stage, outcome string
		if err := rows.Scan(
			&c.ID,
			&c.AnalysisID,
			&c.ChunkIndex,
			&stage,
			&c.Provider,
			&c.Model,
			&c.PromptVersion,
			&c.TaxonomyVersion,
			&c.InputSHA256,
			&c.InputChars,
			&c.OutputChars,
			&outcome,
			&c.Error,
			&c.LatencyMs,
			&c.PromptTokens,
			&c.CompletionTokens,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning oracle call: %w", err)
		}
		c.Stage = model.OracleCallStage(stage)
		c.Outcome = model.OracleCallOutcome(outcome)
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating oracle calls: %w", err)
	}
	return calls, nil
}
