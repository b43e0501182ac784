package model

import "time"

type OracleCallStage string

const (
	OracleCallStageAnalyze   OracleCallStage = "analyze"
	OracleCallStageRepair    OracleCallStage = "repair"
	OracleCallStageSynthesis OracleCallStage = "synthesis"
)

type OracleCallOutcome string

const (
	OracleCallOutcomeParsed         OracleCallOutcome = "parsed"
	OracleCallOutcomeUnparseable    OracleCallOutcome = "unparseable"
	OracleCallOutcomeTransportError OracleCallOutcome = "transport_error"
)

// OracleCall is one ledger row per oracle round-trip. Document text is never
// stored, only its hash and size.
type OracleCall struct {
	ID              int64             `json:"id"`
	AnalysisID      string            `json:"analysis_id"`
	ChunkIndex      int               `json:"chunk_index"`
	Stage           OracleCallStage   `json:"stage"`
	Provider        string            `json:"provider"`
	Model           string            `json:"model"`
	PromptVersion   string            `json:"prompt_version"`
	TaxonomyVersion string            `json:"taxonomy_version"`
	InputSHA256     string            `json:"input_sha256"`
	InputChars      int               `json:"input_chars"`
	OutputChars     int               `json:"output_chars"`
	Outcome         OracleCallOutcome `json:"outcome"`
	Error           *string           `json:"error,omitempty"`

	LatencyMs        int  `json:"latency_ms"`
	PromptTokens     *int `json:"prompt_tokens,omitempty"`
	CompletionTokens *int `json:"completion_tokens,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
