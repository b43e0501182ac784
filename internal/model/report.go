package model

// Report is the merged result of every successful chunk.
type Report struct {
	Thesis                Thesis                  `json:"thesis"`
	Claims                []Claim                 `json:"claims" validate:"required"`
	LogicalChain          LogicalChain            `json:"logical_chain"`
	MicroFindings         []MicroFinding          `json:"micro_failures" validate:"required,dive"`
	StructuralFindings    []StructuralFinding     `json:"structural_failures" validate:"required,dive"`
	CounterfactualTests   []CounterfactualTest    `json:"counterfactual_tests" validate:"required"`
	AssumptionSensitivity []AssumptionSensitivity `json:"assumption_sensitivity" validate:"required"`
	StrengthsDetected     []Strength              `json:"strengths_detected" validate:"required"`
	OverallAssessment     OverallAssessment       `json:"overall_assessment"`

	DecisionRisk   RiskLevel `json:"decision_risk" validate:"oneof=low medium high critical"`
	ReasoningScore int       `json:"reasoning_score" validate:"gte=0,lte=100"`
	TopRiskFlags   []string  `json:"top_risk_flags" validate:"required,unique"`
	TotalFindings  int       `json:"total_findings" validate:"gte=0"`

	// Synthesized is true when thesis and overall_assessment came from the
	// synthesis pass instead of the first successful chunk.
	Synthesized bool `json:"synthesized"`
}

type ErrorCode string

const (
	ErrorCodeTooShort               ErrorCode = "too_short"
	ErrorCodeAllChunksFailed        ErrorCode = "all_chunks_failed"
	ErrorCodeSchemaValidationFailed ErrorCode = "schema_validation_failed"
)

// Outcome is the terminal state of one analysis run.
type Outcome string

const (
	OutcomeRejected       Outcome = "rejected"
	OutcomeAllFailed      Outcome = "all_failed"
	OutcomePartialSuccess Outcome = "partial_success"
	OutcomeFullSuccess    Outcome = "full_success"

	// OutcomeInvalid is a merged report that failed the integrity check.
	OutcomeInvalid Outcome = "invalid"
)

// Result is what every caller of an analysis receives.
type Result struct {
	AnalysisID          string    `json:"analysis_id"`
	Success             bool      `json:"success"`
	Outcome             Outcome   `json:"outcome"`
	Analysis            *Report   `json:"analysis"`
	Error               string    `json:"error,omitempty"`
	ErrorCode           ErrorCode `json:"error_code,omitempty"`
	ChunksAnalyzed      int       `json:"chunks_analyzed"`
	ChunksSucceeded     int       `json:"chunks_succeeded"`
	ChunksFailed        int       `json:"chunks_failed"`
	ChunksSkipped       int       `json:"chunks_skipped"`
	AnalysisTimeSeconds float64   `json:"analysis_time_seconds"`
	Partial             bool      `json:"partial"`
	TimedOut            bool      `json:"timed_out"`
	Cached              bool      `json:"cached"`
	DebugErrors         []string  `json:"debug_errors,omitempty"`
}
