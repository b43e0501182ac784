package model

import "encoding/json"

// RawPayload is an oracle response decoded only to its top-level keys.
// Nothing in it is trusted until it passes the finding sanitizer.
type RawPayload map[string]json.RawMessage

type Thesis struct {
	Statement    string `json:"statement"`
	Explicitness string `json:"explicitness"`
}

type Claim struct {
	Claim       string `json:"claim"`
	SupportType string `json:"support_type"`
	Details     string `json:"details"`
}

type LogicalChain struct {
	Steps      []string `json:"steps"`
	Conclusion string   `json:"conclusion"`
	Breaks     []string `json:"breaks"`
}

type CounterfactualTest struct {
	Assumption    string `json:"assumption"`
	ImpactIfWrong string `json:"impact_if_wrong"`
}

type AssumptionSensitivity struct {
	Assumption string `json:"assumption"`
	ImpactRank int    `json:"impact_rank"`
	Reasoning  string `json:"reasoning"`
}

type Strength struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type OverallAssessment struct {
	Confidence string `json:"confidence"`
	Summary    string `json:"summary"`
}

// ChunkPayload is the validated oracle output for one chunk.
type ChunkPayload struct {
	Thesis                Thesis                  `json:"thesis"`
	Claims                []Claim                 `json:"claims"`
	LogicalChain          LogicalChain            `json:"logical_chain"`
	MicroFindings         []MicroFinding          `json:"micro_failures"`
	StructuralFindings    []StructuralFinding     `json:"structural_failures"`
	CounterfactualTests   []CounterfactualTest    `json:"counterfactual_tests"`
	AssumptionSensitivity []AssumptionSensitivity `json:"assumption_sensitivity"`
	StrengthsDetected     []Strength              `json:"strengths_detected"`
	OverallAssessment     OverallAssessment       `json:"overall_assessment"`

	// ParseFailed marks the fallback payload returned when the oracle's
	// output could not be parsed even after repair.
	ParseFailed bool `json:"parse_failed,omitempty" jsonschema:"-"`
}

// EmptyPayload returns a payload with every list non-nil so it encodes as [].
func EmptyPayload() ChunkPayload {
	return ChunkPayload{
		Thesis:                Thesis{Explicitness: "unclear"},
		Claims:                []Claim{},
		LogicalChain:          LogicalChain{Steps: []string{}, Breaks: []string{}},
		MicroFindings:         []MicroFinding{},
		StructuralFindings:    []StructuralFinding{},
		CounterfactualTests:   []CounterfactualTest{},
		AssumptionSensitivity: []AssumptionSensitivity{},
		StrengthsDetected:     []Strength{},
		OverallAssessment:     OverallAssessment{Confidence: string(ConfidenceMedium)},
	}
}

// FallbackPayload is the sentinel for an unparseable oracle response.
func FallbackPayload() ChunkPayload {
	p := EmptyPayload()
	p.ParseFailed = true
	p.OverallAssessment = OverallAssessment{Confidence: string(ConfidenceLow)}
	return p
}
