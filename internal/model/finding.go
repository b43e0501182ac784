package model

// MaxEvidence bounds StructuralFinding.Evidence.
const MaxEvidence = 3

// MicroFinding is a localized defect tied to one span of text.
type MicroFinding struct {
	Type        string `json:"type" validate:"required"`
	Location    string `json:"location"`
	Explanation string `json:"explanation"`
}

// StructuralFinding is a document-level defect. Findings with the same Key
// describe the same issue and are merged across chunks.
type StructuralFinding struct {
	Type         string     `json:"type" validate:"required"`
	Severity     Severity   `json:"severity" validate:"oneof=low medium high critical" jsonschema:"enum=low,enum=medium,enum=high"`
	Confidence   Confidence `json:"confidence" validate:"oneof=low medium high" jsonschema:"enum=low,enum=medium,enum=high"`
	WhyItMatters string     `json:"why_it_matters"`
	Evidence     []string   `json:"evidence" validate:"required,max=3,unique,dive,required"`
	LocationHint string     `json:"location_hint"`
	Fix          string     `json:"fix"`
}

type FindingKey struct {
	Type         string
	LocationHint string
}

func (f StructuralFinding) Key() FindingKey {
	return FindingKey{Type: f.Type, LocationHint: f.LocationHint}
}
