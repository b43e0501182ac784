// Package score derives the quality score, decision risk and top flags from
// a merged finding set.
package score

import (
	"cmp"
	"slices"

	"validity.app/auditor/internal/model"
	"validity.app/auditor/internal/taxonomy"
)

const DefaultTopFlags = 3

// MetadataLookup resolves the static severity of micro finding types.
type MetadataLookup interface {
	MetadataFor(id string) (taxonomy.Metadata, bool)
}

// Finding is one entry of the common severity scale shared by both kinds.
type Finding struct {
	Type     string
	Severity model.Severity
}

// Collect flattens a report's findings. Micro findings take the taxonomy
// severity; structural findings carry their own.
func Collect(report *model.Report, lookup MetadataLookup) []Finding {
	out := make([]Finding, 0, len(report.MicroFindings)+len(report.StructuralFindings))
	for _, f := range report.MicroFindings {
		var sev model.Severity
		if meta, ok := lookup.MetadataFor(f.Type); ok {
			sev = meta.Severity
		}
		out = append(out, Finding{Type: f.Type, Severity: sev})
	}
	for _, f := range report.StructuralFindings {
		out = append(out, Finding{Type: f.Type, Severity: f.Severity})
	}
	return out
}

// Apply fills the derived fields of report.
func Apply(report *model.Report, lookup MetadataLookup, topK int) {
	findings := Collect(report, lookup)
	report.ReasoningScore = ReasoningScore(findings)
	report.DecisionRisk = DecisionRisk(findings)
	report.TopRiskFlags = TopRiskFlags(findings, topK)
	report.TotalFindings = len(findings)
}

// ReasoningScore is 100 minus the severity penalties, clamped to [0, 100].
func ReasoningScore(findings []Finding) int {
	score := 100
	for _, f := range findings {
		score -= f.Severity.Penalty()
	}
	return min(max(score, 0), 100)
}

// DecisionRisk applies the fixed decision table: any critical is critical;
// three or more high is high; one high or five medium is medium.
func DecisionRisk(findings []Finding) model.RiskLevel {
	var high, medium int
	for _, f := range findings {
		switch f.Severity {
		case model.SeverityCritical:
			return model.RiskCritical
		case model.SeverityHigh:
			high++
		case model.SeverityMedium:
			medium++
		}
	}

	switch {
	case high >= 3:
		return model.RiskHigh
	case high >= 1 || medium >= 5:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

// TopRiskFlags returns the k most frequent types, ties by ascending name.
func TopRiskFlags(findings []Finding, k int) []string {
	if k <= 0 {
		k = DefaultTopFlags
	}

	counts := make(map[string]int)
	for _, f := range findings {
		if f.Type != "" {
			counts[f.Type]++
		}
	}

	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	slices.SortFunc(types, func(a, b string) int {
		return cmp.Or(cmp.Compare(counts[b], counts[a]), cmp.Compare(a, b))
	})

	if len(types) > k {
		types = types[:k]
	}
	return types
}
