// Package aggregate merges the validated payloads of every successful chunk
// into one report.
package aggregate

import (
	"cmp"
	"slices"

	"validity.app/auditor/internal/finding"
	"validity.app/auditor/internal/model"
	"validity.app/auditor/internal/taxonomy"
)

// MetadataLookup resolves the static severity of a micro finding type.
type MetadataLookup interface {
	MetadataFor(id string) (taxonomy.Metadata, bool)
}

// Caps bound the finding lists after ranking. Zero means unbounded.
type Caps struct {
	MaxMicro      int
	MaxStructural int
}

// Merge builds a report from payloads, which must be in chunk order. The
// representative fields come verbatim from payloads[0]. Derived fields
// (score, risk, flags) are left for the scorer. Merge never modifies its input.
func Merge(payloads []model.ChunkPayload, lookup MetadataLookup, caps Caps) *model.Report {
	report := &model.Report{
		Claims:                []model.Claim{},
		LogicalChain:          model.LogicalChain{Steps: []string{}, Breaks: []string{}},
		MicroFindings:         []model.MicroFinding{},
		StructuralFindings:    []model.StructuralFinding{},
		CounterfactualTests:   []model.CounterfactualTest{},
		AssumptionSensitivity: []model.AssumptionSensitivity{},
		StrengthsDetected:     []model.Strength{},
		TopRiskFlags:          []string{},
	}
	if len(payloads) == 0 {
		return report
	}

	rep := payloads[0]
	report.Thesis = rep.Thesis
	report.LogicalChain = model.LogicalChain{
		Steps:      cloneOrEmpty(rep.LogicalChain.Steps),
		Conclusion: rep.LogicalChain.Conclusion,
		Breaks:     cloneOrEmpty(rep.LogicalChain.Breaks),
	}
	report.OverallAssessment = rep.OverallAssessment
	report.Claims = cloneOrEmpty(rep.Claims)
	report.CounterfactualTests = cloneOrEmpty(rep.CounterfactualTests)
	report.AssumptionSensitivity = cloneOrEmpty(rep.AssumptionSensitivity)
	report.StrengthsDetected = cloneOrEmpty(rep.StrengthsDetected)

	var micro []model.MicroFinding
	structural := NewStructuralSet()
	for _, p := range payloads {
		micro = append(micro, p.MicroFindings...)
		structural.Add(p.StructuralFindings...)
	}

	report.MicroFindings = CapMicro(micro, lookup, caps.MaxMicro)
	report.StructuralFindings = capList(structural.Ranked(), caps.MaxStructural)
	return report
}

// StructuralSet deduplicates structural findings by Key, remembering
// first-seen order.
type StructuralSet struct {
	order []model.FindingKey
	byKey map[model.FindingKey]model.StructuralFinding
}

func NewStructuralSet() *StructuralSet {
	return &StructuralSet{byKey: make(map[model.FindingKey]model.StructuralFinding)}
}

func (s *StructuralSet) Add(findings ...model.StructuralFinding) {
	for _, f := range findings {
		key := f.Key()
		cur, ok := s.byKey[key]
		if !ok {
			f.Evidence = finding.MergeEvidence(nil, f.Evidence)
			s.byKey[key] = f
			s.order = append(s.order, key)
			continue
		}
		s.byKey[key] = MergeStructural(cur, f)
	}
}

func (s *StructuralSet) Len() int {
	return len(s.order)
}

// Ranked returns the merged findings sorted by severity descending, then type
// and location hint ascending.
func (s *StructuralSet) Ranked() []model.StructuralFinding {
	out := make([]model.StructuralFinding, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.byKey[key])
	}
	SortStructural(out)
	return out
}

// MergeStructural folds next into cur, which share a key. Severity and
// confidence take the higher rank with ties keeping cur; prose fields are
// filled only when empty; evidence is unioned with cur's entries first.
func MergeStructural(cur, next model.StructuralFinding) model.StructuralFinding {
	cur.Severity = model.MaxSeverity(cur.Severity, next.Severity)
	cur.Confidence = model.MaxConfidence(cur.Confidence, next.Confidence)
	if cur.WhyItMatters == "" {
		cur.WhyItMatters = next.WhyItMatters
	}
	if cur.Fix == "" {
		cur.Fix = next.Fix
	}
	cur.Evidence = finding.MergeEvidence(cur.Evidence, next.Evidence)
	return cur
}

func SortStructural(findings []model.StructuralFinding) {
	slices.SortStableFunc(findings, func(a, b model.StructuralFinding) int {
		return cmp.Or(
			cmp.Compare(b.Severity.Rank(), a.Severity.Rank()),
			cmp.Compare(a.Type, b.Type),
			cmp.Compare(a.LocationHint, b.LocationHint),
		)
	})
}

// CapMicro keeps the limit highest-severity findings, preferring earlier ones
// on ties, and returns the survivors in their original order.
func CapMicro(findings []model.MicroFinding, lookup MetadataLookup, limit int) []model.MicroFinding {
	if limit <= 0 || len(findings) <= limit {
		return cloneOrEmpty(findings)
	}

	idx := make([]int, len(findings))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(MicroSeverity(lookup, findings[b].Type).Rank(), MicroSeverity(lookup, findings[a].Type).Rank())
	})
	idx = idx[:limit]
	slices.Sort(idx)

	out := make([]model.MicroFinding, len(idx))
	for i, j := range idx {
		out[i] = findings[j]
	}
	return out
}

// MicroSeverity is the taxonomy severity of a micro finding type, or "" when
// the type is unknown.
func MicroSeverity(lookup MetadataLookup, typ string) model.Severity {
	meta, ok := lookup.MetadataFor(typ)
	if !ok {
		return ""
	}
	return meta.Severity
}

func capList[T any](list []T, limit int) []T {
	if limit > 0 && len(list) > limit {
		return list[:limit]
	}
	return list
}

func cloneOrEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clone(s)
}
