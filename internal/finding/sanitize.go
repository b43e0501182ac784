// Package finding validates untrusted oracle payloads against the taxonomy.
package finding

import (
	"encoding/json"
	"strings"

	"validity.app/auditor/internal/model"
	"validity.app/auditor/internal/taxonomy"
)

// Allowlist is the part of the taxonomy the sanitizer needs.
type Allowlist interface {
	IsAllowed(kind taxonomy.Kind, id string) bool
}

// Sanitize turns one raw oracle payload into a ChunkPayload. It never fails:
// unknown finding types are dropped and malformed fields take their defaults.
// Payloads that predate the micro/structural split carry their micro
// findings under "failures_detected".
func Sanitize(raw model.RawPayload, allow Allowlist) model.ChunkPayload {
	p := model.EmptyPayload()

	if thesis := asObject(raw["thesis"]); thesis != nil {
		p.Thesis.Statement = asString(thesis["statement"])
		if e := asString(thesis["explicitness"]); e != "" {
			p.Thesis.Explicitness = e
		}
	}

	for _, item := range asArray(raw["claims"]) {
		obj := asObject(item)
		if obj == nil {
			continue
		}
		p.Claims = append(p.Claims, model.Claim{
			Claim:       asString(obj["claim"]),
			SupportType: asString(obj["support_type"]),
			Details:     asString(obj["details"]),
		})
	}

	if chain := asObject(raw["logical_chain"]); chain != nil {
		p.LogicalChain.Steps = asStringList(chain["steps"])
		p.LogicalChain.Conclusion = asString(chain["conclusion"])
		p.LogicalChain.Breaks = asStringList(chain["breaks"])
	}

	micro, ok := raw["micro_failures"]
	if !ok {
		micro = raw["failures_detected"]
	}
	p.MicroFindings = SanitizeMicro(asArray(micro), allow)
	p.StructuralFindings = SanitizeStructural(asArray(raw["structural_failures"]), allow)

	for _, item := range asArray(raw["counterfactual_tests"]) {
		obj := asObject(item)
		if obj == nil {
			continue
		}
		p.CounterfactualTests = append(p.CounterfactualTests, model.CounterfactualTest{
			Assumption:    asString(obj["assumption"]),
			ImpactIfWrong: asString(obj["impact_if_wrong"]),
		})
	}

	for _, item := range asArray(raw["assumption_sensitivity"]) {
		obj := asObject(item)
		if obj == nil {
			continue
		}
		p.AssumptionSensitivity = append(p.AssumptionSensitivity, model.AssumptionSensitivity{
			Assumption: asString(obj["assumption"]),
			ImpactRank: asInt(obj["impact_rank"]),
			Reasoning:  asString(obj["reasoning"]),
		})
	}

	for _, item := range asArray(raw["strengths_detected"]) {
		obj := asObject(item)
		if obj == nil {
			continue
		}
		p.StrengthsDetected = append(p.StrengthsDetected, model.Strength{
			Type:        asString(obj["type"]),
			Description: asString(obj["description"]),
		})
	}

	if overall := asObject(raw["overall_assessment"]); overall != nil {
		if c := asString(overall["confidence"]); c != "" {
			p.OverallAssessment.Confidence = c
		}
		p.OverallAssessment.Summary = asString(overall["summary"])
	}

	return p
}

// SanitizeMicro keeps micro findings whose type is in the micro taxonomy.
func SanitizeMicro(items []json.RawMessage, allow Allowlist) []model.MicroFinding {
	out := make([]model.MicroFinding, 0, len(items))
	for _, item := range items {
		obj := asObject(item)
		typ := strings.TrimSpace(asString(obj["type"]))
		if !allow.IsAllowed(taxonomy.KindMicro, typ) {
			continue
		}
		out = append(out, model.MicroFinding{
			Type:        typ,
			Location:    asString(obj["location"]),
			Explanation: asString(obj["explanation"]),
		})
	}
	return out
}

// SanitizeStructural keeps structural findings whose type is in the
// structural taxonomy, normalizing severity, confidence and evidence.
func SanitizeStructural(items []json.RawMessage, allow Allowlist) []model.StructuralFinding {
	out := make([]model.StructuralFinding, 0, len(items))
	for _, item := range items {
		obj := asObject(item)
		typ := strings.TrimSpace(asString(obj["type"]))
		if !allow.IsAllowed(taxonomy.KindStructural, typ) {
			continue
		}
		out = append(out, model.StructuralFinding{
			Type:         typ,
			Severity:     model.ParseFindingSeverity(asString(obj["severity"])),
			Confidence:   model.ParseConfidence(asString(obj["confidence"])),
			WhyItMatters: asString(obj["why_it_matters"]),
			Evidence:     MergeEvidence(nil, asStringList(obj["evidence"])),
			LocationHint: strings.TrimSpace(asString(obj["location_hint"])),
			Fix:          asString(obj["fix"]),
		})
	}
	return out
}

// MergeEvidence appends more to existing, dropping blanks and exact
// duplicates, keeping first-seen order and at most model.MaxEvidence entries.
// The result is never nil.
func MergeEvidence(existing, more []string) []string {
	out := make([]string, 0, model.MaxEvidence)
	seen := make(map[string]struct{}, model.MaxEvidence)
	for _, list := range [][]string{existing, more} {
		for _, e := range list {
			if len(out) == model.MaxEvidence {
				return out
			}
			if strings.TrimSpace(e) == "" {
				continue
			}
			if _, dup := seen[e]; dup {
				continue
			}
			seen[e] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}
