package oracle

import (
	"strings"

	"validity.app/auditor/internal/taxonomy"
)

// PromptVersion is bumped whenever prompt wording changes. It is recorded
// with every oracle call and is part of the cache key.
const PromptVersion = "v3"

const systemPrompt = `You are a reasoning quality analyzer. Return ONLY valid JSON. No markdown. No commentary.`

const analysisPrompt = `Evaluate the INTERNAL LOGIC of the document below.
Do NOT assess factual accuracy, political merit or policy desirability.
Assess whether the reasoning is coherent, bounded, proportionate and justified.

DOCUMENT TO ANALYZE:
{{document}}

{{taxonomy}}

ANALYSIS FRAMEWORK (perform every step in order):

1. THESIS
- State the main conclusion, recommendation or purpose.
- Say whether it is explicit, implicit or unclear.

2. CLAIMS
- List each major supporting claim.
- Classify its support as evidenced (data, citations, concrete examples),
  assumed (treated as true without support) or asserted (stated without justification).

3. LOGICAL CHAIN
- Map the inferential steps from premises to conclusion (A -> B -> C).
- Note where the chain weakens or breaks.

4. MICRO FAILURES (local)
- Sentence- or paragraph-level reasoning failures.
- micro_failures[].type MUST be one of the allowed micro types above.
- Return an empty list when there are none.

5. STRUCTURAL FAILURES (document-level)
- Failures of the document as a whole, even when each sentence is well-formed.
- They concern coherence and justification, not whether the policy is good.
- Flag one only with CLEAR EVIDENCE in the text. Do not infer intent.
  Do not treat disagreement as failure. If evidence is weak, do not flag.
- structural_failures[].type MUST be one of the allowed structural types above.
- For each, give severity (low|medium|high), confidence (low|medium|high),
  why_it_matters (one neutral sentence), evidence (1-3 short verbatim excerpts,
  at most 25 words each), location_hint (section, heading or page) and fix
  (a concrete drafting or reasoning fix).
- Return an empty list when there are none.

6. STRESS TESTING
- Counterfactual tests: if this assumption is wrong, what breaks?
- Rank the top three assumptions by impact if incorrect.

7. STRENGTHS
- Acknowledged assumptions, clear causal mechanisms, alternatives considered,
  scope limits or safeguards.

OUTPUT: a single JSON object with exactly this structure:

{
  "thesis": {"statement": "...", "explicitness": "explicit|implicit|unclear"},
  "claims": [{"claim": "...", "support_type": "evidenced|assumed|asserted", "details": "..."}],
  "logical_chain": {"steps": ["A", "B", "C"], "conclusion": "...", "breaks": ["..."]},
  "micro_failures": [{"type": "{{micro_types}}", "location": "exact quote", "explanation": "..."}],
  "structural_failures": [{
    "type": "{{structural_types}}",
    "severity": "low|medium|high",
    "confidence": "low|medium|high",
    "why_it_matters": "...",
    "evidence": ["...", "..."],
    "location_hint": "...",
    "fix": "..."
  }],
  "counterfactual_tests": [{"assumption": "...", "impact_if_wrong": "..."}],
  "assumption_sensitivity": [{"assumption": "...", "impact_rank": 1, "reasoning": "..."}],
  "strengths_detected": [{"type": "...", "description": "..."}],
  "overall_assessment": {"confidence": "high|medium|low", "summary": "2-3 sentences"}
}

Use ONLY the allowed failure types. Quote exact phrases when flagging failures.
Return the JSON object and nothing else.`

const repairPrompt = `The text below was supposed to be a single JSON object but it does not parse.
Fix it so that it is valid JSON, keeping every field and value that can be kept.
Return ONLY the JSON object. No markdown. No commentary.

TEXT:
{{text}}`

const synthesisPrompt = `Below are partial analyses of consecutive sections of ONE document.
Each entry has the section's thesis, logical-chain conclusion and assessment summary.

Write one thesis and one overall assessment for the document as a whole.
Do not add claims that none of the sections make.

SECTIONS:
{{sections}}

Return ONLY this JSON object:
{
  "thesis": {"statement": "...", "explicitness": "explicit|implicit|unclear"},
  "overall_assessment": {"confidence": "high|medium|low", "summary": "2-3 sentences"}
}`

// BuildAnalysisPrompt embeds one chunk and the allowed finding types.
func BuildAnalysisPrompt(chunk string, tax *taxonomy.Table) string {
	r := strings.NewReplacer(
		"{{document}}", chunk,
		"{{taxonomy}}", tax.PromptText(),
		"{{micro_types}}", typeList(tax.Entries(taxonomy.KindMicro)),
		"{{structural_types}}", typeList(tax.Entries(taxonomy.KindStructural)),
	)
	return r.Replace(analysisPrompt)
}

func BuildRepairPrompt(malformed string) string {
	return strings.Replace(repairPrompt, "{{text}}", malformed, 1)
}

func BuildSynthesisPrompt(sections string) string {
	return strings.Replace(synthesisPrompt, "{{sections}}", sections, 1)
}

func typeList(entries []taxonomy.Entry) string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return strings.Join(ids, "|")
}
