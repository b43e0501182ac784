package taxonomy

import "validity.app/auditor/internal/model"

// DefaultVersion changes whenever an entry is added, removed or re-rated, so
// cached results from an older table are not reused.
const DefaultVersion = "2025.2"

var defaultTable = mustNew(DefaultVersion, defaultEntries)

// Default returns the built-in table.
func Default() *Table {
	return defaultTable
}

func mustNew(version string, entries []Entry) *Table {
	t, err := New(version, entries)
	if err != nil {
		panic(err)
	}
	return t
}

var defaultEntries = []Entry{
	{
		ID:            "circular_reasoning",
		Kind:          KindMicro,
		Name:          "Circular Reasoning",
		Description:   "Conclusion assumes the premise",
		Example:       "This company will succeed because it has a winning strategy. We know it's a winning strategy because the company will succeed.",
		Severity:      model.SeverityHigh,
		Actionability: "review",
	},
	{
		ID:            "causal_leap",
		Kind:          KindMicro,
		Name:          "Unjustified Causal Leap",
		Description:   "Claims X causes Y without establishing mechanism or evidence",
		Example:       "User growth is accelerating, therefore revenue will triple.",
		Severity:      model.SeverityHigh,
		Actionability: "review",
	},
	{
		ID:            "unfalsifiable_claim",
		Kind:          KindMicro,
		Name:          "Unfalsifiable Claim",
		Description:   "Statement that cannot be tested or disproven",
		Example:       "The team has unique insights that competitors lack.",
		Severity:      model.SeverityMedium,
		Actionability: "monitor",
	},
	{
		ID:            "missing_counterfactual",
		Kind:          KindMicro,
		Name:          "Missing Counterfactual",
		Description:   "Fails to consider alternative explanations",
		Example:       "Sales increased after hiring the new VP, proving their impact.",
		Severity:      model.SeverityMedium,
		Actionability: "monitor",
	},
	{
		ID:            "assumption_stacking",
		Kind:          KindMicro,
		Name:          "Unstated Assumption Stacking",
		Description:   "Conclusion depends on multiple unstated critical assumptions",
		Example:       "If we capture 1% of the market, we'll reach $100M revenue.",
		Severity:      model.SeverityHigh,
		Actionability: "review",
	},
	{
		ID:            "contradictory_claims",
		Kind:          KindMicro,
		Name:          "Internal Contradiction",
		Description:   "Document makes mutually exclusive claims",
		Example:       "Market is highly competitive... We face no significant competitors.",
		Severity:      model.SeverityCritical,
		Actionability: "block",
	},
	{
		ID:            "evidence_mismatch",
		Kind:          KindMicro,
		Name:          "Evidence-Claim Mismatch",
		Description:   "Stated evidence does not support the conclusion drawn",
		Example:       "Customer interviews show interest, therefore product-market fit is proven.",
		Severity:      model.SeverityHigh,
		Actionability: "review",
	},
	{
		ID:            "false_dichotomy",
		Kind:          KindMicro,
		Name:          "False Dichotomy",
		Description:   "Presents only two options when more exist",
		Example:       "Either we raise prices or we go bankrupt.",
		Severity:      model.SeverityMedium,
		Actionability: "monitor",
	},
	{
		ID:            "OBJECTIVE_OVERLOADING",
		Kind:          KindStructural,
		Name:          "Objective Overloading",
		Description:   "A single stated objective is used to justify multiple heterogeneous interventions without demonstrating necessity for each.",
		Severity:      model.SeverityHigh,
		Actionability: "fix_now",
	},
	{
		ID:            "MEANS_ENDS_MISMATCH",
		Kind:          KindStructural,
		Name:          "Means-Ends Mismatch",
		Description:   "The proposed mechanism does not plausibly or directly advance the stated objective, or the causal chain is missing.",
		Severity:      model.SeverityHigh,
		Actionability: "needs_research",
	},
	{
		ID:            "UNBOUNDED_DEFINITIONS",
		Kind:          KindStructural,
		Name:          "Unbounded Definitions",
		Description:   "Key terms are defined expansively without limiting principles, thresholds, or boundary tests, creating over-capture risk.",
		Severity:      model.SeverityHigh,
		Actionability: "fix_now",
	},
	{
		ID:            "SAFEGUARD_DILUTION",
		Kind:          KindStructural,
		Name:          "Safeguard Dilution",
		Description:   "Procedural protections are reduced or removed without justification addressing necessity, proportionality, or error costs.",
		Severity:      model.SeverityHigh,
		Actionability: "fix_now",
	},
	{
		ID:            "TEMPORAL_INCOHERENCE",
		Kind:          KindStructural,
		Name:          "Temporal Incoherence",
		Description:   "Past conduct is captured or reclassified through present standards without explicit transitional reasoning.",
		Severity:      model.SeverityMedium,
		Actionability: "needs_research",
	},
}
