package score_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"validity.app/auditor/internal/model"
	"validity.app/auditor/internal/score"
	"validity.app/auditor/internal/taxonomy"
)

func repeat(sev model.Severity, n int) []score.Finding {
	out := make([]score.Finding, n)
	for i := range out {
		out[i] = score.Finding{Type: "t", Severity: sev}
	}
	return out
}

func concat(lists ...[]score.Finding) []score.Finding {
	var out []score.Finding
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

var _ = Describe("ReasoningScore", func() {
	It("is 100 for no findings", func() {
		Expect(score.ReasoningScore(nil)).To(Equal(100))
	})

	It("is at most 65 with one critical finding", func() {
		Expect(score.ReasoningScore(repeat(model.SeverityCritical, 1))).To(Equal(65))
	})

	DescribeTable("subtracts penalties and clamps",
		func(findings []score.Finding, want int) {
			Expect(score.ReasoningScore(findings)).To(Equal(want))
		},
		Entry("low is free", repeat(model.SeverityLow, 10), 100),
		Entry("one high", repeat(model.SeverityHigh, 1), 80),
		Entry("mixed", concat(repeat(model.SeverityHigh, 2), repeat(model.SeverityMedium, 3)), 30),
		Entry("clamped at zero", repeat(model.SeverityCritical, 4), 0),
		Entry("unknown severity is free", repeat("", 3), 100),
	)
})

var _ = Describe("DecisionRisk", func() {
	DescribeTable("follows the decision table",
		func(findings []score.Finding, want model.RiskLevel) {
			Expect(score.DecisionRisk(findings)).To(Equal(want))
		},
		Entry("empty", nil, model.RiskLow),
		Entry("lows only", repeat(model.SeverityLow, 20), model.RiskLow),
		Entry("four medium", repeat(model.SeverityMedium, 4), model.RiskLow),
		Entry("five medium", repeat(model.SeverityMedium, 5), model.RiskMedium),
		Entry("one high", repeat(model.SeverityHigh, 1), model.RiskMedium),
		Entry("two high", repeat(model.SeverityHigh, 2), model.RiskMedium),
		Entry("three high", repeat(model.SeverityHigh, 3), model.RiskHigh),
		Entry("any critical", concat(repeat(model.SeverityLow, 3), repeat(model.SeverityCritical, 1)), model.RiskCritical),
	)

	It("never decreases when a finding is added", func() {
		severities := []model.Severity{model.SeverityLow, model.SeverityMedium, model.SeverityHigh, model.SeverityCritical}
		var set []score.Finding
		prev := score.DecisionRisk(set)
		// deterministic walk over many mixed sets
		for i := 0; i < 200; i++ {
			set = append(set, score.Finding{Type: "t", Severity: severities[(i*7+i/3)%4]})
			next := score.DecisionRisk(set)
			Expect(next.Rank()).To(BeNumerically(">=", prev.Rank()))
			prev = next
		}
	})

	It("is monotone in the maximum severity present", func() {
		for _, base := range [][]score.Finding{nil, repeat(model.SeverityMedium, 2), repeat(model.SeverityHigh, 1)} {
			before := score.DecisionRisk(base)
			after := score.DecisionRisk(append(base, score.Finding{Type: "x", Severity: model.SeverityCritical}))
			Expect(after).To(Equal(model.RiskCritical))
			Expect(after.Rank()).To(BeNumerically(">=", before.Rank()))
		}
	})
})

var _ = Describe("TopRiskFlags", func() {
	It("ranks by frequency with ties by name", func() {
		findings := []score.Finding{
			{Type: "causal_leap"}, {Type: "b_type"}, {Type: "a_type"},
			{Type: "causal_leap"}, {Type: "z_type"}, {Type: "z_type"},
		}
		Expect(score.TopRiskFlags(findings, 3)).To(Equal([]string{"causal_leap", "z_type", "a_type"}))
	})

	It("returns an empty non-nil list for no findings", func() {
		flags := score.TopRiskFlags(nil, 3)
		Expect(flags).NotTo(BeNil())
		Expect(flags).To(BeEmpty())
	})

	It("defaults k to three", func() {
		findings := []score.Finding{{Type: "a"}, {Type: "b"}, {Type: "c"}, {Type: "d"}}
		Expect(score.TopRiskFlags(findings, 0)).To(Equal([]string{"a", "b", "c"}))
	})
})

var _ = Describe("Apply", func() {
	It("scores micro findings by taxonomy severity and structural by their own", func() {
		report := &model.Report{
			MicroFindings: []model.MicroFinding{{Type: "contradictory_claims"}, {Type: "false_dichotomy"}},
			StructuralFindings: []model.StructuralFinding{
				{Type: "MEANS_ENDS_MISMATCH", Severity: model.SeverityHigh},
			},
		}

		score.Apply(report, taxonomy.Default(), 3)

		Expect(report.ReasoningScore).To(Equal(100 - 35 - 10 - 20))
		Expect(report.DecisionRisk).To(Equal(model.RiskCritical))
		Expect(report.TotalFindings).To(Equal(3))
		Expect(report.TopRiskFlags).To(Equal([]string{"MEANS_ENDS_MISMATCH", "contradictory_claims", "false_dichotomy"}))
	})
})
