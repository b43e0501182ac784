package analyzer_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"validity.app/auditor/core/config"
	"validity.app/auditor/internal/analyzer"
	"validity.app/auditor/internal/model"
	"validity.app/auditor/internal/oracle"
	"validity.app/auditor/internal/taxonomy"
)

type mockOracle struct {
	completeFn   func(ctx context.Context, req oracle.ChunkRequest) (*oracle.Response, error)
	synthesizeFn func(ctx context.Context, analysisID string, payloads []model.ChunkPayload) (model.Thesis, model.OverallAssessment, error)

	mu     sync.Mutex
	chunks []oracle.ChunkRequest
}

func (m *mockOracle) CompleteChunk(ctx context.Context, req oracle.ChunkRequest) (*oracle.Response, error) {
	m.mu.Lock()
	m.chunks = append(m.chunks, req)
	m.mu.Unlock()
	return m.completeFn(ctx, req)
}

func (m *mockOracle) Synthesize(ctx context.Context, analysisID string, payloads []model.ChunkPayload) (model.Thesis, model.OverallAssessment, error) {
	if m.synthesizeFn == nil {
		return model.Thesis{}, model.OverallAssessment{}, errors.New("not configured")
	}
	return m.synthesizeFn(ctx, analysisID, payloads)
}

func (m *mockOracle) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func rawPayload(v map[string]any) model.RawPayload {
	b, err := json.Marshal(v)
	Expect(err).NotTo(HaveOccurred())
	var p model.RawPayload
	Expect(json.Unmarshal(b, &p)).To(Succeed())
	return p
}

func okResponse(v map[string]any) *oracle.Response {
	return &oracle.Response{Payload: rawPayload(v)}
}

// doc builds a document of n characters from a repeated sentence.
func doc(n int) string {
	base := strings.Repeat("Reasoning step follows from the premise. ", n/40+1)
	return base[:n]
}

var _ = Describe("Analyzer", func() {
	var (
		ctx   context.Context
		clock *fakeClock
		mock  *mockOracle
		cfg   config.AnalysisConfig
	)

	BeforeEach(func() {
		ctx = context.Background()
		clock = &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
		mock = &mockOracle{}
		cfg = config.AnalysisConfig{
			ChunkSize:             100,
			ChunkOverlap:          0,
			Timeout:               time.Minute,
			MaxMicroFindings:      200,
			MaxStructuralFindings: 50,
			TopRiskFlags:          3,
			Concurrency:           1,
		}
	})

	newAnalyzer := func() *analyzer.Analyzer {
		return analyzer.New(mock, taxonomy.Default(), cfg, analyzer.WithClock(clock.Now))
	}

	It("rejects a short document without calling the oracle", func() {
		mock.completeFn = func(context.Context, oracle.ChunkRequest) (*oracle.Response, error) {
			Fail("oracle must not be called")
			return nil, nil
		}

		result := newAnalyzer().Analyze(ctx, analyzer.Request{Document: "too short"})

		Expect(result.Success).To(BeFalse())
		Expect(result.Outcome).To(Equal(model.OutcomeRejected))
		Expect(result.ErrorCode).To(Equal(model.ErrorCodeTooShort))
		Expect(result.Error).To(ContainSubstring("minimum is 50"))
		Expect(result.ChunksAnalyzed).To(BeZero())
		Expect(result.Analysis).To(BeNil())
		Expect(mock.calls()).To(BeZero())
	})

	It("scores a single clean chunk at 100 with low risk", func() {
		cfg.ChunkSize = 18000
		mock.completeFn = func(context.Context, oracle.ChunkRequest) (*oracle.Response, error) {
			return okResponse(map[string]any{
				"thesis":              map[string]any{"statement": "s", "explicitness": "explicit"},
				"micro_failures":      []any{},
				"structural_failures": []any{},
			}), nil
		}

		result := newAnalyzer().Analyze(ctx, analyzer.Request{ID: "fixed", Document: doc(200)})

		Expect(result.Success).To(BeTrue())
		Expect(result.AnalysisID).To(Equal("fixed"))
		Expect(result.Outcome).To(Equal(model.OutcomeFullSuccess))
		Expect(result.ChunksAnalyzed).To(Equal(1))
		Expect(result.ChunksSucceeded).To(Equal(1))
		Expect(result.Partial).To(BeFalse())
		Expect(result.Analysis.ReasoningScore).To(Equal(100))
		Expect(result.Analysis.DecisionRisk).To(Equal(model.RiskLow))
		Expect(result.Analysis.TopRiskFlags).To(BeEmpty())
		Expect(result.Analysis.Thesis.Statement).To(Equal("s"))
	})

	It("fails when every chunk hits a transport error", func() {
		mock.completeFn = func(context.Context, oracle.ChunkRequest) (*oracle.Response, error) {
			return nil, errors.New("connection refused")
		}

		result := newAnalyzer().Analyze(ctx, analyzer.Request{Document: doc(300)})

		Expect(result.Success).To(BeFalse())
		Expect(result.Outcome).To(Equal(model.OutcomeAllFailed))
		Expect(result.ErrorCode).To(Equal(model.ErrorCodeAllChunksFailed))
		Expect(result.ChunksAnalyzed).To(Equal(3))
		Expect(result.ChunksFailed).To(Equal(3))
		Expect(result.ChunksSucceeded).To(BeZero())
		Expect(result.Analysis).To(BeNil())
		Expect(result.DebugErrors).To(Equal([]string{
			"chunk 1: connection refused",
			"chunk 2: connection refused",
			"chunk 3: connection refused",
		}))
	})

	It("returns a partial report when the budget runs out", func() {
		cfg.Timeout = 15 * time.Second
		mock.completeFn = func(context.Context, oracle.ChunkRequest) (*oracle.Response, error) {
			clock.Advance(10 * time.Second)
			return okResponse(map[string]any{}), nil
		}

		result := newAnalyzer().Analyze(ctx, analyzer.Request{Document: doc(500)})

		Expect(result.Success).To(BeTrue())
		Expect(result.Partial).To(BeTrue())
		Expect(result.TimedOut).To(BeTrue())
		Expect(result.Outcome).To(Equal(model.OutcomePartialSuccess))
		Expect(result.ChunksAnalyzed).To(Equal(5))
		Expect(result.ChunksSucceeded).To(Equal(2))
		Expect(result.ChunksSkipped).To(Equal(3))
		Expect(result.ChunksFailed).To(BeZero())
		Expect(mock.calls()).To(Equal(2))
		Expect(result.AnalysisTimeSeconds).To(Equal(20.0))
	})

	It("uses the request timeout over the configured one", func() {
		mock.completeFn = func(context.Context, oracle.ChunkRequest) (*oracle.Response, error) {
			clock.Advance(10 * time.Second)
			return okResponse(map[string]any{}), nil
		}

		result := newAnalyzer().Analyze(ctx, analyzer.Request{Document: doc(500), Timeout: 5 * time.Second})

		Expect(result.ChunksSucceeded).To(Equal(1))
		Expect(result.TimedOut).To(BeTrue())
	})

	It("clamps a request timeout above the configured ceiling", func() {
		cfg.Timeout = 15 * time.Second
		cfg.MaxTimeout = 25 * time.Second
		mock.completeFn = func(context.Context, oracle.ChunkRequest) (*oracle.Response, error) {
			clock.Advance(10 * time.Second)
			return okResponse(map[string]any{}), nil
		}

		result := newAnalyzer().Analyze(ctx, analyzer.Request{Document: doc(500), Timeout: time.Hour})

		Expect(result.TimedOut).To(BeTrue())
		Expect(result.ChunksSucceeded).To(Equal(3))
		Expect(result.ChunksSkipped).To(Equal(2))
	})

	It("fails when the budget is spent before any chunk succeeds", func() {
		cfg.Timeout = 5 * time.Second
		mock.completeFn = func(context.Context, oracle.ChunkRequest) (*oracle.Response, error) {
			clock.Advance(10 * time.Second)
			return nil, errors.New("gateway timeout")
		}

		result := newAnalyzer().Analyze(ctx, analyzer.Request{Document: doc(300)})

		Expect(result.Success).To(BeFalse())
		Expect(result.TimedOut).To(BeTrue())
		Expect(result.ChunksFailed).To(Equal(1))
		Expect(result.ChunksSkipped).To(Equal(2))
	})

	It("stops at chunk boundaries when the context is cancelled", func() {
		cctx, cancel := context.WithCancel(ctx)
		mock.completeFn = func(context.Context, oracle.ChunkRequest) (*oracle.Response, error) {
			cancel()
			return okResponse(map[string]any{}), nil
		}

		result := newAnalyzer().Analyze(cctx, analyzer.Request{Document: doc(300)})

		Expect(result.Success).To(BeTrue())
		Expect(result.ChunksSucceeded).To(Equal(1))
		Expect(result.TimedOut).To(BeTrue())
	})

	It("merges a structural finding repeated across two chunks", func() {
		severities := []string{"medium", "high"}
		mock.completeFn = func(_ context.Context, req oracle.ChunkRequest) (*oracle.Response, error) {
			return okResponse(map[string]any{
				"structural_failures": []any{map[string]any{
					"type":          "MEANS_ENDS_MISMATCH",
					"severity":      severities[req.Index],
					"location_hint": "Section 2",
					"evidence":      []any{"quote"},
				}},
			}), nil
		}

		result := newAnalyzer().Analyze(ctx, analyzer.Request{Document: doc(200)})

		Expect(result.Success).To(BeTrue())
		Expect(result.Analysis.StructuralFindings).To(HaveLen(1))
		Expect(result.Analysis.StructuralFindings[0].Severity).To(Equal(model.SeverityHigh))
		Expect(result.Analysis.StructuralFindings[0].Evidence).To(Equal([]string{"quote"}))
		Expect(result.Analysis.ReasoningScore).To(Equal(80))
		Expect(result.Analysis.DecisionRisk).To(Equal(model.RiskMedium))
		Expect(result.Analysis.TopRiskFlags).To(Equal([]string{"MEANS_ENDS_MISMATCH"}))
	})

	It("counts a parse-failed chunk as failed and keeps going", func() {
		mock.completeFn = func(_ context.Context, req oracle.ChunkRequest) (*oracle.Response, error) {
			if req.Index == 0 {
				return &oracle.Response{ParseFailed: true, Repaired: true}, nil
			}
			return okResponse(map[string]any{
				"thesis":         map[string]any{"statement": "from chunk 2"},
				"micro_failures": []any{map[string]any{"type": "contradictory_claims"}, map[string]any{"type": "made_up"}},
			}), nil
		}

		result := newAnalyzer().Analyze(ctx, analyzer.Request{Document: doc(200)})

		Expect(result.Success).To(BeTrue())
		Expect(result.Partial).To(BeTrue())
		Expect(result.TimedOut).To(BeFalse())
		Expect(result.ChunksFailed).To(Equal(1))
		Expect(result.DebugErrors).To(ConsistOf(ContainSubstring("chunk 1: oracle response could not be parsed")))
		Expect(result.Analysis.Thesis.Statement).To(Equal("from chunk 2"))
		Expect(result.Analysis.MicroFindings).To(HaveLen(1))
		Expect(result.Analysis.DecisionRisk).To(Equal(model.RiskCritical))
		Expect(result.Analysis.ReasoningScore).To(Equal(65))
	})

	It("treats a panicking oracle as a failed chunk", func() {
		mock.completeFn = func(_ context.Context, req oracle.ChunkRequest) (*oracle.Response, error) {
			if req.Index == 1 {
				panic("boom")
			}
			return okResponse(map[string]any{}), nil
		}

		result := newAnalyzer().Analyze(ctx, analyzer.Request{Document: doc(200)})

		Expect(result.Success).To(BeTrue())
		Expect(result.ChunksFailed).To(Equal(1))
		Expect(result.DebugErrors[0]).To(ContainSubstring("panic: boom"))
	})

	It("sends trimmed non-empty chunks with sequential indexes", func() {
		mock.completeFn = func(context.Context, oracle.ChunkRequest) (*oracle.Response, error) {
			return okResponse(map[string]any{}), nil
		}

		_ = newAnalyzer().Analyze(ctx, analyzer.Request{ID: "a-1", Document: doc(300)})

		Expect(mock.chunks).To(HaveLen(3))
		for i, c := range mock.chunks {
			Expect(c.Index).To(Equal(i))
			Expect(c.AnalysisID).To(Equal("a-1"))
			Expect(c.Text).To(Equal(strings.TrimSpace(c.Text)))
			Expect(c.Text).NotTo(BeEmpty())
		}
	})

	Context("with synthesis enabled", func() {
		BeforeEach(func() {
			cfg.Synthesis = true
			cfg.SynthesisTimeout = time.Second
			mock.completeFn = func(_ context.Context, req oracle.ChunkRequest) (*oracle.Response, error) {
				return okResponse(map[string]any{
					"thesis": map[string]any{"statement": "chunk thesis"},
				}), nil
			}
		})

		It("replaces the representative fields", func() {
			mock.synthesizeFn = func(_ context.Context, _ string, payloads []model.ChunkPayload) (model.Thesis, model.OverallAssessment, error) {
				Expect(payloads).To(HaveLen(2))
				return model.Thesis{Statement: "whole"}, model.OverallAssessment{Confidence: "high", Summary: "sum"}, nil
			}

			result := newAnalyzer().Analyze(ctx, analyzer.Request{Document: doc(200)})

			Expect(result.Analysis.Synthesized).To(BeTrue())
			Expect(result.Analysis.Thesis.Statement).To(Equal("whole"))
		})

		It("keeps the first chunk fields when synthesis fails", func() {
			mock.synthesizeFn = func(context.Context, string, []model.ChunkPayload) (model.Thesis, model.OverallAssessment, error) {
				return model.Thesis{}, model.OverallAssessment{}, errors.New("synthesis down")
			}

			result := newAnalyzer().Analyze(ctx, analyzer.Request{Document: doc(200)})

			Expect(result.Success).To(BeTrue())
			Expect(result.Analysis.Synthesized).To(BeFalse())
			Expect(result.Analysis.Thesis.Statement).To(Equal("chunk thesis"))
		})
	})

	Context("with concurrency", func() {
		It("produces the same report as sequential processing", func() {
			mock.completeFn = func(_ context.Context, req oracle.ChunkRequest) (*oracle.Response, error) {
				// later chunks finish first
				time.Sleep(time.Duration(5-req.Index) * time.Millisecond)
				return okResponse(map[string]any{
					"thesis": map[string]any{"statement": req.Text[:10]},
					"micro_failures": []any{
						map[string]any{"type": "causal_leap", "location": req.Text[:5]},
					},
					"structural_failures": []any{map[string]any{
						"type":     "SAFEGUARD_DILUTION",
						"severity": []string{"low", "high", "medium", "low", "medium"}[req.Index],
						"evidence": []any{req.Text[:8]},
					}},
				}), nil
			}

			sequential := newAnalyzer().Analyze(ctx, analyzer.Request{ID: "x", Document: doc(500)})
			cfg.Concurrency = 4
			parallel := newAnalyzer().Analyze(ctx, analyzer.Request{ID: "x", Document: doc(500)})

			Expect(parallel.Success).To(BeTrue())
			Expect(parallel.Analysis).To(Equal(sequential.Analysis))
			Expect(parallel.ChunksSucceeded).To(Equal(5))
		})

		It("does not start chunks after the budget is spent", func() {
			cfg.Concurrency = 2
			cfg.Timeout = 15 * time.Second
			mock.completeFn = func(context.Context, oracle.ChunkRequest) (*oracle.Response, error) {
				clock.Advance(10 * time.Second)
				return okResponse(map[string]any{}), nil
			}

			result := newAnalyzer().Analyze(ctx, analyzer.Request{Document: doc(1000)})

			Expect(result.TimedOut).To(BeTrue())
			Expect(result.Partial).To(BeTrue())
			Expect(mock.calls()).To(BeNumerically("<", 10))
			Expect(result.ChunksSucceeded + result.ChunksSkipped).To(Equal(10))
		})
	})
})
