package bootstrap_test

import (
	"context"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"validity.app/auditor/common/llm"
	"validity.app/auditor/core/config"
	"validity.app/auditor/internal/bootstrap"
	"validity.app/auditor/internal/model"
	"validity.app/auditor/internal/service"
)

type cannedCompleter struct{}

func (cannedCompleter) Complete(context.Context, llm.CompletionRequest) (*llm.Completion, error) {
	return &llm.Completion{Content: `{"thesis":{"statement":"Growth follows.","explicitness":"explicit"},
		"micro_failures":[{"type":"causal_leap","location":"p1","explanation":"no mechanism"}],
		"structural_failures":[],"overall_assessment":{"confidence":"high","summary":"ok"}}`}, nil
}

func (cannedCompleter) Model() string    { return "canned" }
func (cannedCompleter) Provider() string { return "test" }

func testConfig() config.Config {
	return config.Config{
		Oracle: config.OracleConfig{RequestTimeout: time.Second},
		Analysis: config.AnalysisConfig{
			ChunkSize:             18000,
			ChunkOverlap:          800,
			Timeout:               10 * time.Second,
			MaxMicroFindings:      200,
			MaxStructuralFindings: 50,
			TopRiskFlags:          3,
			Concurrency:           1,
		},
		Cache: config.CacheConfig{Backend: config.CacheBackendMemory, TTL: time.Hour, MemorySize: 8},
		Pipeline: config.PipelineConfig{
			RedisStream: "validity_jobs",
			JobTTL:      time.Hour,
		},
	}
}

var doc = strings.Repeat("User growth is accelerating, therefore revenue will triple. ", 3)

var _ = Describe("New", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("requires oracle credentials without an injected completer", func() {
		_, err := bootstrap.New(ctx, testConfig())
		Expect(err).To(MatchError(ContainSubstring("ORACLE_API_KEY")))
	})

	It("builds a working analysis service without infrastructure", func() {
		app, err := bootstrap.New(ctx, testConfig(), bootstrap.WithCompleter(cannedCompleter{}))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(app.Close)

		Expect(app.Redis).To(BeNil())
		Expect(app.DB).To(BeNil())
		Expect(app.Oracle.Model()).To(Equal("test/canned"))

		result := app.Services.Analysis().Analyze(ctx, doc, 0)
		Expect(result.Success).To(BeTrue())
		Expect(result.Outcome).To(Equal(model.OutcomeFullSuccess))
		Expect(result.Analysis.TopRiskFlags).To(Equal([]string{"causal_leap"}))
		Expect(result.Analysis.ReasoningScore).To(Equal(80))

		again := app.Services.Analysis().Analyze(ctx, doc, 0)
		Expect(again.Cached).To(BeTrue())

		_, err = app.Services.Jobs().Get(ctx, "job-1")
		Expect(err).To(MatchError(service.ErrJobsDisabled))
	})

	It("wires jobs when redis is configured", func() {
		mr := miniredis.RunT(GinkgoT())
		cfg := testConfig()
		cfg.Pipeline.RedisURL = "redis://" + mr.Addr()
		cfg.Cache.Backend = config.CacheBackendRedis

		app, err := bootstrap.New(ctx, cfg, bootstrap.WithCompleter(cannedCompleter{}))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(app.Close)

		Expect(app.Redis).NotTo(BeNil())
		job, err := app.Services.Jobs().Submit(ctx, doc, 0)
		Expect(err).NotTo(HaveOccurred())

		stored, err := app.Services.Jobs().Get(ctx, job.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Status).To(Equal(model.JobStatusQueued))

		entries, err := app.Redis.XLen(ctx, "validity_jobs").Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(Equal(int64(1)))
	})

	It("falls back to the memory cache offline", func() {
		cfg := testConfig()
		cfg.Pipeline.RedisURL = "redis://127.0.0.1:1"
		cfg.Cache.Backend = config.CacheBackendRedis

		app, err := bootstrap.New(ctx, cfg, bootstrap.WithCompleter(cannedCompleter{}), bootstrap.Offline())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(app.Close)
		Expect(app.Redis).To(BeNil())
	})

	It("reports an unreachable redis", func() {
		cfg := testConfig()
		cfg.Pipeline.RedisURL = "redis://127.0.0.1:1"

		_, err := bootstrap.New(ctx, cfg, bootstrap.WithCompleter(cannedCompleter{}))
		Expect(err).To(MatchError(ContainSubstring("connecting to redis")))
	})
})
