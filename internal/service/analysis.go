package service

import (
	"context"
	"log/slog"
	"time"

	"validity.app/auditor/internal/analyzer"
	"validity.app/auditor/internal/cache"
	"validity.app/auditor/internal/document"
	"validity.app/auditor/internal/model"
)

// Analyzer runs one analysis. *analyzer.Analyzer satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, req analyzer.Request) *model.Result
}

// CacheScope names what, besides the document, determines a result.
type CacheScope struct {
	TaxonomyVersion string
	PromptVersion   string
	Model           string
	// Settings fingerprints the chunking, caps and synthesis configuration.
	Settings        string
}

type AnalysisService interface {
	Analyze(ctx context.Context, documentText string, timeout time.Duration) *model.Result
	// RunJob analyzes a queued job; the job ID becomes the analysis ID.
	RunJob(ctx context.Context, job *model.Job) *model.Result
}

type analysisService struct {
	analyzer Analyzer
	cache    cache.Cache
	scope    CacheScope
}

func NewAnalysisService(a Analyzer, c cache.Cache, scope CacheScope) AnalysisService {
	if c == nil {
		c = cache.Noop{}
	}
	return &analysisService{
		analyzer: a,
		cache:    c,
		scope:    scope,
	}
}

func (s *analysisService) Analyze(ctx context.Context, documentText string, timeout time.Duration) *model.Result {
	return s.run(ctx, analyzer.Request{Document: documentText, Timeout: timeout})
}

func (s *analysisService) RunJob(ctx context.Context, job *model.Job) *model.Result {
	return s.run(ctx, analyzer.Request{
		ID:       job.ID,
		Document: job.Document,
		Timeout:  time.Duration(job.TimeoutSeconds * float64(time.Second)),
	})
}

func (s *analysisService) run(ctx context.Context, req analyzer.Request) *model.Result {
	key, cacheable := s.cacheKey(req.Document)

	if cacheable {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			slog.WarnContext(ctx, "result cache lookup failed", "error", err)
		}
		if ok {
			slog.InfoContext(ctx, "serving cached analysis", "analysis_id", cached.AnalysisID)
			cached.Cached = true
			return cached
		}
	}

	result := s.analyzer.Analyze(ctx, req)

	// Partial results depend on timing, so only complete ones are reused.
	if cacheable && result.Success && !result.Partial {
		if err := s.cache.Set(ctx, key, result); err != nil {
			slog.WarnContext(ctx, "failed to cache analysis result", "error", err, "analysis_id", result.AnalysisID)
		}
	}

	return result
}

// cacheKey is computed over the normalized text so whitespace-only
// differences share an entry. Documents that fail normalization are not cached.
func (s *analysisService) cacheKey(raw string) (string, bool) {
	doc, err := document.Normalize(raw)
	if err != nil {
		return "", false
	}
	return cache.Key(doc.Text, s.scope.TaxonomyVersion, s.scope.PromptVersion, s.scope.Model, s.scope.Settings), true
}
