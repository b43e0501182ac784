// Package analyzer drives one analysis: normalize, chunk, call the oracle per
// chunk under a wall-clock budget, sanitize, aggregate and score.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"validity.app/auditor/common/id"
	"validity.app/auditor/common/logger"
	"validity.app/auditor/core/config"
	"validity.app/auditor/internal/aggregate"
	"validity.app/auditor/internal/chunker"
	"validity.app/auditor/internal/document"
	"validity.app/auditor/internal/finding"
	"validity.app/auditor/internal/model"
	"validity.app/auditor/internal/oracle"
	"validity.app/auditor/internal/score"
	"validity.app/auditor/internal/taxonomy"
)

const maxDebugErrors = 3

var ErrParseFailed = errors.New("oracle response could not be parsed after repair")

// Oracle is the part of oracle.Client the analyzer uses.
type Oracle interface {
	CompleteChunk(ctx context.Context, req oracle.ChunkRequest) (*oracle.Response, error)
	Synthesize(ctx context.Context, analysisID string, payloads []model.ChunkPayload) (model.Thesis, model.OverallAssessment, error)
}

type Analyzer struct {
	oracle   Oracle
	tax      *taxonomy.Table
	cfg      config.AnalysisConfig
	chunker  *chunker.Chunker
	validate *validator.Validate
	now      func() time.Time
}

type Option func(*Analyzer)

// WithClock replaces time.Now for budget accounting.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

func New(o Oracle, tax *taxonomy.Table, cfg config.AnalysisConfig, opts ...Option) *Analyzer {
	a := &Analyzer{
		oracle: o,
		tax:    tax,
		cfg:    cfg,
		chunker: chunker.New(
			chunker.WithChunkSize(cfg.ChunkSize),
			chunker.WithOverlap(cfg.ChunkOverlap),
		),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Request is one analysis. An empty ID is generated; a zero Timeout uses the
// configured default and a larger one is clamped to the configured ceiling.
type Request struct {
	ID       string
	Document string
	Timeout  time.Duration
}

type chunkState int

const (
	chunkSkipped chunkState = iota
	chunkSucceeded
	chunkFailed
)

type chunkOutcome struct {
	state   chunkState
	payload model.ChunkPayload
	err     error
}

// Analyze never returns an error: every failure is reported in the Result.
func (a *Analyzer) Analyze(ctx context.Context, req Request) *model.Result {
	start := a.now()

	analysisID := req.ID
	if analysisID == "" {
		analysisID = id.NewString()
	}
	timeout := a.cfg.EffectiveTimeout(req.Timeout)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		AnalysisID: logger.Ptr(analysisID),
		Component:  "validity.analyzer",
	})
	sc := logger.StartSpan(ctx, "analyzer.analyze", trace.WithAttributes(attribute.String("analysis.id", analysisID)))
	defer sc.End()
	ctx = sc.Context()

	result := &model.Result{AnalysisID: analysisID}
	defer func() {
		result.AnalysisTimeSeconds = roundSeconds(a.now().Sub(start))
	}()

	doc, err := document.Normalize(req.Document)
	if err != nil {
		slog.InfoContext(ctx, "document rejected", "error", err)
		result.Outcome = model.OutcomeRejected
		result.Error = err.Error()
		result.ErrorCode = model.ErrorCodeTooShort
		return result
	}

	chunks := a.chunker.Split(doc.Text)
	result.ChunksAnalyzed = len(chunks)
	sc.SetAttributes(
		attribute.Int("analysis.chunks", len(chunks)),
		attribute.Int("document.length", doc.Length),
	)
	slog.InfoContext(ctx, "analysis started",
		"document_length", doc.Length,
		"chunks", len(chunks),
		"timeout", timeout.String(),
		"concurrency", max(a.cfg.Concurrency, 1))

	outcomes, timedOut := a.runChunks(ctx, analysisID, chunks, start, timeout)
	result.TimedOut = timedOut

	var payloads []model.ChunkPayload
	for i, o := range outcomes {
		switch o.state {
		case chunkSucceeded:
			payloads = append(payloads, o.payload)
			result.ChunksSucceeded++
		case chunkFailed:
			result.ChunksFailed++
			if len(result.DebugErrors) < maxDebugErrors {
				result.DebugErrors = append(result.DebugErrors, fmt.Sprintf("chunk %d: %v", i+1, o.err))
			}
		default:
			result.ChunksSkipped++
		}
	}

	if len(payloads) == 0 {
		result.Outcome = model.OutcomeAllFailed
		result.ErrorCode = model.ErrorCodeAllChunksFailed
		result.Error = allFailedMessage(outcomes, timedOut)
		slog.WarnContext(ctx, "analysis failed, no chunk succeeded",
			"chunks_failed", result.ChunksFailed,
			"chunks_skipped", result.ChunksSkipped,
			"timed_out", timedOut)
		return result
	}

	report := aggregate.Merge(payloads, a.tax, aggregate.Caps{
		MaxMicro:      a.cfg.MaxMicroFindings,
		MaxStructural: a.cfg.MaxStructuralFindings,
	})
	score.Apply(report, a.tax, a.cfg.TopRiskFlags)

	if a.cfg.Synthesis {
		a.synthesize(ctx, analysisID, payloads, report)
	}

	if err := a.validate.Struct(report); err != nil {
		sc.RecordError(err)
		slog.ErrorContext(ctx, "merged report failed integrity check", "error", err)
		result.Outcome = model.OutcomeInvalid
		result.ErrorCode = model.ErrorCodeSchemaValidationFailed
		result.Error = fmt.Sprintf("merged report failed validation: %v", err)
		return result
	}

	result.Success = true
	result.Analysis = report
	result.Partial = result.ChunksSucceeded < result.ChunksAnalyzed
	result.Outcome = model.OutcomeFullSuccess
	if result.Partial {
		result.Outcome = model.OutcomePartialSuccess
	}

	slog.InfoContext(ctx, "analysis finished",
		"outcome", result.Outcome,
		"chunks_succeeded", result.ChunksSucceeded,
		"chunks_failed", result.ChunksFailed,
		"chunks_skipped", result.ChunksSkipped,
		"timed_out", timedOut,
		"reasoning_score", report.ReasoningScore,
		"decision_risk", report.DecisionRisk)

	return result
}

// runChunks processes chunks sequentially, or with bounded parallelism when
// configured. No chunk starts once the budget is spent. Outcomes are indexed
// by chunk so the result does not depend on completion order.
func (a *Analyzer) runChunks(ctx context.Context, analysisID string, chunks []chunker.Chunk, start time.Time, timeout time.Duration) ([]chunkOutcome, bool) {
	outcomes := make([]chunkOutcome, len(chunks))

	if a.cfg.Concurrency <= 1 {
		for i, ch := range chunks {
			if a.expired(ctx, start, timeout) {
				slog.WarnContext(ctx, "analysis budget spent, skipping remaining chunks", "remaining", len(chunks)-i)
				return outcomes, true
			}
			outcomes[i] = a.processChunk(ctx, analysisID, ch)
		}
		return outcomes, false
	}

	var timedOut atomic.Bool
	g := new(errgroup.Group)
	g.SetLimit(a.cfg.Concurrency)
	for i, ch := range chunks {
		if timedOut.Load() {
			break
		}
		g.Go(func() error {
			if a.expired(ctx, start, timeout) {
				timedOut.Store(true)
				return nil
			}
			outcomes[i] = a.processChunk(ctx, analysisID, ch)
			return nil
		})
	}
	_ = g.Wait()

	if timedOut.Load() {
		slog.WarnContext(ctx, "analysis budget spent, skipped chunks not started")
	}
	return outcomes, timedOut.Load()
}

func (a *Analyzer) expired(ctx context.Context, start time.Time, timeout time.Duration) bool {
	if ctx.Err() != nil {
		return true
	}
	return timeout > 0 && a.now().Sub(start) > timeout
}

// processChunk converts every failure, including a panic, into a failed outcome.
func (a *Analyzer) processChunk(ctx context.Context, analysisID string, ch chunker.Chunk) (out chunkOutcome) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{ChunkIndex: logger.Ptr(ch.Index)})
	sc := logger.StartSpan(ctx, "analyzer.chunk", trace.WithAttributes(
		attribute.Int("chunk.index", ch.Index),
		attribute.Int("chunk.start", ch.Start),
		attribute.Int("chunk.end", ch.End),
	))
	defer sc.End()
	ctx = sc.Context()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			sc.RecordError(err)
			slog.ErrorContext(ctx, "panic while analyzing chunk", "panic", r)
			out = chunkOutcome{state: chunkFailed, err: err}
		}
	}()

	resp, err := a.oracle.CompleteChunk(ctx, oracle.ChunkRequest{
		AnalysisID: analysisID,
		Index:      ch.Index,
		Text:       ch.Text,
	})
	if err != nil {
		sc.RecordError(err)
		slog.WarnContext(ctx, "chunk failed", "error", err)
		return chunkOutcome{state: chunkFailed, err: err}
	}
	if resp.ParseFailed {
		sc.RecordError(ErrParseFailed)
		slog.WarnContext(ctx, "chunk failed", "error", ErrParseFailed)
		return chunkOutcome{state: chunkFailed, payload: model.FallbackPayload(), err: ErrParseFailed}
	}

	payload := finding.Sanitize(resp.Payload, a.tax)
	sc.SetAttributes(
		attribute.Int("chunk.micro_findings", len(payload.MicroFindings)),
		attribute.Int("chunk.structural_findings", len(payload.StructuralFindings)),
		attribute.Bool("chunk.repaired", resp.Repaired),
	)
	slog.DebugContext(ctx, "chunk analyzed",
		"micro_findings", len(payload.MicroFindings),
		"structural_findings", len(payload.StructuralFindings),
		"repaired", resp.Repaired)

	return chunkOutcome{state: chunkSucceeded, payload: payload}
}

// synthesize replaces thesis and overall assessment with an oracle summary
// of every chunk. On any failure the first-chunk values stay.
func (a *Analyzer) synthesize(ctx context.Context, analysisID string, payloads []model.ChunkPayload, report *model.Report) {
	if len(payloads) < 2 {
		return
	}

	sctx := ctx
	if a.cfg.SynthesisTimeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, a.cfg.SynthesisTimeout)
		defer cancel()
	}

	thesis, overall, err := a.oracle.Synthesize(sctx, analysisID, payloads)
	if err != nil {
		slog.WarnContext(ctx, "synthesis failed, keeping first chunk fields", "error", err)
		return
	}
	report.Thesis = thesis
	report.OverallAssessment = overall
	report.Synthesized = true
}

func allFailedMessage(outcomes []chunkOutcome, timedOut bool) string {
	for _, o := range outcomes {
		if o.state == chunkFailed {
			return fmt.Sprintf("all chunks failed: %v", o.err)
		}
	}
	if timedOut {
		return "analysis timed out before any chunk was analyzed"
	}
	return "all chunks failed"
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
