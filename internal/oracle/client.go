// Package oracle wraps round-trips to the completion service: one analysis
// call per chunk, at most one JSON repair call, and the optional synthesis call.
package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"validity.app/auditor/common/id"
	"validity.app/auditor/common/llm"
	"validity.app/auditor/common/logger"
	"validity.app/auditor/internal/finding"
	"validity.app/auditor/internal/model"
	"validity.app/auditor/internal/taxonomy"
)

var ErrEmptySynthesis = errors.New("synthesis returned no thesis or summary")

// CallRecorder persists one ledger row per round-trip. Errors are logged and
// otherwise ignored.
type CallRecorder interface {
	Record(ctx context.Context, call model.OracleCall) error
}

type Config struct {
	MaxTokens      int
	Temperature    float64
	RequestTimeout time.Duration
	// UseSchema sends the chunk payload JSON schema as the response format.
	UseSchema bool
}

type Client struct {
	completer llm.Completer
	tax       *taxonomy.Table
	recorder  CallRecorder
	cfg       Config
	schema    any
}

type Option func(*Client)

func WithRecorder(r CallRecorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

func New(completer llm.Completer, tax *taxonomy.Table, cfg Config, opts ...Option) *Client {
	c := &Client{
		completer: completer,
		tax:       tax,
		cfg:       cfg,
	}
	if cfg.UseSchema {
		c.schema = llm.GenerateSchema[model.ChunkPayload]()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model identifies the oracle for cache keys.
func (c *Client) Model() string {
	return c.completer.Provider() + "/" + c.completer.Model()
}

type ChunkRequest struct {
	AnalysisID string
	Index      int
	Text       string
}

// Response is the outcome of one chunk. When ParseFailed is set Payload is
// nil and the caller substitutes model.FallbackPayload.
type Response struct {
	Payload     model.RawPayload
	ParseFailed bool
	Repaired    bool
}

type roundTrip struct {
	analysisID string
	chunkIndex int
	stage      model.OracleCallStage
	system     string
	user       string
	schema     any
}

type attempt struct {
	content  string
	payload  model.RawPayload
	parseErr error
}

// CompleteChunk runs the analysis call for one chunk. An unparseable reply
// gets exactly one repair call; if that is unparseable too the response is
// marked ParseFailed. Only transport errors are returned.
func (c *Client) CompleteChunk(ctx context.Context, req ChunkRequest) (*Response, error) {
	first, err := c.do(ctx, roundTrip{
		analysisID: req.AnalysisID,
		chunkIndex: req.Index,
		stage:      model.OracleCallStageAnalyze,
		system:     systemPrompt,
		user:       BuildAnalysisPrompt(req.Text, c.tax),
		schema:     c.schema,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze chunk %d: %w", req.Index, err)
	}
	if first.parseErr == nil {
		return &Response{Payload: first.payload}, nil
	}

	slog.WarnContext(ctx, "oracle response unparseable, attempting repair",
		"error", first.parseErr,
		"response_preview", logger.Truncate(first.content, 200))

	repaired, err := c.do(ctx, roundTrip{
		analysisID: req.AnalysisID,
		chunkIndex: req.Index,
		stage:      model.OracleCallStageRepair,
		system:     systemPrompt,
		user:       BuildRepairPrompt(first.content),
		schema:     c.schema,
	})
	if err != nil {
		return nil, fmt.Errorf("repair chunk %d: %w", req.Index, err)
	}
	if repaired.parseErr == nil {
		return &Response{Payload: repaired.payload, Repaired: true}, nil
	}

	slog.WarnContext(ctx, "oracle response unparseable after repair",
		"error", repaired.parseErr,
		"response_preview", logger.Truncate(repaired.content, 200))
	return &Response{ParseFailed: true, Repaired: true}, nil
}

type synthesisSection struct {
	Index      int    `json:"section"`
	Thesis     string `json:"thesis"`
	Conclusion string `json:"conclusion"`
	Summary    string `json:"summary"`
}

// Synthesize asks the oracle for one thesis and overall assessment covering
// every successful chunk. Any failure, including empty fields, is an error;
// the caller keeps its deterministic values.
func (c *Client) Synthesize(ctx context.Context, analysisID string, payloads []model.ChunkPayload) (model.Thesis, model.OverallAssessment, error) {
	sections := make([]synthesisSection, len(payloads))
	for i, p := range payloads {
		sections[i] = synthesisSection{
			Index:      i + 1,
			Thesis:     p.Thesis.Statement,
			Conclusion: p.LogicalChain.Conclusion,
			Summary:    p.OverallAssessment.Summary,
		}
	}
	encoded, err := json.MarshalIndent(sections, "", "  ")
	if err != nil {
		return model.Thesis{}, model.OverallAssessment{}, fmt.Errorf("encoding sections: %w", err)
	}

	res, err := c.do(ctx, roundTrip{
		analysisID: analysisID,
		chunkIndex: -1,
		stage:      model.OracleCallStageSynthesis,
		system:     systemPrompt,
		user:       BuildSynthesisPrompt(string(encoded)),
	})
	if err != nil {
		return model.Thesis{}, model.OverallAssessment{}, fmt.Errorf("synthesis: %w", err)
	}
	if res.parseErr != nil {
		return model.Thesis{}, model.OverallAssessment{}, fmt.Errorf("synthesis: %w", res.parseErr)
	}

	p := finding.Sanitize(res.payload, c.tax)
	if strings.TrimSpace(p.Thesis.Statement) == "" || strings.TrimSpace(p.OverallAssessment.Summary) == "" {
		return model.Thesis{}, model.OverallAssessment{}, ErrEmptySynthesis
	}
	return p.Thesis, p.OverallAssessment, nil
}

// do performs one bounded completion, parses it and records the ledger row.
// The returned error is a transport error; parse failures travel in attempt.
func (c *Client) do(ctx context.Context, rt roundTrip) (*attempt, error) {
	sc := logger.StartSpan(ctx, "oracle."+string(rt.stage),
		trace.WithAttributes(
			attribute.String("oracle.provider", c.completer.Provider()),
			attribute.String("oracle.model", c.completer.Model()),
			attribute.Int("chunk.index", rt.chunkIndex),
		))
	defer sc.End()
	ctx = sc.Context()

	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: rt.system,
		UserPrompt:   rt.user,
		SchemaName:   "chunk_analysis",
		Schema:       rt.schema,
		MaxTokens:    c.cfg.MaxTokens,
		Temperature:  llm.Temp(c.cfg.Temperature),
	})
	latency := time.Since(start)

	call := model.OracleCall{
		ID:              id.New(),
		AnalysisID:      rt.analysisID,
		ChunkIndex:      rt.chunkIndex,
		Stage:           rt.stage,
		Provider:        c.completer.Provider(),
		Model:           c.completer.Model(),
		PromptVersion:   PromptVersion,
		TaxonomyVersion: c.tax.Version(),
		InputSHA256:     hashHex(rt.user),
		InputChars:      utf8.RuneCountInString(rt.user),
		LatencyMs:       int(latency.Milliseconds()),
		CreatedAt:       time.Now().UTC(),
	}

	if err != nil {
		sc.RecordError(err)
		call.Outcome = model.OracleCallOutcomeTransportError
		call.Error = logger.Ptr(logger.Truncate(err.Error(), 500))
		c.record(ctx, call)
		if llm.IsRetryable(ctx, err) {
			slog.WarnContext(ctx, "oracle call failed with transient error", "stage", rt.stage, "error", err)
		}
		return nil, err
	}

	a := &attempt{content: resp.Content}
	a.payload, a.parseErr = ParsePayload(resp.Content)

	call.OutputChars = utf8.RuneCountInString(resp.Content)
	call.PromptTokens = logger.Ptr(resp.PromptTokens)
	call.CompletionTokens = logger.Ptr(resp.CompletionTokens)
	if a.parseErr != nil {
		call.Outcome = model.OracleCallOutcomeUnparseable
		call.Error = logger.Ptr(a.parseErr.Error())
	} else {
		call.Outcome = model.OracleCallOutcomeParsed
	}
	c.record(ctx, call)

	sc.SetAttributes(
		attribute.String("oracle.outcome", string(call.Outcome)),
		attribute.String("oracle.finish_reason", resp.FinishReason),
	)
	slog.DebugContext(ctx, "oracle call finished",
		"stage", rt.stage,
		"outcome", call.Outcome,
		"latency_ms", call.LatencyMs,
		"output_chars", call.OutputChars)

	return a, nil
}

func (c *Client) record(ctx context.Context, call model.OracleCall) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(context.WithoutCancel(ctx), call); err != nil {
		slog.WarnContext(ctx, "failed to record oracle call", "stage", call.Stage, "error", err)
	}
}

func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
