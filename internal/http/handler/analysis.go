package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"validity.app/auditor/internal/http/dto"
	"validity.app/auditor/internal/model"
	"validity.app/auditor/internal/service"
)

type AnalysisHandler struct {
	analysis service.AnalysisService
	calls    service.CallService
}

func NewAnalysisHandler(analysis service.AnalysisService, calls service.CallService) *AnalysisHandler {
	return &AnalysisHandler{
		analysis: analysis,
		calls:    calls,
	}
}

// Create runs a synchronous analysis. The body is always a Result; the status
// code reflects its outcome.
func (h *AnalysisHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status, msg := bindFailure(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	result := h.analysis.Analyze(ctx, req.Document, req.Timeout())

	status := StatusFor(result)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "analysis failed",
			"analysis_id", result.AnalysisID,
			"error_code", result.ErrorCode,
			"debug_errors", result.DebugErrors,
		)
	}
	c.JSON(status, result)
}

// ListCalls returns the oracle-call ledger rows of one analysis.
func (h *AnalysisHandler) ListCalls(c *gin.Context) {
	ctx := c.Request.Context()
	analysisID := c.Param("id")

	calls, err := h.calls.ListByAnalysis(ctx, analysisID)
	if err != nil {
		if errors.Is(err, service.ErrLedgerDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "oracle call ledger is not enabled"})
			return
		}
		slog.ErrorContext(ctx, "failed to list oracle calls", "error", err, "analysis_id", analysisID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list oracle calls"})
		return
	}
	if calls == nil {
		calls = []model.OracleCall{}
	}

	c.JSON(http.StatusOK, dto.OracleCallsResponse{AnalysisID: analysisID, Calls: calls})
}

// StatusFor maps an analysis outcome to its HTTP status.
func StatusFor(result *model.Result) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.ErrorCode {
	case model.ErrorCodeTooShort:
		return http.StatusUnprocessableEntity
	case model.ErrorCodeAllChunksFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
