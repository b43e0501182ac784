package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"validity.app/auditor/internal/document"
	"validity.app/auditor/internal/http/dto"
	"validity.app/auditor/internal/model"
	"validity.app/auditor/internal/service"
)

type JobHandler struct {
	jobs service.JobService
}

func NewJobHandler(jobs service.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

func (h *JobHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status, msg := bindFailure(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	job, err := h.jobs.Submit(ctx, req.Document, req.Timeout())
	if err != nil {
		switch {
		case errors.Is(err, document.ErrTooShort):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "error_code": model.ErrorCodeTooShort})
		case errors.Is(err, service.ErrJobsDisabled):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "async jobs are not enabled"})
		default:
			slog.ErrorContext(ctx, "failed to submit job", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit job"})
		}
		return
	}

	c.Header("Location", "/api/v1/jobs/"+job.ID)
	c.JSON(http.StatusAccepted, dto.ToJobResponse(job))
}

func (h *JobHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("id")

	job, err := h.jobs.Get(ctx, jobID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		case errors.Is(err, service.ErrJobsDisabled):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "async jobs are not enabled"})
		default:
			slog.ErrorContext(ctx, "failed to get job", "error", err, "job_id", jobID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get job"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToJobResponse(job))
}
