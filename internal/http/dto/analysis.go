package dto

import (
	"time"

	"validity.app/auditor/internal/model"
	"validity.app/auditor/internal/taxonomy"
)

// AnalyzeRequest is shared by synchronous analyses and job submission.
// A zero timeout uses the server default.
type AnalyzeRequest struct {
	Document       string  `json:"document" binding:"required"`
	TimeoutSeconds float64 `json:"timeout_seconds" binding:"omitempty,gt=0,lte=3600"`
}

func (r AnalyzeRequest) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds * float64(time.Second))
}

type JobResponse struct {
	ID        string          `json:"id"`
	Status    model.JobStatus `json:"status"`
	Attempts  int             `json:"attempts"`
	Result    *model.Result   `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func ToJobResponse(job *model.Job) *JobResponse {
	return &JobResponse{
		ID:        job.ID,
		Status:    job.Status,
		Attempts:  job.Attempts,
		Result:    job.Result,
		Error:     job.Error,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}

type OracleCallsResponse struct {
	AnalysisID string             `json:"analysis_id"`
	Calls      []model.OracleCall `json:"calls"`
}

type TaxonomyResponse struct {
	Version    string           `json:"version"`
	Micro      []taxonomy.Entry `json:"micro"`
	Structural []taxonomy.Entry `json:"structural"`
}

func ToTaxonomyResponse(t *taxonomy.Table) *TaxonomyResponse {
	return &TaxonomyResponse{
		Version:    t.Version(),
		Micro:      t.Entries(taxonomy.KindMicro),
		Structural: t.Entries(taxonomy.KindStructural),
	}
}
