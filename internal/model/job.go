package model

import "time"

type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
)

// Job is an asynchronous analysis request. Document is cleared once the job
// reaches a terminal status.
type Job struct {
	ID             string    `json:"id"`
	Status         JobStatus `json:"status"`
	Document       string    `json:"document,omitempty"`
	TimeoutSeconds float64   `json:"timeout_seconds"`
	Attempts       int       `json:"attempts"`
	Result         *Result   `json:"result,omitempty"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (j Job) Terminal() bool {
	return j.Status == JobStatusDone || j.Status == JobStatusFailed
}
