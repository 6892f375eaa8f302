package jobModel

import (
	"context"
	"time"

	"github.com/akolanti/DocScanAPI/internal/domain/commonModels"
)

type JobStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"
	JobStatusStale    JobStatus = "STALE"

	JobTypeUpload JobType = "Upload"
	JobTypeRescan JobType = "Rescan"
)

// ScanRequest is a started scan waiting for its extraction call. Generation ties
// it to the session run that issued it.
type ScanRequest struct {
	ScanId       string                      `json:"scan_id"`
	Generation   uint64                      `json:"generation"`
	JobType      JobType                     `json:"job_type"`
	UserId       string                      `json:"user_id"`
	DocumentId   string                      `json:"document_id,omitempty"`
	FileName     string                      `json:"file_name,omitempty"`
	DocumentType string                      `json:"document_type,omitempty"`
	Files        []commonModels.UploadedFile `json:"files,omitempty"`
}

type Job struct {
	Id          string      `json:"id"`
	TraceId     string      `json:"trace_id"`
	JobType     JobType     `json:"job_type"`
	Request     ScanRequest `json:"request"`
	CreatedTime time.Time   `json:"created_time"`
	EndTime     time.Time   `json:"end_time,omitempty"`
	Status      JobStatus   `json:"status"`
	Error       *JobError   `json:"error,omitempty"`
}

type JobError struct {
	Kind    string `json:"kind"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Retry   bool   `json:"can_retry"`
}

type JobStore interface {
	SaveJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, jobId string) (Job, bool)
	DeleteJob(ctx context.Context, jobId string)
}
