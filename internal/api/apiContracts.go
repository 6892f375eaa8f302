package api

import "time"

type ErrorResponse struct {
	Code    string `json:"code" example:"DOCUMENT_NOT_FOUND"`
	Kind    string `json:"kind" example:"NOT_FOUND"`
	Message string `json:"message" example:"document 42 does not exist"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type CreateScanResponse struct {
	ScanId    string `json:"scan_id" example:"6f1c3a52-8d0e-4a43-9f0f-1b9b7d2c8e11"`
	StatusURL string `json:"status_url" example:"scans/6f1c3a52-8d0e-4a43-9f0f-1b9b7d2c8e11"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	ScanId    string `json:"scan_id"`
	StatusURL string `json:"status_url"`
	JobURL    string `json:"job_url"`
}

type JobResponse struct {
	Id        string         `json:"id" example:"job_cz109"`
	ScanId    string         `json:"scan_id"`
	JobType   string         `json:"job_type" example:"Upload"`
	Status    string         `json:"status" example:"RUNNING"`
	Error     *ErrorResponse `json:"error,omitempty"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time,omitempty"`
}

type StepResponse struct {
	Label       string `json:"label" example:"Detecting document type"`
	Description string `json:"description" example:"In progress"`
	Status      string `json:"status" example:"current"`
}

type FieldRow struct {
	Key   string `json:"key" example:"person-data.nik"`
	Label string `json:"label" example:"nik"`
	Value any    `json:"value"`
}

type ScanResponse struct {
	ScanId          string            `json:"scan_id"`
	State           string            `json:"state" example:"extracting_fields"`
	Kind            string            `json:"kind,omitempty" example:"upload"`
	Steps           []StepResponse    `json:"steps"`
	DocumentId      string            `json:"document_id,omitempty"`
	FileName        string            `json:"file_name,omitempty"`
	DocumentType    string            `json:"document_type,omitempty" example:"KTP"`
	ConfidenceScore *float64          `json:"confidence_score,omitempty"`
	Content         map[string]any    `json:"content,omitempty"`
	Fields          []FieldRow        `json:"fields"`
	Dirty           bool              `json:"dirty"`
	Committing      bool              `json:"committing"`
	Error           *ErrorResponse    `json:"error,omitempty"`
	LastCommitted   *DocumentResponse `json:"last_committed,omitempty"`
}

type DocumentResponse struct {
	Id              string         `json:"id"`
	FileName        string         `json:"file_name"`
	DocumentType    string         `json:"document_type,omitempty"`
	Status          string         `json:"status" example:"completed"`
	Saved           bool           `json:"saved"`
	Content         map[string]any `json:"content"`
	Fields          []FieldRow     `json:"fields"`
	ConfidenceScore *float64       `json:"confidence_score,omitempty"`
	ProcessingTime  *float64       `json:"processing_time,omitempty"`
	ContentType     string         `json:"content_type,omitempty"`
	FileCount       int            `json:"file_count"`
	FileURL         string         `json:"file_url,omitempty"`
	ScannedAt       time.Time      `json:"scanned_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Total     int                `json:"total"`
	Page      int                `json:"page,omitempty"`
	PageSize  int                `json:"page_size,omitempty"`
}

type HistoryEntryResponse struct {
	Kind            string    `json:"kind" example:"rescan"`
	Outcome         string    `json:"outcome" example:"failed"`
	DocumentType    string    `json:"document_type,omitempty"`
	ConfidenceScore *float64  `json:"confidence_score,omitempty"`
	Message         string    `json:"message,omitempty"`
	At              time.Time `json:"at"`
}

type HistoryResponse struct {
	DocumentId string                 `json:"document_id"`
	Entries    []HistoryEntryResponse `json:"entries"`
}

type ExtractionConfigResponse struct {
	Provider   string `json:"provider" example:"gemini"`
	Configured bool   `json:"configured"`
	Message    string `json:"message,omitempty" example:"document extraction is not configured: set GEMINI_API_KEY and restart the service"`
}

// requests---------------------

type DocumentRequest struct {
	DocumentId string `json:"document_id" validate:"required"`
}

type EditFieldsRequest struct {
	Fields map[string]any `json:"fields" validate:"required"`
}

type CommitRequest struct {
	FileName  string `json:"file_name,omitempty"`
	SaveAsNew bool   `json:"save_as_new,omitempty"`
}
