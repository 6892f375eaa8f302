package adapter

import (
	"errors"
	"fmt"

	"github.com/akolanti/DocScanAPI/internal/api"
	"github.com/akolanti/DocScanAPI/internal/content"
	"github.com/akolanti/DocScanAPI/internal/domain/appErrors"
	"github.com/akolanti/DocScanAPI/internal/domain/documentModel"
	"github.com/akolanti/DocScanAPI/internal/domain/jobModel"
	"github.com/akolanti/DocScanAPI/internal/orchestrator"
)

func ToCreateScanResponse(scanId string) api.CreateScanResponse {
	return api.CreateScanResponse{
		ScanId:    scanId,
		StatusURL: fmt.Sprintf("scans/%s", scanId),
	}
}

func ToInitJobResponse(job jobModel.Job) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        job.Id,
		ScanId:    job.Request.ScanId,
		StatusURL: fmt.Sprintf("scans/%s", job.Request.ScanId),
		JobURL:    fmt.Sprintf("jobs/%s", job.Id),
	}
}

func ToJobResponse(job jobModel.Job) api.JobResponse {
	var errorPtr *api.ErrorResponse
	if job.Error != nil {
		errorPtr = &api.ErrorResponse{
			Code:    job.Error.Code,
			Kind:    job.Error.Kind,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}
	return api.JobResponse{
		Id:        job.Id,
		ScanId:    job.Request.ScanId,
		JobType:   string(job.JobType),
		Status:    string(job.Status),
		Error:     errorPtr,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
	}
}

func ToScanResponse(s orchestrator.Snapshot) api.ScanResponse {
	res := api.ScanResponse{
		ScanId:     s.ScanId,
		State:      string(s.Session.State),
		Kind:       string(s.Session.Kind),
		Steps:      make([]api.StepResponse, 0, len(s.Session.Steps)),
		DocumentId: s.DocumentId,
		FileName:   s.FileName,
		Content:    s.Content,
		Fields:     ToFieldRows(s.Fields),
		Dirty:      s.Dirty,
		Committing: s.Committing,
	}
	for _, step := range s.Session.Steps {
		res.Steps = append(res.Steps, api.StepResponse{Label: step.Label, Description: step.Description, Status: string(step.Status)})
	}
	if r := s.Session.Result; r != nil {
		res.DocumentType = r.DocumentType
		res.ConfidenceScore = r.ConfidenceScore
	}
	if s.ErrorKind != "" || s.ErrorMessage != "" {
		res.Error = &api.ErrorResponse{
			Kind:    string(s.ErrorKind),
			Message: s.ErrorMessage,
			Retry:   retryable(s.ErrorKind),
		}
	}
	if s.LastCommitted != nil {
		doc := ToDocumentResponse(*s.LastCommitted)
		res.LastCommitted = &doc
	}
	return res
}

func ToDocumentResponse(d documentModel.Document) api.DocumentResponse {
	res := api.DocumentResponse{
		Id:              d.Id,
		FileName:        d.FileName,
		DocumentType:    d.DocumentType,
		Status:          string(d.Status),
		Saved:           d.Saved,
		Content:         d.Content,
		Fields:          ToFieldRows(content.FieldRows(d.Content)),
		ConfidenceScore: d.ConfidenceScore,
		ProcessingTime:  d.ProcessingTime,
		ContentType:     d.ContentType,
		FileCount:       len(d.FilePaths()),
		ScannedAt:       d.ScannedAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if d.FilePath != "" {
		res.FileURL = fmt.Sprintf("documents/%s/file", d.Id)
	}
	return res
}

func ToDocumentList(docs []documentModel.Document) api.DocumentListResponse {
	out := api.DocumentListResponse{Documents: make([]api.DocumentResponse, 0, len(docs)), Total: len(docs)}
	for _, d := range docs {
		out.Documents = append(out.Documents, ToDocumentResponse(d))
	}
	return out
}

func ToPagedDocumentList(p documentModel.PagedDocuments) api.DocumentListResponse {
	out := ToDocumentList(p.Documents)
	out.Total = p.Total
	out.Page = p.Page
	out.PageSize = p.PageSize
	return out
}

func ToHistoryResponse(documentId string, entries []documentModel.HistoryEntry) api.HistoryResponse {
	out := api.HistoryResponse{DocumentId: documentId, Entries: make([]api.HistoryEntryResponse, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, api.HistoryEntryResponse{
			Kind:            e.Kind,
			Outcome:         string(e.Outcome),
			DocumentType:    e.DocumentType,
			ConfidenceScore: e.ConfidenceScore,
			Message:         e.Message,
			At:              e.At,
		})
	}
	return out
}

func ToFieldRows(fields []content.Field) []api.FieldRow {
	rows := make([]api.FieldRow, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, api.FieldRow{Key: f.Key, Label: f.Label, Value: f.Value})
	}
	return rows
}

// ToErrorResponse describes err for a client. Errors without a kind are
// reported as internal without leaking their text.
func ToErrorResponse(err error) api.ErrorResponse {
	var appErr *appErrors.Error
	if !errors.As(err, &appErr) {
		return api.ErrorResponse{Code: "INTERNAL", Kind: "INTERNAL", Message: "internal server error"}
	}
	return api.ErrorResponse{
		Code:    appErr.Code,
		Kind:    string(appErr.Kind),
		Message: appErrors.MessageOf(err),
		Retry:   retryable(appErr.Kind),
	}
}

func BadRequest(code string, message string) api.ErrorResponse {
	return api.ErrorResponse{Code: code, Kind: string(appErrors.KindValidation), Message: message}
}

func retryable(kind appErrors.Kind) bool {
	switch kind {
	case appErrors.KindUpstream, appErrors.KindPersistence, appErrors.KindBusy:
		return true
	default:
		return false
	}
}
