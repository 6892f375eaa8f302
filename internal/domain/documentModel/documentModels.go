package documentModel

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrFileNotFound = errors.New("stored file not found")

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"

	DocumentTypeAuto = "auto"
)

type Document struct {
	Id              string         `json:"id"`
	UserId          string         `json:"user_id"`
	FileName        string         `json:"file_name"`
	DocumentType    string         `json:"document_type,omitempty"`
	Status          Status         `json:"status"`
	Content         map[string]any `json:"content"`
	ConfidenceScore *float64       `json:"confidence_score,omitempty"`
	ProcessingTime  *float64       `json:"processing_time,omitempty"`
	FilePath        string         `json:"file_path,omitempty"`
	AdditionalFiles []string       `json:"additional_files,omitempty"`
	ContentType     string         `json:"content_type,omitempty"`
	Saved           bool           `json:"saved"`
	ScannedAt       time.Time      `json:"scanned_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// FilePaths lists every stored binary of the document, primary first.
func (d Document) FilePaths() []string {
	if d.FilePath == "" {
		return append([]string(nil), d.AdditionalFiles...)
	}
	return append([]string{d.FilePath}, d.AdditionalFiles...)
}

// ExtractionResult is what one extraction call produced. Content is raw: a
// mapping or a JSON string that may be encoded more than once.
type ExtractionResult struct {
	Id              string   `json:"id,omitempty"`
	DocumentType    string   `json:"document_type"`
	Content         any      `json:"content"`
	ConfidenceScore *float64 `json:"confidence_score,omitempty"`
	ProcessingTime  *float64 `json:"processing_time,omitempty"`
}

type SavedFilter struct {
	DocumentType string
	Query        string
}

type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

type PagedDocuments struct {
	Documents []Document `json:"documents"`
	Total     int        `json:"total"`
	Page      int        `json:"page"`
	PageSize  int        `json:"page_size"`
}

type HistoryEntry struct {
	Kind            string    `json:"kind"`
	Outcome         Status    `json:"outcome"`
	DocumentType    string    `json:"document_type,omitempty"`
	ConfidenceScore *float64  `json:"confidence_score,omitempty"`
	Message         string    `json:"message,omitempty"`
	At              time.Time `json:"at"`
}

// DocumentStore persists document records. SaveDocument keeps the saved and
// unsaved indexes consistent with the record in a single call.
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (Document, bool, error)
	SaveDocument(ctx context.Context, doc Document) error
	DeleteDocument(ctx context.Context, doc Document) error
	ListUnsaved(ctx context.Context, userId string, limit int) ([]Document, error)
	ListSaved(ctx context.Context, userId string) ([]Document, error)
}

type HistoryStore interface {
	Append(ctx context.Context, documentId string, entry HistoryEntry) error
	List(ctx context.Context, documentId string) ([]HistoryEntry, error)
	Delete(ctx context.Context, documentId string) error
}

type StoredFile struct {
	Key         string
	Name        string
	ContentType string
	Size        int64
}

// FileStore holds document binaries. Open of a missing key returns ErrFileNotFound,
// Delete of a missing key is not an error.
type FileStore interface {
	Save(ctx context.Context, name string, contentType string, r io.Reader) (StoredFile, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
