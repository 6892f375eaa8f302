package extractiontest

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/akolanti/DocScanAPI/internal/domain/commonModels"
	"github.com/akolanti/DocScanAPI/internal/domain/documentModel"
	"github.com/akolanti/DocScanAPI/internal/extraction"
)

// MockProvider implements extraction.Provider
type MockProvider struct {
	OnExtract func(ctx context.Context, files []commonModels.UploadedFile, opts extraction.Options) (extraction.RawExtraction, error)
	Calls     atomic.Int32
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Extract(ctx context.Context, files []commonModels.UploadedFile, opts extraction.Options) (extraction.RawExtraction, error) {
	m.Calls.Add(1)
	if m.OnExtract != nil {
		return m.OnExtract(ctx, files, opts)
	}
	confidence := 0.9
	return extraction.RawExtraction{
		DocumentType:    "KTP",
		Content:         map[string]any{"nik": "3171234567890001", "nama": "BUDI"},
		ConfidenceScore: &confidence,
	}, nil
}

// MockCredentials implements extraction.CredentialChecker
type MockCredentials struct {
	Missing string
}

func (m MockCredentials) HasExtractionCredential() bool { return m.Missing == "" }
func (m MockCredentials) MissingCredential() string     { return m.Missing }

// MockFileStore implements documentModel.FileStore
type MockFileStore struct {
	OnSave   func(ctx context.Context, name string, contentType string, r io.Reader) (documentModel.StoredFile, error)
	OnOpen   func(ctx context.Context, key string) (io.ReadCloser, error)
	OnDelete func(ctx context.Context, key string) error
}

func (m *MockFileStore) Save(ctx context.Context, name string, contentType string, r io.Reader) (documentModel.StoredFile, error) {
	if m.OnSave != nil {
		return m.OnSave(ctx, name, contentType, r)
	}
	return documentModel.StoredFile{Key: name, Name: name, ContentType: contentType}, nil
}

func (m *MockFileStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if m.OnOpen != nil {
		return m.OnOpen(ctx, key)
	}
	return nil, documentModel.ErrFileNotFound
}

func (m *MockFileStore) Delete(ctx context.Context, key string) error {
	if m.OnDelete != nil {
		return m.OnDelete(ctx, key)
	}
	return nil
}
