package extraction

import (
	"context"

	"github.com/akolanti/DocScanAPI/internal/domain/commonModels"
)

type Options struct {
	// DocumentType is a hint; empty or "auto" asks the provider to detect it.
	DocumentType string
}

// RawExtraction is a provider reply before normalization.
type RawExtraction struct {
	Id              string
	DocumentType    string
	Content         any
	ConfidenceScore *float64
	ProcessingTime  *float64
}

// Provider is the external OCR/AI service. Implementations make exactly one call
// per Extract and never retry.
type Provider interface {
	Name() string
	Extract(ctx context.Context, files []commonModels.UploadedFile, opts Options) (RawExtraction, error)
}

// CredentialChecker reports whether the configured provider can be called and,
// when it cannot, which setting is missing.
type CredentialChecker interface {
	HasExtractionCredential() bool
	MissingCredential() string
}
