package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/internal/domain/appErrors"
	"github.com/akolanti/DocScanAPI/internal/domain/commonModels"
	"github.com/akolanti/DocScanAPI/internal/domain/documentModel"
	"github.com/akolanti/DocScanAPI/internal/extraction/localText"
	"github.com/akolanti/DocScanAPI/internal/metrics"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
	"golang.org/x/sync/errgroup"
)

// Client is the stateless adapter between the scan pipeline and the extraction
// provider. It validates input, enforces the timeout and maps every failure to
// the appErrors taxonomy.
type Client struct {
	provider    Provider
	documents   documentModel.DocumentStore
	files       documentModel.FileStore
	credentials CredentialChecker
	timeout     time.Duration
	logger      *logger_i.Logger
}

type ClientConfig struct {
	Provider    Provider
	Documents   documentModel.DocumentStore
	Files       documentModel.FileStore
	Credentials CredentialChecker
	Timeout     time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.ExtractionTimeout
	}
	return &Client{
		provider:    cfg.Provider,
		documents:   cfg.Documents,
		files:       cfg.Files,
		credentials: cfg.Credentials,
		timeout:     timeout,
		logger:      logger_i.NewLogger("ExtractionClient"),
	}
}

// CheckConfigured fails with a configuration error when the provider cannot be called.
func (c *Client) CheckConfigured() error {
	if c.provider == nil || (c.credentials != nil && !c.credentials.HasExtractionCredential()) {
		missing := "extraction provider"
		if c.credentials != nil {
			missing = c.credentials.MissingCredential()
		}
		return appErrors.Configuration("EXTRACTION_NOT_CONFIGURED",
			fmt.Sprintf("document extraction is not configured: set %s and restart the service", missing))
	}
	return nil
}

// ProviderName names the configured provider, empty when there is none.
func (c *Client) ProviderName() string {
	if c.provider == nil {
		return ""
	}
	return c.provider.Name()
}

// ValidateFiles checks an upload without calling anything.
func ValidateFiles(files []commonModels.UploadedFile) error {
	if len(files) == 0 {
		return appErrors.Validation("NO_FILES", "select at least one file to scan")
	}
	if len(files) > config.MaxUploadFiles {
		return appErrors.Validation("TOO_MANY_FILES", fmt.Sprintf("at most %d files can be scanned together", config.MaxUploadFiles))
	}
	for _, f := range files {
		if f.Size() == 0 {
			return appErrors.Validation("EMPTY_FILE", fmt.Sprintf("file %q is empty", f.Name))
		}
		switch localText.DetectKind(f) {
		case commonModels.ERR:
			return appErrors.Validation("UNSUPPORTED_FILE", fmt.Sprintf("file %q is not an image, PDF or office document", f.Name))
		case commonModels.PDF:
			if err := localText.ValidatePDF(f.Data); err != nil {
				return appErrors.Validation("UNREADABLE_PDF", fmt.Sprintf("file %q is not a readable PDF", f.Name))
			}
		}
	}
	return nil
}

// Submit runs extraction on freshly uploaded files.
func (c *Client) Submit(ctx context.Context, files []commonModels.UploadedFile, opts Options) (documentModel.ExtractionResult, error) {
	if err := ValidateFiles(files); err != nil {
		return documentModel.ExtractionResult{}, err
	}
	if err := c.CheckConfigured(); err != nil {
		return documentModel.ExtractionResult{}, err
	}
	return c.extract(ctx, files, opts, "")
}

// Rescan runs extraction again on the stored files of documentId.
func (c *Client) Rescan(ctx context.Context, documentId string) (documentModel.ExtractionResult, error) {
	doc, err := c.loadDocument(ctx, documentId)
	if err != nil {
		return documentModel.ExtractionResult{}, err
	}
	if err := c.CheckConfigured(); err != nil {
		return documentModel.ExtractionResult{}, err
	}
	files, err := c.loadFiles(ctx, doc)
	if err != nil {
		return documentModel.ExtractionResult{}, err
	}
	return c.extract(ctx, files, Options{}, doc.Id)
}

func (c *Client) loadDocument(ctx context.Context, documentId string) (documentModel.Document, error) {
	if strings.TrimSpace(documentId) == "" {
		return documentModel.Document{}, appErrors.Validation("NO_DOCUMENT_ID", "a document id is required")
	}
	doc, found, err := c.documents.GetDocument(ctx, documentId)
	if err != nil {
		return doc, appErrors.Persistence("DOCUMENT_READ_FAILED", "could not read the stored document", err)
	}
	if !found {
		return doc, appErrors.NotFound("DOCUMENT_NOT_FOUND", fmt.Sprintf("document %s does not exist", documentId))
	}
	return doc, nil
}

// loadFiles reads every stored binary of doc concurrently, keeping their order.
func (c *Client) loadFiles(ctx context.Context, doc documentModel.Document) ([]commonModels.UploadedFile, error) {
	paths := doc.FilePaths()
	if len(paths) == 0 {
		return nil, appErrors.NotFound("FILE_NOT_FOUND", fmt.Sprintf("document %s has no stored file to rescan", doc.Id))
	}

	files := make([]commonModels.UploadedFile, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, key := range paths {
		g.Go(func() error {
			r, err := c.files.Open(gctx, key)
			if err != nil {
				return err
			}
			defer r.Close()
			data, err := io.ReadAll(r)
			if err != nil {
				return err
			}
			contentType := ""
			if i == 0 {
				contentType = doc.ContentType
			}
			files[i] = commonModels.UploadedFile{Name: key, ContentType: contentType, Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, documentModel.ErrFileNotFound) {
			return nil, appErrors.NotFound("FILE_NOT_FOUND", fmt.Sprintf("the stored file of document %s is missing", doc.Id))
		}
		return nil, appErrors.Persistence("FILE_READ_FAILED", "could not read the stored file", err)
	}
	return files, nil
}

func (c *Client) extract(ctx context.Context, files []commonModels.UploadedFile, opts Options, documentId string) (documentModel.ExtractionResult, error) {
	log := c.logger.WithContext(ctx).With("provider", c.provider.Name(), "files", len(files))
	if documentId != "" {
		log = log.With("document Id", documentId)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	raw, err := c.provider.Extract(callCtx, files, opts)
	elapsed := time.Since(start)
	metrics.CaptureExecutionMetrics("extraction_"+c.provider.Name(), elapsed)

	if err != nil {
		log.Error("Extraction failed", "error", err, "elapsed", elapsed)
		return documentModel.ExtractionResult{}, upstreamError(callCtx, err)
	}
	log.Debug("Extraction returned", "documentType", raw.DocumentType, "elapsed", elapsed)

	result := documentModel.ExtractionResult{
		Id:              documentId,
		DocumentType:    strings.TrimSpace(raw.DocumentType),
		Content:         raw.Content,
		ConfidenceScore: raw.ConfidenceScore,
		ProcessingTime:  raw.ProcessingTime,
	}
	if result.Id == "" {
		result.Id = raw.Id
	}
	if result.DocumentType == "" {
		result.DocumentType = opts.DocumentType
	}
	if result.ProcessingTime == nil {
		seconds := elapsed.Seconds()
		result.ProcessingTime = &seconds
	}
	return result, nil
}

func upstreamError(ctx context.Context, err error) error {
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return typed
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return appErrors.Upstream("EXTRACTION_TIMEOUT", "the extraction service did not answer in time", err)
	}
	return appErrors.Upstream("EXTRACTION_FAILED", err.Error(), err)
}
