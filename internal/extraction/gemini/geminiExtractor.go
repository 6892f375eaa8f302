package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/internal/customHttpClient"
	"github.com/akolanti/DocScanAPI/internal/domain/appErrors"
	"github.com/akolanti/DocScanAPI/internal/domain/commonModels"
	"github.com/akolanti/DocScanAPI/internal/extraction"
	"github.com/akolanti/DocScanAPI/internal/extraction/localText"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Extractor struct {
	client    *genai.Client
	modelName string
	logger    *logger_i.Logger
}

func New(ctx context.Context, apiKey string, modelName string) (*Extractor, error) {
	if modelName == "" {
		modelName = config.GeminiModelName
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: customHttpClient.NewClient(0),
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	e := &Extractor{client: c, modelName: modelName, logger: logger_i.NewLogger("extraction_gemini")}
	e.logger.Info("Gemini client created", "model", modelName)
	return e, nil
}

func (e *Extractor) Name() string {
	return config.ExtractionProviderGemini
}

func (e *Extractor) Extract(ctx context.Context, files []commonModels.UploadedFile, opts extraction.Options) (extraction.RawExtraction, error) {
	log := e.logger.WithContext(ctx)

	parts, textLayer, err := buildParts(files)
	if err != nil {
		return extraction.RawExtraction{}, err
	}
	parts = append(parts, genai.NewPartFromText(extraction.BuildPrompt(opts, textLayer)))

	contentConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(extraction.SystemInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr(config.ModelTemperature),
	}

	result, err := e.client.Models.GenerateContent(
		ctx,
		e.modelName,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		contentConfig,
	)
	if err != nil {
		log.Error("Gemini call failed", "error", err)
		return extraction.RawExtraction{}, classify(err)
	}

	raw, err := extraction.ParseModelReply(result.Text())
	if err != nil {
		return extraction.RawExtraction{}, appErrors.Upstream("EXTRACTION_BAD_REPLY", "the model did not return the expected JSON", err)
	}
	return raw, nil
}

// buildParts sends images and PDFs inline and folds office documents into one
// text layer.
func buildParts(files []commonModels.UploadedFile) ([]*genai.Part, string, error) {
	parts := make([]*genai.Part, 0, len(files)+1)
	var text []string
	for _, f := range files {
		switch localText.DetectKind(f) {
		case commonModels.IMAGE, commonModels.PDF:
			parts = append(parts, genai.NewPartFromBytes(f.Data, localText.MimeType(f)))
		default:
			t, err := localText.ExtractText(f)
			if err != nil {
				return nil, "", appErrors.Validation("UNREADABLE_FILE", fmt.Sprintf("could not read text from %q", f.Name))
			}
			text = append(text, t)
		}
	}
	return parts, strings.Join(text, "\n\n"), nil
}

// classify maps quota and availability failures to messages a user can act on.
func classify(err error) error {
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.ResourceExhausted:
			return quotaError(err)
		case codes.Unavailable:
			return unavailableError(err)
		}
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests:
			return quotaError(err)
		case http.StatusServiceUnavailable:
			return unavailableError(err)
		}
		return appErrors.Upstream("EXTRACTION_FAILED", apiErr.Message, err)
	}
	return err
}

func quotaError(err error) error {
	return appErrors.Upstream("EXTRACTION_QUOTA", "the extraction model is over its quota, try again later", err)
}

func unavailableError(err error) error {
	return appErrors.Upstream("EXTRACTION_UNAVAILABLE", "the extraction model is temporarily unavailable", err)
}
