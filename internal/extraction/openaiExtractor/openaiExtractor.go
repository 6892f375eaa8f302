package openaiExtractor

import (
	"context"
	"encoding/base64"
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
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Extractor sends images as data URLs and everything else as its text layer.
type Extractor struct {
	client    openai.Client
	modelName string
	logger    *logger_i.Logger
}

func New(apiKey string, modelName string, opts ...option.RequestOption) *Extractor {
	if modelName == "" {
		modelName = config.OpenAIModelName
	}
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(customHttpClient.NewClient(0)),
		option.WithMaxRetries(0),
	}, opts...)
	return &Extractor{
		client:    openai.NewClient(opts...),
		modelName: modelName,
		logger:    logger_i.NewLogger("extraction_openai"),
	}
}

func (e *Extractor) Name() string {
	return config.ExtractionProviderOpenAI
}

func (e *Extractor) Extract(ctx context.Context, files []commonModels.UploadedFile, opts extraction.Options) (extraction.RawExtraction, error) {
	log := e.logger.WithContext(ctx)

	images, textLayer, err := splitFiles(files)
	if err != nil {
		return extraction.RawExtraction{}, err
	}
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(extraction.BuildPrompt(opts, textLayer)),
	}
	for _, url := range images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: url}))
	}

	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(extraction.SystemInstruction),
			openai.UserMessage(parts),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(float64(config.ModelTemperature)),
	})
	if err != nil {
		log.Error("OpenAI call failed", "error", err)
		return extraction.RawExtraction{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return extraction.RawExtraction{}, appErrors.Upstream("EXTRACTION_BAD_REPLY", "the model returned no answer", nil)
	}

	raw, err := extraction.ParseModelReply(resp.Choices[0].Message.Content)
	if err != nil {
		return extraction.RawExtraction{}, appErrors.Upstream("EXTRACTION_BAD_REPLY", "the model did not return the expected JSON", err)
	}
	return raw, nil
}

func splitFiles(files []commonModels.UploadedFile) ([]string, string, error) {
	var images []string
	var text []string
	for _, f := range files {
		if localText.DetectKind(f) == commonModels.IMAGE {
			images = append(images, dataURL(f))
			continue
		}
		t, err := localText.ExtractText(f)
		if err != nil {
			return nil, "", appErrors.Validation("UNREADABLE_FILE", fmt.Sprintf("could not read text from %q", f.Name))
		}
		if strings.TrimSpace(t) == "" {
			return nil, "", appErrors.Validation("NO_TEXT_LAYER",
				fmt.Sprintf("%q has no text layer; upload it as an image instead", f.Name))
		}
		text = append(text, t)
	}
	return images, strings.Join(text, "\n\n"), nil
}

func dataURL(f commonModels.UploadedFile) string {
	return "data:" + localText.MimeType(f) + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}

func classify(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.StatusCode {
	case http.StatusTooManyRequests:
		return appErrors.Upstream("EXTRACTION_QUOTA", "the extraction model is over its quota, try again later", err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return appErrors.Configuration("EXTRACTION_NOT_CONFIGURED", "the OpenAI API key was rejected: check OPENAI_API_KEY")
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return appErrors.Upstream("EXTRACTION_UNAVAILABLE", "the extraction model is temporarily unavailable", err)
	}
	return appErrors.Upstream("EXTRACTION_FAILED", apiErr.Message, err)
}
