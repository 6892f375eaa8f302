// Package httpService calls a document processing service over HTTP: the files
// go out as multipart/form-data to {baseURL}/process and a JSON extraction
// result comes back.
package httpService

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/internal/customHttpClient"
	"github.com/akolanti/DocScanAPI/internal/domain/appErrors"
	"github.com/akolanti/DocScanAPI/internal/domain/commonModels"
	"github.com/akolanti/DocScanAPI/internal/extraction"
	"github.com/akolanti/DocScanAPI/internal/extraction/localText"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const maxReplyBytes = 8 << 20

const replySchema = `{
  "type": "object",
  "properties": {
    "id":               {"type": ["string", "null"]},
    "document_type":    {"type": ["string", "null"]},
    "documentType":     {"type": ["string", "null"]},
    "content":          {"type": ["object", "string", "null"]},
    "confidence_score": {"type": ["number", "null"], "minimum": 0, "maximum": 1},
    "confidenceScore":  {"type": ["number", "null"], "minimum": 0, "maximum": 1},
    "processing_time":  {"type": ["number", "null"], "minimum": 0},
    "processingTime":   {"type": ["number", "null"], "minimum": 0}
  },
  "required": ["content"]
}`

type Service struct {
	baseURL string
	apiKey  string
	client  *http.Client
	schema  *jsonschema.Schema
	logger  *logger_i.Logger
}

type reply struct {
	Id                   string          `json:"id"`
	DocumentType         string          `json:"document_type"`
	DocumentTypeCamel    string          `json:"documentType"`
	Content              json.RawMessage `json:"content"`
	ConfidenceScore      *float64        `json:"confidence_score"`
	ConfidenceScoreCamel *float64        `json:"confidenceScore"`
	ProcessingTime       *float64        `json:"processing_time"`
	ProcessingTimeCamel  *float64        `json:"processingTime"`
}

type errorReply struct {
	Error   string `json:"error"`
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

func New(baseURL string, apiKey string, timeout time.Duration) (*Service, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("extraction service url is empty")
	}
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = config.ExtractionTimeout
	}
	return &Service{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  customHttpClient.NewClient(timeout),
		schema:  schema,
		logger:  logger_i.NewLogger("ExtractionHttpService"),
	}, nil
}

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("extraction_reply.json", strings.NewReader(replySchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("extraction_reply.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func (s *Service) Name() string {
	return config.ExtractionProviderHTTP
}

func (s *Service) Extract(ctx context.Context, files []commonModels.UploadedFile, opts extraction.Options) (extraction.RawExtraction, error) {
	log := s.logger.WithContext(ctx)

	body, contentType, err := encodeForm(files, opts)
	if err != nil {
		return extraction.RawExtraction{}, fmt.Errorf("encoding upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/process", body)
	if err != nil {
		return extraction.RawExtraction{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	if traceId, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok {
		req.Header.Set("X-Trace-Id", traceId)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return extraction.RawExtraction{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return extraction.RawExtraction{}, fmt.Errorf("reading reply: %w", err)
	}
	log.Debug("Extraction service replied", "status", resp.StatusCode, "bytes", len(data))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return extraction.RawExtraction{}, appErrors.Upstream(
			fmt.Sprintf("EXTRACTION_HTTP_%d", resp.StatusCode), serviceMessage(resp.StatusCode, data), nil)
	}
	return s.decode(data)
}

func (s *Service) decode(data []byte) (extraction.RawExtraction, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return extraction.RawExtraction{}, appErrors.Upstream("EXTRACTION_BAD_REPLY", "the extraction service returned invalid JSON", err)
	}
	if err := s.schema.Validate(generic); err != nil {
		return extraction.RawExtraction{}, appErrors.Upstream("EXTRACTION_BAD_REPLY", "the extraction service reply has an unexpected shape", err)
	}

	var r reply
	if err := json.Unmarshal(data, &r); err != nil {
		return extraction.RawExtraction{}, appErrors.Upstream("EXTRACTION_BAD_REPLY", "the extraction service returned invalid JSON", err)
	}
	return extraction.RawExtraction{
		Id:              r.Id,
		DocumentType:    firstNonEmpty(r.DocumentType, r.DocumentTypeCamel),
		Content:         r.Content,
		ConfidenceScore: firstNonNil(r.ConfidenceScore, r.ConfidenceScoreCamel),
		ProcessingTime:  firstNonNil(r.ProcessingTime, r.ProcessingTimeCamel),
	}, nil
}

func encodeForm(files []commonModels.UploadedFile, opts extraction.Options) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.Name))
		header.Set("Content-Type", localText.MimeType(f))
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	docType := strings.TrimSpace(opts.DocumentType)
	if docType == "" {
		docType = "auto"
	}
	if err := w.WriteField("document_type", docType); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// serviceMessage surfaces the service's own wording when the error body has one.
func serviceMessage(status int, body []byte) string {
	var e errorReply
	if json.Unmarshal(body, &e) == nil {
		if msg := firstNonEmpty(e.Error, e.Detail, e.Message); msg != "" {
			return msg
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 300 && !strings.HasPrefix(text, "<") {
		return text
	}
	return fmt.Sprintf("extraction service answered %d %s", status, http.StatusText(status))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func firstNonNil(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
