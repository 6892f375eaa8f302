package openaiExtractor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/akolanti/DocScanAPI/internal/domain/appErrors"
	"github.com/akolanti/DocScanAPI/internal/domain/commonModels"
	"github.com/akolanti/DocScanAPI/internal/extraction"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func newTestExtractor(t *testing.T, handler http.HandlerFunc) *Extractor {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New("sk-test", "gpt-4o-mini", option.WithBaseURL(server.URL))
}

func TestExtract_SendsImagesAsDataURLs(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		raw, _ := json.Marshal(body["messages"])
		assert.Contains(t, string(raw), "data:image/jpeg;base64,")
		assert.Contains(t, string(raw), "The document is a KTP.")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion(`{"document_type":"KTP","confidence":0.7,"fields":{"nik":"3171"}}`))
	})

	raw, err := e.Extract(context.Background(),
		[]commonModels.UploadedFile{{Name: "front.jpg", ContentType: "image/jpeg", Data: []byte("jpeg")}},
		extraction.Options{DocumentType: "KTP"})
	require.NoError(t, err)
	assert.Equal(t, "KTP", raw.DocumentType)
	require.NotNil(t, raw.ConfidenceScore)
	assert.Equal(t, 0.7, *raw.ConfidenceScore)
}

func TestExtract_QuotaError(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	})

	_, err := e.Extract(context.Background(),
		[]commonModels.UploadedFile{{Name: "front.jpg", ContentType: "image/jpeg", Data: []byte("jpeg")}},
		extraction.Options{})
	assert.ErrorIs(t, err, &appErrors.Error{Kind: appErrors.KindUpstream, Code: "EXTRACTION_QUOTA"})
}

func TestExtract_BadReply(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("sorry, I cannot help with that"))
	})

	_, err := e.Extract(context.Background(),
		[]commonModels.UploadedFile{{Name: "notes.txt", Data: []byte("NIK 3171")}},
		extraction.Options{})
	assert.ErrorIs(t, err, &appErrors.Error{Kind: appErrors.KindUpstream, Code: "EXTRACTION_BAD_REPLY"})
}

func TestSplitFiles_RejectsEmptyTextLayer(t *testing.T) {
	_, _, err := splitFiles([]commonModels.UploadedFile{{Name: "blank.txt", Data: []byte("   ")}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
