package httpService

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akolanti/DocScanAPI/internal/domain/appErrors"
	"github.com/akolanti/DocScanAPI/internal/domain/commonModels"
	"github.com/akolanti/DocScanAPI/internal/extraction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	s, err := New(server.URL, "secret", 2*time.Second)
	require.NoError(t, err)
	return s
}

var ktp = []commonModels.UploadedFile{
	{Name: "front.jpg", ContentType: "image/jpeg", Data: []byte("front")},
	{Name: "back.jpg", ContentType: "image/jpeg", Data: []byte("back")},
}

func TestExtract_SendsMultipartAndDecodes(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/process", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "KTP", r.FormValue("document_type"))

		parts := r.MultipartForm.File["files"]
		require.Len(t, parts, 2)
		assert.Equal(t, "front.jpg", parts[0].Filename)
		f, err := parts[1].Open()
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "back", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"svc-1","documentType":"KTP","content":"{\"nik\":\"3171\"}","confidenceScore":0.8,"processing_time":1.5}`))
	})

	raw, err := s.Extract(context.Background(), ktp, extraction.Options{DocumentType: "KTP"})
	require.NoError(t, err)
	assert.Equal(t, "svc-1", raw.Id)
	assert.Equal(t, "KTP", raw.DocumentType)
	assert.Equal(t, `"{\"nik\":\"3171\"}"`, string(raw.Content.(json.RawMessage)))
	require.NotNil(t, raw.ConfidenceScore)
	assert.Equal(t, 0.8, *raw.ConfidenceScore)
	require.NotNil(t, raw.ProcessingTime)
	assert.Equal(t, 1.5, *raw.ProcessingTime)
}

func TestExtract_ErrorBodyPassesThrough(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"image is too blurry to read"}`))
	})

	_, err := s.Extract(context.Background(), ktp, extraction.Options{})
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.KindUpstream, typed.Kind)
	assert.Equal(t, "EXTRACTION_HTTP_422", typed.Code)
	assert.Equal(t, "image is too blurry to read", typed.Message)
}

func TestExtract_GenericErrorMessage(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	})

	_, err := s.Extract(context.Background(), ktp, extraction.Options{})
	assert.ErrorIs(t, err, appErrors.ErrUpstream)
	assert.Contains(t, appErrors.MessageOf(err), "502")
}

func TestExtract_RejectsUnexpectedShape(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"Not_JSON", `nope`},
		{"No_Content", `{"document_type":"KTP"}`},
		{"Bad_Confidence", `{"content":{},"confidence_score":4}`},
		{"Array_Content", `{"content":[1,2]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := s.Extract(context.Background(), ktp, extraction.Options{})
			assert.ErrorIs(t, err, &appErrors.Error{Kind: appErrors.KindUpstream, Code: "EXTRACTION_BAD_REPLY"})
		})
	}
}

func TestExtract_HonoursContextDeadline(t *testing.T) {
	release := make(chan struct{})
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Extract(ctx, ktp, extraction.Options{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(" ", "", 0)
	assert.Error(t, err)
}
