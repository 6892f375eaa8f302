package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/DocScanAPI/internal/api"
	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/internal/data/fileStore"
	"github.com/akolanti/DocScanAPI/internal/data/store"
	"github.com/akolanti/DocScanAPI/internal/domain/appErrors"
	"github.com/akolanti/DocScanAPI/internal/domain/commonModels"
	"github.com/akolanti/DocScanAPI/internal/domain/jobModel"
	"github.com/akolanti/DocScanAPI/internal/export"
	"github.com/akolanti/DocScanAPI/internal/extraction"
	"github.com/akolanti/DocScanAPI/internal/extraction/extractiontest"
	"github.com/akolanti/DocScanAPI/internal/gateway"
	"github.com/akolanti/DocScanAPI/internal/handlers"
	"github.com/akolanti/DocScanAPI/internal/job"
	"github.com/akolanti/DocScanAPI/internal/middleware"
	"github.com/akolanti/DocScanAPI/internal/orchestrator"
	"github.com/akolanti/DocScanAPI/internal/server"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

// every request gets its own address so the shared rate limiter never trips
var remoteCounter atomic.Int64

type testAPI struct {
	t        *testing.T
	router   *chi.Mux
	provider *extractiontest.MockProvider
	gateway  *gateway.Gateway
}

func newTestAPI(t *testing.T, creds extractiontest.MockCredentials) *testAPI {
	t.Helper()
	middleware.Configure(config.Settings{AuthToken: testToken})

	docs := store.InitInMemoryDocumentStore()
	files, err := fileStore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	provider := &extractiontest.MockProvider{}
	gw := gateway.New(gateway.Config{Documents: docs, History: store.InitInMemoryHistoryStore(), Files: files})
	client := extraction.NewClient(extraction.ClientConfig{
		Provider:    provider,
		Documents:   docs,
		Files:       files,
		Credentials: creds,
		Timeout:     5 * time.Second,
	})
	manager := orchestrator.NewManager(orchestrator.ManagerConfig{Extractor: client, Persister: gw})
	gw.KeepInUse(manager)

	jobs := job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job, 4),
		DispatcherChannel: make(chan bool, 1),
		JobStore:          store.InitInMemoryJobStore(),
		Executor:          manager,
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	// a single inline worker
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case j := <-jobs.JobChannel:
				_ = manager.Execute(ctx, j.Request)
			}
		}
	}()

	h := handlers.NewHandler(handlers.Deps{Scans: manager, Jobs: jobs, Documents: gw, Extraction: client})
	r := chi.NewRouter()
	server.RegisterRoutes(r, h)
	return &testAPI{t: t, router: r, provider: provider, gateway: gw}
}

func (a *testAPI) request(method string, path string, user string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, path, body)
	n := remoteCounter.Add(1)
	req.RemoteAddr = fmt.Sprintf("10.%d.%d.%d:4321", (n>>16)&0xff, (n>>8)&0xff, n&0xff)
	req.Header.Set("Authorization", "Bearer "+testToken)
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) json(method string, path string, user string, payload any) *httptest.ResponseRecorder {
	a.t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(a.t, err)
		body = bytes.NewReader(b)
	}
	return a.request(method, path, user, body, "application/json")
}

func (a *testAPI) upload(scanId string, user string, docType string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("files", "ktp.png")
	require.NoError(a.t, err)
	_, _ = part.Write(pngBytes)
	if docType != "" {
		require.NoError(a.t, mw.WriteField("document_type", docType))
	}
	require.NoError(a.t, mw.Close())
	return a.request(http.MethodPost, "/scans/"+scanId+"/upload", user, &buf, mw.FormDataContentType())
}

func (a *testAPI) createScan(user string) string {
	a.t.Helper()
	rec := a.json(http.MethodPost, "/scans", user, nil)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var res api.CreateScanResponse
	decode(a.t, rec, &res)
	require.NotEmpty(a.t, res.ScanId)
	return res.ScanId
}

func (a *testAPI) waitForState(scanId string, user string, state string) api.ScanResponse {
	a.t.Helper()
	var res api.ScanResponse
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		rec := a.json(http.MethodGet, "/scans/"+scanId, user, nil)
		require.Equal(a.t, http.StatusOK, rec.Code)
		decode(a.t, rec, &res)
		if res.State == state {
			return res
		}
		time.Sleep(10 * time.Millisecond)
	}
	a.t.Fatalf("scan %s never reached %s, last state %s", scanId, state, res.State)
	return res
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), target), rec.Body.String())
}

func TestScanReviewCommitFlow(t *testing.T) {
	a := newTestAPI(t, extractiontest.MockCredentials{})
	scanId := a.createScan("user-1")

	rec := a.upload(scanId, "user-1", "KTP")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var queued api.InitJobResponse
	decode(t, rec, &queued)
	assert.Equal(t, scanId, queued.ScanId)

	scan := a.waitForState(scanId, "user-1", "succeeded")
	assert.Equal(t, "KTP", scan.DocumentType)
	assert.NotEmpty(t, scan.DocumentId)
	assert.Len(t, scan.Steps, 4)

	rec = a.json(http.MethodGet, "/"+queued.JobURL, "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var jobRes api.JobResponse
	decode(t, rec, &jobRes)
	assert.Equal(t, queued.Id, jobRes.Id)
	assert.Equal(t, scanId, jobRes.ScanId)
	assert.Equal(t, string(jobModel.JobTypeUpload), jobRes.JobType)

	rec = a.json(http.MethodPut, "/scans/"+scanId+"/fields", "user-1", api.EditFieldsRequest{Fields: map[string]any{"nama": "BUDI SANTOSO"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &scan)
	assert.True(t, scan.Dirty)

	rec = a.json(http.MethodPost, "/scans/"+scanId+"/commit", "user-1", api.CommitRequest{FileName: "KTP Budi"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var saved api.DocumentResponse
	decode(t, rec, &saved)
	assert.True(t, saved.Saved)
	assert.Equal(t, "KTP Budi", saved.FileName)
	assert.Equal(t, "BUDI SANTOSO", saved.Content["nama"])

	rec = a.json(http.MethodGet, "/documents?type=ktp", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list api.DocumentListResponse
	decode(t, rec, &list)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, saved.Id, list.Documents[0].Id)

	rec = a.json(http.MethodGet, "/documents/"+saved.Id+"/history", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history api.HistoryResponse
	decode(t, rec, &history)
	assert.NotEmpty(t, history.Entries)

	rec = a.json(http.MethodGet, "/documents/"+saved.Id+"/file", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pngBytes, rec.Body.Bytes())

	rec = a.json(http.MethodGet, "/documents/export", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())

	// another user sees none of it
	rec = a.json(http.MethodGet, "/documents/"+saved.Id, "user-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.json(http.MethodGet, "/scans/"+scanId, "user-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.json(http.MethodGet, "/"+queued.JobURL, "user-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.json(http.MethodDelete, "/documents/"+saved.Id, "user-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.json(http.MethodGet, "/documents/"+saved.Id, "user-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRescanOfMissingDocumentFailsImmediately(t *testing.T) {
	a := newTestAPI(t, extractiontest.MockCredentials{})
	scanId := a.createScan("user-1")

	rec := a.json(http.MethodPost, "/scans/"+scanId+"/rescan", "user-1", api.DocumentRequest{DocumentId: "no-such-doc"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	var res api.ErrorResponse
	decode(t, rec, &res)
	assert.Equal(t, "DOCUMENT_NOT_FOUND", res.Code)
	assert.Equal(t, string(appErrors.KindNotFound), res.Kind)
	assert.False(t, res.Retry)

	var scan api.ScanResponse
	decode(t, a.json(http.MethodGet, "/scans/"+scanId, "user-1", nil), &scan)
	assert.Equal(t, "idle", scan.State)
	assert.Zero(t, a.provider.Calls.Load())
}

func TestUploadWithoutCredentialIsUnavailable(t *testing.T) {
	a := newTestAPI(t, extractiontest.MockCredentials{Missing: "GEMINI_API_KEY"})
	scanId := a.createScan("user-1")

	rec := a.upload(scanId, "user-1", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var res api.ErrorResponse
	decode(t, rec, &res)
	assert.Contains(t, res.Message, "GEMINI_API_KEY")

	rec = a.json(http.MethodGet, "/config/extraction", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cfg api.ExtractionConfigResponse
	decode(t, rec, &cfg)
	assert.False(t, cfg.Configured)
	assert.Equal(t, "mock", cfg.Provider)
}

func TestRequestValidation(t *testing.T) {
	a := newTestAPI(t, extractiontest.MockCredentials{})
	scanId := a.createScan("user-1")

	tests := []struct {
		name     string
		rec      func() *httptest.ResponseRecorder
		wantCode int
		wantErr  string
	}{
		{
			name: "Upload_Without_Files",
			rec: func() *httptest.ResponseRecorder {
				return a.request(http.MethodPost, "/scans/"+scanId+"/upload", "user-1", nil, "")
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "BAD_UPLOAD",
		},
		{
			name: "Commit_Without_Scan",
			rec: func() *httptest.ResponseRecorder {
				return a.json(http.MethodPost, "/scans/"+scanId+"/commit", "user-1", nil)
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "NOTHING_TO_COMMIT",
		},
		{
			name: "Edit_Without_Fields",
			rec: func() *httptest.ResponseRecorder {
				return a.json(http.MethodPut, "/scans/"+scanId+"/fields", "user-1", api.EditFieldsRequest{})
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "NO_FIELDS",
		},
		{
			name: "Open_Without_Id",
			rec: func() *httptest.ResponseRecorder {
				return a.json(http.MethodPost, "/scans/"+scanId+"/open", "user-1", api.DocumentRequest{})
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "NO_DOCUMENT_ID",
		},
		{
			name:     "Unknown_Scan",
			rec:      func() *httptest.ResponseRecorder { return a.json(http.MethodGet, "/scans/nope", "user-1", nil) },
			wantCode: http.StatusNotFound,
			wantErr:  "SCAN_NOT_FOUND",
		},
		{
			name: "Malformed_Body",
			rec: func() *httptest.ResponseRecorder {
				return a.request(http.MethodPost, "/scans/"+scanId+"/rescan", "user-1", bytes.NewBufferString("{"), "application/json")
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "BAD_REQUEST_BODY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.rec()
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			var res api.ErrorResponse
			decode(t, rec, &res)
			assert.Equal(t, tt.wantErr, res.Code)
		})
	}
}

func TestSecondUploadWhileScanningConflicts(t *testing.T) {
	a := newTestAPI(t, extractiontest.MockCredentials{})
	release := make(chan struct{})
	a.provider.OnExtract = func(ctx context.Context, files []commonModels.UploadedFile, opts extraction.Options) (extraction.RawExtraction, error) {
		<-release
		return extraction.RawExtraction{DocumentType: "KTP", Content: map[string]any{"nik": "1"}}, nil
	}
	scanId := a.createScan("user-1")

	require.Equal(t, http.StatusAccepted, a.upload(scanId, "user-1", "").Code)
	rec := a.upload(scanId, "user-1", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	var res api.ErrorResponse
	decode(t, rec, &res)
	assert.Equal(t, "SCAN_IN_PROGRESS", res.Code)
	assert.True(t, res.Retry)

	rec = a.json(http.MethodPost, "/scans/"+scanId+"/discard", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	close(release)

	var scan api.ScanResponse
	decode(t, rec, &scan)
	assert.Equal(t, "idle", scan.State)
}

func TestUnauthorizedRequestIsRejected(t *testing.T) {
	a := newTestAPI(t, extractiontest.MockCredentials{})
	req := httptest.NewRequest(http.MethodPost, "/scans", nil)
	req.RemoteAddr = "192.0.2.10:1234"
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var res api.ErrorResponse
	decode(t, rec, &res)
	assert.Equal(t, "UNAUTHORIZED", res.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{appErrors.Validation("X", "x"), http.StatusBadRequest},
		{appErrors.Configuration("X", "x"), http.StatusServiceUnavailable},
		{appErrors.Upstream("X", "x", nil), http.StatusBadGateway},
		{appErrors.NotFound("X", "x"), http.StatusNotFound},
		{appErrors.Persistence("X", "x", nil), http.StatusInternalServerError},
		{appErrors.Busy("X", "x"), http.StatusConflict},
		{fmt.Errorf("wrapped: %w", appErrors.Busy("X", "x")), http.StatusConflict},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, handlers.StatusFor(tt.err), tt.err.Error())
	}
}
