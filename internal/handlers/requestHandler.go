package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/akolanti/DocScanAPI/internal/adapter"
	"github.com/akolanti/DocScanAPI/internal/adapter/utils"
	"github.com/akolanti/DocScanAPI/internal/api"
	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/internal/domain/appErrors"
	"github.com/akolanti/DocScanAPI/internal/domain/commonModels"
	"github.com/akolanti/DocScanAPI/internal/orchestrator"
)

func (h *Handler) scan(w http.ResponseWriter, r *http.Request) (*orchestrator.Orchestrator, bool) {
	if !validateContext(r.Context()) {
		return nil, false
	}
	o, err := h.scans.Get(utils.GetChiURLParam(r, "scanId"), userFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return o, true
}

// CreateScanHandler godoc
// @Summary      Open a scan context
// @Description  Creates an idle scan context for the caller. Every upload, rescan, edit and commit happens inside one.
// @Tags         Scans
// @Produce      json
// @Success      201  {object}  api.CreateScanResponse
// @Failure      409  {object}  api.ErrorResponse  "Too many open scans"
// @Router       /scans [post]
func (h *Handler) CreateScanHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	o, err := h.scans.Create(userFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusCreated, adapter.ToCreateScanResponse(o.ScanId()))
}

// GetScanHandler godoc
// @Summary      Get scan state
// @Description  Returns the session state, the four progress steps, the review buffer and the last error of a scan.
// @Tags         Scans
// @Produce      json
// @Param        scanId  path      string  true  "Scan ID"
// @Success      200     {object}  api.ScanResponse
// @Failure      404     {object}  api.ErrorResponse
// @Router       /scans/{scanId} [get]
func (h *Handler) GetScanHandler(w http.ResponseWriter, r *http.Request) {
	o, ok := h.scan(w, r)
	if !ok {
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToScanResponse(o.Snapshot()))
}

// UploadScanHandler godoc
// @Summary      Scan uploaded files
// @Description  Validates the files, starts the scan and queues the extraction call.
// @Tags         Scans
// @Accept       multipart/form-data
// @Produce      json
// @Param        scanId         path      string  true   "Scan ID"
// @Param        files          formData  file    true   "One or more images or PDFs of the same document"
// @Param        document_type  formData  string  false  "Document type hint, auto when empty"
// @Param        file_name      formData  string  false  "Display name, defaults to the first file name"
// @Success      202  {object}  api.InitJobResponse
// @Failure      400  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse  "A scan or commit is already running"
// @Failure      503  {object}  api.ErrorResponse  "Extraction is not configured"
// @Router       /scans/{scanId}/upload [post]
func (h *Handler) UploadScanHandler(w http.ResponseWriter, r *http.Request) {
	o, ok := h.scan(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize)
	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		writeJsonResponse(w, http.StatusBadRequest, adapter.BadRequest("BAD_UPLOAD", "File too large or bad request"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	files, err := readUploads(headers)
	if err != nil {
		writeError(w, r, err)
		return
	}

	req, err := o.BeginUploadScan(r.Context(), files, orchestrator.UploadOptions{
		FileName:     r.FormValue("file_name"),
		DocumentType: r.FormValue("document_type"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.queue(w, r, o, req)
}

func readUploads(headers []*multipart.FileHeader) ([]commonModels.UploadedFile, error) {
	if len(headers) > config.MaxUploadFiles {
		return nil, appErrors.Validation("TOO_MANY_FILES", fmt.Sprintf("at most %d files can be scanned together", config.MaxUploadFiles))
	}
	files := make([]commonModels.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readUpload(fh)
		if err != nil {
			return nil, appErrors.Validation("UNREADABLE_FILE", fmt.Sprintf("could not read %s", fh.Filename))
		}
		files = append(files, commonModels.UploadedFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// RescanHandler godoc
// @Summary      Rescan a stored document
// @Description  Runs extraction again on the stored files of a document and updates it in place. A missing document fails at once.
// @Tags         Scans
// @Accept       json
// @Produce      json
// @Param        scanId   path      string               true  "Scan ID"
// @Param        request  body      api.DocumentRequest  true  "Document to rescan"
// @Success      202      {object}  api.InitJobResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /scans/{scanId}/rescan [post]
func (h *Handler) RescanHandler(w http.ResponseWriter, r *http.Request) {
	o, ok := h.scan(w, r)
	if !ok {
		return
	}
	var body api.DocumentRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	req, err := o.BeginRescan(r.Context(), body.DocumentId)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.queue(w, r, o, req)
}

// OpenDocumentHandler godoc
// @Summary      Open a stored document for review
// @Description  Loads a document into the review buffer without calling the extraction service.
// @Tags         Scans
// @Accept       json
// @Produce      json
// @Param        scanId   path      string               true  "Scan ID"
// @Param        request  body      api.DocumentRequest  true  "Document to open"
// @Success      200      {object}  api.ScanResponse
// @Failure      404      {object}  api.ErrorResponse
// @Router       /scans/{scanId}/open [post]
func (h *Handler) OpenDocumentHandler(w http.ResponseWriter, r *http.Request) {
	o, ok := h.scan(w, r)
	if !ok {
		return
	}
	var body api.DocumentRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.DocumentId == "" {
		writeError(w, r, appErrors.Validation("NO_DOCUMENT_ID", "a document id is required"))
		return
	}
	if err := o.OpenDocument(r.Context(), body.DocumentId); err != nil {
		writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToScanResponse(o.Snapshot()))
}

// EditFieldsHandler godoc
// @Summary      Edit reviewed fields
// @Description  Sets one or more fields of the review buffer. Dotted keys address nested fields. Nothing is persisted until commit.
// @Tags         Scans
// @Accept       json
// @Produce      json
// @Param        scanId   path      string                 true  "Scan ID"
// @Param        request  body      api.EditFieldsRequest  true  "Field values by key"
// @Success      200      {object}  api.ScanResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /scans/{scanId}/fields [put]
func (h *Handler) EditFieldsHandler(w http.ResponseWriter, r *http.Request) {
	o, ok := h.scan(w, r)
	if !ok {
		return
	}
	var body api.EditFieldsRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if len(body.Fields) == 0 {
		writeError(w, r, appErrors.Validation("NO_FIELDS", "at least one field is required"))
		return
	}
	keys := make([]string, 0, len(body.Fields))
	for k := range body.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := o.EditField(k, body.Fields[k]); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToScanResponse(o.Snapshot()))
}

// CommitHandler godoc
// @Summary      Save the reviewed document
// @Description  Persists the review buffer as a saved document, in place or as a new copy. On failure the buffer is kept for a retry.
// @Tags         Scans
// @Accept       json
// @Produce      json
// @Param        scanId   path      string             true   "Scan ID"
// @Param        request  body      api.CommitRequest  false  "Optional file name and save-as-new flag"
// @Success      200      {object}  api.DocumentResponse
// @Failure      400      {object}  api.ErrorResponse  "Nothing to commit"
// @Failure      409      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /scans/{scanId}/commit [post]
func (h *Handler) CommitHandler(w http.ResponseWriter, r *http.Request) {
	o, ok := h.scan(w, r)
	if !ok {
		return
	}
	var body api.CommitRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := o.Commit(r.Context(), orchestrator.CommitOptions{FileName: body.FileName, SaveAsNew: body.SaveAsNew})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentResponse(doc))
}

// DiscardHandler godoc
// @Summary      Discard the current scan
// @Description  Resets the scan context at once. A result still on its way is dropped.
// @Tags         Scans
// @Produce      json
// @Param        scanId  path      string  true  "Scan ID"
// @Success      200     {object}  api.ScanResponse
// @Failure      404     {object}  api.ErrorResponse
// @Router       /scans/{scanId}/discard [post]
func (h *Handler) DiscardHandler(w http.ResponseWriter, r *http.Request) {
	o, ok := h.scan(w, r)
	if !ok {
		return
	}
	o.Discard()
	writeJsonResponse(w, http.StatusOK, adapter.ToScanResponse(o.Snapshot()))
}

// DeleteScanHandler godoc
// @Summary      Close a scan context
// @Tags         Scans
// @Param        scanId  path  string  true  "Scan ID"
// @Success      204
// @Failure      404  {object}  api.ErrorResponse
// @Router       /scans/{scanId} [delete]
func (h *Handler) DeleteScanHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	err := h.scans.Remove(utils.GetChiURLParam(r, "scanId"), userFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
