package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/akolanti/DocScanAPI/internal/adapter"
	"github.com/akolanti/DocScanAPI/internal/adapter/utils"
	"github.com/akolanti/DocScanAPI/internal/api"
	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/internal/domain/appErrors"
	"github.com/akolanti/DocScanAPI/internal/domain/documentModel"
	"github.com/akolanti/DocScanAPI/internal/export"
)

// ownedDocument hides documents of other users behind a not found error.
func (h *Handler) ownedDocument(ctx context.Context, id string) (documentModel.Document, error) {
	doc, err := h.documents.Get(ctx, id)
	if err != nil {
		return doc, err
	}
	if doc.UserId != userFrom(ctx) {
		return documentModel.Document{}, appErrors.NotFound("DOCUMENT_NOT_FOUND", fmt.Sprintf("document %s does not exist", id))
	}
	return doc, nil
}

func savedFilter(r *http.Request) documentModel.SavedFilter {
	q := r.URL.Query()
	return documentModel.SavedFilter{DocumentType: q.Get("type"), Query: q.Get("q")}
}

// ListRecentHandler godoc
// @Summary      List recent unsaved scans
// @Description  Newest first. Only the most recent unsaved scans are kept.
// @Tags         Documents
// @Produce      json
// @Param        limit  query     int  false  "At most this many"
// @Success      200    {object}  api.DocumentListResponse
// @Router       /documents/recent [get]
func (h *Handler) ListRecentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	docs, err := h.documents.ListRecentUnsaved(r.Context(), userFrom(r.Context()), utils.QueryInt(r, "limit", 0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentList(docs))
}

// ListSavedHandler godoc
// @Summary      List saved documents
// @Description  Filters by document type and a free-text query over file name, type and field values.
// @Tags         Documents
// @Produce      json
// @Param        type       query     string  false  "Document type, case-insensitive"
// @Param        q          query     string  false  "Free-text query"
// @Param        page       query     int     false  "Page number, from 1"
// @Param        page_size  query     int     false  "Page size"
// @Success      200        {object}  api.DocumentListResponse
// @Router       /documents [get]
func (h *Handler) ListSavedHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	page := documentModel.Page{
		Number: utils.QueryInt(r, "page", 1),
		Size:   utils.QueryInt(r, "page_size", config.DefaultPageSize),
	}
	result, err := h.documents.ListSaved(r.Context(), userFrom(r.Context()), savedFilter(r), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToPagedDocumentList(result))
}

// ExportHandler godoc
// @Summary      Export saved documents
// @Description  One spreadsheet row per saved document, one column per field.
// @Tags         Documents
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        type  query  string  false  "Document type"
// @Param        q     query  string  false  "Free-text query"
// @Success      200
// @Failure      500   {object}  api.ErrorResponse
// @Router       /documents/export [get]
func (h *Handler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	docs, err := h.documents.AllSaved(r.Context(), userFrom(r.Context()), savedFilter(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := export.SavedDocuments(r.Context(), docs)
	if err != nil {
		writeError(w, r, appErrors.Persistence("EXPORT_FAILED", "could not build the export", err))
		return
	}
	name := fmt.Sprintf("documents-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logRH.WithContext(r.Context()).Warn("Export download interrupted", "error", err)
	}
}

// GetDocumentHandler godoc
// @Summary      Get a document
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DocumentResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /documents/{id} [get]
func (h *Handler) GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	doc, err := h.ownedDocument(r.Context(), utils.GetChiURLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentResponse(doc))
}

// GetDocumentFileHandler godoc
// @Summary      Download the stored file
// @Description  Streams the primary binary the document was scanned from.
// @Tags         Documents
// @Produce      octet-stream
// @Param        id   path  string  true  "Document ID"
// @Success      200
// @Failure      404  {object}  api.ErrorResponse
// @Router       /documents/{id}/file [get]
func (h *Handler) GetDocumentFileHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	if _, err := h.ownedDocument(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	reader, doc, err := h.documents.OpenFile(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer reader.Close()

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", doc.FileName))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		logRH.WithContext(r.Context()).Warn("File download interrupted", "document Id", id, "error", err)
	}
}

// GetHistoryHandler godoc
// @Summary      Extraction attempts of a document
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.HistoryResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /documents/{id}/history [get]
func (h *Handler) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	if _, err := h.ownedDocument(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := h.documents.History(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToHistoryResponse(id, entries))
}

// DeleteDocumentHandler godoc
// @Summary      Delete a document
// @Description  Removes the record, its stored files and its history. A document being scanned or saved is left alone.
// @Tags         Documents
// @Param        id   path  string  true  "Document ID"
// @Success      204
// @Failure      404  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Router       /documents/{id} [delete]
func (h *Handler) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	if _, err := h.ownedDocument(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	if _, held := h.scans.HolderOf(id); held {
		writeError(w, r, appErrors.Busy("DOCUMENT_IN_USE", "this document is being scanned or saved"))
		return
	}
	if err := h.documents.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExtractionConfigHandler godoc
// @Summary      Extraction configuration status
// @Description  Tells a client whether scans can run before it uploads anything.
// @Tags         Config
// @Produce      json
// @Success      200  {object}  api.ExtractionConfigResponse
// @Router       /config/extraction [get]
func (h *Handler) ExtractionConfigHandler(w http.ResponseWriter, r *http.Request) {
	res := api.ExtractionConfigResponse{Provider: h.provider, Configured: true}
	if name := h.extraction.ProviderName(); name != "" {
		res.Provider = name
	}
	if err := h.extraction.CheckConfigured(); err != nil {
		res.Configured = false
		res.Message = appErrors.MessageOf(err)
	}
	writeJsonResponse(w, http.StatusOK, res)
}
