// Package gateway is the single place where scan results become stored
// documents. It owns the unsaved retention policy, keeps document binaries and
// history in step with the records, and reports every storage failure as a
// persistence error.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/internal/content"
	"github.com/akolanti/DocScanAPI/internal/domain/appErrors"
	"github.com/akolanti/DocScanAPI/internal/domain/commonModels"
	"github.com/akolanti/DocScanAPI/internal/domain/documentModel"
	"github.com/akolanti/DocScanAPI/internal/extraction/localText"
	"github.com/akolanti/DocScanAPI/internal/metrics"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	AttemptUpload = "upload"
	AttemptRescan = "rescan"
	AttemptCommit = "commit"
)

// InUseChecker reports whether a scan context is scanning, reviewing or
// committing a document.
type InUseChecker interface {
	InUse(documentId string) bool
}

type Gateway struct {
	documents documentModel.DocumentStore
	history   documentModel.HistoryStore
	files     documentModel.FileStore
	retention int
	now       func() time.Time
	logger    *logger_i.Logger

	mu    sync.RWMutex
	inUse InUseChecker
}

type Config struct {
	Documents documentModel.DocumentStore
	History   documentModel.HistoryStore
	Files     documentModel.FileStore
	// Retention is the number of unsaved documents kept per user.
	Retention int
	Clock     func() time.Time
}

func New(cfg Config) *Gateway {
	g := &Gateway{
		documents: cfg.Documents,
		history:   cfg.History,
		files:     cfg.Files,
		retention: cfg.Retention,
		now:       cfg.Clock,
		logger:    logger_i.NewLogger("DocumentGateway"),
	}
	if g.retention <= 0 {
		g.retention = config.UnsavedRetentionLimit
	}
	if g.now == nil {
		g.now = func() time.Time { return time.Now().UTC() }
	}
	return g
}

// KeepInUse makes retention skip documents that c reports as in use. They are
// evicted by a later create once released.
func (g *Gateway) KeepInUse(c InUseChecker) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inUse = c
}

func (g *Gateway) isInUse(documentId string) bool {
	g.mu.RLock()
	c := g.inUse
	g.mu.RUnlock()
	return c != nil && c.InUse(documentId)
}

// Upsert describes a successful extraction to persist. A non-empty ExistingId
// updates that record in place; otherwise a new unsaved record is created from
// Files.
type Upsert struct {
	UserId     string
	Result     documentModel.ExtractionResult
	Content    map[string]any
	FileName   string
	ExistingId string
	Files      []commonModels.UploadedFile
}

func (g *Gateway) CreateOrUpdate(ctx context.Context, req Upsert) (documentModel.Document, error) {
	fields := req.Content
	if fields == nil {
		fields = content.Normalize(req.Result.Content)
	}
	if req.ExistingId != "" {
		return g.update(ctx, req, fields)
	}
	return g.create(ctx, req, fields)
}

func (g *Gateway) update(ctx context.Context, req Upsert, fields map[string]any) (documentModel.Document, error) {
	log := g.logger.WithContext(ctx).With("document Id", req.ExistingId)

	doc, err := g.Get(ctx, req.ExistingId)
	if err != nil {
		return doc, err
	}
	now := g.now()
	if !now.After(doc.ScannedAt) {
		now = doc.ScannedAt.Add(time.Microsecond)
	}

	doc.Content = fields
	if req.FileName != "" {
		doc.FileName = req.FileName
	}
	if req.Result.DocumentType != "" {
		doc.DocumentType = req.Result.DocumentType
	}
	doc.ConfidenceScore = req.Result.ConfidenceScore
	doc.ProcessingTime = req.Result.ProcessingTime
	doc.Status = documentModel.StatusCompleted
	doc.ScannedAt = now
	doc.UpdatedAt = now

	if err := g.documents.SaveDocument(ctx, doc); err != nil {
		return documentModel.Document{}, appErrors.Persistence("DOCUMENT_WRITE_FAILED", "could not store the rescanned document", err)
	}
	log.Info("Document updated from rescan")
	g.appendHistory(ctx, doc.Id, AttemptRescan, documentModel.StatusCompleted, doc, "")
	return doc, nil
}

func (g *Gateway) create(ctx context.Context, req Upsert, fields map[string]any) (documentModel.Document, error) {
	if len(req.Files) == 0 {
		return documentModel.Document{}, appErrors.Validation("NO_FILES", "a new document needs its uploaded files")
	}
	id := uuid.NewString()
	log := g.logger.WithContext(ctx).With("document Id", id)

	stored, err := g.storeFiles(ctx, req.Files)
	if err != nil {
		return documentModel.Document{}, err
	}

	now := g.now()
	fileName := req.FileName
	if fileName == "" {
		fileName = req.Files[0].Name
	}
	doc := documentModel.Document{
		Id:              id,
		UserId:          userOrDefault(req.UserId),
		FileName:        fileName,
		DocumentType:    req.Result.DocumentType,
		Status:          documentModel.StatusCompleted,
		Content:         fields,
		ConfidenceScore: req.Result.ConfidenceScore,
		ProcessingTime:  req.Result.ProcessingTime,
		FilePath:        stored[0].Key,
		ContentType:     stored[0].ContentType,
		ScannedAt:       now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, f := range stored[1:] {
		doc.AdditionalFiles = append(doc.AdditionalFiles, f.Key)
	}

	if err := g.documents.SaveDocument(ctx, doc); err != nil {
		g.deleteFiles(ctx, doc.FilePaths())
		return documentModel.Document{}, appErrors.Persistence("DOCUMENT_WRITE_FAILED", "could not store the scanned document", err)
	}
	log.Info("Unsaved document created", "files", len(stored))
	g.appendHistory(ctx, doc.Id, AttemptUpload, documentModel.StatusCompleted, doc, "")

	g.enforceRetention(ctx, doc.UserId)
	return doc, nil
}

// storeFiles writes every file concurrently, keeping their order. Nothing is
// left behind when one of them fails.
func (g *Gateway) storeFiles(ctx context.Context, files []commonModels.UploadedFile) ([]documentModel.StoredFile, error) {
	stored := make([]documentModel.StoredFile, len(files))
	group, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		group.Go(func() error {
			s, err := g.files.Save(gctx, f.Name, localText.MimeType(f), bytes.NewReader(f.Data))
			if err != nil {
				return fmt.Errorf("storing %q: %w", f.Name, err)
			}
			stored[i] = s
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		var written []string
		for _, s := range stored {
			if s.Key != "" {
				written = append(written, s.Key)
			}
		}
		g.deleteFiles(ctx, written)
		return nil, appErrors.Persistence("FILE_WRITE_FAILED", "could not store the uploaded files", err)
	}
	return stored, nil
}

// enforceRetention drops the oldest unsaved documents of userId beyond the limit.
// Failures are logged; the triggering create has already succeeded.
func (g *Gateway) enforceRetention(ctx context.Context, userId string) {
	log := g.logger.WithContext(ctx).With("user Id", userId)

	unsaved, err := g.documents.ListUnsaved(ctx, userId, 0)
	if err != nil {
		log.Error("Could not list unsaved documents for retention", "error", err)
		return
	}
	if len(unsaved) <= g.retention {
		return
	}
	sort.SliceStable(unsaved, func(i, j int) bool {
		return unsaved[i].ScannedAt.After(unsaved[j].ScannedAt)
	})

	evicted := 0
	for _, doc := range unsaved[g.retention:] {
		if g.isInUse(doc.Id) {
			log.Debug("Unsaved document in use, eviction postponed", "document Id", doc.Id)
			continue
		}
		if err := g.remove(ctx, doc); err != nil {
			log.Error("Could not evict unsaved document", "document Id", doc.Id, "error", err)
			continue
		}
		evicted++
	}
	metrics.AddUnsavedEvictions(evicted)
	log.Info("Unsaved documents evicted", "count", evicted)
}

// CommitAsSaved writes the reviewed content and the saved flag in one store
// call. Committing an already saved document rewrites the same values.
func (g *Gateway) CommitAsSaved(ctx context.Context, id string, fields map[string]any, fileName string) (documentModel.Document, error) {
	doc, err := g.Get(ctx, id)
	if err != nil {
		return doc, err
	}
	if fields != nil {
		doc.Content = fields
	}
	if strings.TrimSpace(fileName) != "" {
		doc.FileName = strings.TrimSpace(fileName)
	}
	doc.Saved = true
	doc.Status = documentModel.StatusCompleted
	doc.UpdatedAt = g.now()

	if err := g.documents.SaveDocument(ctx, doc); err != nil {
		return documentModel.Document{}, appErrors.Persistence("DOCUMENT_WRITE_FAILED", "could not save the document", err)
	}
	g.logger.WithContext(ctx).Info("Document saved", "document Id", id)
	g.appendHistory(ctx, doc.Id, AttemptCommit, documentModel.StatusCompleted, doc, "")
	return doc, nil
}

// SaveAsNew creates an independent saved document from sourceId, with its own
// copy of the stored files.
func (g *Gateway) SaveAsNew(ctx context.Context, sourceId string, fields map[string]any, fileName string) (documentModel.Document, error) {
	source, err := g.Get(ctx, sourceId)
	if err != nil {
		return source, err
	}

	keys, err := g.copyFiles(ctx, source)
	if err != nil {
		return documentModel.Document{}, err
	}

	now := g.now()
	doc := source
	doc.Id = uuid.NewString()
	doc.Saved = true
	doc.Status = documentModel.StatusCompleted
	doc.FilePath = keys[0]
	doc.AdditionalFiles = keys[1:]
	if len(doc.AdditionalFiles) == 0 {
		doc.AdditionalFiles = nil
	}
	if fields != nil {
		doc.Content = fields
	}
	if strings.TrimSpace(fileName) != "" {
		doc.FileName = strings.TrimSpace(fileName)
	}
	doc.ScannedAt = source.ScannedAt
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if err := g.documents.SaveDocument(ctx, doc); err != nil {
		g.deleteFiles(ctx, keys)
		return documentModel.Document{}, appErrors.Persistence("DOCUMENT_WRITE_FAILED", "could not save the document copy", err)
	}
	g.logger.WithContext(ctx).Info("Document saved as new", "document Id", doc.Id, "source Id", sourceId)
	g.appendHistory(ctx, doc.Id, AttemptCommit, documentModel.StatusCompleted, doc, "copied from "+sourceId)
	return doc, nil
}

func (g *Gateway) copyFiles(ctx context.Context, source documentModel.Document) ([]string, error) {
	paths := source.FilePaths()
	if len(paths) == 0 {
		return nil, appErrors.NotFound("FILE_NOT_FOUND", fmt.Sprintf("document %s has no stored file", source.Id))
	}
	keys := make([]string, len(paths))
	group, gctx := errgroup.WithContext(ctx)
	for i, key := range paths {
		group.Go(func() error {
			r, err := g.files.Open(gctx, key)
			if err != nil {
				return err
			}
			defer r.Close()
			contentType := ""
			if i == 0 {
				contentType = source.ContentType
			}
			s, err := g.files.Save(gctx, key, contentType, r)
			if err != nil {
				return err
			}
			keys[i] = s.Key
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		var written []string
		for _, k := range keys {
			if k != "" {
				written = append(written, k)
			}
		}
		g.deleteFiles(ctx, written)
		if errors.Is(err, documentModel.ErrFileNotFound) {
			return nil, appErrors.NotFound("FILE_NOT_FOUND", fmt.Sprintf("the stored file of document %s is missing", source.Id))
		}
		return nil, appErrors.Persistence("FILE_WRITE_FAILED", "could not copy the stored files", err)
	}
	return keys, nil
}

// MarkFailed records a failed extraction attempt against a stored document.
// The last good content stays in place.
func (g *Gateway) MarkFailed(ctx context.Context, id string, attempt string, cause error) error {
	doc, err := g.Get(ctx, id)
	if err != nil {
		return err
	}
	doc.Status = documentModel.StatusFailed
	doc.UpdatedAt = g.now()
	if err := g.documents.SaveDocument(ctx, doc); err != nil {
		return appErrors.Persistence("DOCUMENT_WRITE_FAILED", "could not record the failed scan", err)
	}
	g.appendHistory(ctx, id, attempt, documentModel.StatusFailed, documentModel.Document{}, appErrors.MessageOf(cause))
	return nil
}

func (g *Gateway) Delete(ctx context.Context, id string) error {
	doc, err := g.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := g.remove(ctx, doc); err != nil {
		return appErrors.Persistence("DOCUMENT_DELETE_FAILED", "could not delete the document", err)
	}
	g.logger.WithContext(ctx).Info("Document deleted", "document Id", id)
	return nil
}

// remove deletes the record first so a file failure never leaves a record
// pointing at nothing.
func (g *Gateway) remove(ctx context.Context, doc documentModel.Document) error {
	if err := g.documents.DeleteDocument(ctx, doc); err != nil {
		return err
	}
	g.deleteFiles(ctx, doc.FilePaths())
	if g.history != nil {
		if err := g.history.Delete(ctx, doc.Id); err != nil {
			g.logger.WithContext(ctx).Warn("Could not delete history", "document Id", doc.Id, "error", err)
		}
	}
	return nil
}

func (g *Gateway) deleteFiles(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := g.files.Delete(ctx, key); err != nil {
			g.logger.WithContext(ctx).Warn("Could not delete stored file", "key", key, "error", err)
		}
	}
}

func (g *Gateway) Get(ctx context.Context, id string) (documentModel.Document, error) {
	if strings.TrimSpace(id) == "" {
		return documentModel.Document{}, appErrors.Validation("NO_DOCUMENT_ID", "a document id is required")
	}
	doc, found, err := g.documents.GetDocument(ctx, id)
	if err != nil {
		return documentModel.Document{}, appErrors.Persistence("DOCUMENT_READ_FAILED", "could not read the document", err)
	}
	if !found {
		return documentModel.Document{}, appErrors.NotFound("DOCUMENT_NOT_FOUND", fmt.Sprintf("document %s does not exist", id))
	}
	if doc.Content == nil {
		doc.Content = map[string]any{}
	}
	return doc, nil
}

// ListRecentUnsaved returns the newest unsaved documents of userId. A limit of
// zero or less uses the retention limit.
func (g *Gateway) ListRecentUnsaved(ctx context.Context, userId string, limit int) ([]documentModel.Document, error) {
	if limit <= 0 || limit > g.retention {
		limit = g.retention
	}
	docs, err := g.documents.ListUnsaved(ctx, userOrDefault(userId), limit)
	if err != nil {
		return nil, appErrors.Persistence("DOCUMENT_READ_FAILED", "could not list recent scans", err)
	}
	return docs, nil
}

func (g *Gateway) ListSaved(ctx context.Context, userId string, filter documentModel.SavedFilter, page documentModel.Page) (documentModel.PagedDocuments, error) {
	docs, err := g.documents.ListSaved(ctx, userOrDefault(userId))
	if err != nil {
		return documentModel.PagedDocuments{}, appErrors.Persistence("DOCUMENT_READ_FAILED", "could not list saved documents", err)
	}

	matched := docs[:0]
	for _, d := range docs {
		if matches(d, filter) {
			matched = append(matched, d)
		}
	}

	page = normalizePage(page)
	result := documentModel.PagedDocuments{Total: len(matched), Page: page.Number, PageSize: page.Size, Documents: []documentModel.Document{}}
	start := page.Offset()
	if start >= len(matched) {
		return result, nil
	}
	end := min(start+page.Size, len(matched))
	result.Documents = matched[start:end]
	return result, nil
}

// AllSaved returns every saved document matching filter, for export.
func (g *Gateway) AllSaved(ctx context.Context, userId string, filter documentModel.SavedFilter) ([]documentModel.Document, error) {
	docs, err := g.documents.ListSaved(ctx, userOrDefault(userId))
	if err != nil {
		return nil, appErrors.Persistence("DOCUMENT_READ_FAILED", "could not list saved documents", err)
	}
	matched := docs[:0]
	for _, d := range docs {
		if matches(d, filter) {
			matched = append(matched, d)
		}
	}
	return matched, nil
}

func normalizePage(p documentModel.Page) documentModel.Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = config.DefaultPageSize
	}
	if p.Size > config.MaxPageSize {
		p.Size = config.MaxPageSize
	}
	return p
}

func matches(d documentModel.Document, f documentModel.SavedFilter) bool {
	if f.DocumentType != "" && !strings.EqualFold(f.DocumentType, d.DocumentType) {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(d.FileName), q) || strings.Contains(strings.ToLower(d.DocumentType), q) {
		return true
	}
	for _, row := range content.FieldRows(d.Content) {
		if strings.Contains(strings.ToLower(fmt.Sprint(row.Value)), q) {
			return true
		}
	}
	return false
}

// OpenFile returns the primary stored binary of a document. The caller closes it.
func (g *Gateway) OpenFile(ctx context.Context, id string) (io.ReadCloser, documentModel.Document, error) {
	doc, err := g.Get(ctx, id)
	if err != nil {
		return nil, doc, err
	}
	if doc.FilePath == "" {
		return nil, doc, appErrors.NotFound("FILE_NOT_FOUND", fmt.Sprintf("document %s has no stored file", id))
	}
	r, err := g.files.Open(ctx, doc.FilePath)
	if errors.Is(err, documentModel.ErrFileNotFound) {
		return nil, doc, appErrors.NotFound("FILE_NOT_FOUND", fmt.Sprintf("the stored file of document %s is missing", id))
	}
	if err != nil {
		return nil, doc, appErrors.Persistence("FILE_READ_FAILED", "could not read the stored file", err)
	}
	return r, doc, nil
}

func (g *Gateway) History(ctx context.Context, id string) ([]documentModel.HistoryEntry, error) {
	if _, err := g.Get(ctx, id); err != nil {
		return nil, err
	}
	if g.history == nil {
		return []documentModel.HistoryEntry{}, nil
	}
	entries, err := g.history.List(ctx, id)
	if err != nil {
		return nil, appErrors.Persistence("HISTORY_READ_FAILED", "could not read the scan history", err)
	}
	return entries, nil
}

func (g *Gateway) appendHistory(ctx context.Context, id string, attempt string, outcome documentModel.Status, doc documentModel.Document, message string) {
	if g.history == nil {
		return
	}
	entry := documentModel.HistoryEntry{
		Kind:            attempt,
		Outcome:         outcome,
		DocumentType:    doc.DocumentType,
		ConfidenceScore: doc.ConfidenceScore,
		Message:         message,
		At:              g.now(),
	}
	if err := g.history.Append(ctx, id, entry); err != nil {
		g.logger.WithContext(ctx).Warn("Could not append history", "document Id", id, "error", err)
	}
}

func userOrDefault(userId string) string {
	if strings.TrimSpace(userId) == "" {
		return config.DefaultUserId
	}
	return userId
}
