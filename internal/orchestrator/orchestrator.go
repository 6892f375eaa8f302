// Package orchestrator drives one scan context from trigger to a committed or
// discarded document. It is the only holder of a live session together with its
// review buffer.
//
// Overlapping work in one context is rejected: a start or commit while another
// call is in flight returns a busy error. Discard always succeeds; a result
// that arrives for a run that was discarded is dropped with ErrStaleResult.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/DocScanAPI/internal/content"
	"github.com/akolanti/DocScanAPI/internal/domain/appErrors"
	"github.com/akolanti/DocScanAPI/internal/domain/commonModels"
	"github.com/akolanti/DocScanAPI/internal/domain/documentModel"
	"github.com/akolanti/DocScanAPI/internal/domain/jobModel"
	"github.com/akolanti/DocScanAPI/internal/extraction"
	"github.com/akolanti/DocScanAPI/internal/gateway"
	"github.com/akolanti/DocScanAPI/internal/metrics"
	"github.com/akolanti/DocScanAPI/internal/review"
	"github.com/akolanti/DocScanAPI/internal/session"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
)

// Extractor is the part of extraction.Client the orchestrator uses.
type Extractor interface {
	CheckConfigured() error
	Submit(ctx context.Context, files []commonModels.UploadedFile, opts extraction.Options) (documentModel.ExtractionResult, error)
	Rescan(ctx context.Context, documentId string) (documentModel.ExtractionResult, error)
}

// Persister is the part of gateway.Gateway the orchestrator uses.
type Persister interface {
	Get(ctx context.Context, id string) (documentModel.Document, error)
	CreateOrUpdate(ctx context.Context, req gateway.Upsert) (documentModel.Document, error)
	CommitAsSaved(ctx context.Context, id string, fields map[string]any, fileName string) (documentModel.Document, error)
	SaveAsNew(ctx context.Context, sourceId string, fields map[string]any, fileName string) (documentModel.Document, error)
	MarkFailed(ctx context.Context, id string, attempt string, cause error) error
}

type UploadOptions struct {
	FileName     string
	DocumentType string
}

type CommitOptions struct {
	// FileName overrides the stored name when not blank.
	FileName  string
	SaveAsNew bool
}

type Orchestrator struct {
	mu sync.Mutex

	scanId    string
	userId    string
	session   *session.Session
	buffer    *review.Buffer
	extractor Extractor
	persister Persister
	claims    *claimSet

	documentId    string
	fileName      string
	committing    bool
	lastCommitted *documentModel.Document
	lastUsed      time.Time
	now           func() time.Time

	logger *logger_i.Logger
}

type Config struct {
	ScanId    string
	UserId    string
	Extractor Extractor
	Persister Persister
	Clock     func() time.Time
	claims    *claimSet
}

func New(cfg Config) *Orchestrator {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	claims := cfg.claims
	if claims == nil {
		claims = newClaimSet()
	}
	return &Orchestrator{
		scanId:    cfg.ScanId,
		userId:    cfg.UserId,
		session:   session.New(),
		buffer:    review.NewBuffer(),
		extractor: cfg.Extractor,
		persister: cfg.Persister,
		claims:    claims,
		now:       now,
		lastUsed:  now(),
		logger:    logger_i.NewLogger("Orchestrator").With("scan Id", cfg.ScanId),
	}
}

func (o *Orchestrator) ScanId() string {
	return o.scanId
}

func (o *Orchestrator) UserId() string {
	return o.userId
}

// busy must be called with o.mu held.
func (o *Orchestrator) busy() error {
	if o.session.InFlight() {
		return appErrors.Busy("SCAN_IN_PROGRESS", "a scan is already running; wait for it to finish or discard it")
	}
	if o.committing {
		return appErrors.Busy("COMMIT_IN_PROGRESS", "the document is being saved")
	}
	return nil
}

func (o *Orchestrator) touch() {
	o.lastUsed = o.now()
}

// BeginUploadScan validates the upload and starts a run. Nothing changes when it
// fails.
func (o *Orchestrator) BeginUploadScan(ctx context.Context, files []commonModels.UploadedFile, opts UploadOptions) (jobModel.ScanRequest, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.touch()

	if err := o.busy(); err != nil {
		return jobModel.ScanRequest{}, err
	}
	if err := extraction.ValidateFiles(files); err != nil {
		return jobModel.ScanRequest{}, err
	}
	if err := o.extractor.CheckConfigured(); err != nil {
		return jobModel.ScanRequest{}, err
	}

	gen, err := o.session.Start(session.KindUpload)
	if err != nil {
		return jobModel.ScanRequest{}, appErrors.Busy("SCAN_IN_PROGRESS", err.Error())
	}
	o.buffer.Clear()
	o.documentId = ""
	o.fileName = strings.TrimSpace(opts.FileName)
	o.lastCommitted = nil

	o.logger.WithContext(ctx).Info("Upload scan started", "files", len(files), "generation", gen)
	return jobModel.ScanRequest{
		ScanId:       o.scanId,
		Generation:   gen,
		JobType:      jobModel.JobTypeUpload,
		UserId:       o.userId,
		FileName:     o.fileName,
		DocumentType: opts.DocumentType,
		Files:        files,
	}, nil
}

// BeginRescan starts a run against a stored document. A missing document fails
// with a not found error before any session exists.
func (o *Orchestrator) BeginRescan(ctx context.Context, documentId string) (jobModel.ScanRequest, error) {
	documentId = strings.TrimSpace(documentId)
	if documentId == "" {
		return jobModel.ScanRequest{}, appErrors.Validation("NO_DOCUMENT_ID", "a document id is required")
	}

	o.mu.Lock()
	o.touch()
	err := o.busy()
	o.mu.Unlock()
	if err != nil {
		return jobModel.ScanRequest{}, err
	}

	doc, err := o.persister.Get(ctx, documentId)
	if err != nil {
		return jobModel.ScanRequest{}, err
	}
	if doc.UserId != "" && doc.UserId != o.userId {
		return jobModel.ScanRequest{}, appErrors.NotFound("DOCUMENT_NOT_FOUND", fmt.Sprintf("document %s does not exist", documentId))
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.busy(); err != nil {
		return jobModel.ScanRequest{}, err
	}
	if err := o.extractor.CheckConfigured(); err != nil {
		return jobModel.ScanRequest{}, err
	}
	// Start bumps the generation by one
	if !o.claims.claim(documentId, o.scanId, o.session.Generation()+1) {
		return jobModel.ScanRequest{}, appErrors.Busy("DOCUMENT_IN_USE", "this document is being scanned or saved elsewhere")
	}

	gen, err := o.session.Start(session.KindRescan)
	if err != nil {
		o.claims.release(documentId, o.scanId, o.session.Generation()+1)
		return jobModel.ScanRequest{}, appErrors.Busy("SCAN_IN_PROGRESS", err.Error())
	}
	o.buffer.Clear()
	o.documentId = documentId
	o.fileName = doc.FileName
	o.lastCommitted = nil

	o.logger.WithContext(ctx).Info("Rescan started", "document Id", documentId, "generation", gen)
	return jobModel.ScanRequest{
		ScanId:     o.scanId,
		Generation: gen,
		JobType:    jobModel.JobTypeRescan,
		UserId:     o.userId,
		DocumentId: documentId,
		FileName:   doc.FileName,
	}, nil
}

// Execute performs the extraction call of req and applies its result if the run
// is still current. The network calls happen outside the lock.
func (o *Orchestrator) Execute(ctx context.Context, req jobModel.ScanRequest) error {
	log := o.logger.WithContext(ctx).With("generation", req.Generation, "job type", req.JobType)
	if req.JobType == jobModel.JobTypeRescan {
		defer o.claims.release(req.DocumentId, o.scanId, req.Generation)
	}

	var (
		result documentModel.ExtractionResult
		err    error
	)
	switch req.JobType {
	case jobModel.JobTypeRescan:
		result, err = o.extractor.Rescan(ctx, req.DocumentId)
	default:
		result, err = o.extractor.Submit(ctx, req.Files, extraction.Options{DocumentType: req.DocumentType})
	}
	kind := strings.ToLower(string(req.JobType))

	if err != nil {
		if o.failIfCurrent(req.Generation, err) {
			log.Info("Dropped failure of a discarded run", "error", err)
			return appErrors.ErrStaleResult
		}
		if req.JobType == jobModel.JobTypeRescan && !errors.Is(err, appErrors.ErrNotFound) {
			if markErr := o.persister.MarkFailed(ctx, req.DocumentId, gateway.AttemptRescan, err); markErr != nil {
				log.Warn("Could not record failed rescan", "error", markErr)
			}
		}
		metrics.CaptureScanOutcome(kind, "failed")
		log.Error("Scan failed", "error", err)
		return err
	}

	fields := content.Normalize(result.Content)
	result.Content = fields

	o.mu.Lock()
	if req.Generation != o.session.Generation() {
		o.mu.Unlock()
		log.Info("Dropped result of a discarded run")
		metrics.CaptureScanOutcome(kind, "stale")
		return appErrors.ErrStaleResult
	}
	// the call returned: detection and OCR are done, field extraction is current
	_ = o.session.Advance()
	_ = o.session.Advance()
	o.mu.Unlock()

	doc, err := o.persister.CreateOrUpdate(ctx, gateway.Upsert{
		UserId:     req.UserId,
		Result:     result,
		Content:    fields,
		FileName:   req.FileName,
		ExistingId: req.DocumentId,
		Files:      req.Files,
	})
	if err != nil {
		if o.failIfCurrent(req.Generation, err) {
			return appErrors.ErrStaleResult
		}
		metrics.CaptureScanOutcome(kind, "failed")
		log.Error("Scan result could not be stored", "error", err)
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if req.Generation != o.session.Generation() {
		log.Info("Stored result of a discarded run", "document Id", doc.Id)
		metrics.CaptureScanOutcome(kind, "stale")
		return appErrors.ErrStaleResult
	}
	result.Id = doc.Id
	result.DocumentType = doc.DocumentType
	o.documentId = doc.Id
	o.fileName = doc.FileName
	o.buffer.Seed(fields)
	_ = o.session.Succeed(result)
	o.touch()

	metrics.CaptureScanOutcome(kind, "succeeded")
	log.Info("Scan succeeded", "document Id", doc.Id, "documentType", doc.DocumentType)
	return nil
}

// failIfCurrent fails the session when gen is still its run and reports whether
// the run was stale.
func (o *Orchestrator) failIfCurrent(gen uint64, err error) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.session.Generation() {
		return true
	}
	_ = o.session.Fail(err)
	o.touch()
	return false
}

// Abort fails a started run that never reached a worker.
func (o *Orchestrator) Abort(req jobModel.ScanRequest, err error) {
	if req.JobType == jobModel.JobTypeRescan {
		defer o.claims.release(req.DocumentId, o.scanId, req.Generation)
	}
	if !o.failIfCurrent(req.Generation, err) {
		o.logger.Warn("Scan aborted before execution", "generation", req.Generation, "error", err)
	}
}

func (o *Orchestrator) StartUploadScan(ctx context.Context, files []commonModels.UploadedFile, opts UploadOptions) error {
	req, err := o.BeginUploadScan(ctx, files, opts)
	if err != nil {
		return err
	}
	return o.Execute(ctx, req)
}

func (o *Orchestrator) StartRescan(ctx context.Context, documentId string) error {
	req, err := o.BeginRescan(ctx, documentId)
	if err != nil {
		return err
	}
	return o.Execute(ctx, req)
}

// OpenDocument loads a stored document into the review buffer without
// extraction.
func (o *Orchestrator) OpenDocument(ctx context.Context, documentId string) error {
	o.mu.Lock()
	o.touch()
	err := o.busy()
	gen := o.session.Generation()
	o.mu.Unlock()
	if err != nil {
		return err
	}

	doc, err := o.persister.Get(ctx, documentId)
	if err != nil {
		return err
	}
	if doc.UserId != "" && doc.UserId != o.userId {
		return appErrors.NotFound("DOCUMENT_NOT_FOUND", fmt.Sprintf("document %s does not exist", documentId))
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.busy(); err != nil {
		return err
	}
	if gen != o.session.Generation() {
		return appErrors.Busy("SCAN_CHANGED", "the scan changed while the document was loading; try again")
	}
	o.session.Hydrate(documentModel.ExtractionResult{
		Id:              doc.Id,
		DocumentType:    doc.DocumentType,
		Content:         doc.Content,
		ConfidenceScore: doc.ConfidenceScore,
		ProcessingTime:  doc.ProcessingTime,
	})
	o.buffer.Seed(doc.Content)
	o.documentId = doc.Id
	o.fileName = doc.FileName
	o.lastCommitted = nil
	o.logger.WithContext(ctx).Info("Document opened for editing", "document Id", doc.Id)
	return nil
}

func (o *Orchestrator) EditField(key string, value any) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return appErrors.Validation("EMPTY_FIELD_KEY", "a field name is required")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.touch()
	if err := o.busy(); err != nil {
		return err
	}
	if !o.buffer.Seeded() || o.session.State() != session.Succeeded {
		return appErrors.Validation("NOTHING_TO_EDIT", "there is no scanned document to edit")
	}
	o.buffer.Edit(key, value)
	return nil
}

// Commit persists the review buffer. On failure the buffer is kept so the
// commit can be retried; on success the context returns to idle.
func (o *Orchestrator) Commit(ctx context.Context, opts CommitOptions) (documentModel.Document, error) {
	o.mu.Lock()
	o.touch()
	if err := o.busy(); err != nil {
		o.mu.Unlock()
		return documentModel.Document{}, err
	}
	if o.session.State() != session.Succeeded || o.documentId == "" {
		o.mu.Unlock()
		return documentModel.Document{}, appErrors.Validation("NOTHING_TO_COMMIT", "there is no scanned document to save")
	}
	gen := o.session.Generation()
	documentId := o.documentId
	if !o.claims.claim(documentId, o.scanId, gen) {
		o.mu.Unlock()
		return documentModel.Document{}, appErrors.Busy("DOCUMENT_IN_USE", "this document is being scanned or saved elsewhere")
	}
	fields := o.buffer.Snapshot()
	fileName := strings.TrimSpace(opts.FileName)
	if fileName == "" {
		fileName = o.fileName
	}
	o.committing = true
	o.mu.Unlock()

	var (
		doc documentModel.Document
		err error
	)
	if opts.SaveAsNew {
		doc, err = o.persister.SaveAsNew(ctx, documentId, fields, fileName)
	} else {
		doc, err = o.persister.CommitAsSaved(ctx, documentId, fields, fileName)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.committing = false
	o.claims.release(documentId, o.scanId, gen)
	log := o.logger.WithContext(ctx).With("document Id", documentId)
	if err != nil {
		log.Error("Commit failed, review buffer kept", "error", err)
		return documentModel.Document{}, err
	}

	log.Info("Document committed", "saved Id", doc.Id, "save as new", opts.SaveAsNew)
	if gen == o.session.Generation() {
		o.session.Reset()
		o.buffer.Clear()
		o.documentId = ""
		o.fileName = ""
	}
	o.lastCommitted = &doc
	return doc, nil
}

// Discard resets the context immediately. A call still out for the old run
// finishes on its own and its result is dropped.
func (o *Orchestrator) Discard() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.touch()
	o.session.Reset()
	o.buffer.Clear()
	o.documentId = ""
	o.fileName = ""
	o.lastCommitted = nil
}

type Snapshot struct {
	ScanId        string                  `json:"scan_id"`
	Session       session.View            `json:"session"`
	DocumentId    string                  `json:"document_id,omitempty"`
	FileName      string                  `json:"file_name,omitempty"`
	Content       map[string]any          `json:"content"`
	Fields        []content.Field         `json:"fields"`
	Dirty         bool                    `json:"dirty"`
	Committing    bool                    `json:"committing"`
	ErrorKind     appErrors.Kind          `json:"error_kind,omitempty"`
	ErrorMessage  string                  `json:"error_message,omitempty"`
	LastCommitted *documentModel.Document `json:"last_committed,omitempty"`
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := Snapshot{
		ScanId:        o.scanId,
		Session:       o.session.View(),
		DocumentId:    o.documentId,
		FileName:      o.fileName,
		Content:       o.buffer.Snapshot(),
		Fields:        o.buffer.Rows(),
		Dirty:         o.buffer.Dirty(),
		Committing:    o.committing,
		LastCommitted: o.lastCommitted,
	}
	if err := o.session.Err(); err != nil {
		s.ErrorKind = appErrors.KindOf(err)
		s.ErrorMessage = appErrors.MessageOf(err)
	}
	return s
}

func (o *Orchestrator) holds(documentId string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.documentId == documentId
}

func (o *Orchestrator) idleSince() (time.Time, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastUsed, o.session.InFlight() || o.committing
}
