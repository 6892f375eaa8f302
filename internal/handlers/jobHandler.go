package handlers

import (
	"context"
	"net/http"

	"github.com/akolanti/DocScanAPI/internal/adapter"
	"github.com/akolanti/DocScanAPI/internal/adapter/utils"
	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/internal/domain/appErrors"
	"github.com/akolanti/DocScanAPI/internal/domain/jobModel"
	"github.com/akolanti/DocScanAPI/internal/gateway"
	"github.com/akolanti/DocScanAPI/internal/job"
	"github.com/akolanti/DocScanAPI/internal/orchestrator"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
)

// ExtractionStatus is the part of extraction.Client the config endpoint reads.
type ExtractionStatus interface {
	CheckConfigured() error
	ProviderName() string
}

type Handler struct {
	scans      *orchestrator.Manager
	jobs       *job.Service
	documents  *gateway.Gateway
	extraction ExtractionStatus
	provider   string
	logger     *logger_i.Logger
}

type Deps struct {
	Scans      *orchestrator.Manager
	Jobs       *job.Service
	Documents  *gateway.Gateway
	Extraction ExtractionStatus
	// Provider is reported when Extraction has no provider of its own.
	Provider string
}

func NewHandler(d Deps) *Handler {
	h := &Handler{
		scans:      d.Scans,
		jobs:       d.Jobs,
		documents:  d.Documents,
		extraction: d.Extraction,
		provider:   d.Provider,
		logger:     logger_i.NewLogger("JobHandler"),
	}
	h.logger.Info("Starting scan handlers")
	return h
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// queue sends a started run to the worker pool. A run that cannot be queued is
// failed at once so the scan does not stay in flight.
func (h *Handler) queue(w http.ResponseWriter, r *http.Request, o *orchestrator.Orchestrator, req jobModel.ScanRequest) {
	ctx, cancel := context.WithTimeout(r.Context(), config.EnqueueTimeout)
	defer cancel()

	queued, err := h.jobs.Enqueue(ctx, traceFrom(r.Context()), req)
	if err != nil {
		o.Abort(req, err)
		writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(queued))
}

// GetJobStatusHandler godoc
// @Summary      Get scan job status
// @Description  Reports whether a queued scan job is waiting, running, finished, failed or was dropped as stale.
// @Tags         Jobs
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /jobs/{id} [get]
func (h *Handler) GetJobStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	found, err := h.jobs.Status(r.Context(), id)
	if err == nil && found.Request.UserId != userFrom(r.Context()) {
		err = appErrors.NotFound("JOB_NOT_FOUND", "job "+id+" does not exist")
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToJobResponse(found))
}
