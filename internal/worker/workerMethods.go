package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/internal/domain/appErrors"
	"github.com/akolanti/DocScanAPI/internal/domain/jobModel"
	"github.com/akolanti/DocScanAPI/internal/metrics"
)

func executeJob(job jobModel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctxUser := context.WithValue(ctxTrace, config.USER_ID_KEY, job.Request.UserId)
	ctx, cancel := context.WithTimeout(ctxUser, _jobService.JobTimeout)
	defer cancel()
	log := logger.WithContext(ctx).With("job Id", job.Id, "scan Id", job.Request.ScanId)
	log.Debug("Processing job")

	job = saveJobState(ctx, job, jobModel.JobStatusRunning)

	err := _jobService.Executor.Execute(ctx, job.Request)
	job.EndTime = time.Now()

	status := jobModel.JobStatusComplete
	switch {
	case err == nil:
	case errors.Is(err, appErrors.ErrStaleResult):
		status = jobModel.JobStatusStale
	default:
		status = jobModel.JobStatusError
		job.Error = toJobError(err)
	}
	log.Debug("Job finished", "status", status, "elapsed", job.EndTime.Sub(start))

	// the run may have used up the deadline, the final state is still recorded
	job = saveJobState(context.WithoutCancel(ctx), job, status)
}

func toJobError(err error) *jobModel.JobError {
	var appErr *appErrors.Error
	if !errors.As(err, &appErr) {
		return &jobModel.JobError{Kind: string(appErrors.KindUpstream), Message: err.Error(), Retry: true}
	}
	return &jobModel.JobError{
		Kind:    string(appErr.Kind),
		Code:    appErr.Code,
		Message: appErrors.MessageOf(err),
		Retry:   appErr.Kind == appErrors.KindUpstream || appErr.Kind == appErrors.KindPersistence || appErr.Kind == appErrors.KindBusy,
	}
}

func removeWorker(reason string) {
	workerWaitGroup.Done()
	count := atomic.AddInt64(&currentWorkerCount, -1)
	logger.Info("Removed worker", "reason", reason, "workerCount", count)
	metrics.DecrementActiveWorkerCount()
}

func saveJobState(ctx context.Context, job jobModel.Job, jobStatus jobModel.JobStatus) jobModel.Job {
	job.Status = jobStatus
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.WithContext(ctx).Error("Failed to update job status", "job Id", job.Id, "error", err)
	}
	return job
}
