package job

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/internal/domain/appErrors"
	"github.com/akolanti/DocScanAPI/internal/domain/jobModel"
	"github.com/akolanti/DocScanAPI/internal/metrics"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
	"github.com/google/uuid"
)

// Executor runs one queued scan request. orchestrator.Manager implements it.
type Executor interface {
	Execute(ctx context.Context, req jobModel.ScanRequest) error
}

type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	Executor          Executor
	JobTimeout        time.Duration
	logger            *logger_i.Logger
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	Executor          Executor
	JobTimeout        time.Duration
}

func InitJobService(cfg ServiceConfig) *Service {
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = config.ExtractionTimeout + config.PersistenceMargin
	}
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		Executor:          cfg.Executor,
		JobTimeout:        timeout,
		logger:            logger_i.NewLogger("JobService"),
	}
}

// Enqueue hands req to the worker pool. It waits for room in the queue until
// ctx is done, then gives up with a busy error.
func (s *Service) Enqueue(ctx context.Context, traceId string, req jobModel.ScanRequest) (jobModel.Job, error) {
	newJob := jobModel.Job{
		Id:          uuid.NewString(),
		TraceId:     traceId,
		JobType:     req.JobType,
		Request:     req,
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
	}
	log := s.logger.WithContext(ctx).With("job Id", newJob.Id, "scan Id", req.ScanId)

	if err := s.JobStore.SaveJob(ctx, newJob); err != nil {
		log.Warn("Could not record queued job", "error", err)
	}

	select {
	case s.JobChannel <- newJob:
		metrics.IncrementJobsInQueue()
	case <-ctx.Done():
		log.Warn("Job queue is full", "error", ctx.Err())
		s.JobStore.DeleteJob(context.WithoutCancel(ctx), newJob.Id)
		return jobModel.Job{}, appErrors.Busy("QUEUE_FULL", "the scan queue is full; try again shortly")
	}
	log.Info("Queued scan job", "job type", req.JobType)

	// one more worker every few requests, or when jobs start piling up;
	// idle workers retire on their own
	accurateCount := atomic.AddInt64(&s.RequestCount, 1)
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || len(s.JobChannel) > 1 {
		select {
		case s.DispatcherChannel <- true:
			metrics.StartDispatcherSignalCount()
		default:
		}
	}
	return newJob, nil
}

// Status returns the recorded state of a queued job.
func (s *Service) Status(ctx context.Context, jobId string) (jobModel.Job, error) {
	j, ok := s.JobStore.GetJob(ctx, jobId)
	if !ok {
		return jobModel.Job{}, appErrors.NotFound("JOB_NOT_FOUND", "job "+jobId+" does not exist")
	}
	return j, nil
}
