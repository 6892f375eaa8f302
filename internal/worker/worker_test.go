package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/internal/domain/appErrors"
	"github.com/akolanti/DocScanAPI/internal/domain/jobModel"
	"github.com/akolanti/DocScanAPI/internal/job"
)

// MockExecutor tracks which scan requests reached the orchestrator
type MockExecutor struct {
	ProcessedCount int32
	OnExecute      func(ctx context.Context, req jobModel.ScanRequest) error
}

func (m *MockExecutor) Execute(ctx context.Context, req jobModel.ScanRequest) error {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnExecute != nil {
		return m.OnExecute(ctx, req)
	}
	return nil
}

type MockJobStore struct {
	mu        sync.Mutex
	saved     map[string]jobModel.Job
	OnSaveJob func(ctx context.Context, job jobModel.Job) error
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.saved[jobId]
	return j, ok
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobId string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.saved, jobId)
}

func (m *MockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	if m.OnSaveJob != nil {
		if err := m.OnSaveJob(ctx, j); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string]jobModel.Job)
	}
	m.saved[j.Id] = j
	return nil
}

func newTestService(executor job.Executor, store jobModel.JobStore) *job.Service {
	return job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          store,
		Executor:          executor,
		JobTimeout:        time.Second,
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWorkerPool_Flow(t *testing.T) {
	atomic.StoreInt64(&currentWorkerCount, 0)
	executor := &MockExecutor{}
	jobStore := &MockJobStore{}
	jobSvc := newTestService(executor, jobStore)
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	InitServices(jobSvc)
	InitWorkerPool(stopChan, wg)

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		jobSvc.DispatcherChannel <- true
		waitFor(t, func() bool { return atomic.LoadInt64(&currentWorkerCount) >= 2 })
	})

	t.Run("Worker processes a job", func(t *testing.T) {
		queued, err := jobSvc.Enqueue(context.Background(), "trace-1", jobModel.ScanRequest{ScanId: "scan-1", JobType: jobModel.JobTypeUpload})
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}

		waitFor(t, func() bool {
			j, ok := jobStore.GetJob(context.Background(), queued.Id)
			return ok && j.Status == jobModel.JobStatusComplete
		})
		if processed := atomic.LoadInt32(&executor.ProcessedCount); processed != 1 {
			t.Errorf("Expected 1 job processed, got %d", processed)
		}
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		close(stopChan)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Workers did not stop within timeout")
		}
	})
}

func TestExecuteJob_RecordsOutcome(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus jobModel.JobStatus
		wantKind   string
		wantRetry  bool
	}{
		{name: "Success", wantStatus: jobModel.JobStatusComplete},
		{name: "Stale", err: appErrors.ErrStaleResult, wantStatus: jobModel.JobStatusStale},
		{
			name:       "Upstream",
			err:        appErrors.Upstream("EXTRACTION_FAILED", "the extraction service failed", errors.New("502")),
			wantStatus: jobModel.JobStatusError,
			wantKind:   string(appErrors.KindUpstream),
			wantRetry:  true,
		},
		{
			name:       "Not_Found",
			err:        appErrors.NotFound("DOCUMENT_NOT_FOUND", "document x does not exist"),
			wantStatus: jobModel.JobStatusError,
			wantKind:   string(appErrors.KindNotFound),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobStore := &MockJobStore{}
			executor := &MockExecutor{OnExecute: func(ctx context.Context, req jobModel.ScanRequest) error {
				if ctx.Value(config.USER_ID_KEY) != "user-1" {
					t.Errorf("user id not carried into the job context")
				}
				return tt.err
			}}
			InitServices(newTestService(executor, jobStore))

			executeJob(jobModel.Job{Id: "job-1", TraceId: "trace", Request: jobModel.ScanRequest{ScanId: "scan-1", UserId: "user-1"}})

			got, ok := jobStore.GetJob(context.Background(), "job-1")
			if !ok {
				t.Fatal("job state was not saved")
			}
			if got.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", got.Status, tt.wantStatus)
			}
			if tt.wantKind == "" {
				if got.Error != nil {
					t.Errorf("unexpected error %+v", got.Error)
				}
				return
			}
			if got.Error == nil || got.Error.Kind != tt.wantKind || got.Error.Retry != tt.wantRetry {
				t.Errorf("error = %+v, want kind %s retry %v", got.Error, tt.wantKind, tt.wantRetry)
			}
		})
	}
}

func TestExecuteJob_AppliesTimeout(t *testing.T) {
	jobStore := &MockJobStore{}
	executor := &MockExecutor{OnExecute: func(ctx context.Context, req jobModel.ScanRequest) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("expected a deadline on the job context")
		}
		<-ctx.Done()
		return appErrors.Upstream("EXTRACTION_TIMEOUT", "timed out", ctx.Err())
	}}
	svc := newTestService(executor, jobStore)
	svc.JobTimeout = 20 * time.Millisecond
	InitServices(svc)

	executeJob(jobModel.Job{Id: "job-slow"})

	got, _ := jobStore.GetJob(context.Background(), "job-slow")
	if got.Status != jobModel.JobStatusError || got.Error.Code != "EXTRACTION_TIMEOUT" {
		t.Errorf("got %+v", got)
	}
}

func TestWorker_IdleTimeout(t *testing.T) {
	atomic.StoreInt64(&currentWorkerCount, 0)
	atomic.StoreInt64(&minWorkerCount, 0)
	idleWorkerTimeout = 20 * time.Millisecond
	t.Cleanup(func() {
		atomic.StoreInt64(&minWorkerCount, config.MinWorkerCount)
		idleWorkerTimeout = config.IdleWorkerTimeout
	})
	InitServices(newTestService(&MockExecutor{}, &MockJobStore{}))

	wg := &sync.WaitGroup{}
	workerWaitGroup = wg
	stopWorkerChannel = make(chan bool)

	createWorker()
	waitFor(t, func() bool { return atomic.LoadInt64(&currentWorkerCount) == 0 })
	wg.Wait()
}
