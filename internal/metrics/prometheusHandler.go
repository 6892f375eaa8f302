package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of scan jobs in queue",
})

var dispatcherSignalCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

var scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "document_scans_total",
	Help: "Scan runs labelled by kind (upload, rescan) and outcome",
}, []string{"kind", "outcome"})

var unsavedEvictions = promauto.NewCounter(prometheus.CounterOpts{
	Name: "unsaved_documents_evicted_total",
	Help: "Unsaved documents removed by the retention limit",
})

var liveScanContexts = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "scan_contexts_live",
	Help: "Scan contexts currently held in memory",
})

// HttpStatusRecorder remembers the status written by a handler.
type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working behind the recorder.
func (r *HttpStatusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

func CaptureScanOutcome(kind string, outcome string) {
	scansTotal.WithLabelValues(kind, outcome).Inc()
}

func AddUnsavedEvictions(n int) {
	unsavedEvictions.Add(float64(n))
}

func SetLiveScanContexts(n int) {
	liveScanContexts.Set(float64(n))
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "scan_job_duration_seconds",
	Help:    "Total time spent executing a queued scan job.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60, 120},
}, []string{"status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30, 60},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
