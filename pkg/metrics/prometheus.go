// Package metrics provides Prometheus metrics for the survivor recommender.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Search
	searchTrials        prometheus.Counter
	searchPrunedTrials  prometheus.Counter
	searchDeadTrials    prometheus.Counter
	exhaustivePaths     prometheus.Counter
	exhaustiveDeadEnds  prometheus.Counter
	scoreUnderflows     prometheus.Counter
	searchDuration      *prometheus.HistogramVec
	searchBestScore     prometheus.Gauge
	recommendationsRuns *prometheus.CounterVec

	// Reservoir
	reservoirInserts    prometheus.Counter
	reservoirDuplicates prometheus.Counter
	reservoirTrims      prometheus.Counter
	reservoirSize       prometheus.Gauge

	// Queue
	queueCapacity          prometheus.Gauge
	queueSize              prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker
	workerActiveCount       prometheus.Gauge
	workerBatchesProcessed  prometheus.Counter
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Collaborators
	scrapeRequests    *prometheus.CounterVec
	historyOperations *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "survivor",
		subsystem:        "recommender",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.searchTrials = m.counter("search_trials_total", "Randomized trials executed")
	m.searchPrunedTrials = m.counter("search_pruned_trials_total", "Randomized trials abandoned by the pruning bound")
	m.searchDeadTrials = m.counter("search_dead_trials_total", "Randomized trials that reached a week with no available candidate")
	m.exhaustivePaths = m.counter("search_exhaustive_paths_total", "Complete paths enumerated by the exhaustive engine")
	m.exhaustiveDeadEnds = m.counter("search_exhaustive_dead_ends_total", "Branches terminated by a week without candidates")
	m.scoreUnderflows = m.counter("search_score_underflows_total", "Valid paths whose linear score underflowed to zero")
	m.searchDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "search_duration_seconds",
		Help:      "Wall-clock duration of a search by engine",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"engine"})
	m.searchBestScore = m.gauge("search_best_score", "Best survival probability found by the latest search")
	m.recommendationsRuns = m.counterVec("recommendations_total", "Recommendation runs by outcome", "outcome")

	m.reservoirInserts = m.counter("reservoir_inserts_total", "Paths admitted to the reservoir")
	m.reservoirDuplicates = m.counter("reservoir_duplicates_total", "Paths rejected as already retained")
	m.reservoirTrims = m.counter("reservoir_trims_total", "Reservoir compactions from the high to the low watermark")
	m.reservoirSize = m.gauge("reservoir_size", "Current number of retained paths")

	m.queueCapacity = m.gauge("queue_capacity", "Maximum capacity of the trial batch queue")
	m.queueSize = m.gauge("queue_size", "Current number of queued trial batches")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (0-1)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Trial batches enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Trial batches dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Failed enqueue attempts")
	m.queueProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_processing_latency_milliseconds",
		Help:      "Enqueue latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently running trial batches")
	m.workerBatchesProcessed = m.counter("worker_batches_processed_total", "Trial batches completed by workers")
	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_milliseconds",
		Help:      "Time spent running one trial batch in milliseconds",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})
	m.workerErrorRate = m.counter("worker_errors_total", "Trial batches that failed")

	m.scrapeRequests = m.counterVec("scrape_requests_total", "Scraped pages by kind and outcome", "kind", "outcome")
	m.historyOperations = m.counterVec("history_operations_total", "Run history operations by kind and outcome", "operation", "outcome")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Search metrics.

// RecordSearchTrials adds n executed randomized trials.
func RecordSearchTrials(n int) { globalManager.searchTrials.Add(float64(n)) }

// RecordSearchPrunedTrials adds n trials abandoned by the bound.
func RecordSearchPrunedTrials(n int) { globalManager.searchPrunedTrials.Add(float64(n)) }

// RecordSearchDeadTrials adds n trials that hit a week without candidates.
func RecordSearchDeadTrials(n int) { globalManager.searchDeadTrials.Add(float64(n)) }

// RecordExhaustivePaths adds n completed exhaustive paths.
func RecordExhaustivePaths(n int) { globalManager.exhaustivePaths.Add(float64(n)) }

// RecordExhaustiveDeadEnds adds n exhaustive dead ends.
func RecordExhaustiveDeadEnds(n int) { globalManager.exhaustiveDeadEnds.Add(float64(n)) }

// RecordScoreUnderflows adds n linear-score underflows.
func RecordScoreUnderflows(n int) { globalManager.scoreUnderflows.Add(float64(n)) }

// RecordSearchDuration observes a search duration for the given engine.
func RecordSearchDuration(engine string, seconds float64) {
	globalManager.searchDuration.WithLabelValues(engine).Observe(seconds)
}

// UpdateBestScore sets the latest best survival probability.
func UpdateBestScore(score float64) { globalManager.searchBestScore.Set(score) }

// RecordRecommendation counts a recommendation run by outcome.
func RecordRecommendation(outcome string) {
	globalManager.recommendationsRuns.WithLabelValues(outcome).Inc()
}

// Reservoir metrics.

// RecordReservoirInsert counts an admitted path.
func RecordReservoirInsert() { globalManager.reservoirInserts.Inc() }

// RecordReservoirDuplicate counts a path that was already retained.
func RecordReservoirDuplicate() { globalManager.reservoirDuplicates.Inc() }

// RecordReservoirTrim counts a compaction.
func RecordReservoirTrim() { globalManager.reservoirTrims.Inc() }

// UpdateReservoirSize sets the current reservoir size.
func UpdateReservoirSize(size int) { globalManager.reservoirSize.Set(float64(size)) }

// Queue metrics.

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueueRate.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeueRate.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// RecordQueueProcessingLatency records enqueue latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker metrics.

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// RecordWorkerBatchProcessed counts a completed batch.
func RecordWorkerBatchProcessed() { globalManager.workerBatchesProcessed.Inc() }

// RecordWorkerProcessingLatency records batch processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrorRate.Inc() }

// Collaborator metrics.

// RecordScrapeRequest counts a scraped page.
func RecordScrapeRequest(kind, outcome string) {
	globalManager.scrapeRequests.WithLabelValues(kind, outcome).Inc()
}

// RecordHistoryOperation counts a run-history store operation.
func RecordHistoryOperation(operation, outcome string) {
	globalManager.historyOperations.WithLabelValues(operation, outcome).Inc()
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error metrics.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
