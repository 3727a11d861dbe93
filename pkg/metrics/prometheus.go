// Package metrics provides Prometheus metrics for the rangeboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ledger
	ledgerRebuilds        prometheus.Counter
	ledgerRebuildDuration prometheus.Histogram
	ledgerTeams           prometheus.Gauge
	ledgerMatches         prometheus.Gauge
	ledgerMutations       *prometheus.CounterVec
	ledgerRejections      *prometheus.CounterVec
	rangeQueries          prometheus.Counter
	rangeQueryLatency     prometheus.Histogram
	snapshotVersion       prometheus.Gauge

	// Ingestion
	matchesDuplicate      prometheus.Counter
	queueSize             prometheus.Gauge
	queueCapacity         prometheus.Gauge
	queueEnqueued         prometheus.Counter
	queueDequeued         prometheus.Counter
	queueEnqueueErrors    *prometheus.CounterVec
	workerActive          prometheus.Gauge
	workerProcessed       prometheus.Counter
	workerErrors          prometheus.Counter
	workerProcessingDelay prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRateLimited     *prometheus.CounterVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry keeps the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a Manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rangeboard",
		subsystem:        "ledger",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.ledgerRebuilds = m.counter("rebuilds_total", "Total number of full tree rebuilds")
	m.ledgerRebuildDuration = m.histogram("rebuild_duration_milliseconds", "Duration of full tree rebuilds in milliseconds")
	m.ledgerTeams = m.gauge("teams", "Number of registered teams")
	m.ledgerMatches = m.gauge("matches", "Number of matches in the history")
	m.ledgerMutations = m.counterVec("mutations_total", "Accepted ledger mutations by operation", "op")
	m.ledgerRejections = m.counterVec("rejections_total", "Rejected ledger mutations by operation and reason", "op", "reason")
	m.rangeQueries = m.counter("range_queries_total", "Total number of range queries")
	m.rangeQueryLatency = m.histogram("range_query_latency_milliseconds", "Range query latency in milliseconds")
	m.snapshotVersion = m.gauge("snapshot_version", "Version of the last published ledger snapshot")

	m.matchesDuplicate = m.counter("matches_duplicate_total", "Match submissions dropped as duplicates")
	m.queueSize = m.gauge("queue_size", "Current number of queued match events")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the match event queue")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Match events accepted by the queue")
	m.queueDequeued = m.counter("queue_dequeued_total", "Match events handed to workers")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Match events refused by the queue", "reason")
	m.workerActive = m.gauge("workers_active", "Number of running match workers")
	m.workerProcessed = m.counter("worker_processed_total", "Match events applied to the ledger")
	m.workerErrors = m.counter("worker_errors_total", "Match events the ledger rejected")
	m.workerProcessingDelay = m.histogram("worker_processing_latency_milliseconds", "Time to apply one match event in milliseconds")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.httpRateLimited = m.counterVec("http_rate_limited_total", "Requests refused by the mutation rate limiter", "endpoint")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
}

// Ledger metrics.

func RecordRebuild(durationMs float64) {
	globalManager.ledgerRebuilds.Inc()
	globalManager.ledgerRebuildDuration.Observe(durationMs)
}

func UpdateLedgerSize(teams, matches int) {
	globalManager.ledgerTeams.Set(float64(teams))
	globalManager.ledgerMatches.Set(float64(matches))
}

func RecordMutation(op string) {
	globalManager.ledgerMutations.WithLabelValues(op).Inc()
}

func RecordRejection(op, reason string) {
	globalManager.ledgerRejections.WithLabelValues(op, reason).Inc()
}

func RecordRangeQuery(latencyMs float64) {
	globalManager.rangeQueries.Inc()
	globalManager.rangeQueryLatency.Observe(latencyMs)
}

func UpdateSnapshotVersion(version uint64) {
	globalManager.snapshotVersion.Set(float64(version))
}

// Ingestion metrics.

func RecordMatchDuplicate() { globalManager.matchesDuplicate.Inc() }

func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

func UpdateWorkerActiveCount(count int) { globalManager.workerActive.Set(float64(count)) }

func RecordWorkerProcessed(latencyMs float64) {
	globalManager.workerProcessed.Inc()
	globalManager.workerProcessingDelay.Observe(latencyMs)
}

func RecordWorkerError() { globalManager.workerErrors.Inc() }

// HTTP metrics.

func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

func RecordRateLimited(endpoint string) {
	globalManager.httpRateLimited.WithLabelValues(endpoint).Inc()
}

// RecordErrorByComponent counts an error attributed to a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System metrics.

func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the registry /healthz serves.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
