// Package observability provides Prometheus metrics, OpenTelemetry tracing,
// and structured logging for the indexing and ingestion services.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector holds all Prometheus metrics for the service.
type MetricsCollector struct {
	// Ingestion request metrics
	IngestRequestsTotal    *prometheus.CounterVec
	IngestRequestDuration  *prometheus.HistogramVec
	IngestRequestsInFlight *prometheus.GaugeVec
	IngestErrors           *prometheus.CounterVec

	// Indexer metrics
	IndexerOperations  *prometheus.CounterVec
	IndexerDuration    *prometheus.HistogramVec
	IndexedFilesTotal  prometheus.Counter
	IndexedChunksTotal prometheus.Counter
	IndexerErrorsTotal *prometheus.CounterVec

	// Upload phase metrics (indexer -> ingestion server, one phase per
	// record type: blobs, chunks, mappings, symbols, references, branches)
	UploadPhaseRequests    *prometheus.CounterVec
	UploadPhaseDuration    *prometheus.HistogramVec
	UploadPhaseErrorsTotal *prometheus.CounterVec

	// Dedup metrics: content-hash dedup (whole-file blobs) and
	// chunk-hash dedup (content-defined chunks), both computed during
	// one indexing run
	ContentDedupHits   prometheus.Counter
	ContentDedupMisses prometheus.Counter
	ChunkDedupHits     prometheus.Counter
	ChunkDedupMisses   prometheus.Counter

	// Retention/prune metrics
	PruneOperationsTotal   *prometheus.CounterVec
	PruneOperationDuration *prometheus.HistogramVec
	PruneItemsAffected     *prometheus.HistogramVec
	StoreSizeBytes         prometheus.Gauge

	// Rate limiting metrics
	RateLimitRequests  *prometheus.CounterVec
	RateLimitHits      *prometheus.CounterVec
	RateLimitDuration  *prometheus.HistogramVec
	RateLimitRemaining *prometheus.GaugeVec

	// System metrics
	SystemStartTime prometheus.Gauge
	SystemHealth    *prometheus.GaugeVec
}

// NewMetricsCollector creates and registers all Prometheus metrics.
func NewMetricsCollector(namespace string) *MetricsCollector {
	return NewMetricsCollectorWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates metrics with a specific registry (for testing).
func NewMetricsCollectorWithRegistry(namespace string, reg prometheus.Registerer) *MetricsCollector {
	if namespace == "" {
		namespace = "conexus"
	}

	// Helper function to create auto-registered metrics
	autoCounterVec := func(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
		return promauto.With(reg).NewCounterVec(opts, labelNames)
	}

	autoHistogramVec := func(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
		return promauto.With(reg).NewHistogramVec(opts, labelNames)
	}

	autoGaugeVec := func(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
		return promauto.With(reg).NewGaugeVec(opts, labelNames)
	}

	autoCounter := func(opts prometheus.CounterOpts) prometheus.Counter {
		return promauto.With(reg).NewCounter(opts)
	}

	autoGauge := func(opts prometheus.GaugeOpts) prometheus.Gauge {
		return promauto.With(reg).NewGauge(opts)
	}

	return &MetricsCollector{
		// Ingestion request metrics
		IngestRequestsTotal: autoCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_requests_total",
				Help:      "Total number of ingestion requests by endpoint and status",
			},
			[]string{"method", "status"},
		),
		IngestRequestDuration: autoHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ingest_request_duration_seconds",
				Help:      "Ingestion request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method"},
		),
		IngestRequestsInFlight: autoGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ingest_requests_in_flight",
				Help:      "Number of ingestion requests currently being handled",
			},
			[]string{"method"},
		),
		IngestErrors: autoCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_errors_total",
				Help:      "Total number of ingestion errors by endpoint and error type",
			},
			[]string{"method", "error_type"},
		),

		// Indexer metrics
		IndexerOperations: autoCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "indexer_operations_total",
				Help:      "Total number of indexer operations by type and status",
			},
			[]string{"operation", "status"},
		),
		IndexerDuration: autoHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "indexer_operation_duration_seconds",
				Help:      "Indexer operation duration in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
		IndexedFilesTotal: autoCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "indexed_files_total",
				Help:      "Total number of files indexed",
			},
		),
		IndexedChunksTotal: autoCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "indexed_chunks_total",
				Help:      "Total number of chunks indexed",
			},
		),
		IndexerErrorsTotal: autoCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "indexer_errors_total",
				Help:      "Total number of indexer errors by type",
			},
			[]string{"error_type"},
		),

		// Upload phase metrics
		UploadPhaseRequests: autoCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upload_phase_requests_total",
				Help:      "Total number of indexer upload-phase requests by phase and status",
			},
			[]string{"phase", "status"},
		),
		UploadPhaseDuration: autoHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upload_phase_duration_seconds",
				Help:      "Indexer upload-phase duration in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"phase"},
		),
		UploadPhaseErrorsTotal: autoCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upload_phase_errors_total",
				Help:      "Total number of indexer upload-phase errors by phase and type",
			},
			[]string{"phase", "error_type"},
		),

		// Dedup metrics
		ContentDedupHits: autoCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "content_dedup_hits_total",
				Help:      "Total number of files whose content hash matched an already-seen blob",
			},
		),
		ContentDedupMisses: autoCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "content_dedup_misses_total",
				Help:      "Total number of files with a previously-unseen content hash",
			},
		),
		ChunkDedupHits: autoCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunk_dedup_hits_total",
				Help:      "Total number of chunks whose hash matched an already-seen chunk",
			},
		),
		ChunkDedupMisses: autoCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunk_dedup_misses_total",
				Help:      "Total number of chunks with a previously-unseen hash",
			},
		),

		// Retention/prune metrics
		PruneOperationsTotal: autoCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prune_operations_total",
				Help:      "Total number of retention/prune operations by action and status",
			},
			[]string{"action", "status"},
		),
		PruneOperationDuration: autoHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "prune_operation_duration_seconds",
				Help:      "Retention/prune operation duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"action"},
		),
		PruneItemsAffected: autoHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "prune_items_affected",
				Help:      "Number of rows removed by a prune operation",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
			[]string{"action"},
		),
		StoreSizeBytes: autoGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "store_size_bytes",
				Help:      "Total size of the content store in bytes",
			},
		),

		// Rate limiting metrics
		RateLimitRequests: autoCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_requests_total",
				Help:      "Total number of rate limit checks by limiter type and result",
			},
			[]string{"limiter_type", "result"},
		),
		RateLimitHits: autoCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Total number of rate limit hits by limiter type",
			},
			[]string{"limiter_type"},
		),
		RateLimitDuration: autoHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rate_limit_duration_seconds",
				Help:      "Rate limit check duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1},
			},
			[]string{"limiter_type"},
		),
		RateLimitRemaining: autoGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rate_limit_remaining_requests",
				Help:      "Number of remaining requests for rate limited clients",
			},
			[]string{"limiter_type", "identifier"},
		),

		// System metrics
		SystemStartTime: autoGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "system_start_time_seconds",
				Help:      "Unix timestamp when the system started",
			},
		),
		SystemHealth: autoGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "system_health_status",
				Help:      "System health status (1 = healthy, 0 = unhealthy)",
			},
			[]string{"component"},
		),
	}
}

// RecordIngestRequest records metrics for an ingestion request.
func (m *MetricsCollector) RecordIngestRequest(method, status string, duration time.Duration) {
	m.IngestRequestsTotal.WithLabelValues(method, status).Inc()
	m.IngestRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordIngestError records an ingestion error.
func (m *MetricsCollector) RecordIngestError(method, errorType string) {
	m.IngestErrors.WithLabelValues(method, errorType).Inc()
}

// TrackIngestInFlight tracks in-flight ingestion requests.
func (m *MetricsCollector) TrackIngestInFlight(method string, delta float64) {
	m.IngestRequestsInFlight.WithLabelValues(method).Add(delta)
}

// RecordIndexerOperation records metrics for an indexer operation.
func (m *MetricsCollector) RecordIndexerOperation(operation, status string, duration time.Duration) {
	m.IndexerOperations.WithLabelValues(operation, status).Inc()
	m.IndexerDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordIndexedFiles increments the indexed files counter.
func (m *MetricsCollector) RecordIndexedFiles(count int) {
	m.IndexedFilesTotal.Add(float64(count))
}

// RecordIndexedChunks increments the indexed chunks counter.
func (m *MetricsCollector) RecordIndexedChunks(count int) {
	m.IndexedChunksTotal.Add(float64(count))
}

// RecordIndexerError records an indexer error.
func (m *MetricsCollector) RecordIndexerError(errorType string) {
	m.IndexerErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordUploadPhase records metrics for one phase of the indexer's upload
// to the ingestion server (blobs, chunks, mappings, symbols, references,
// branches).
func (m *MetricsCollector) RecordUploadPhase(phase, status string, duration time.Duration) {
	m.UploadPhaseRequests.WithLabelValues(phase, status).Inc()
	m.UploadPhaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordUploadPhaseError records an error during one upload phase.
func (m *MetricsCollector) RecordUploadPhaseError(phase, errorType string) {
	m.UploadPhaseErrorsTotal.WithLabelValues(phase, errorType).Inc()
}

// RecordContentDedupHit records a content-hash dedup hit (file content
// already seen during this indexing run).
func (m *MetricsCollector) RecordContentDedupHit() {
	m.ContentDedupHits.Inc()
}

// RecordContentDedupMiss records a previously-unseen content hash.
func (m *MetricsCollector) RecordContentDedupMiss() {
	m.ContentDedupMisses.Inc()
}

// RecordChunkDedupHit records a chunk-hash dedup hit.
func (m *MetricsCollector) RecordChunkDedupHit() {
	m.ChunkDedupHits.Inc()
}

// RecordChunkDedupMiss records a previously-unseen chunk hash.
func (m *MetricsCollector) RecordChunkDedupMiss() {
	m.ChunkDedupMisses.Inc()
}

// RecordPruneOperation records metrics for a retention/prune action.
func (m *MetricsCollector) RecordPruneOperation(action, status string, duration time.Duration, itemsAffected int) {
	m.PruneOperationsTotal.WithLabelValues(action, status).Inc()
	m.PruneOperationDuration.WithLabelValues(action).Observe(duration.Seconds())
	m.PruneItemsAffected.WithLabelValues(action).Observe(float64(itemsAffected))
}

// UpdateStoreSize updates the content store size metric.
func (m *MetricsCollector) UpdateStoreSize(sizeBytes int64) {
	m.StoreSizeBytes.Set(float64(sizeBytes))
}

// SetSystemStartTime sets the system start time.
func (m *MetricsCollector) SetSystemStartTime(startTime time.Time) {
	m.SystemStartTime.Set(float64(startTime.Unix()))
}

// SetComponentHealth sets the health status of a component.
func (m *MetricsCollector) SetComponentHealth(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.SystemHealth.WithLabelValues(component).Set(value)
}

// RecordRateLimit records metrics for a rate limit check.
func (m *MetricsCollector) RecordRateLimit(limiterType, result string, duration time.Duration) {
	m.RateLimitRequests.WithLabelValues(limiterType, result).Inc()
	m.RateLimitDuration.WithLabelValues(limiterType).Observe(duration.Seconds())

	if result == "hit" {
		m.RateLimitHits.WithLabelValues(limiterType).Inc()
	}
}

// UpdateRateLimitRemaining updates the remaining requests gauge.
func (m *MetricsCollector) UpdateRateLimitRemaining(limiterType, identifier string, remaining int64) {
	m.RateLimitRemaining.WithLabelValues(limiterType, identifier).Set(float64(remaining))
}
