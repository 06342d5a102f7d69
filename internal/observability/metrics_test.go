package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// newTestMetricsCollector creates a MetricsCollector with a custom registry for testing
func newTestMetricsCollector(t *testing.T) (*MetricsCollector, *prometheus.Registry) {
	t.Helper()

	registry := prometheus.NewRegistry()
	namespace := "test"

	collector := &MetricsCollector{
		// Ingestion request metrics
		IngestRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_requests_total",
				Help:      "Total number of ingestion requests by endpoint and status",
			},
			[]string{"method", "status"},
		),
		IngestRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ingest_request_duration_seconds",
				Help:      "Ingestion request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method"},
		),
		IngestRequestsInFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ingest_requests_in_flight",
				Help:      "Number of ingestion requests currently being handled",
			},
			[]string{"method"},
		),
		IngestErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_errors_total",
				Help:      "Total number of ingestion errors by endpoint and error type",
			},
			[]string{"method", "error_type"},
		),

		// Indexer metrics
		IndexerOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "indexer_operations_total",
				Help:      "Total number of indexer operations by type and status",
			},
			[]string{"operation", "status"},
		),
		IndexerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "indexer_operation_duration_seconds",
				Help:      "Indexer operation duration in seconds",
				Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10},
			},
			[]string{"operation"},
		),
		IndexedFilesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "indexed_files_total",
				Help:      "Total number of files indexed",
			},
		),
		IndexedChunksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "indexed_chunks_total",
				Help:      "Total number of code chunks indexed",
			},
		),
		IndexerErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "indexer_errors_total",
				Help:      "Total number of indexer errors by type",
			},
			[]string{"error_type"},
		),

		// Upload phase metrics
		UploadPhaseRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upload_phase_requests_total",
				Help:      "Total number of indexer upload-phase requests by phase and status",
			},
			[]string{"phase", "status"},
		),
		UploadPhaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upload_phase_duration_seconds",
				Help:      "Indexer upload-phase duration in seconds",
				Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5},
			},
			[]string{"phase"},
		),
		UploadPhaseErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upload_phase_errors_total",
				Help:      "Total number of indexer upload-phase errors by phase and type",
			},
			[]string{"phase", "error_type"},
		),

		// Dedup metrics
		ContentDedupHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "content_dedup_hits_total",
				Help:      "Total number of content-hash dedup hits",
			},
		),
		ContentDedupMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "content_dedup_misses_total",
				Help:      "Total number of content-hash dedup misses",
			},
		),
		ChunkDedupHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunk_dedup_hits_total",
				Help:      "Total number of chunk-hash dedup hits",
			},
		),
		ChunkDedupMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunk_dedup_misses_total",
				Help:      "Total number of chunk-hash dedup misses",
			},
		),

		// Retention/prune metrics
		PruneOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prune_operations_total",
				Help:      "Total number of retention/prune operations by action and status",
			},
			[]string{"action", "status"},
		),
		PruneOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "prune_operation_duration_seconds",
				Help:      "Retention/prune operation duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .5},
			},
			[]string{"action"},
		),
		PruneItemsAffected: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "prune_items_affected",
				Help:      "Number of rows removed by a prune operation",
				Buckets:   []float64{1, 5, 10, 25, 50, 100},
			},
			[]string{"action"},
		),
		StoreSizeBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "store_size_bytes",
				Help:      "Current size of the content store in bytes",
			},
		),

		// System metrics
		SystemStartTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "system_start_time_seconds",
				Help:      "Unix timestamp of system start time",
			},
		),
		SystemHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "system_health",
				Help:      "Health status of system components (1=healthy, 0=unhealthy)",
			},
			[]string{"component"},
		),
	}

	// Register all metrics with the custom registry
	registry.MustRegister(
		collector.IngestRequestsTotal,
		collector.IngestRequestDuration,
		collector.IngestRequestsInFlight,
		collector.IngestErrors,
		collector.IndexerOperations,
		collector.IndexerDuration,
		collector.IndexedFilesTotal,
		collector.IndexedChunksTotal,
		collector.IndexerErrorsTotal,
		collector.UploadPhaseRequests,
		collector.UploadPhaseDuration,
		collector.UploadPhaseErrorsTotal,
		collector.ContentDedupHits,
		collector.ContentDedupMisses,
		collector.ChunkDedupHits,
		collector.ChunkDedupMisses,
		collector.PruneOperationsTotal,
		collector.PruneOperationDuration,
		collector.PruneItemsAffected,
		collector.StoreSizeBytes,
		collector.SystemStartTime,
		collector.SystemHealth,
	)

	return collector, registry
}

func TestRecordIngestRequest(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	tests := []struct {
		name      string
		method    string
		status    string
		duration  time.Duration
		wantCount float64
	}{
		{
			name:      "successful request",
			method:    "tools/list",
			status:    "success",
			duration:  100 * time.Millisecond,
			wantCount: 1,
		},
		{
			name:      "error request",
			method:    "tools/call",
			status:    "error",
			duration:  50 * time.Millisecond,
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector.RecordIngestRequest(tt.method, tt.status, tt.duration)

			// Verify counter incremented
			count := testutil.ToFloat64(collector.IngestRequestsTotal.WithLabelValues(tt.method, tt.status))
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestRecordIngestError(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	tests := []struct {
		name      string
		method    string
		errorType string
		wantCount float64
	}{
		{
			name:      "validation error",
			method:    "tools/call",
			errorType: "validation",
			wantCount: 1,
		},
		{
			name:      "timeout error",
			method:    "search/code",
			errorType: "timeout",
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector.RecordIngestError(tt.method, tt.errorType)

			count := testutil.ToFloat64(collector.IngestErrors.WithLabelValues(tt.method, tt.errorType))
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestTrackIngestInFlight(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	method := "tools/list"

	// Start tracking
	collector.TrackIngestInFlight(method, 1.0)
	count := testutil.ToFloat64(collector.IngestRequestsInFlight.WithLabelValues(method))
	assert.Equal(t, float64(1), count)

	// Stop tracking
	collector.TrackIngestInFlight(method, -1.0)
	count = testutil.ToFloat64(collector.IngestRequestsInFlight.WithLabelValues(method))
	assert.Equal(t, float64(0), count)
}

func TestRecordIndexerOperation(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	tests := []struct {
		name      string
		operation string
		status    string
		duration  time.Duration
		wantCount float64
	}{
		{
			name:      "successful index",
			operation: "index",
			status:    "success",
			duration:  500 * time.Millisecond,
			wantCount: 1,
		},
		{
			name:      "failed scan",
			operation: "scan",
			status:    "error",
			duration:  100 * time.Millisecond,
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector.RecordIndexerOperation(tt.operation, tt.status, tt.duration)

			count := testutil.ToFloat64(collector.IndexerOperations.WithLabelValues(tt.operation, tt.status))
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestRecordIndexedFiles(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	// Record 5 files
	collector.RecordIndexedFiles(5)
	count := testutil.ToFloat64(collector.IndexedFilesTotal)
	assert.Equal(t, float64(5), count)

	// Record 3 more files
	collector.RecordIndexedFiles(3)
	count = testutil.ToFloat64(collector.IndexedFilesTotal)
	assert.Equal(t, float64(8), count)
}

func TestRecordIndexedChunks(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	// Record 100 chunks
	collector.RecordIndexedChunks(100)
	count := testutil.ToFloat64(collector.IndexedChunksTotal)
	assert.Equal(t, float64(100), count)

	// Record 50 more chunks
	collector.RecordIndexedChunks(50)
	count = testutil.ToFloat64(collector.IndexedChunksTotal)
	assert.Equal(t, float64(150), count)
}

func TestRecordIndexerError(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	errorType := "parse_error"
	collector.RecordIndexerError(errorType)

	count := testutil.ToFloat64(collector.IndexerErrorsTotal.WithLabelValues(errorType))
	assert.Equal(t, float64(1), count)
}

func TestRecordUploadPhase(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	tests := []struct {
		name      string
		phase     string
		status    string
		duration  time.Duration
		wantCount float64
	}{
		{
			name:      "successful blob upload",
			phase:     "blobs",
			status:    "success",
			duration:  50 * time.Millisecond,
			wantCount: 1,
		},
		{
			name:      "failed chunk upload",
			phase:     "chunks",
			status:    "error",
			duration:  20 * time.Millisecond,
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector.RecordUploadPhase(tt.phase, tt.status, tt.duration)

			count := testutil.ToFloat64(collector.UploadPhaseRequests.WithLabelValues(tt.phase, tt.status))
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestRecordContentDedup(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	collector.RecordContentDedupHit()
	hits := testutil.ToFloat64(collector.ContentDedupHits)
	assert.Equal(t, float64(1), hits)

	collector.RecordContentDedupMiss()
	misses := testutil.ToFloat64(collector.ContentDedupMisses)
	assert.Equal(t, float64(1), misses)
}

func TestRecordChunkDedup(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	collector.RecordChunkDedupHit()
	hits := testutil.ToFloat64(collector.ChunkDedupHits)
	assert.Equal(t, float64(1), hits)

	collector.RecordChunkDedupMiss()
	misses := testutil.ToFloat64(collector.ChunkDedupMisses)
	assert.Equal(t, float64(1), misses)
}

func TestRecordUploadPhaseError(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	phase := "symbols"
	errorType := "timeout"

	collector.RecordUploadPhaseError(phase, errorType)

	count := testutil.ToFloat64(collector.UploadPhaseErrorsTotal.WithLabelValues(phase, errorType))
	assert.Equal(t, float64(1), count)
}

func TestRecordPruneOperation(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	tests := []struct {
		name          string
		action        string
		status        string
		duration      time.Duration
		itemsAffected int
		wantCount     float64
	}{
		{
			name:          "successful prune-commit",
			action:        "prune-commit",
			status:        "success",
			duration:      25 * time.Millisecond,
			itemsAffected: 10,
			wantCount:     1,
		},
		{
			name:          "successful prune-branch",
			action:        "prune-branch",
			status:        "success",
			duration:      50 * time.Millisecond,
			itemsAffected: 25,
			wantCount:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector.RecordPruneOperation(tt.action, tt.status, tt.duration, tt.itemsAffected)

			count := testutil.ToFloat64(collector.PruneOperationsTotal.WithLabelValues(tt.action, tt.status))
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestUpdateStoreSize(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	sizeBytes := int64(1024 * 1024 * 100) // 100 MB
	collector.UpdateStoreSize(sizeBytes)

	size := testutil.ToFloat64(collector.StoreSizeBytes)
	assert.Equal(t, float64(sizeBytes), size)
}

func TestSetSystemStartTime(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	startTime := time.Now()
	collector.SetSystemStartTime(startTime)

	value := testutil.ToFloat64(collector.SystemStartTime)
	assert.Equal(t, float64(startTime.Unix()), value)
}

func TestSetComponentHealth(t *testing.T) {
	collector, _ := newTestMetricsCollector(t)

	tests := []struct {
		name      string
		component string
		healthy   bool
		wantValue float64
	}{
		{
			name:      "healthy component",
			component: "indexer",
			healthy:   true,
			wantValue: 1.0,
		},
		{
			name:      "unhealthy component",
			component: "embedding",
			healthy:   false,
			wantValue: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector.SetComponentHealth(tt.component, tt.healthy)

			value := testutil.ToFloat64(collector.SystemHealth.WithLabelValues(tt.component))
			assert.Equal(t, tt.wantValue, value)
		})
	}
}
