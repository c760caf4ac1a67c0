// Package metrics exposes Prometheus instrumentation for the storage
// engine and ingest pipeline: gauges for catalog/queue/blob-store
// state, counters for fetch and pipeline outcomes, histograms for
// operation latency.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Catalog/storage engine metrics.
	CatalogSeriesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tsengine_catalog_series_total",
			Help: "Total number of series registered in the catalog",
		},
	)

	CatalogPointsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tsengine_catalog_points_total",
			Help: "Total number of data points recorded across all series",
		},
	)

	EngineWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsengine_engine_writes_total",
			Help: "Total number of WritePoints calls by outcome",
		},
		[]string{"outcome"},
	)

	EngineWriteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tsengine_engine_write_duration_seconds",
			Help:    "Time taken to write a batch of points, including partition merge",
			Buckets: prometheus.DefBuckets,
		},
	)

	EngineReadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tsengine_engine_read_duration_seconds",
			Help:    "Time taken to read a date range for one series",
			Buckets: prometheus.DefBuckets,
		},
	)

	EnginePartialReadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tsengine_engine_partial_reads_total",
			Help: "Total number of partition files skipped due to corruption during a read",
		},
	)

	// Blob store metrics.
	BlobPutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsengine_blobstore_puts_total",
			Help: "Total number of blobs stored, by storage mode",
		},
		[]string{"storage_mode"},
	)

	BlobGetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsengine_blobstore_gets_total",
			Help: "Total number of blob reads by outcome",
		},
		[]string{"outcome"},
	)

	BlobBytesStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tsengine_blobstore_bytes_stored",
			Help: "Total stored bytes across all blobs (post-compression)",
		},
	)

	BlobIntegrityFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tsengine_blobstore_integrity_failures_total",
			Help: "Total number of blob hash mismatches detected on read",
		},
	)

	// Fetcher metrics.
	FetchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsengine_fetch_requests_total",
			Help: "Total number of HTTP requests issued by the fetcher, by status class",
		},
		[]string{"status_class"},
	)

	FetchRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tsengine_fetch_retries_total",
			Help: "Total number of retried requests",
		},
	)

	FetchRateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tsengine_fetch_rate_limited_total",
			Help: "Total number of requests delayed by the rate limiter",
		},
	)

	FetchTimeoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tsengine_fetch_timeouts_total",
			Help: "Total number of requests that timed out",
		},
	)

	FetchBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tsengine_fetch_bytes_total",
			Help: "Total response-body bytes received across all fetch attempts",
		},
	)

	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tsengine_fetch_duration_seconds",
			Help:    "Time taken for a single HTTP request attempt",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Filing pipeline metrics.
	FilingsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsengine_filings_processed_total",
			Help: "Total number of filings processed by terminal state",
		},
		[]string{"state"},
	)

	DTSReferencesResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsengine_dts_references_total",
			Help: "Total number of discovered taxonomy set references by resolution outcome",
		},
		[]string{"resolved"},
	)

	FilingProcessDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tsengine_filing_process_duration_seconds",
			Help:    "Time taken to process one filing end to end",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)

	// Work queue metrics.
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tsengine_queue_depth",
			Help: "Number of work items by status",
		},
		[]string{"status"},
	)

	QueueOldestPendingSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tsengine_queue_oldest_pending_seconds",
			Help: "Age in seconds of the oldest pending work item",
		},
	)

	QueueLeasesReapedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tsengine_queue_leases_reaped_total",
			Help: "Total number of expired leases reverted to pending",
		},
	)
)

func init() {
	prometheus.MustRegister(
		CatalogSeriesTotal,
		CatalogPointsTotal,
		EngineWritesTotal,
		EngineWriteDuration,
		EngineReadDuration,
		EnginePartialReadsTotal,
		BlobPutsTotal,
		BlobGetsTotal,
		BlobBytesStored,
		BlobIntegrityFailuresTotal,
		FetchRequestsTotal,
		FetchRetriesTotal,
		FetchRateLimitedTotal,
		FetchTimeoutsTotal,
		FetchBytesTotal,
		FetchDuration,
		FilingsProcessedTotal,
		DTSReferencesResolvedTotal,
		FilingProcessDuration,
		QueueDepth,
		QueueOldestPendingSeconds,
		QueueLeasesReapedTotal,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer times an operation for later recording to a histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records elapsed time to histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
