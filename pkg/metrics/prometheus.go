// Package metrics provides Prometheus metrics for the viralclip service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	stageBuckets     []float64
	registry         prometheus.Registerer

	// Discovery
	probes              *prometheus.CounterVec
	probeLatency        prometheus.Histogram
	candidatesFound     prometheus.Counter
	candidatesFiltered  prometheus.Counter
	candidatesDuplicate prometheus.Counter

	// Render pipeline
	stageLatency  *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	stageRetries  *prometheus.CounterVec
	clipsRendered prometheus.Counter

	// Publication
	publishes    *prometheus.CounterVec
	ledgerSize   prometheus.Gauge
	cycleLatency prometheus.Histogram
	cycles       *prometheus.CounterVec

	// Clip queue and workers
	queueSize   prometheus.Gauge
	workerCount prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager. Without WithPrometheusRegistry the
// collectors are registered on prometheus.DefaultRegisterer.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "viralclip",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		stageBuckets:     []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.probes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "probes_total",
		Help: "Source probes by outcome (found, not_found, transport, auth, quota)",
	}, []string{"outcome"})

	m.probeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "probe_latency_seconds",
		Help:    "Latency of a single source probe",
		Buckets: m.histogramBuckets,
	})

	m.candidatesFound = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "candidates_found_total",
		Help: "Candidates that passed the discovery thresholds",
	})

	m.candidatesFiltered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "candidates_below_threshold_total",
		Help: "Candidates dropped by the minimum view/viewer thresholds",
	})

	m.candidatesDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "candidates_duplicate_total",
		Help: "Candidates skipped because the ledger already holds them",
	})

	m.stageLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "pipeline_stage_seconds",
		Help:    "Render pipeline stage duration",
		Buckets: m.stageBuckets,
	}, []string{"stage"})

	m.stageFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "pipeline_failures_total",
		Help: "Render pipeline failures by stage",
	}, []string{"stage"})

	m.stageRetries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "pipeline_retries_total",
		Help: "Render pipeline stage retries",
	}, []string{"stage"})

	m.clipsRendered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "clips_rendered_total",
		Help: "Clips that reached the Done state",
	})

	m.publishes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "publishes_total",
		Help: "Publish attempts by outcome (success, failure)",
	}, []string{"outcome"})

	m.ledgerSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ledger_entries",
		Help: "Videos recorded in the dedupe ledger",
	})

	m.cycleLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "cycle_seconds",
		Help:    "Duration of a full discovery-to-publish cycle",
		Buckets: m.stageBuckets,
	})

	m.cycles = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "cycles_total",
		Help: "Discovery cycles by outcome (published, empty, failed)",
	}, []string{"outcome"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "clip_queue_size",
		Help: "Clip jobs waiting for a worker",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "clip_workers",
		Help: "Configured clip worker count",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordProbe counts a probe outcome and its latency in seconds.
func RecordProbe(outcome string, seconds float64) {
	globalManager.probes.WithLabelValues(outcome).Inc()
	globalManager.probeLatency.Observe(seconds)
}

// RecordCandidateFound counts a candidate that passed the thresholds.
func RecordCandidateFound() { globalManager.candidatesFound.Inc() }

// RecordCandidateBelowThreshold counts a candidate dropped by the thresholds.
func RecordCandidateBelowThreshold() { globalManager.candidatesFiltered.Inc() }

// RecordCandidateDuplicate counts a candidate skipped by the ledger.
func RecordCandidateDuplicate() { globalManager.candidatesDuplicate.Inc() }

// RecordStageLatency observes a pipeline stage duration in seconds.
func RecordStageLatency(stage string, seconds float64) {
	globalManager.stageLatency.WithLabelValues(stage).Observe(seconds)
}

// RecordStageFailure counts a failure that ended a pipeline run in stage.
func RecordStageFailure(stage string) { globalManager.stageFailures.WithLabelValues(stage).Inc() }

// RecordStageRetry counts a retry of stage.
func RecordStageRetry(stage string) { globalManager.stageRetries.WithLabelValues(stage).Inc() }

// RecordClipRendered counts a clip that reached Done.
func RecordClipRendered() { globalManager.clipsRendered.Inc() }

// RecordPublish counts a publish attempt outcome.
func RecordPublish(outcome string) { globalManager.publishes.WithLabelValues(outcome).Inc() }

// UpdateLedgerSize sets the ledger entry gauge.
func UpdateLedgerSize(n int64) { globalManager.ledgerSize.Set(float64(n)) }

// RecordCycle observes a cycle duration and outcome.
func RecordCycle(outcome string, seconds float64) {
	globalManager.cycles.WithLabelValues(outcome).Inc()
	globalManager.cycleLatency.Observe(seconds)
}

// UpdateQueueSize sets the clip queue gauge.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateWorkerCount sets the clip worker gauge.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordHTTPRequest counts an HTTP request and observes its duration in seconds.
func RecordHTTPRequest(endpoint, method, statusCode string, seconds float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(seconds)
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
