// Package metrics provides Prometheus metrics for the cardbot service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the cardbot service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Query lifecycle - what really matters for a chat bot
	queriesTotal      *prometheus.CounterVec
	admissionRejected *prometheus.CounterVec
	queryDuration     prometheus.Histogram

	// Queue health
	queueDepth   prometheus.Gauge
	queueActive  prometheus.Gauge
	trackedUsers prometheus.Gauge
	timeouts     prometheus.Counter

	// Upstream pipeline
	upstreamLatency prometheus.Histogram
	upstreamErrors  prometheus.Counter

	// Rendering pipeline
	itemsExtracted   prometheus.Counter
	cardsRendered    prometheus.Counter
	cardsTruncated   prometheus.Counter
	batchesSent      prometheus.Counter
	textChunksSent   prometheus.Counter
	emptyExtractions prometheus.Counter

	// Ops HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cardbot",
		subsystem:        "bot",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)

	m.queriesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queries_total",
		Help:      "Queries handled, labeled by command and outcome.",
	}, []string{"command", "outcome"})

	m.admissionRejected = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "admission_rejected_total",
		Help:      "Requests rejected before queuing, labeled by reason.",
	}, []string{"reason"})

	m.queryDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "query_duration_ms",
		Help:      "End-to-end query handling latency in milliseconds.",
		Buckets:   m.histogramBuckets,
	})

	m.queueDepth = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_depth",
		Help:      "Requests currently waiting in the queue.",
	})

	m.queueActive = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_active",
		Help:      "Requests currently executing.",
	})

	m.trackedUsers = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rate_limit_tracked_users",
		Help:      "Distinct users with entries in the rate-limit ledger.",
	})

	m.timeouts = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "request_timeouts_total",
		Help:      "Requests rejected because the deadline elapsed.",
	})

	m.upstreamLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "upstream_latency_ms",
		Help:      "Upstream pipeline call latency in milliseconds.",
		Buckets:   m.histogramBuckets,
	})

	m.upstreamErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "upstream_errors_total",
		Help:      "Upstream pipeline calls that returned an error.",
	})

	m.itemsExtracted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "items_extracted_total",
		Help:      "Item records extracted from upstream envelopes.",
	})

	m.cardsRendered = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cards_rendered_total",
		Help:      "Visual cards built by the renderer.",
	})

	m.cardsTruncated = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cards_truncated_total",
		Help:      "Visual cards shrunk to honor the size cap.",
	})

	m.batchesSent = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batches_sent_total",
		Help:      "Card batches handed to the reply sink.",
	})

	m.textChunksSent = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "text_chunks_sent_total",
		Help:      "Plain-text chunks handed to the reply sink.",
	})

	m.emptyExtractions = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "empty_extractions_total",
		Help:      "Envelopes that yielded no item records.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Ops HTTP requests, labeled by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_ms",
		Help:      "Ops HTTP request latency in milliseconds.",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})

	m.errorsByComponent = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Errors recorded per component and kind.",
	}, []string{"component", "kind"})
}

// GetRegistry returns the custom Prometheus registry used by the global
// manager; the ops HTTP surface serves it.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RecordQuery counts one handled query by command and outcome.
func RecordQuery(command, outcome string) {
	if globalManager.enabled {
		globalManager.queriesTotal.WithLabelValues(command, outcome).Inc()
	}
}

// ObserveQueryDuration records end-to-end handling latency.
func ObserveQueryDuration(ms float64) {
	if globalManager.enabled {
		globalManager.queryDuration.Observe(ms)
	}
}

// RecordAdmissionRejected counts a request rejected before queuing.
func RecordAdmissionRejected(reason string) {
	if globalManager.enabled {
		globalManager.admissionRejected.WithLabelValues(reason).Inc()
	}
}

// UpdateQueueDepth sets the current pending-queue length.
func UpdateQueueDepth(n int) {
	if globalManager.enabled {
		globalManager.queueDepth.Set(float64(n))
	}
}

// UpdateQueueActive sets the number of running requests.
func UpdateQueueActive(n int) {
	if globalManager.enabled {
		globalManager.queueActive.Set(float64(n))
	}
}

// UpdateTrackedUsers sets the size of the rate-limit ledger.
func UpdateTrackedUsers(n int) {
	if globalManager.enabled {
		globalManager.trackedUsers.Set(float64(n))
	}
}

// RecordTimeout counts a request that hit its deadline.
func RecordTimeout() {
	if globalManager.enabled {
		globalManager.timeouts.Inc()
	}
}

// ObserveUpstreamLatency records one upstream call latency.
func ObserveUpstreamLatency(ms float64) {
	if globalManager.enabled {
		globalManager.upstreamLatency.Observe(ms)
	}
}

// RecordUpstreamError counts a failed upstream call.
func RecordUpstreamError() {
	if globalManager.enabled {
		globalManager.upstreamErrors.Inc()
	}
}

// RecordItemsExtracted counts item records produced by extraction.
func RecordItemsExtracted(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.itemsExtracted.Add(float64(n))
	}
}

// RecordEmptyExtraction counts an envelope with no extractable items.
func RecordEmptyExtraction() {
	if globalManager.enabled {
		globalManager.emptyExtractions.Inc()
	}
}

// RecordCardRendered counts one built visual card.
func RecordCardRendered() {
	if globalManager.enabled {
		globalManager.cardsRendered.Inc()
	}
}

// RecordCardTruncated counts a card that needed shrinking.
func RecordCardTruncated() {
	if globalManager.enabled {
		globalManager.cardsTruncated.Inc()
	}
}

// RecordBatchDispatched counts one card batch handed to the sink.
func RecordBatchDispatched() {
	if globalManager.enabled {
		globalManager.batchesSent.Inc()
	}
}

// RecordTextChunk counts one plain-text chunk handed to the sink.
func RecordTextChunk() {
	if globalManager.enabled {
		globalManager.textChunksSent.Inc()
	}
}

// RecordHTTPRequest counts one ops HTTP request.
func RecordHTTPRequest(endpoint, method, status string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
	}
}

// RecordHTTPRequestDuration records ops HTTP request latency.
func RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(ms)
	}
}

// RecordErrorByComponent counts one error per component and kind.
func RecordErrorByComponent(component, kind string) {
	if globalManager.enabled {
		globalManager.errorsByComponent.WithLabelValues(component, kind).Inc()
	}
}
