// Package metrics provides Prometheus metrics for the encore ranking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Engine metrics
	recomputeTotal    prometheus.Counter
	recomputeErrors   prometheus.Counter
	recomputeDuration prometheus.Histogram
	refreshCoalesced  prometheus.Counter
	snapshotLastUnix  prometheus.Gauge

	// Ranking store metrics
	rankingMutations      *prometheus.CounterVec
	rankingMutationErrors *prometheus.CounterVec
	prunedEntries         prometheus.Counter
	manualLocks           prometheus.Counter

	// Per-event gauges (dozens of events, bounded cardinality)
	participants     *prometheus.GaugeVec
	rankableRequests *prometheus.GaugeVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "encore",
		subsystem:        "ranking",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.recomputeTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recompute_total",
		Help:      "Total number of completed ranking recomputations",
	})
	m.recomputeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recompute_errors_total",
		Help:      "Total number of failed ranking recomputations",
	})
	m.recomputeDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recompute_duration_milliseconds",
		Help:      "Histogram of full recompute pipeline duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.refreshCoalesced = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_coalesced_total",
		Help:      "Total number of refresh callers attached to an in-flight recompute",
	})
	m.snapshotLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_last_unix",
		Help:      "Unix timestamp of the most recent fresh snapshot",
	})

	m.rankingMutations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "mutations_total",
		Help:      "Total successful ranking mutations by operation",
	}, []string{"op"})
	m.rankingMutationErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "mutation_errors_total",
		Help:      "Total rejected ranking mutations by operation",
	}, []string{"op"})
	m.prunedEntries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pruned_entries_total",
		Help:      "Total ranking entries pruned after leaving the rankable pool",
	})
	m.manualLocks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "manual_locks_total",
		Help:      "Total manual position lock set/clear operations",
	})

	m.participants = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "participants",
		Help:      "Distinct attendees with at least one ranked song, per event",
	}, []string{"event_id"})
	m.rankableRequests = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rankable_requests",
		Help:      "Requests currently eligible for ranking, per event",
	}, []string{"event_id"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Histogram of HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current allocated heap memory in bytes",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})
}

// GetRegistry returns the custom registry backing the global manager,
// for exposition via promhttp.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers against the global manager.

func RecordRecompute(durationMs float64) {
	globalManager.recomputeTotal.Inc()
	globalManager.recomputeDuration.Observe(durationMs)
}

func RecordRecomputeError() {
	globalManager.recomputeErrors.Inc()
}

func RecordRefreshCoalesced() {
	globalManager.refreshCoalesced.Inc()
}

func UpdateSnapshotLastUnix(unix int64) {
	globalManager.snapshotLastUnix.Set(float64(unix))
}

func RecordRankingMutation(op string) {
	globalManager.rankingMutations.WithLabelValues(op).Inc()
}

func RecordRankingMutationError(op string) {
	globalManager.rankingMutationErrors.WithLabelValues(op).Inc()
}

func RecordPrunedEntries(n int) {
	if n > 0 {
		globalManager.prunedEntries.Add(float64(n))
	}
}

func RecordManualLock() {
	globalManager.manualLocks.Inc()
}

func UpdateParticipants(eventID string, n int) {
	globalManager.participants.WithLabelValues(eventID).Set(float64(n))
}

func UpdateRankableRequests(eventID string, n int) {
	globalManager.rankableRequests.WithLabelValues(eventID).Set(float64(n))
}

// DropEventGauges removes per-event series once an event is deleted.
func DropEventGauges(eventID string) {
	globalManager.participants.DeleteLabelValues(eventID)
	globalManager.rankableRequests.DeleteLabelValues(eventID)
}

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(durationMs)
}

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(n int) {
	globalManager.systemGoroutineCount.Set(float64(n))
}
