// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Feed metrics
	TicksReceived     *prometheus.CounterVec
	MalformedMessages *prometheus.CounterVec
	ConnectionErrors  *prometheus.CounterVec
	TickLatency       prometheus.Histogram

	// Buffer metrics
	BufferSize    prometheus.Gauge
	TicksDropped  prometheus.Counter
	TicksDrained  prometheus.Counter
	ConsumerPanic prometheus.Counter

	// Resample metrics
	ResampleRuns prometheus.Counter
	BarsProduced *prometheus.CounterVec

	// Alert metrics
	AlertsTriggered  prometheus.Counter
	AlertEvalErrors  prometheus.Counter
	AlertRulesActive prometheus.Gauge

	// Pipeline metrics
	PipelineCycles   *prometheus.CounterVec
	PipelineDuration prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tickpipe"
	}

	return &Metrics{
		// Feed metrics
		TicksReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "ticks_received_total",
			Help:      "Total number of ticks received per symbol",
		}, []string{"symbol"}),
		MalformedMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "malformed_messages_total",
			Help:      "Total number of feed messages dropped during normalization",
		}, []string{"symbol"}),
		ConnectionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connection_errors_total",
			Help:      "Total number of websocket connection errors per symbol",
		}, []string{"symbol"}),
		TickLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "tick_processing_latency_seconds",
			Help:      "Tick normalization and dispatch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Buffer metrics
		BufferSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "buffer_size",
			Help:      "Current number of ticks in the collector buffer",
		}),
		TicksDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "ticks_dropped_total",
			Help:      "Total number of ticks dropped by the bounded buffer",
		}),
		TicksDrained: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "ticks_drained_total",
			Help:      "Total number of ticks returned by drain calls",
		}),
		ConsumerPanic: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "consumer_panics_total",
			Help:      "Total number of recovered consumer callback panics",
		}),

		// Resample metrics
		ResampleRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resample",
			Name:      "runs_total",
			Help:      "Total number of resample invocations",
		}),
		BarsProduced: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resample",
			Name:      "bars_produced_total",
			Help:      "Total number of OHLC bars produced by timeframe",
		}, []string{"timeframe"}),

		// Alert metrics
		AlertsTriggered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "triggered_total",
			Help:      "Total number of alert rule transitions to triggered",
		}),
		AlertEvalErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "eval_errors_total",
			Help:      "Total number of condition evaluation errors treated as false",
		}),
		AlertRulesActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "rules_active",
			Help:      "Current number of registered alert rules",
		}),

		// Pipeline metrics
		PipelineCycles: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "cycles_total",
			Help:      "Total number of pipeline refresh cycles by status",
		}, []string{"status"}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "cycle_duration_seconds",
			Help:      "Pipeline refresh cycle duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTickReceived increments the per-symbol tick counter and
// observes processing latency.
func RecordTickReceived(symbol string, seconds float64) {
	DefaultMetrics.TicksReceived.WithLabelValues(symbol).Inc()
	DefaultMetrics.TickLatency.Observe(seconds)
}

// RecordMalformedMessage increments the malformed message counter.
func RecordMalformedMessage(symbol string) {
	DefaultMetrics.MalformedMessages.WithLabelValues(symbol).Inc()
}

// RecordConnectionError increments the per-symbol connection error counter.
func RecordConnectionError(symbol string) {
	DefaultMetrics.ConnectionErrors.WithLabelValues(symbol).Inc()
}

// UpdateBufferSize updates the buffer size gauge.
func UpdateBufferSize(size int) {
	DefaultMetrics.BufferSize.Set(float64(size))
}

// RecordTicksDropped adds to the dropped tick counter.
func RecordTicksDropped(n int) {
	DefaultMetrics.TicksDropped.Add(float64(n))
}

// RecordTicksDrained adds to the drained tick counter.
func RecordTicksDrained(n int) {
	DefaultMetrics.TicksDrained.Add(float64(n))
}

// RecordConsumerPanic increments the recovered consumer panic counter.
func RecordConsumerPanic() {
	DefaultMetrics.ConsumerPanic.Inc()
}

// RecordResample records one resample invocation producing n bars.
func RecordResample(timeframe string, n int) {
	DefaultMetrics.ResampleRuns.Inc()
	DefaultMetrics.BarsProduced.WithLabelValues(timeframe).Add(float64(n))
}

// RecordAlertTriggered increments the alerts triggered counter.
func RecordAlertTriggered() {
	DefaultMetrics.AlertsTriggered.Inc()
}

// RecordAlertEvalError increments the evaluation error counter.
func RecordAlertEvalError() {
	DefaultMetrics.AlertEvalErrors.Inc()
}

// UpdateActiveRules updates the active rule count gauge.
func UpdateActiveRules(n int) {
	DefaultMetrics.AlertRulesActive.Set(float64(n))
}

// RecordPipelineCycle records a pipeline refresh cycle.
func RecordPipelineCycle(status string, durationSeconds float64) {
	DefaultMetrics.PipelineCycles.WithLabelValues(status).Inc()
	DefaultMetrics.PipelineDuration.Observe(durationSeconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
