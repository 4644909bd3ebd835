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
	// Pipeline metrics
	ExecutionsTriggered prometheus.Counter
	ExecutionsCompleted prometheus.Counter
	ExecutionsFailed    *prometheus.CounterVec
	PollRunsTotal       *prometheus.CounterVec
	RowsUpserted        *prometheus.CounterVec
	RowsSkipped         prometheus.Counter
	StageDuration       *prometheus.HistogramVec

	// Provider metrics
	ProviderRequestErrors *prometheus.CounterVec
	ProviderRateLimited   *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulPoll      prometheus.Gauge
	LastSuccessfulAggregate prometheus.Gauge
	UnprocessedExecutions   prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "protocol_pulse"
	}

	return &Metrics{
		// Pipeline metrics
		ExecutionsTriggered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "executions_triggered_total",
			Help:      "Total number of query executions triggered",
		}),
		ExecutionsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "executions_completed_total",
			Help:      "Total number of executions completed and processed",
		}),
		ExecutionsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "executions_failed_total",
			Help:      "Total number of executions that ended in a failure state",
		}, []string{"status"}),
		PollRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "poll_runs_total",
			Help:      "Total number of poller runs by status",
		}, []string{"status"}),
		RowsUpserted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rows_upserted_total",
			Help:      "Total number of metric rows upserted by table",
		}, []string{"table"}),
		RowsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rows_skipped_total",
			Help:      "Total number of result rows skipped for missing keys",
		}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"stage"}),

		// Provider metrics
		ProviderRequestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_errors_total",
			Help:      "Total number of provider request errors",
		}, []string{"provider"}),
		ProviderRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "rate_limited_total",
			Help:      "Total number of provider rate-limit responses",
		}, []string{"provider"}),

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

		// Health metrics
		LastSuccessfulPoll: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_poll_timestamp",
			Help:      "Unix timestamp of last successful poller run",
		}),
		LastSuccessfulAggregate: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_aggregate_timestamp",
			Help:      "Unix timestamp of last successful aggregation run",
		}),
		UnprocessedExecutions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "unprocessed_executions",
			Help:      "Number of unprocessed executions seen by the last poll",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordExecutionTriggered increments the executions triggered counter.
func RecordExecutionTriggered() {
	DefaultMetrics.ExecutionsTriggered.Inc()
}

// RecordExecutionCompleted increments the executions completed counter.
func RecordExecutionCompleted() {
	DefaultMetrics.ExecutionsCompleted.Inc()
}

// RecordExecutionFailed records an execution ending in a failure state.
func RecordExecutionFailed(status string) {
	DefaultMetrics.ExecutionsFailed.WithLabelValues(status).Inc()
}

// RecordPollRun records one poller run.
func RecordPollRun(status string, checked int) {
	DefaultMetrics.PollRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.UnprocessedExecutions.Set(float64(checked))
}

// RecordRowsUpserted adds to the upserted rows counter for a table.
func RecordRowsUpserted(table string, n int) {
	DefaultMetrics.RowsUpserted.WithLabelValues(table).Add(float64(n))
}

// RecordProviderError records a provider request error.
func RecordProviderError(provider string) {
	DefaultMetrics.ProviderRequestErrors.WithLabelValues(provider).Inc()
}

// RecordStageDuration records a pipeline stage duration.
func RecordStageDuration(stage string, seconds float64) {
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
