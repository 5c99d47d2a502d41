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
	// Classification metrics
	InferencesTotal  *prometheus.CounterVec
	InferenceLatency *prometheus.HistogramVec
	RejectedInputs   *prometheus.CounterVec

	// Model metrics
	ModelMode          *prometheus.GaugeVec
	ModelLoads         *prometheus.CounterVec
	CollapseDetections prometheus.Counter
	NonFiniteOutputs   prometheus.Counter
	ModelTotalWeights  prometheus.Gauge
	ModelReportedAcc   prometheus.Gauge

	// Side-channel metrics
	MetricsReports *prometheus.CounterVec

	// API metrics
	APIRequests        *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	WSConnections      prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	PersistFailures *prometheus.CounterVec

	// Health metrics
	LastClassification prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_risk_lab"
	}

	return &Metrics{
		// Classification metrics
		InferencesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "inferences_total",
			Help:      "Total number of classifications by scorer mode",
		}, []string{"mode"}),
		InferenceLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "inference_latency_seconds",
			Help:      "Classification latency in seconds by scorer mode",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01},
		}, []string{"mode"}),
		RejectedInputs: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "rejected_inputs_total",
			Help:      "Total number of feature vectors rejected at the classification boundary",
		}, []string{"reason"}),

		// Model metrics
		ModelMode: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "mode",
			Help:      "Active scorer mode (1 for the active mode, 0 otherwise)",
		}, []string{"mode"}),
		ModelLoads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "loads_total",
			Help:      "Model load attempts by outcome",
		}, []string{"outcome"}),
		CollapseDetections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "quantization_collapse_detections_total",
			Help:      "Total number of quantization collapse warnings raised",
		}),
		NonFiniteOutputs: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "non_finite_outputs_total",
			Help:      "Total number of neural passes with NaN or Inf output, answered by the rule scorer",
		}),
		ModelTotalWeights: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "total_weights",
			Help:      "Number of weights in the loaded model",
		}),
		ModelReportedAcc: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "reported_accuracy",
			Help:      "Accuracy reported by the loaded model artifact",
		}),

		// Side-channel metrics
		MetricsReports: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporter",
			Name:      "reports_total",
			Help:      "Best-effort metrics reports by status",
		}, []string{"status"}),

		// API metrics
		APIRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests by route and status code",
		}, []string{"route", "code"}),
		APIRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		WSConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "ws_connections",
			Help:      "Number of open WebSocket classification streams",
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
		PersistFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "persist_failures_total",
			Help:      "Verdict or snapshot writes that failed and were dropped",
		}, []string{"store"}),

		// Health metrics
		LastClassification: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_classification_timestamp",
			Help:      "Unix timestamp of the last classification",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordInference records one classification.
func RecordInference(mode string, seconds float64, unixTime int64) {
	DefaultMetrics.InferencesTotal.WithLabelValues(mode).Inc()
	DefaultMetrics.InferenceLatency.WithLabelValues(mode).Observe(seconds)
	DefaultMetrics.LastClassification.Set(float64(unixTime))
}

// RecordRejectedInput records a vector rejected before scoring.
func RecordRejectedInput(reason string) {
	DefaultMetrics.RejectedInputs.WithLabelValues(reason).Inc()
}

// SetModelMode marks mode as the active scorer.
func SetModelMode(active string, modes ...string) {
	for _, m := range modes {
		v := 0.0
		if m == active {
			v = 1
		}
		DefaultMetrics.ModelMode.WithLabelValues(m).Set(v)
	}
}

// RecordModelLoad records a model load attempt.
func RecordModelLoad(outcome string) {
	DefaultMetrics.ModelLoads.WithLabelValues(outcome).Inc()
}

// UpdateModelInfo publishes loaded model metadata.
func UpdateModelInfo(totalWeights int, accuracy float64) {
	DefaultMetrics.ModelTotalWeights.Set(float64(totalWeights))
	DefaultMetrics.ModelReportedAcc.Set(accuracy)
}

// RecordCollapseDetected increments the quantization collapse counter.
func RecordCollapseDetected() {
	DefaultMetrics.CollapseDetections.Inc()
}

// RecordNonFiniteOutput counts a neural pass discarded for non-finite output.
func RecordNonFiniteOutput() {
	DefaultMetrics.NonFiniteOutputs.Inc()
}

// RecordMetricsReport records the outcome of a best-effort metrics report.
func RecordMetricsReport(status string) {
	DefaultMetrics.MetricsReports.WithLabelValues(status).Inc()
}

// RecordAPIRequest records an API request.
func RecordAPIRequest(route, code string, seconds float64) {
	DefaultMetrics.APIRequests.WithLabelValues(route, code).Inc()
	DefaultMetrics.APIRequestDuration.WithLabelValues(route).Observe(seconds)
}

// WSConnected adjusts the open WebSocket stream gauge by delta.
func WSConnected(delta int) {
	DefaultMetrics.WSConnections.Add(float64(delta))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordPersistFailure records a dropped verdict or snapshot write.
func RecordPersistFailure(store string) {
	DefaultMetrics.PersistFailures.WithLabelValues(store).Inc()
}
