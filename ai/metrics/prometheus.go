// Package metrics provides Prometheus metrics export for the finance bot.
// Every Record method is safe to call on a nil exporter.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "finsense"

// PrometheusExporter exports bot metrics in Prometheus format.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// Interpretation metrics
	interpretations    *prometheus.CounterVec
	classifierLatency  *prometheus.HistogramVec
	classifierCacheHit *prometheus.CounterVec

	// LLM metrics
	llmRequests *prometheus.CounterVec
	llmTokens   *prometheus.CounterVec

	// Background job metrics
	jobsFired        *prometheus.CounterVec
	investmentAlerts prometheus.Counter
	priceFetchErrors prometheus.Counter
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.interpretations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "interpretations_total",
			Help:      "Total number of interpreted messages by resolved intent",
		},
		[]string{"intent"},
	)

	e.classifierLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "classifier_latency_seconds",
			Help:      "Classifier call latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"classifier"},
	)

	e.classifierCacheHit = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "classifier_cache_total",
			Help:      "Classifier cache lookups by result",
		},
		[]string{"result"},
	)

	e.llmRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests by caller and status",
		},
		[]string{"caller", "status"},
	)

	e.llmTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "llm_tokens_total",
			Help:      "Total LLM tokens consumed",
		},
		[]string{"caller"},
	)

	e.jobsFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "jobs_fired_total",
			Help:      "Total number of scheduler jobs fired by kind",
		},
		[]string{"kind"},
	)

	e.investmentAlerts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "investment_alerts_total",
			Help:      "Total number of investment change alerts sent",
		},
	)

	e.priceFetchErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "price_fetch_errors_total",
			Help:      "Total number of failed price lookups",
		},
	)

	registry.MustRegister(
		e.interpretations,
		e.classifierLatency,
		e.classifierCacheHit,
		e.llmRequests,
		e.llmTokens,
		e.jobsFired,
		e.investmentAlerts,
		e.priceFetchErrors,
	)

	return e
}

// RecordInterpretation counts one interpreted message.
func (e *PrometheusExporter) RecordInterpretation(intent string) {
	if e == nil {
		return
	}
	e.interpretations.WithLabelValues(intent).Inc()
}

// RecordClassifierLatency records how long one classifier call took.
func (e *PrometheusExporter) RecordClassifierLatency(classifier string, latency time.Duration) {
	if e == nil {
		return
	}
	e.classifierLatency.WithLabelValues(classifier).Observe(latency.Seconds())
}

// RecordClassifierCache records a classifier cache hit or miss.
func (e *PrometheusExporter) RecordClassifierCache(hit bool) {
	if e == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	e.classifierCacheHit.WithLabelValues(result).Inc()
}

// RecordLLMRequest records one LLM call and the tokens it consumed.
func (e *PrometheusExporter) RecordLLMRequest(caller string, tokens int, success bool) {
	if e == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	e.llmRequests.WithLabelValues(caller, status).Inc()
	if tokens > 0 {
		e.llmTokens.WithLabelValues(caller).Add(float64(tokens))
	}
}

// RecordJobFired counts one scheduler job execution.
func (e *PrometheusExporter) RecordJobFired(kind string) {
	if e == nil {
		return
	}
	e.jobsFired.WithLabelValues(kind).Inc()
}

// RecordInvestmentAlert counts one investment alert.
func (e *PrometheusExporter) RecordInvestmentAlert() {
	if e == nil {
		return
	}
	e.investmentAlerts.Inc()
}

// RecordPriceFetchError counts one failed price lookup.
func (e *PrometheusExporter) RecordPriceFetchError() {
	if e == nil {
		return
	}
	e.priceFetchErrors.Inc()
}

// Handler returns the HTTP handler for Prometheus metrics.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// ServeHTTP implements http.Handler for the metrics endpoint.
func (e *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.Handler().ServeHTTP(w, r)
}

// GetRegistry returns the Prometheus registry.
func (e *PrometheusExporter) GetRegistry() *prometheus.Registry {
	return e.registry
}
