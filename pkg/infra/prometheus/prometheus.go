package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	// Latency buckets in milliseconds. Model calls dominate the upper range.
	latencyBuckets = []float64{
		5, 25, 100,
		250, 500, 1000,
		2500, 5000, 10000,
		30000, 60000,
	}

	HTTPRequestTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspector_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inspector_http_latency_ms",
			Help:    "HTTP request latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"method", "route"},
	)

	QuotaDecisionsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspector_quota_decisions_total",
			Help: "Quota checks by outcome (allowed, denied, error)",
		},
		[]string{"outcome"},
	)

	AnalysisSubmissionsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspector_analysis_submissions_total",
			Help: "Analysis submissions by the channel that produced the result",
		},
		[]string{"source", "provider"},
	)

	AnalysisSchemaViolationsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspector_analysis_schema_violations_total",
			Help: "Remote replies rejected for breaking the response schema",
		},
		[]string{"provider", "field"},
	)

	AnalysisLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inspector_analysis_latency_ms",
			Help:    "Analysis latency in milliseconds by channel",
			Buckets: latencyBuckets,
		},
		[]string{"channel"},
	)

	ReportsCreatedTotal = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "inspector_reports_created_total",
			Help: "Citation reports persisted",
		},
	)
)

type MetricsConfig struct {
	EnableLatency bool
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{EnableLatency: true}
}

var Config = DefaultMetricsConfig()

func Initialize(cfg MetricsConfig) {
	Config = cfg
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
}

// Gatherer exposes the private registry to the /metrics handler.
func Gatherer() prometheus.Gatherer {
	return registry
}
