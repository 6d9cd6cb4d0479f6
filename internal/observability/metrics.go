package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the engine-level collectors. Go runtime and process
// collectors stay on the default registry, which /metrics gathers as well.
type Metrics struct {
	Registry *prometheus.Registry

	Calculations   *prometheus.CounterVec
	CalcDuration   prometheus.Histogram
	PreferenceHits *prometheus.CounterVec
	HunterSavings  prometheus.Histogram
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "landedcost",
			Name:      "calculations_total",
			Help:      "Landed cost calculations by outcome and verdict.",
		}, []string{"outcome", "verdict"}),
		CalcDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "landedcost",
			Name:      "calculation_duration_seconds",
			Help:      "Wall time of a single landed cost calculation.",
			Buckets:   prometheus.DefBuckets,
		}),
		PreferenceHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "landedcost",
			Name:      "preference_decisions_total",
			Help:      "Preference evaluator decisions by status.",
		}, []string{"status"}),
		HunterSavings: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "landedcost",
			Name:      "rate_hunter_best_savings",
			Help:      "Savings of the best alternative origin found by the rate hunter.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "landedcost",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "landedcost",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.Calculations,
		m.CalcDuration,
		m.PreferenceHits,
		m.HunterSavings,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}
