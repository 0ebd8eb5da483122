package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	Requests *prometheus.CounterVec
	Units    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Sessions prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docgen_generate_requests_total",
			Help: "Generation requests by format and outcome",
		}, []string{"format", "outcome"}),
		Units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docgen_source_units_total",
			Help: "Uploaded source units by result (parsed, skipped, failed)",
		}, []string{"result"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docgen_generate_duration_seconds",
			Help:    "Time spent generating documentation",
			Buckets: prometheus.DefBuckets,
		}, []string{"format"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "docgen_view_sessions",
			Help: "Document-set sessions currently registered",
		}),
	}
	reg.MustRegister(m.Requests, m.Units, m.Duration, m.Sessions)
	return m
}
