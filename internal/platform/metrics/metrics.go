package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the enrichment service.
type Metrics struct {
	EnrichmentRuns  *prometheus.CounterVec
	ChangeEvents    *prometheus.CounterVec
	GeocodeDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		EnrichmentRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "geoflow_enrichment_runs_total",
			Help: "Reconciliation runs by terminal result",
		}, []string{"result"}),
		ChangeEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "geoflow_change_events_total",
			Help: "Store change events by kind and dispatch decision",
		}, []string{"kind", "decision"}),
		GeocodeDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geoflow_geocode_request_duration_seconds",
			Help:    "Latency of upstream geocode lookups",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"status"}),
	}
}

// ObserveRun records the terminal result of one reconciliation run.
// Nil receivers are no-ops so tests can skip metrics wiring.
func (m *Metrics) ObserveRun(result string) {
	if m == nil {
		return
	}
	m.EnrichmentRuns.WithLabelValues(result).Inc()
}

// ObserveEvent records a change event and whether it was dispatched.
func (m *Metrics) ObserveEvent(kind, decision string) {
	if m == nil {
		return
	}
	m.ChangeEvents.WithLabelValues(kind, decision).Inc()
}

// ObserveGeocode records one upstream lookup latency by status class.
func (m *Metrics) ObserveGeocode(status string, seconds float64) {
	if m == nil {
		return
	}
	m.GeocodeDuration.WithLabelValues(status).Observe(seconds)
}
