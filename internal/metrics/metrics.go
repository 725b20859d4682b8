package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the medication engine.
type Metrics struct {
	registry *prometheus.Registry

	Medications       prometheus.Gauge
	DosesRecorded     *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec
	LowSupplyEvents   prometheus.Counter
	SweepsTotal       prometheus.Counter
	SweepDuration     prometheus.Histogram
	PersistFailures   prometheus.Counter
	HTTPRequestsTotal *prometheus.CounterVec
}

// New builds a metrics set backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Medications: factory.NewGauge(prometheus.GaugeOpts{
			Name: "medtrack_medications",
			Help: "Number of tracked medications.",
		}),
		DosesRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medtrack_doses_recorded_total",
			Help: "Dose records appended to the ledger.",
		}, []string{"result"}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medtrack_status_transitions_total",
			Help: "Medication status transitions observed.",
		}, []string{"to"}),
		LowSupplyEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "medtrack_low_supply_events_total",
			Help: "Low supply threshold crossings.",
		}),
		SweepsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "medtrack_sweeps_total",
			Help: "Periodic status sweeps executed.",
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "medtrack_sweep_duration_seconds",
			Help:    "Duration of a full status sweep.",
			Buckets: prometheus.DefBuckets,
		}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "medtrack_persist_failures_total",
			Help: "Failed writes to the persistence layer.",
		}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medtrack_http_requests_total",
			Help: "HTTP requests served, by method and status.",
		}, []string{"method", "status"}),
	}
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordDose counts a logged dose by outcome.
func (m *Metrics) RecordDose(taken bool) {
	result := "taken"
	if !taken {
		result = "skipped"
	}
	m.DosesRecorded.WithLabelValues(result).Inc()
}
