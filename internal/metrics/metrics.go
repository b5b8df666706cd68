// Package metrics exposes Prometheus collectors for validation runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the suite collectors, registered on their own registry.
type Metrics struct {
	Registry *prometheus.Registry

	// gateTotal counts gate outcomes by scheme, gate and outcome
	gateTotal *prometheus.CounterVec

	// validatorDuration tracks validator wall time
	validatorDuration *prometheus.HistogramVec

	// samplesTotal counts work units evaluated per validator
	samplesTotal *prometheus.CounterVec

	// contradictionsTotal counts quarantined records
	contradictionsTotal *prometheus.CounterVec

	// lastFitSlope is the most recent fitted slope per scheme and validator
	lastFitSlope *prometheus.GaugeVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		gateTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "metriplectic_gate_total",
			Help: "Gate outcomes by scheme, gate and outcome",
		}, []string{"scheme", "gate", "outcome"}),
		validatorDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "metriplectic_validator_duration_seconds",
			Help:    "Validator duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
		}, []string{"scheme", "validator"}),
		samplesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "metriplectic_samples_total",
			Help: "Work units evaluated by validator",
		}, []string{"scheme", "validator"}),
		contradictionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "metriplectic_contradictions_total",
			Help: "Contradiction records routed to quarantine",
		}, []string{"scheme", "validator"}),
		lastFitSlope: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "metriplectic_fit_slope",
			Help: "Most recent fitted slope",
		}, []string{"scheme", "validator"}),
	}
}

// ObserveGate counts one gate outcome ("pass", "fail" or "skip").
func (m *Metrics) ObserveGate(scheme, gate, outcome string) {
	if m == nil {
		return
	}
	m.gateTotal.WithLabelValues(scheme, gate, outcome).Inc()
}

// ObserveValidator records a validator's duration and unit count.
func (m *Metrics) ObserveValidator(scheme, validator string, d time.Duration, samples int) {
	if m == nil {
		return
	}
	m.validatorDuration.WithLabelValues(scheme, validator).Observe(d.Seconds())
	m.samplesTotal.WithLabelValues(scheme, validator).Add(float64(samples))
}

// ObserveContradiction counts one quarantined record.
func (m *Metrics) ObserveContradiction(scheme, validator string) {
	if m == nil {
		return
	}
	m.contradictionsTotal.WithLabelValues(scheme, validator).Inc()
}

// SetSlope records the latest fitted slope.
func (m *Metrics) SetSlope(scheme, validator string, slope float64) {
	if m == nil {
		return
	}
	m.lastFitSlope.WithLabelValues(scheme, validator).Set(slope)
}
