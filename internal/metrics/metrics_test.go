package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveGate(t *testing.T) {
	m := New()
	m.ObserveGate("jmj", "convergence_slope", "pass")
	m.ObserveGate("jmj", "convergence_slope", "pass")
	m.ObserveGate("jmj", "convergence_r2", "fail")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.gateTotal.WithLabelValues("jmj", "convergence_slope", "pass")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gateTotal.WithLabelValues("jmj", "convergence_r2", "fail")))
}

func TestObserveValidator(t *testing.T) {
	m := New()
	m.ObserveValidator("m_only", "convergence", 150*time.Millisecond, 30)
	m.ObserveValidator("m_only", "convergence", 50*time.Millisecond, 30)
	assert.Equal(t, 60.0, testutil.ToFloat64(m.samplesTotal.WithLabelValues("m_only", "convergence")))

	n, err := testutil.GatherAndCount(m.Registry, "metriplectic_validator_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestContradictionsAndSlope(t *testing.T) {
	m := New()
	m.ObserveContradiction("jmj", "dispersion")
	m.SetSlope("jmj", "convergence", 3.02)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.contradictionsTotal.WithLabelValues("jmj", "dispersion")))
	assert.Equal(t, 3.02, testutil.ToFloat64(m.lastFitSlope.WithLabelValues("jmj", "convergence")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveGate("a", "b", "pass")
	m.ObserveValidator("a", "b", time.Second, 1)
	m.ObserveContradiction("a", "b")
	m.SetSlope("a", "b", 1)
}

func TestSeparateRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a, b := New(), New()
	a.ObserveGate("j_only", "reversibility", "pass")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.gateTotal.WithLabelValues("j_only", "reversibility", "pass")))
}
