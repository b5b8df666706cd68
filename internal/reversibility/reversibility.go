// Package reversibility checks that conservative steppers undo themselves:
// a +dt step followed by a −dt step must reproduce the input, and the mean
// (Fourier mode 0) must not drift.
package reversibility

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/danielpatrickdp/metriplectic/internal/compose"
	"github.com/danielpatrickdp/metriplectic/internal/field"
	"github.com/danielpatrickdp/metriplectic/internal/gate"
)

// Config describes one reversibility run.
type Config struct {
	Dt    float64 `json:"dt" yaml:"dt" env:"DT"`
	Steps int     `json:"steps" yaml:"steps" env:"STEPS"` // steps for the mean-drift check
}

// DefaultConfig returns dt = 0.05 with 200 drift steps.
func DefaultConfig() Config {
	return Config{Dt: 0.05, Steps: 200}
}

// Outcome holds the measured deviations and their gates.
type Outcome struct {
	Deviation float64       `json:"deviation"`
	MeanDrift float64       `json:"mean_drift"`
	Gates     []gate.Result `json:"gates"`
}

// RoundTrip returns max|step(step(w, dt), −dt) − w|.
func RoundTrip(step compose.Stepper, w field.Field, dt float64) (float64, error) {
	fwd, err := step(w, dt)
	if err != nil {
		return 0, fmt.Errorf("forward step: %w", err)
	}
	back, err := step(fwd, -dt)
	if err != nil {
		return 0, fmt.Errorf("backward step: %w", err)
	}
	return field.MaxAbsDiff(w, back), nil
}

// MeanDrift returns |mean(Φ^steps(w)) − mean(w)|.
func MeanDrift(step compose.Stepper, w field.Field, dt float64, steps int) (float64, error) {
	out, err := compose.Advance(step, w, dt, steps)
	if err != nil {
		return 0, err
	}
	return math.Abs(out.Mean() - w.Mean()), nil
}

// Check runs both checks on a random field for conservative schemes and
// records skipped gates for dissipative ones.
func Check(step compose.Stepper, scheme compose.Scheme, g field.Grid, rng *rand.Rand, cfg Config, th gate.Thresholds) (Outcome, error) {
	if !scheme.Conservative() {
		reason := fmt.Sprintf("%s contains a dissipative step", scheme)
		return Outcome{Gates: []gate.Result{
			gate.Skip("reversibility", reason),
			gate.Skip("mean_drift", reason),
		}}, nil
	}
	if err := g.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("reversibility: %w", err)
	}

	w := field.RandomField(rng, g.N)
	dev, err := RoundTrip(step, w, cfg.Dt)
	if err != nil {
		return Outcome{}, fmt.Errorf("reversibility: %w", err)
	}
	drift, err := MeanDrift(step, w, cfg.Dt, cfg.Steps)
	if err != nil {
		return Outcome{}, fmt.Errorf("reversibility: %w", err)
	}
	return Outcome{
		Deviation: dev,
		MeanDrift: drift,
		Gates: []gate.Result{
			gate.AtMost("reversibility", dev, th.Reversibility),
			gate.AtMost("mean_drift", drift, th.MeanDrift),
		},
	}, nil
}
