// Package energy watches the Lyapunov functional along M trajectories.
package energy

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/metriplectic/internal/dissipative"
	"github.com/danielpatrickdp/metriplectic/internal/field"
	"github.com/danielpatrickdp/metriplectic/internal/gate"
)

// #region monitor
// Monitor runs M steps from random fields and checks that L never rises by
// more than the configured noise floor.
type Monitor struct {
	config MonitorConfig
}

// NewMonitor creates a monitor with the given configuration.
func NewMonitor(config MonitorConfig) *Monitor {
	return &Monitor{config: config}
}

// Run steps a normal random field per seed with s and records the largest
// per-step ΔL. The Picard contraction factor at the initial field is
// reported but does not gate.
func (m *Monitor) Run(s *dissipative.Stepper) (Result, error) {
	if len(m.config.Seeds) == 0 {
		return Result{}, fmt.Errorf("lyapunov monitor: no seeds: %w", field.ErrEmptySweep)
	}
	steps := m.config.Steps
	if steps <= 0 {
		steps = 1
	}

	var metrics []Metric
	worst := math.Inf(-1)
	contraction := 0.0
	for _, seed := range m.config.Seeds {
		phi := field.RandomField(field.NewRand(seed), m.config.Grid.N)
		contraction = math.Max(contraction, s.ContractionFactor(phi, m.config.Dt))

		seedWorst := math.Inf(-1)
		l0 := s.Lyapunov(phi)
		for k := 0; k < steps; k++ {
			next, err := s.Step(phi, m.config.Dt)
			if err != nil {
				return Result{}, fmt.Errorf("lyapunov monitor seed %d step %d: %w", seed, k, err)
			}
			l1 := s.Lyapunov(next)
			seedWorst = math.Max(seedWorst, l1-l0)
			phi, l0 = next, l1
		}
		worst = math.Max(worst, seedWorst)
		metrics = append(metrics, Metric{
			Name:  fmt.Sprintf("delta_l_seed_%d", seed),
			Value: seedWorst,
			Pass:  seedWorst <= m.config.MaxDeltaL,
		})
	}

	// Informational only.
	metrics = append(metrics, Metric{
		Name:  "picard_contraction",
		Value: contraction,
		Pass:  contraction < 1,
	})

	g := gate.AtMost("lyapunov_max_delta", worst, m.config.MaxDeltaL)
	reason := "energy non-increasing within tolerance"
	if !g.Passed {
		reason = fmt.Sprintf("lyapunov rose by %.4g (tolerance %.4g)", worst, m.config.MaxDeltaL)
	}
	return Result{
		Passed:  g.Passed,
		Metrics: metrics,
		Reason:  reason,
		Gates:   []gate.Result{g},
	}, nil
}

// #endregion monitor
