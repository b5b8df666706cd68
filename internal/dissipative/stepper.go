package dissipative

import (
	"errors"
	"fmt"
	"math"

	"github.com/danielpatrickdp/metriplectic/internal/field"
)

// ErrNotConverged is returned by the convergence-checked variant when the
// Picard update is still above Tolerance after MaxIterations sweeps.
var ErrNotConverged = errors.New("dissipative: picard iteration did not converge")

// #region config
// Config selects the Picard iteration policy.
type Config struct {
	Iterations    int     `json:"iterations" yaml:"iterations" env:"PICARD_ITERATIONS"`             // fixed sweeps after the predictor
	Tolerance     float64 `json:"tolerance" yaml:"tolerance" env:"PICARD_TOLERANCE"`                // >0 enables the convergence-checked variant
	MaxIterations int     `json:"max_iterations" yaml:"max_iterations" env:"PICARD_MAX_ITERATIONS"` // cap for the checked variant
}

// DefaultConfig returns the fixed three-sweep policy.
func DefaultConfig() Config {
	return Config{
		Iterations:    3,
		Tolerance:     0,
		MaxIterations: 50,
	}
}

// Checked reports whether the convergence-checked variant is active.
func (c Config) Checked() bool {
	return c.Tolerance > 0
}

func (c Config) sweeps() int {
	if c.Checked() {
		if c.MaxIterations > 0 {
			return c.MaxIterations
		}
		return DefaultConfig().MaxIterations
	}
	if c.Iterations < 0 {
		return 0
	}
	return c.Iterations
}

// #endregion config

// #region stepper
// Stepper is the M step bound to a grid, coefficients and boundary.
type Stepper struct {
	grid     field.Grid
	params   Params
	boundary Boundary
	config   Config
}

// Stats describes one step's Picard iteration.
type Stats struct {
	Sweeps    int     // Picard sweeps performed after the predictor
	LastDelta float64 // ‖φ_k − φ_{k−1}‖∞ of the final sweep
	Converged bool    // LastDelta <= Tolerance (always true for the fixed variant)
}

// NewStepper validates its inputs and returns an M stepper.
func NewStepper(g field.Grid, p Params, b Boundary, cfg Config) (*Stepper, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !b.valid() {
		return nil, fmt.Errorf("dissipative: invalid boundary %s", b)
	}
	return &Stepper{grid: g, params: p, boundary: b, config: cfg}, nil
}

// Params returns the reaction–diffusion coefficients.
func (s *Stepper) Params() Params { return s.params }

// Boundary returns the active boundary bundle.
func (s *Stepper) Boundary() Boundary { return s.boundary }

// Lyapunov evaluates the energy consistent with this stepper's boundary.
func (s *Stepper) Lyapunov(phi field.Field) float64 {
	return Lyapunov(phi, s.grid.Dx, s.params, s.boundary)
}

// ContractionFactor estimates the per-sweep Picard contraction
// q = |dt|·(2D/dx² + max|f′(φ)|) around phi.
func (s *Stepper) ContractionFactor(phi field.Field, dt float64) float64 {
	var slope float64
	for _, v := range phi {
		slope = math.Max(slope, math.Abs(s.params.ReactionSlope(v)))
	}
	return math.Abs(dt) * (2*s.params.D/(s.grid.Dx*s.grid.Dx) + slope)
}

// Step advances phi by dt.
func (s *Stepper) Step(phi field.Field, dt float64) (field.Field, error) {
	out, _, err := s.StepWithStats(phi, dt)
	return out, err
}

// StepWithStats advances phi by dt and reports the iteration statistics.
// With the checked variant, a non-converged result is returned together
// with ErrNotConverged.
func (s *Stepper) StepWithStats(phi field.Field, dt float64) (field.Field, Stats, error) {
	if err := s.grid.Check(phi); err != nil {
		return nil, Stats{}, err
	}
	if dt == 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return nil, Stats{}, fmt.Errorf("m step dt=%g: %w", dt, field.ErrDegenerateStep)
	}

	dx := s.grid.Dx
	d := s.params.D
	lap0 := s.boundary.Laplacian(phi, dx)

	// Explicit-Euler predictor.
	next := make(field.Field, len(phi))
	for i, v := range phi {
		next[i] = v + dt*(d*lap0[i]+s.params.Reaction(v))
	}

	stats := Stats{Converged: !s.config.Checked()}
	sweeps := s.config.sweeps()
	for k := 0; k < sweeps; k++ {
		lap1 := s.boundary.Laplacian(next, dx)
		var delta float64
		for i, v := range phi {
			upd := v + dt*(d*(lap0[i]+lap1[i])/2+s.params.DiscreteGradient(v, next[i]))
			delta = math.Max(delta, math.Abs(upd-next[i]))
			next[i] = upd
		}
		stats.Sweeps = k + 1
		stats.LastDelta = delta
		if s.config.Checked() && delta <= s.config.Tolerance {
			stats.Converged = true
			break
		}
	}

	if !stats.Converged {
		return next, stats, fmt.Errorf("after %d sweeps (delta %.3g): %w", stats.Sweeps, stats.LastDelta, ErrNotConverged)
	}
	return next, stats, nil
}

// #endregion stepper

// Step is the free-function form of the M step with a fixed sweep count.
func Step(phi field.Field, dt, dx float64, p Params, b Boundary, iterations int) (field.Field, error) {
	g, err := field.NewGrid(len(phi), dx)
	if err != nil {
		return nil, err
	}
	s, err := NewStepper(g, p, b, Config{Iterations: iterations})
	if err != nil {
		return nil, err
	}
	return s.Step(phi, dt)
}
