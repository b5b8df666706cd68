// Package compose builds the JOnly, MOnly and Strang steppers from the two
// primitive steps by plain function composition.
package compose

import (
	"fmt"

	"github.com/danielpatrickdp/metriplectic/internal/conservative"
	"github.com/danielpatrickdp/metriplectic/internal/dissipative"
	"github.com/danielpatrickdp/metriplectic/internal/field"
	"github.com/danielpatrickdp/metriplectic/internal/spectral"
)

// #region types
// Params collects every physical coefficient a scheme may read. Unused
// coefficients are ignored by the scheme (C by MOnly, D/R/U/Lambda by JOnly).
// Mass is only read by the dispersion validator.
type Params struct {
	C      float64 `json:"c" yaml:"c" env:"C"`
	D      float64 `json:"D" yaml:"D" env:"D"`
	R      float64 `json:"r" yaml:"r" env:"R"`
	U      float64 `json:"u" yaml:"u" env:"U"`
	Lambda float64 `json:"lambda" yaml:"lambda" env:"LAMBDA"`
	Mass   float64 `json:"m" yaml:"m" env:"MASS"`
}

// Reaction returns the coefficients of the dissipative law.
func (p Params) Reaction() dissipative.Params {
	return dissipative.Params{D: p.D, R: p.R, U: p.U, Lambda: p.Lambda}
}

// Spec fully determines a stepper for a given grid.
type Spec struct {
	Scheme   Scheme               `json:"scheme" yaml:"scheme" env:"SCHEME"`
	Params   Params               `json:"params" yaml:"params"`
	Boundary dissipative.Boundary `json:"boundary" yaml:"boundary" env:"BOUNDARY"`
	Picard   dissipative.Config   `json:"picard" yaml:"picard"`
}

// DefaultSpec returns a Strang spec with the default Picard policy.
func DefaultSpec() Spec {
	return Spec{
		Scheme:   JMJStrang,
		Params:   Params{C: 1, D: 0.1, R: 0.5, U: 0.25},
		Boundary: dissipative.Periodic,
		Picard:   dissipative.DefaultConfig(),
	}
}

// Validate rejects unknown schemes and negative diffusion.
func (s Spec) Validate() error {
	if !s.Scheme.valid() {
		return fmt.Errorf("validate spec: %s: %w", s.Scheme, field.ErrUnknownScheme)
	}
	if err := s.Params.Reaction().Validate(); err != nil {
		return fmt.Errorf("validate spec: %w", err)
	}
	return nil
}

// Stepper advances a field by dt and returns a fresh field.
type Stepper func(w field.Field, dt float64) (field.Field, error)

// Options carries optional shared resources.
type Options struct {
	Cache *spectral.Cache // wavenumber memoization; nil builds private tables
}

// #endregion types

// #region build
// Build returns the stepper for spec on grid g. Configuration errors
// (invalid grid, unknown scheme, D < 0) are returned immediately.
func Build(g field.Grid, spec Spec, opts Options) (Stepper, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("build %s: %w", spec.Scheme, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	switch spec.Scheme {
	case JOnly:
		j, err := conservative.NewAdvector(g, spec.Params.C, opts.Cache)
		if err != nil {
			return nil, fmt.Errorf("build j_only: %w", err)
		}
		return j.Step, nil

	case MOnly:
		m, err := dissipative.NewStepper(g, spec.Params.Reaction(), spec.Boundary, spec.Picard)
		if err != nil {
			return nil, fmt.Errorf("build m_only: %w", err)
		}
		return m.Step, nil

	case JMJStrang:
		j, err := conservative.NewAdvector(g, spec.Params.C, opts.Cache)
		if err != nil {
			return nil, fmt.Errorf("build jmj: %w", err)
		}
		m, err := dissipative.NewStepper(g, spec.Params.Reaction(), spec.Boundary, spec.Picard)
		if err != nil {
			return nil, fmt.Errorf("build jmj: %w", err)
		}
		return Strang(j.Step, m.Step), nil
	}
	return nil, fmt.Errorf("build %s: %w", spec.Scheme, field.ErrUnknownScheme)
}

// Strang returns A(dt/2)∘B(dt)∘A(dt/2).
func Strang(a, b Stepper) Stepper {
	return func(w field.Field, dt float64) (field.Field, error) {
		half, err := a(w, dt/2)
		if err != nil {
			return nil, err
		}
		mid, err := b(half, dt)
		if err != nil {
			return nil, err
		}
		return a(mid, dt/2)
	}
}

// Advance applies step n times.
func Advance(step Stepper, w field.Field, dt float64, n int) (field.Field, error) {
	out := w
	for i := 0; i < n; i++ {
		next, err := step(out, dt)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		out = next
	}
	if n <= 0 {
		return w.Clone(), nil
	}
	return out, nil
}

// #endregion build
