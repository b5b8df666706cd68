package dissipative

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/metriplectic/internal/field"
)

// SingularityEps is the |φ¹ − φ⁰| threshold below which the discrete
// gradient falls back to f(φ⁰).
const SingularityEps = 1e-14

// #region params
// Params are the coefficients of the reaction–diffusion law.
type Params struct {
	D      float64 `json:"D" yaml:"D" env:"D"`
	R      float64 `json:"r" yaml:"r" env:"R"`
	U      float64 `json:"u" yaml:"u" env:"U"`
	Lambda float64 `json:"lambda" yaml:"lambda" env:"LAMBDA"`
}

// Validate rejects D < 0 and non-finite coefficients.
func (p Params) Validate() error {
	if p.D < 0 {
		return fmt.Errorf("D=%g: %w", p.D, field.ErrNegativeDiffusion)
	}
	for _, v := range []float64{p.D, p.R, p.U, p.Lambda} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("dissipative: non-finite coefficient in %+v", p)
		}
	}
	return nil
}

// Reaction returns f(φ) = rφ − uφ² − λφ³.
func (p Params) Reaction(phi float64) float64 {
	return phi * (p.R - phi*(p.U+p.Lambda*phi))
}

// ReactionSlope returns f′(φ) = r − 2uφ − 3λφ².
func (p Params) ReactionSlope(phi float64) float64 {
	return p.R - 2*p.U*phi - 3*p.Lambda*phi*phi
}

// Potential returns V(φ) = −rφ²/2 + uφ³/3 + λφ⁴/4, so that V′ = −f.
func (p Params) Potential(phi float64) float64 {
	p2 := phi * phi
	return -p.R*p2/2 + p.U*p2*phi/3 + p.Lambda*p2*p2/4
}

// DiscreteGradient returns f̄(a, b) = −(V(b) − V(a))/(b − a), or f(a) when
// |b − a| <= SingularityEps.
func (p Params) DiscreteGradient(a, b float64) float64 {
	d := b - a
	if math.Abs(d) <= SingularityEps {
		return p.Reaction(a)
	}
	return -(p.Potential(b) - p.Potential(a)) / d
}

// #endregion params
