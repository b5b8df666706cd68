// Package structure probes the algebraic structure of the two generators:
// J must be skew-symmetric and M positive semidefinite. Both checks are
// statistical: random vectors are drawn from a caller-supplied RNG and the
// quadratic form ⟨v, Av⟩·dx is gated.
package structure

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/danielpatrickdp/metriplectic/internal/dissipative"
	"github.com/danielpatrickdp/metriplectic/internal/field"
	"github.com/danielpatrickdp/metriplectic/internal/fit"
	"github.com/danielpatrickdp/metriplectic/internal/gate"
)

// DefaultDraws is the number of random vectors per test.
const DefaultDraws = 100

// Outcome holds the per-draw values of one structure test and its gate.
type Outcome struct {
	Values    []float64   `json:"values"`
	Statistic float64     `json:"statistic"` // median |value| for skew, min value for PSD
	Result    gate.Result `json:"result"`
}

// #region operators
// ApplyJ applies the canonical symplectic matrix [[0, I], [−I, 0]] to
// v = (φ; π), returning (π; −φ).
func ApplyJ(v []float64) ([]float64, error) {
	if len(v)%2 != 0 {
		return nil, fmt.Errorf("apply J: odd length %d: %w", len(v), field.ErrDimensionMismatch)
	}
	n := len(v) / 2
	out := make([]float64, len(v))
	copy(out[:n], v[n:])
	for i := 0; i < n; i++ {
		out[n+i] = -v[i]
	}
	return out, nil
}

// ApplyM applies M = D·(−Δh) with the boundary's Laplacian.
func ApplyM(u field.Field, dx, d float64, b dissipative.Boundary) field.Field {
	out := b.Laplacian(u, dx)
	floats.Scale(-d, out)
	return out
}

// #endregion operators

// #region tests
// SkewTest draws random v of length 2N and gates median |⟨v, Jv⟩·dx| <= tol.
func SkewTest(rng *rand.Rand, g field.Grid, draws int, tol float64) (Outcome, error) {
	if err := g.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("skew test: %w", err)
	}
	draws = drawCount(draws)

	values := make([]float64, draws)
	abs := make([]float64, draws)
	for d := range values {
		v := field.RandomField(rng, 2*g.N)
		jv, err := ApplyJ(v)
		if err != nil {
			return Outcome{}, err
		}
		values[d] = floats.Dot(v, jv) * g.Dx
		abs[d] = math.Abs(values[d])
	}

	med := fit.Median(abs)
	return Outcome{
		Values:    values,
		Statistic: med,
		Result:    gate.AtMost("skew_median_abs", med, tol),
	}, nil
}

// PSDTest draws random u of length N and gates min ⟨u, Mu⟩·dx >= −tol.
func PSDTest(rng *rand.Rand, g field.Grid, d float64, b dissipative.Boundary, draws int, tol float64) (Outcome, error) {
	if err := g.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("psd test: %w", err)
	}
	if d < 0 {
		return Outcome{}, fmt.Errorf("psd test: D=%g: %w", d, field.ErrNegativeDiffusion)
	}
	draws = drawCount(draws)

	values := make([]float64, draws)
	for i := range values {
		u := field.RandomField(rng, g.N)
		values[i] = floats.Dot(u, ApplyM(u, g.Dx, d, b)) * g.Dx
	}

	lowest := floats.Min(values)
	res := gate.AtLeast("psd_min", lowest, -tol)
	var negative int
	for _, v := range values {
		if v < -tol {
			negative++
		}
	}
	res.Detail = fmt.Sprintf("%d of %d draws below -%.0e", negative, draws, tol)
	return Outcome{
		Values:    values,
		Statistic: lowest,
		Result:    res,
	}, nil
}

// #endregion tests

func drawCount(draws int) int {
	if draws <= 0 {
		return DefaultDraws
	}
	return draws
}
