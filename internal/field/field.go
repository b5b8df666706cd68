package field

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// #region field
// Field is a real-valued sample of a scalar field on a Grid. Operations in
// this module never mutate a Field they receive; they return a new one.
type Field []float64

// Clone returns an independent copy of f.
func (f Field) Clone() Field {
	c := make(Field, len(f))
	copy(c, f)
	return c
}

// Norm2 returns the discrete L2 norm sqrt(Σ f_i²).
func (f Field) Norm2() float64 {
	return floats.Norm(f, 2)
}

// Mean returns the arithmetic mean (the mode-0 amplitude).
func (f Field) Mean() float64 {
	if len(f) == 0 {
		return 0
	}
	return floats.Sum(f) / float64(len(f))
}

// MaxAbsDiff returns ‖a − b‖∞. Both fields must have the same length.
func MaxAbsDiff(a, b Field) float64 {
	return floats.Distance(a, b, math.Inf(1))
}

// IsFinite reports whether every sample is finite.
func (f Field) IsFinite() bool {
	for _, v := range f {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// #endregion field

// #region wave-field
// WaveField is the (φ, π) pair of a second-order system.
type WaveField struct {
	Phi Field
	Pi  Field
}

// Clone returns an independent copy of w.
func (w WaveField) Clone() WaveField {
	return WaveField{Phi: w.Phi.Clone(), Pi: w.Pi.Clone()}
}

// Concat returns the stacked vector (φ; π) of length 2N.
func (w WaveField) Concat() []float64 {
	v := make([]float64, 0, len(w.Phi)+len(w.Pi))
	v = append(v, w.Phi...)
	return append(v, w.Pi...)
}

// #endregion wave-field
