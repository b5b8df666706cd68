package dispersion

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/metriplectic/internal/field"
	"github.com/danielpatrickdp/metriplectic/internal/spectral"
)

// #region klein-gordon
// KleinGordon integrates φtt = c²φxx − m²φ with position-Verlet leapfrog:
//
//	φ½ = φ + dt/2·π
//	π' = π + dt·(c²Δφ½ − m²φ½)
//	φ' = φ½ + dt/2·π'
//
// The curvature Δφ is spectral.
type KleinGordon struct {
	ops spectral.Ops
	c2  float64
	m2  float64
}

// NewKleinGordon binds the integrator to a grid. cache may be nil.
func NewKleinGordon(g field.Grid, c, m float64, cache *spectral.Cache) (*KleinGordon, error) {
	ops, err := spectral.NewOps(g, cache)
	if err != nil {
		return nil, fmt.Errorf("klein-gordon: %w", err)
	}
	return &KleinGordon{ops: ops, c2: c * c, m2: m * m}, nil
}

// Step advances w by dt and returns a fresh wave field.
func (kg *KleinGordon) Step(w field.WaveField, dt float64) (field.WaveField, error) {
	if err := kg.ops.Grid.Check(w.Phi); err != nil {
		return field.WaveField{}, err
	}
	if err := kg.ops.Grid.Check(w.Pi); err != nil {
		return field.WaveField{}, err
	}
	if dt == 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return field.WaveField{}, fmt.Errorf("leapfrog dt=%g: %w", dt, field.ErrDegenerateStep)
	}

	n := len(w.Phi)
	half := make(field.Field, n)
	for i := range half {
		half[i] = w.Phi[i] + dt/2*w.Pi[i]
	}
	lap := kg.ops.Laplacian(half)

	out := field.WaveField{Phi: make(field.Field, n), Pi: make(field.Field, n)}
	for i := range half {
		out.Pi[i] = w.Pi[i] + dt*(kg.c2*lap[i]-kg.m2*half[i])
		out.Phi[i] = half[i] + dt/2*out.Pi[i]
	}
	return out, nil
}

// Energy returns H = dx·Σ(π²/2 + c²/2·(∂xφ)² + m²/2·φ²).
func (kg *KleinGordon) Energy(w field.WaveField) float64 {
	grad := kg.ops.Gradient(w.Phi)
	var h float64
	for i := range w.Phi {
		h += w.Pi[i]*w.Pi[i]/2 + kg.c2*grad[i]*grad[i]/2 + kg.m2*w.Phi[i]*w.Phi[i]/2
	}
	return h * kg.ops.Grid.Dx
}

// #endregion klein-gordon

// #region zero-crossings
// ZeroCrossingFrequency estimates the angular frequency of y sampled every
// dt from its positive-going zero crossings (y[i−1] < 0 <= y[i]), locating
// each crossing by linear interpolation. ω = 2π/mean(period). With fewer
// than two crossings it returns NaN and ErrInsufficientSamples.
func ZeroCrossingFrequency(y []float64, dt float64) (omega float64, crossings int, err error) {
	var first, last float64
	for i := 1; i < len(y); i++ {
		if y[i-1] < 0 && y[i] >= 0 {
			t := (float64(i-1) + -y[i-1]/(y[i]-y[i-1])) * dt
			if crossings == 0 {
				first = t
			}
			last = t
			crossings++
		}
	}
	if crossings < 2 {
		return math.NaN(), crossings, fmt.Errorf("%d positive-going crossings: %w", crossings, field.ErrInsufficientSamples)
	}
	period := (last - first) / float64(crossings-1)
	return 2 * math.Pi / period, crossings, nil
}

// #endregion zero-crossings
