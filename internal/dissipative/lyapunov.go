package dissipative

import (
	"github.com/danielpatrickdp/metriplectic/internal/field"
)

// Lyapunov returns L[φ] = dx·(D/2·Σ_faces |∇hφ|² + Σ_i V(φ_i)) using the
// face gradient of the given boundary.
func Lyapunov(phi field.Field, dx float64, p Params, b Boundary) float64 {
	var grad2 float64
	for _, g := range b.FaceGradient(phi, dx) {
		grad2 += g * g
	}
	var pot float64
	for _, v := range phi {
		pot += p.Potential(v)
	}
	return dx * (p.D/2*grad2 + pot)
}
