package dissipative

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/metriplectic/internal/field"
)

// #region boundary
// Boundary selects a (Laplacian, face gradient) pair that satisfies
// summation by parts: Σ_faces g²·dx = −⟨u, Δh u⟩·dx.
type Boundary int

const (
	// Periodic uses the cyclic 3-point stencil and N cyclic faces.
	Periodic Boundary = iota
	// Neumann mirrors the boundary cells (zero normal derivative) and
	// uses the N−1 interior faces.
	Neumann
)

func (b Boundary) String() string {
	switch b {
	case Periodic:
		return "periodic"
	case Neumann:
		return "neumann"
	default:
		return fmt.Sprintf("boundary(%d)", int(b))
	}
}

// ParseBoundary maps "periodic" / "neumann" to a Boundary.
func ParseBoundary(s string) (Boundary, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "periodic":
		return Periodic, nil
	case "neumann":
		return Neumann, nil
	default:
		return 0, fmt.Errorf("unknown boundary %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (b Boundary) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler (used by JSON, YAML and env).
func (b *Boundary) UnmarshalText(text []byte) error {
	v, err := ParseBoundary(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

func (b Boundary) valid() bool {
	return b == Periodic || b == Neumann
}

// #endregion boundary

// #region laplacian
// Laplacian returns the second-difference Laplacian of u for this boundary.
func (b Boundary) Laplacian(u field.Field, dx float64) field.Field {
	n := len(u)
	out := make(field.Field, n)
	if n < 2 {
		return out
	}
	inv := 1 / (dx * dx)
	for i := 0; i < n; i++ {
		left, right := i-1, i+1
		switch b {
		case Neumann:
			if left < 0 {
				left = 0
			}
			if right == n {
				right = n - 1
			}
		default:
			left = (left + n) % n
			right %= n
		}
		out[i] = (u[right] - 2*u[i] + u[left]) * inv
	}
	return out
}

// FaceGradient returns forward differences (u_{i+1} − u_i)/dx on the faces
// that carry flux: N cyclic faces for Periodic, N−1 interior faces for Neumann.
func (b Boundary) FaceGradient(u field.Field, dx float64) []float64 {
	n := len(u)
	if n < 2 {
		return nil
	}
	faces := n
	if b == Neumann {
		faces = n - 1
	}
	g := make([]float64, faces)
	for i := 0; i < faces; i++ {
		g[i] = (u[(i+1)%n] - u[i]) / dx
	}
	return g
}

// #endregion laplacian
