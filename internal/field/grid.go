package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// #region grid
// Grid is a uniform periodic 1D grid with N points and spacing Dx (L = N·Dx).
type Grid struct {
	N  int     `json:"n" yaml:"n" env:"N"`
	Dx float64 `json:"dx" yaml:"dx" env:"DX"`
}

// NewGrid validates and returns a grid with n points and spacing dx.
func NewGrid(n int, dx float64) (Grid, error) {
	g := Grid{N: n, Dx: dx}
	if err := g.Validate(); err != nil {
		return Grid{}, err
	}
	return g, nil
}

// NewGridFromLength builds a grid of n points covering a period of length l.
func NewGridFromLength(n int, l float64) (Grid, error) {
	if n <= 0 {
		return Grid{}, fmt.Errorf("n=%d: %w", n, ErrInvalidGrid)
	}
	return NewGrid(n, l/float64(n))
}

// Validate reports ErrInvalidGrid for non-positive sizes or spacings.
func (g Grid) Validate() error {
	if g.N <= 0 {
		return fmt.Errorf("n=%d: %w", g.N, ErrInvalidGrid)
	}
	if !(g.Dx > 0) || math.IsInf(g.Dx, 0) {
		return fmt.Errorf("dx=%g: %w", g.Dx, ErrInvalidGrid)
	}
	return nil
}

// Length returns the period L = N·Dx.
func (g Grid) Length() float64 {
	return float64(g.N) * g.Dx
}

// Coordinates returns the node positions x_j = j·Dx, j = 0..N-1.
func (g Grid) Coordinates() []float64 {
	x := make([]float64, g.N)
	if g.N == 1 {
		return x
	}
	floats.Span(x, 0, g.Length()-g.Dx)
	return x
}

// Check verifies that f has exactly N samples.
func (g Grid) Check(f Field) error {
	if len(f) != g.N {
		return fmt.Errorf("len=%d, n=%d: %w", len(f), g.N, ErrDimensionMismatch)
	}
	return nil
}

// #endregion grid
