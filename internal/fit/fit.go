// Package fit holds the small statistical kernels shared by the validators:
// ordinary least squares with R² and the median.
package fit

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/danielpatrickdp/metriplectic/internal/field"
)

// ErrDegenerate is returned when the abscissae carry no spread.
var ErrDegenerate = errors.New("fit: degenerate abscissae")

// Line is y = Slope·x + Intercept with its coefficient of determination.
type Line struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	R2        float64 `json:"r2"`
}

// Linear fits y = slope·x + intercept by ordinary least squares.
// R² = 1 − SS_res/SS_tot.
func Linear(x, y []float64) (Line, error) {
	if len(x) != len(y) {
		return Line{}, fmt.Errorf("fit: len(x)=%d, len(y)=%d: %w", len(x), len(y), field.ErrDimensionMismatch)
	}
	if len(x) < 2 {
		return Line{}, fmt.Errorf("fit: %d points: %w", len(x), field.ErrInsufficientSamples)
	}
	if stat.Variance(x, nil) == 0 {
		return Line{}, ErrDegenerate
	}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	r2 := stat.RSquared(x, y, nil, alpha, beta)
	return Line{Slope: beta, Intercept: alpha, R2: r2}, nil
}

// LogLog fits log y = slope·log x + intercept. Every value must be positive.
func LogLog(x, y []float64) (Line, error) {
	if len(x) != len(y) {
		return Line{}, fmt.Errorf("fit: len(x)=%d, len(y)=%d: %w", len(x), len(y), field.ErrDimensionMismatch)
	}
	lx := make([]float64, len(x))
	ly := make([]float64, len(y))
	for i := range x {
		if !(x[i] > 0) || !(y[i] > 0) {
			return Line{}, fmt.Errorf("fit: log of non-positive value at %d (x=%g, y=%g)", i, x[i], y[i])
		}
		lx[i] = math.Log(x[i])
		ly[i] = math.Log(y[i])
	}
	return Linear(lx, ly)
}

// Median returns the median of v (mean of the two middle values for even
// lengths) without reordering v. The median of an empty slice is NaN.
func Median(v []float64) float64 {
	n := len(v)
	if n == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
