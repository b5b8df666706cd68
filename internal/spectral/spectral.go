package spectral

import (
	"math"

	"github.com/mjibson/go-dsp/fft"

	"github.com/danielpatrickdp/metriplectic/internal/field"
)

// #region wavenumbers
// Wavenumbers returns 2π·fftfreq(n, dx) in FFT bin order: 0, 1, …, then the
// negative frequencies. For even n the Nyquist bin n/2 is negative.
func Wavenumbers(n int, dx float64) []float64 {
	k := make([]float64, n)
	scale := 2 * math.Pi / (float64(n) * dx)
	for i := 0; i < n; i++ {
		if i < (n+1)/2 {
			k[i] = float64(i) * scale
		} else {
			k[i] = float64(i-n) * scale
		}
	}
	return k
}

// OddWavenumbers is Wavenumbers with the Nyquist bin zeroed for even n.
// Use it for first-order (odd) multipliers.
func OddWavenumbers(n int, dx float64) []float64 {
	k := Wavenumbers(n, dx)
	if n%2 == 0 && n > 0 {
		k[n/2] = 0
	}
	return k
}

// #endregion wavenumbers

// #region operators
// Laplacian returns the spectral second derivative of u on a grid of spacing dx.
func Laplacian(u field.Field, dx float64) field.Field {
	return laplacianWith(u, Wavenumbers(len(u), dx))
}

// Gradient returns the spectral first derivative of u on a grid of spacing dx.
func Gradient(u field.Field, dx float64) field.Field {
	return gradientWith(u, OddWavenumbers(len(u), dx))
}

func laplacianWith(u field.Field, k []float64) field.Field {
	return Apply(u, func(i int) complex128 {
		return complex(-k[i]*k[i], 0)
	})
}

func gradientWith(u field.Field, kOdd []float64) field.Field {
	return Apply(u, func(i int) complex128 {
		return complex(0, kOdd[i])
	})
}

// Apply multiplies the spectrum of u bin by bin with mult(i) and returns the
// real part of the inverse transform. u is not modified.
func Apply(u field.Field, mult func(i int) complex128) field.Field {
	if len(u) == 0 {
		return field.Field{}
	}
	spec := fft.FFTReal(u)
	for i := range spec {
		spec[i] *= mult(i)
	}
	back := fft.IFFT(spec)
	out := make(field.Field, len(u))
	for i, v := range back {
		out[i] = real(v)
	}
	return out
}

// #endregion operators
