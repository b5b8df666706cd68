// Package spectral implements FFT-based differential operators on a periodic
// 1D grid: the wavenumber table ω = 2π·fftfreq(N, dx), the Laplacian
// (multiplier −ω²) and the gradient (multiplier iω).
//
// The operators are exact to rounding for band-limited periodic signals.
// Under-resolved content aliases; nothing here corrects for that.
//
// For even N the Nyquist wavenumber is dropped from odd-order multipliers
// (gradient, phase shift). The derivative of the Nyquist mode is not a real
// field, and keeping it would make the real-part projection lossy.
package spectral
