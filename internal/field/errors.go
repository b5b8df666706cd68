package field

import "errors"

// Sentinel errors shared by the integrator and validator packages. Callers
// match them with errors.Is; packages wrap them with fmt.Errorf("...: %w").
var (
	// ErrInvalidGrid is returned when N <= 0 or dx <= 0 (or dx is not finite).
	ErrInvalidGrid = errors.New("field: invalid grid")

	// ErrDimensionMismatch indicates a field whose length differs from the grid size.
	ErrDimensionMismatch = errors.New("field: dimension mismatch")

	// ErrDegenerateStep is returned for dt == 0 (or non-finite dt) by steppers
	// that have no identity shortcut. Only the conservative step accepts dt == 0.
	ErrDegenerateStep = errors.New("field: degenerate time step")

	// ErrNegativeDiffusion indicates D < 0 in the step parameters.
	ErrNegativeDiffusion = errors.New("field: diffusion coefficient must be >= 0")

	// ErrUnknownScheme is returned when a scheme tag does not name a known composition.
	ErrUnknownScheme = errors.New("field: unknown scheme")

	// ErrInsufficientSamples marks a mode whose time series had fewer than
	// two positive-going zero crossings.
	ErrInsufficientSamples = errors.New("field: insufficient zero crossings")

	// ErrEmptySweep indicates a validator was given no dt values, seeds or modes.
	ErrEmptySweep = errors.New("field: empty sweep")
)
