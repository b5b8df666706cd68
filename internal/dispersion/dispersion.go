// Package dispersion measures the empirical dispersion relation of the
// Klein–Gordon leapfrog: each Fourier mode is evolved on its own, its
// frequency is read off the zero crossings of its projection, and
// ω² = slope·k² + intercept is fitted across modes.
package dispersion

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/metriplectic/internal/field"
	"github.com/danielpatrickdp/metriplectic/internal/fit"
	"github.com/danielpatrickdp/metriplectic/internal/gate"
	"github.com/danielpatrickdp/metriplectic/internal/spectral"
)

// #region policy
// InsufficientPolicy decides what happens to a mode with fewer than two
// zero crossings.
type InsufficientPolicy int

const (
	// Exclude drops the mode from the fit and keeps it in the samples as NaN.
	Exclude InsufficientPolicy = iota
	// Fail aborts the sweep with ErrInsufficientSamples.
	Fail
)

func (p InsufficientPolicy) String() string {
	switch p {
	case Exclude:
		return "exclude"
	case Fail:
		return "fail"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p InsufficientPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *InsufficientPolicy) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "exclude":
		*p = Exclude
	case "fail":
		*p = Fail
	default:
		return fmt.Errorf("unknown insufficient-samples policy %q", text)
	}
	return nil
}

// #endregion policy

// #region config
// Config describes one dispersion sweep.
type Config struct {
	Grid      field.Grid         `json:"grid" yaml:"grid" envPrefix:"GRID_"`
	Modes     []int              `json:"modes" yaml:"modes" env:"MODES"`
	C         float64            `json:"c" yaml:"c" env:"C"`
	Mass      float64            `json:"m" yaml:"m" env:"MASS"`
	Amplitude float64            `json:"amplitude" yaml:"amplitude" env:"AMPLITUDE"`
	Dt        float64            `json:"dt" yaml:"dt" env:"DT"`
	Steps     int                `json:"steps" yaml:"steps" env:"STEPS"`
	Policy    InsufficientPolicy `json:"policy" yaml:"policy" env:"POLICY"`
	Workers   int                `json:"workers" yaml:"workers" env:"WORKERS"` // <= 0 uses GOMAXPROCS
}

// DefaultConfig is the reference sweep: N=512, dx=1, eight modes, c=m=1.
func DefaultConfig() Config {
	return Config{
		Grid:      field.Grid{N: 512, Dx: 1},
		Modes:     []int{1, 2, 3, 4, 5, 6, 8, 10},
		C:         1,
		Mass:      1,
		Amplitude: 1e-6,
		Dt:        0.01,
		Steps:     8000,
		Policy:    Exclude,
	}
}

// #endregion config

// #region types
// Sample is the measured frequency of one mode. Omega is NaN when the mode
// was excluded.
type Sample struct {
	Mode      int     `json:"mode"`
	K2        float64 `json:"k2"`
	Omega     float64 `json:"omega"`
	Crossings int     `json:"crossings"`
	Excluded  bool    `json:"excluded,omitempty"`
}

// Series is the plot series handed to an external plotter (linear axes).
type Series struct {
	K2     []float64 `json:"k2"`
	Omega2 []float64 `json:"omega2"`
}

// Result is the outcome of one sweep.
type Result struct {
	Samples []Sample      `json:"samples"`
	Series  Series        `json:"series"`
	Fit     fit.Line      `json:"fit"`
	Gates   []gate.Result `json:"gates"`
}

// #endregion types

// #region mode
// Mode evolves φ = A·sin(kx), π = 0 for cfg.Steps steps and returns the
// projection y(t) = (2/N)·Σφ·sin(kx), sampled at t = 0, dt, …, Steps·dt.
func Mode(kg *KleinGordon, cfg Config, m int) (k2 float64, y []float64, err error) {
	if cfg.Steps < 0 {
		return 0, nil, fmt.Errorf("mode %d: steps=%d: %w", m, cfg.Steps, field.ErrDegenerateStep)
	}
	g := cfg.Grid
	k := 2 * math.Pi * float64(m) / g.Length()
	x := g.Coordinates()
	basis := make([]float64, g.N)
	w := field.WaveField{Phi: make(field.Field, g.N), Pi: make(field.Field, g.N)}
	for j := range basis {
		basis[j] = math.Sin(k * x[j])
		w.Phi[j] = cfg.Amplitude * basis[j]
	}

	project := func(phi field.Field) float64 {
		var s float64
		for j, b := range basis {
			s += phi[j] * b
		}
		return 2 * s / float64(g.N)
	}

	y = make([]float64, 0, cfg.Steps+1)
	y = append(y, project(w.Phi))
	for s := 0; s < cfg.Steps; s++ {
		w, err = kg.Step(w, cfg.Dt)
		if err != nil {
			return 0, nil, fmt.Errorf("mode %d step %d: %w", m, s, err)
		}
		y = append(y, project(w.Phi))
	}
	return k * k, y, nil
}

// #endregion mode

// #region sweep
// Sweep runs every mode on a bounded worker pool, fits ω² against k² over
// the included modes and gates R², slope against c² and intercept against m².
func Sweep(ctx context.Context, cfg Config, th gate.Thresholds, cache *spectral.Cache) (Result, error) {
	if len(cfg.Modes) == 0 {
		return Result{}, fmt.Errorf("dispersion sweep: no modes: %w", field.ErrEmptySweep)
	}
	kg, err := NewKleinGordon(cfg.Grid, cfg.C, cfg.Mass, cache)
	if err != nil {
		return Result{}, fmt.Errorf("dispersion sweep: %w", err)
	}
	if cfg.Dt == 0 || math.IsNaN(cfg.Dt) || math.IsInf(cfg.Dt, 0) {
		return Result{}, fmt.Errorf("dispersion sweep: dt=%g: %w", cfg.Dt, field.ErrDegenerateStep)
	}
	if cfg.Steps < 0 {
		return Result{}, fmt.Errorf("dispersion sweep: steps=%d: %w", cfg.Steps, field.ErrDegenerateStep)
	}

	samples := make([]Sample, len(cfg.Modes))
	g, ctx := errgroup.WithContext(ctx)
	limit := cfg.Workers
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)
	for i, m := range cfg.Modes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			k2, y, err := Mode(kg, cfg, m)
			if err != nil {
				return err
			}
			omega, crossings, err := ZeroCrossingFrequency(y, cfg.Dt)
			samples[i] = Sample{Mode: m, K2: k2, Omega: omega, Crossings: crossings}
			if err != nil {
				if cfg.Policy == Fail {
					return fmt.Errorf("mode %d: %w", m, err)
				}
				samples[i].Excluded = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("dispersion sweep: %w", err)
	}

	res := Result{Samples: samples}
	for _, s := range samples {
		if s.Excluded {
			continue
		}
		res.Series.K2 = append(res.Series.K2, s.K2)
		res.Series.Omega2 = append(res.Series.Omega2, s.Omega*s.Omega)
	}

	line, err := fit.Linear(res.Series.K2, res.Series.Omega2)
	if err != nil {
		detail := err.Error()
		if errors.Is(err, field.ErrInsufficientSamples) {
			detail = fmt.Sprintf("%d of %d modes usable: %v", len(res.Series.K2), len(samples), err)
		}
		res.Gates = []gate.Result{gate.Fail("dispersion_fit", detail)}
		return res, nil
	}
	res.Fit = line
	c2, m2 := cfg.C*cfg.C, cfg.Mass*cfg.Mass
	res.Gates = []gate.Result{
		gate.AtLeast("dispersion_r2", line.R2, th.MinR2),
		gate.RelativeTo("dispersion_slope", line.Slope, c2, th.DispersionRel),
		gate.RelativeTo("dispersion_intercept", line.Intercept, m2, th.DispersionRel),
	}
	return res, nil
}

// #endregion sweep
