// Package convergence certifies the temporal order of a stepper with the
// two-grid (Richardson) error estimate and a log-log least-squares fit.
package convergence

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/metriplectic/internal/compose"
	"github.com/danielpatrickdp/metriplectic/internal/field"
	"github.com/danielpatrickdp/metriplectic/internal/fit"
	"github.com/danielpatrickdp/metriplectic/internal/gate"
)

// #region expectation
// Expectation is the per-scheme claim being certified. Order is the
// expected log-log slope of the two-grid error, which is the local order
// (global order + 1). Exact schemes are instead required to stay at the
// floating-point floor: every median error <= ExactTol.
type Expectation struct {
	Order    float64 `json:"order" yaml:"order"`
	Exact    bool    `json:"exact" yaml:"exact"`
	ExactTol float64 `json:"exact_tol" yaml:"exact_tol"`
}

// DefaultExpectation returns the empirically derived expectation for s.
// J is exact in time. The AVF step and its Strang composition with the
// exact J are second order, so their two-grid error scales as dt³.
func DefaultExpectation(s compose.Scheme) Expectation {
	switch s {
	case compose.JOnly:
		return Expectation{Order: 0, Exact: true, ExactTol: 1e-12}
	default:
		return Expectation{Order: 3, ExactTol: 1e-12}
	}
}

// #endregion expectation

// #region config
// Config describes one sweep.
type Config struct {
	Grid      field.Grid `json:"grid" yaml:"grid" envPrefix:"GRID_"`
	Dts       []float64  `json:"dts" yaml:"dts" env:"DTS"`
	Seeds     []int64    `json:"seeds" yaml:"seeds" env:"SEEDS"`
	MaxMode   int        `json:"max_mode" yaml:"max_mode" env:"MAX_MODE"`
	Amplitude float64    `json:"amplitude" yaml:"amplitude" env:"AMPLITUDE"`
	Workers   int        `json:"workers" yaml:"workers" env:"WORKERS"` // <= 0 uses GOMAXPROCS
}

// DefaultConfig sweeps dt = 0.1·2^-j, j = 0..9, over three seeds on a
// smooth field with modes 1..3 on a 32-point grid of length 2π.
func DefaultConfig() Config {
	dts := make([]float64, 10)
	for j := range dts {
		dts[j] = 0.1 * math.Pow(2, -float64(j))
	}
	return Config{
		Grid:      field.Grid{N: 32, Dx: 2 * math.Pi / 32},
		Dts:       dts,
		Seeds:     []int64{1, 2, 3},
		MaxMode:   3,
		Amplitude: 0.5,
	}
}

func workerLimit(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// #endregion config

// #region types
// Sample is the two-grid error of one (seed, dt) unit.
type Sample struct {
	Seed  int64   `json:"seed"`
	Dt    float64 `json:"dt"`
	Error float64 `json:"value"`
}

// Series is the plot series handed to an external plotter (log-log axes).
type Series struct {
	Dt          []float64 `json:"dt"`
	MedianError []float64 `json:"median_error"`
}

// Result is the outcome of one sweep.
type Result struct {
	Samples     []Sample      `json:"samples"`
	Series      Series        `json:"series"`
	Fit         fit.Line      `json:"fit"`
	Exact       bool          `json:"exact"`
	Expectation Expectation   `json:"expectation"`
	Gates       []gate.Result `json:"gates"`
}

// #endregion types

// #region two-grid
// TwoGridError returns ‖Φdt(w0) − Φdt/2(Φdt/2(w0))‖∞.
func TwoGridError(step compose.Stepper, w0 field.Field, dt float64) (float64, error) {
	full, err := step(w0, dt)
	if err != nil {
		return 0, fmt.Errorf("full step dt=%g: %w", dt, err)
	}
	half, err := step(w0, dt/2)
	if err != nil {
		return 0, fmt.Errorf("half step dt=%g: %w", dt/2, err)
	}
	twice, err := step(half, dt/2)
	if err != nil {
		return 0, fmt.Errorf("half step dt=%g: %w", dt/2, err)
	}
	return field.MaxAbsDiff(full, twice), nil
}

// #endregion two-grid

// #region sweep
// Sweep evaluates every (seed, dt) unit on a bounded worker pool, reduces
// to the median error per dt and gates the fit against exp.
func Sweep(ctx context.Context, step compose.Stepper, cfg Config, exp Expectation, th gate.Thresholds) (Result, error) {
	if len(cfg.Dts) == 0 || len(cfg.Seeds) == 0 {
		return Result{}, fmt.Errorf("convergence sweep: %d dts, %d seeds: %w", len(cfg.Dts), len(cfg.Seeds), field.ErrEmptySweep)
	}
	if err := cfg.Grid.Validate(); err != nil {
		return Result{}, fmt.Errorf("convergence sweep: %w", err)
	}
	for _, dt := range cfg.Dts {
		if !(dt > 0) || math.IsInf(dt, 0) {
			return Result{}, fmt.Errorf("convergence sweep: dt=%g: %w", dt, field.ErrDegenerateStep)
		}
	}

	// One initial field per seed, shared read-only by every dt.
	initial := make([]field.Field, len(cfg.Seeds))
	for i, seed := range cfg.Seeds {
		initial[i] = field.SmoothField(field.NewRand(seed), cfg.Grid, cfg.MaxMode, cfg.Amplitude)
	}

	samples := make([]Sample, len(cfg.Dts)*len(cfg.Seeds))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit(cfg.Workers))
	for di, dt := range cfg.Dts {
		for si, seed := range cfg.Seeds {
			idx := di*len(cfg.Seeds) + si
			w0 := initial[si]
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				e, err := TwoGridError(step, w0, dt)
				if err != nil {
					return fmt.Errorf("seed %d: %w", seed, err)
				}
				samples[idx] = Sample{Seed: seed, Dt: dt, Error: e}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("convergence sweep: %w", err)
	}

	series := Series{Dt: append([]float64(nil), cfg.Dts...), MedianError: make([]float64, len(cfg.Dts))}
	for di := range cfg.Dts {
		errs := make([]float64, len(cfg.Seeds))
		for si := range cfg.Seeds {
			errs[si] = samples[di*len(cfg.Seeds)+si].Error
		}
		series.MedianError[di] = fit.Median(errs)
	}

	res := Result{Samples: samples, Series: series, Expectation: exp}
	if exp.Exact {
		worst := 0.0
		for _, e := range series.MedianError {
			worst = math.Max(worst, e)
		}
		res.Exact = worst <= exp.ExactTol
		res.Gates = []gate.Result{gate.AtMost("convergence_exact_max_error", worst, exp.ExactTol)}
		return res, nil
	}

	line, err := fit.LogLog(series.Dt, series.MedianError)
	if err != nil {
		res.Gates = []gate.Result{gate.Fail("convergence_fit", err.Error())}
		return res, nil
	}
	res.Fit = line
	res.Gates = []gate.Result{
		gate.AtLeast("convergence_slope", line.Slope, exp.Order-th.SlopeMargin),
		gate.AtLeast("convergence_r2", line.R2, th.MinR2),
	}
	return res, nil
}

// #endregion sweep
