// Package suite runs every validator against every configured scheme,
// persists one record per validator and routes failures to quarantine.
package suite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/danielpatrickdp/metriplectic/internal/compose"
	"github.com/danielpatrickdp/metriplectic/internal/convergence"
	"github.com/danielpatrickdp/metriplectic/internal/dispersion"
	"github.com/danielpatrickdp/metriplectic/internal/dissipative"
	"github.com/danielpatrickdp/metriplectic/internal/energy"
	"github.com/danielpatrickdp/metriplectic/internal/field"
	"github.com/danielpatrickdp/metriplectic/internal/gate"
	"github.com/danielpatrickdp/metriplectic/internal/logging"
	"github.com/danielpatrickdp/metriplectic/internal/metrics"
	"github.com/danielpatrickdp/metriplectic/internal/reversibility"
	"github.com/danielpatrickdp/metriplectic/internal/spectral"
	"github.com/danielpatrickdp/metriplectic/internal/store"
	"github.com/danielpatrickdp/metriplectic/internal/structure"
)

// Validator names used in records, gates and metrics.
const (
	ValidatorSkew          = "structure_skew"
	ValidatorPSD           = "structure_psd"
	ValidatorConvergence   = "convergence"
	ValidatorReversibility = "reversibility"
	ValidatorLyapunov      = "lyapunov"
	ValidatorDispersion    = "dispersion"

	// Sample metrics for records that hold more than one quantity.
	MetricRoundTrip = "round_trip"
	MetricMeanDrift = "mean_drift"
	MetricDeltaL    = "delta_l"

	// DispersionScheme labels the Klein–Gordon report, which runs once per
	// suite rather than once per scheme.
	DispersionScheme = "leapfrog"
)

// #region runner
// Runner executes a suite configuration. Store, sink and metrics are
// optional; a runner with none of them still returns every record.
type Runner struct {
	cfg     Config
	store   *store.Store
	sink    gate.Sink
	metrics *metrics.Metrics
	cache   *spectral.Cache
	tracer  trace.Tracer
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore persists runs, records and provenance in s. Unless WithSink is
// also given, contradictions are quarantined in the same database.
func WithStore(s *store.Store) Option { return func(r *Runner) { r.store = s } }

// WithSink routes contradiction records to sink.
func WithSink(sink gate.Sink) Option { return func(r *Runner) { r.sink = sink } }

// WithMetrics records gate outcomes and validator timings on m.
func WithMetrics(m *metrics.Metrics) Option { return func(r *Runner) { r.metrics = m } }

// WithCache shares spectral tables with other runners.
func WithCache(c *spectral.Cache) Option { return func(r *Runner) { r.cache = c } }

// NewRunner returns a runner for cfg. cfg is expected to be validated.
func NewRunner(cfg Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, tracer: otel.Tracer("metriplectic/suite")}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = spectral.NewCache()
	}
	if r.sink == nil && r.store != nil {
		r.sink = logging.NewSink(r.store.DB())
	}
	return r
}

// Outcome is the result of one suite run.
type Outcome struct {
	RunID   string
	Reports []gate.Report // one per scheme, plus the dispersion report when enabled
	Records []Record
	Passed  bool
}

// #endregion runner

// #region run
// Run executes every validator. Gate failures are reported in the outcome;
// configuration and storage errors abort the run.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	ctx, span := r.tracer.Start(ctx, "suite.run",
		trace.WithAttributes(attribute.Int("schemes", len(r.cfg.Schemes))))
	defer span.End()

	runID, err := r.startRun()
	if err != nil {
		span.RecordError(err)
		return Outcome{}, err
	}
	span.SetAttributes(attribute.String("run_id", runID))
	log.Printf("[SUITE] run %s: schemes=%s", runID, schemeList(r.cfg.Schemes))

	out := Outcome{RunID: runID, Passed: true}
	for _, s := range r.cfg.Schemes {
		rep, recs, err := r.runScheme(ctx, runID, s)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return r.abort(out, fmt.Errorf("scheme %s: %w", s, err))
		}
		out.Reports = append(out.Reports, rep)
		out.Records = append(out.Records, recs...)
		out.Passed = out.Passed && rep.Passed
		log.Printf("[SUITE] scheme %s: passed=%v reason=%q", s, rep.Passed, rep.Reason)
	}

	if r.cfg.Dispersion.Enabled {
		rec, rep, err := r.validate(ctx, runID, DispersionScheme, ValidatorDispersion, r.dispersion)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return r.abort(out, fmt.Errorf("dispersion: %w", err))
		}
		out.Reports = append(out.Reports, rep)
		out.Records = append(out.Records, rec)
		out.Passed = out.Passed && rep.Passed
		log.Printf("[SUITE] dispersion: passed=%v reason=%q", rep.Passed, rep.Reason)
	}

	if r.store != nil {
		if err := r.store.FinishRun(runID, out.Passed); err != nil {
			return out, fmt.Errorf("finish run: %w", err)
		}
	}
	if !out.Passed {
		span.SetStatus(codes.Error, "validation failed")
	}
	log.Printf("[SUITE] run %s: passed=%v records=%d", runID, out.Passed, len(out.Records))
	return out, nil
}

// abort closes out a run that stopped on err so the store never keeps it
// open. The outcome is marked failed.
func (r *Runner) abort(out Outcome, err error) (Outcome, error) {
	out.Passed = false
	log.Printf("[SUITE] run %s aborted: %v", out.RunID, err)
	if r.store != nil {
		if ferr := r.store.FinishRun(out.RunID, false); ferr != nil {
			log.Printf("[SUITE] WARNING: finish aborted run %s: %v", out.RunID, ferr)
		}
	}
	return out, err
}

func (r *Runner) startRun() (string, error) {
	if r.store == nil {
		return uuid.New().String(), nil
	}
	cfgJSON, err := json.Marshal(r.cfg)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	run, err := r.store.CreateRun(string(cfgJSON), schemeList(r.cfg.Schemes))
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return run.RunID, nil
}

func (r *Runner) runScheme(ctx context.Context, runID string, s compose.Scheme) (gate.Report, []Record, error) {
	validators := []struct {
		name string
		fn   validatorFunc
	}{
		{ValidatorSkew, r.skew},
		{ValidatorPSD, r.psd},
		{ValidatorConvergence, r.convergence},
		{ValidatorReversibility, r.reversibility},
		{ValidatorLyapunov, r.lyapunov},
	}

	var (
		recs []Record
		reps []gate.Report
	)
	for _, v := range validators {
		rec, rep, err := r.validate(ctx, runID, s.String(), v.name, func(ctx context.Context) (validation, error) {
			return v.fn(ctx, s)
		})
		if err != nil {
			return gate.Report{}, nil, err
		}
		recs = append(recs, rec)
		reps = append(reps, rep)
	}
	return gate.Report{Scheme: s.String()}.Merge(reps...), recs, nil
}

// #endregion run

// #region validate
// validation is what a validator hands back before it becomes a record.
type validation struct {
	grid    field.Grid
	params  any
	samples []Sample
	fit     *FitSummary
	slope   float64
	gates   []gate.Result
}

type validatorFunc func(ctx context.Context, s compose.Scheme) (validation, error)

// validate runs fn under a span, turns its outcome into a record and
// persists it. Insufficient samples and non-converged Picard iterations
// become failed gates; every other error is returned.
func (r *Runner) validate(ctx context.Context, runID, scheme, name string, fn func(context.Context) (validation, error)) (Record, gate.Report, error) {
	ctx, span := r.tracer.Start(ctx, "suite."+name, trace.WithAttributes(
		attribute.String("scheme", scheme),
		attribute.String("validator", name),
	))
	defer span.End()

	start := time.Now()
	v, err := fn(ctx)
	if err != nil {
		if !reportable(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return Record{}, gate.Report{}, fmt.Errorf("%s: %w", name, err)
		}
		v = validation{slope: math.NaN(), gates: []gate.Result{gate.Fail(name, err.Error())}}
	}
	r.metrics.ObserveValidator(scheme, name, time.Since(start), len(v.samples))
	if !math.IsNaN(v.slope) {
		r.metrics.SetSlope(scheme, name, v.slope)
	}

	rep := gate.Evaluate(scheme, v.gates)
	for _, res := range rep.Results {
		r.metrics.ObserveGate(scheme, res.Name, logging.Decision(res))
	}
	span.SetAttributes(attribute.Bool("passed", rep.Passed), attribute.Int("samples", len(v.samples)))

	rec := Record{
		RunID:     runID,
		Scheme:    scheme,
		Validator: name,
		Grid:      v.grid,
		Params:    v.params,
		Samples:   v.samples,
		Fit:       v.fit,
		Gate:      summarizeGates(rep),
	}
	if !rep.Passed {
		rec.Reason = rep.Reason
		span.SetStatus(codes.Error, rep.Reason)
	}
	data, err := rec.Encode()
	if err != nil {
		return Record{}, gate.Report{}, fmt.Errorf("%s: encode record: %w", name, err)
	}

	if r.store != nil {
		if _, err := r.store.SaveRecord(store.RecordRow{
			RunID:      runID,
			Scheme:     scheme,
			Validator:  name,
			Passed:     rep.Passed,
			RecordJSON: string(data),
		}); err != nil {
			return Record{}, gate.Report{}, fmt.Errorf("%s: save record: %w", name, err)
		}
		if err := logging.LogReport(r.store.DB(), runID, rep); err != nil {
			log.Printf("[SUITE] provenance write failed for %s/%s: %v", scheme, name, err)
		}
	}

	if !rep.Passed {
		log.Printf("[SUITE] contradiction %s/%s: %s", scheme, name, rep.Reason)
		r.metrics.ObserveContradiction(scheme, name)
		if r.sink != nil {
			if err := r.sink.Quarantine(ctx, gate.Contradiction{
				RunID:     runID,
				Scheme:    scheme,
				Validator: name,
				Reason:    rep.Reason,
				Record:    data,
			}); err != nil {
				return Record{}, gate.Report{}, fmt.Errorf("%s: quarantine: %w", name, err)
			}
		}
	}
	return rec, rep, nil
}

func reportable(err error) bool {
	return errors.Is(err, field.ErrInsufficientSamples) || errors.Is(err, dissipative.ErrNotConverged)
}

// #endregion validate

// #region validators
func (r *Runner) skew(_ context.Context, s compose.Scheme) (validation, error) {
	g := r.cfg.Structure.Grid
	if s == compose.MOnly {
		return skipped(g, "m_only has no symplectic part", ValidatorSkew), nil
	}
	out, err := structure.SkewTest(field.NewRand(r.cfg.Structure.Seed), g, r.cfg.Structure.Draws, r.cfg.Thresholds.Skew)
	if err != nil {
		return validation{}, err
	}
	return validation{
		grid:    g,
		params:  map[string]any{"draws": len(out.Values), "seed": r.cfg.Structure.Seed},
		samples: drawSamples(r.cfg.Structure.Seed, out.Values),
		slope:   math.NaN(),
		gates:   []gate.Result{out.Result},
	}, nil
}

func (r *Runner) psd(_ context.Context, s compose.Scheme) (validation, error) {
	g := r.cfg.Structure.Grid
	if s == compose.JOnly {
		return skipped(g, "j_only has no metric part", ValidatorPSD), nil
	}
	p := r.cfg.Spec.Params
	out, err := structure.PSDTest(field.NewRand(r.cfg.Structure.Seed), g, p.D, r.cfg.Spec.Boundary,
		r.cfg.Structure.Draws, r.cfg.Thresholds.PSD)
	if err != nil {
		return validation{}, err
	}
	return validation{
		grid:    g,
		params:  map[string]any{"d": p.D, "boundary": r.cfg.Spec.Boundary.String(), "draws": len(out.Values)},
		samples: drawSamples(r.cfg.Structure.Seed, out.Values),
		slope:   math.NaN(),
		gates:   []gate.Result{out.Result},
	}, nil
}

func (r *Runner) convergence(ctx context.Context, s compose.Scheme) (validation, error) {
	cc := r.cfg.Convergence
	spec := r.cfg.Spec
	spec.Scheme = s
	spec.Picard = cc.Picard
	step, err := compose.Build(cc.Grid, spec, compose.Options{Cache: r.cache})
	if err != nil {
		return validation{}, err
	}
	res, err := convergence.Sweep(ctx, step, cc.Config, r.cfg.Expectation(s), r.cfg.Thresholds)
	if err != nil {
		return validation{}, err
	}

	samples := make([]Sample, len(res.Samples))
	for i, smp := range res.Samples {
		samples[i] = Sample{Seed: smp.Seed, Dt: smp.Dt, Value: finite(smp.Error)}
	}
	v := validation{
		grid:    cc.Grid,
		params:  map[string]any{"scheme": spec, "expectation": res.Expectation},
		samples: samples,
		slope:   math.NaN(),
		gates:   res.Gates,
	}
	if !res.Exact {
		v.fit = summarizeFit(res.Fit)
		v.slope = res.Fit.Slope
	}
	return v, nil
}

func (r *Runner) reversibility(_ context.Context, s compose.Scheme) (validation, error) {
	rc := r.cfg.Reversibility
	spec := r.cfg.Spec
	spec.Scheme = s
	step, err := compose.Build(rc.Grid, spec, compose.Options{Cache: r.cache})
	if err != nil {
		return validation{}, err
	}
	out, err := reversibility.Check(step, s, rc.Grid, field.NewRand(rc.Seed), rc.Config, r.cfg.Thresholds)
	if err != nil {
		return validation{}, err
	}
	v := validation{
		grid:   rc.Grid,
		params: map[string]any{"dt": rc.Dt, "steps": rc.Steps, "seed": rc.Seed},
		slope:  math.NaN(),
		gates:  out.Gates,
	}
	if s.Conservative() {
		v.samples = []Sample{
			{Seed: rc.Seed, Dt: rc.Dt, Metric: MetricRoundTrip, Value: finite(out.Deviation)},
			{Seed: rc.Seed, Dt: rc.Dt, Metric: MetricMeanDrift, Value: finite(out.MeanDrift)},
		}
	}
	return v, nil
}

func (r *Runner) lyapunov(_ context.Context, s compose.Scheme) (validation, error) {
	ec := r.cfg.Energy
	if s.Conservative() {
		return skipped(ec.Grid, "j_only conserves rather than dissipates", ValidatorLyapunov), nil
	}
	stepper, err := dissipative.NewStepper(ec.Grid, ec.Params, r.cfg.Spec.Boundary, r.cfg.Spec.Picard)
	if err != nil {
		return validation{}, err
	}
	mc := ec.MonitorConfig
	mc.MaxDeltaL = r.cfg.Thresholds.Lyapunov
	res, err := energy.NewMonitor(mc).Run(stepper)
	if err != nil {
		return validation{}, err
	}

	var samples []Sample
	for i, m := range res.Metrics {
		if i >= len(mc.Seeds) {
			break // trailing metrics are informational
		}
		samples = append(samples, Sample{Seed: mc.Seeds[i], Dt: mc.Dt, Metric: MetricDeltaL, Value: finite(m.Value)})
	}
	return validation{
		grid:    ec.Grid,
		params:  map[string]any{"reaction": ec.Params, "boundary": r.cfg.Spec.Boundary.String(), "steps": mc.Steps},
		samples: samples,
		slope:   math.NaN(),
		gates:   res.Gates,
	}, nil
}

func (r *Runner) dispersion(ctx context.Context) (validation, error) {
	dc := r.cfg.Dispersion.Config
	res, err := dispersion.Sweep(ctx, dc, r.cfg.Thresholds, r.cache)
	if err != nil {
		return validation{}, err
	}
	samples := make([]Sample, len(res.Samples))
	for i, smp := range res.Samples {
		samples[i] = Sample{Mode: smp.Mode, Dt: dc.Dt, Value: finite(smp.Omega)}
	}
	return validation{
		grid: dc.Grid,
		params: map[string]any{
			"c": dc.C, "m": dc.Mass, "amplitude": dc.Amplitude,
			"steps": dc.Steps, "policy": dc.Policy.String(),
		},
		samples: samples,
		fit:     summarizeFit(res.Fit),
		slope:   res.Fit.Slope,
		gates:   res.Gates,
	}, nil
}

// #endregion validators

// #region helpers
func skipped(g field.Grid, reason, name string) validation {
	return validation{grid: g, slope: math.NaN(), gates: []gate.Result{gate.Skip(name, reason)}}
}

func drawSamples(seed int64, values []float64) []Sample {
	out := make([]Sample, len(values))
	for i, v := range values {
		draw := i
		out[i] = Sample{Seed: seed, Draw: &draw, Value: finite(v)}
	}
	return out
}

func schemeList(schemes []compose.Scheme) string {
	tags := make([]string, len(schemes))
	for i, s := range schemes {
		tags[i] = s.String()
	}
	return strings.Join(tags, ",")
}

// #endregion helpers
