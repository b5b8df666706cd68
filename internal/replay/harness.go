// Package replay re-executes a recorded run from its stored configuration
// and compares the fresh records with the recorded ones.
package replay

import (
	"context"
	"fmt"
	"math"

	"github.com/danielpatrickdp/metriplectic/internal/suite"
)

// DefaultTolerance is the relative tolerance applied to sample values and
// fit coefficients. Runs are seeded, so replays normally match exactly.
const DefaultTolerance = 1e-12

// #region types

// Mismatch is one difference between a recorded and a replayed record.
type Mismatch struct {
	Scheme    string `json:"scheme"`
	Validator string `json:"validator"`
	Field     string `json:"field"`
	Want      string `json:"want"`
	Got       string `json:"got"`
}

// Result is the outcome of one replay.
type Result struct {
	RunID      string     `json:"run_id"` // id of the replayed run
	Records    int        `json:"records"`
	Mismatches []Mismatch `json:"mismatches"`
}

// Matched reports whether the replay reproduced every record.
func (r Result) Matched() bool {
	return len(r.Mismatches) == 0
}

// #endregion types

// #region replay

// Replay runs fx.Config without persistence and compares the records.
func Replay(ctx context.Context, fx Fixture, tol float64, opts ...suite.Option) (Result, error) {
	if err := fx.Config.Validate(); err != nil {
		return Result{}, fmt.Errorf("replay config: %w", err)
	}
	out, err := suite.NewRunner(fx.Config, opts...).Run(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("replay run: %w", err)
	}
	return Result{
		RunID:      out.RunID,
		Records:    len(out.Records),
		Mismatches: Compare(fx.ExpectedRecords, out.Records, tol),
	}, nil
}

// Compare matches records by (scheme, validator) and reports differences in
// gate decisions, sample values and fit coefficients.
func Compare(want, got []suite.Record, tol float64) []Mismatch {
	type key struct{ scheme, validator string }
	index := make(map[key]suite.Record, len(got))
	for _, rec := range got {
		index[key{rec.Scheme, rec.Validator}] = rec
	}

	var out []Mismatch
	seen := make(map[key]bool, len(want))
	for _, w := range want {
		k := key{w.Scheme, w.Validator}
		seen[k] = true
		g, ok := index[k]
		if !ok {
			out = append(out, Mismatch{Scheme: w.Scheme, Validator: w.Validator, Field: "record", Want: "present", Got: "missing"})
			continue
		}
		out = append(out, compareRecord(w, g, tol)...)
	}
	for _, g := range got {
		if !seen[key{g.Scheme, g.Validator}] {
			out = append(out, Mismatch{Scheme: g.Scheme, Validator: g.Validator, Field: "record", Want: "absent", Got: "present"})
		}
	}
	return out
}

func compareRecord(w, g suite.Record, tol float64) []Mismatch {
	var out []Mismatch
	add := func(field, want, got string) {
		out = append(out, Mismatch{Scheme: w.Scheme, Validator: w.Validator, Field: field, Want: want, Got: got})
	}

	if w.Gate.Passed != g.Gate.Passed {
		add("gate.passed", fmt.Sprint(w.Gate.Passed), fmt.Sprint(g.Gate.Passed))
	}
	if len(w.Samples) != len(g.Samples) {
		add("samples", fmt.Sprint(len(w.Samples)), fmt.Sprint(len(g.Samples)))
	} else {
		for i := range w.Samples {
			if !within(w.Samples[i].Value, g.Samples[i].Value, tol) {
				add(fmt.Sprintf("samples[%d].value", i), show(w.Samples[i].Value), show(g.Samples[i].Value))
			}
		}
	}

	switch {
	case (w.Fit == nil) != (g.Fit == nil):
		add("fit", fmt.Sprint(w.Fit != nil), fmt.Sprint(g.Fit != nil))
	case w.Fit != nil:
		if !within(w.Fit.Slope, g.Fit.Slope, tol) {
			add("fit.slope", show(w.Fit.Slope), show(g.Fit.Slope))
		}
		if !within(w.Fit.Intercept, g.Fit.Intercept, tol) {
			add("fit.intercept", show(w.Fit.Intercept), show(g.Fit.Intercept))
		}
		if !within(w.Fit.R2, g.Fit.R2, tol) {
			add("fit.r2", show(w.Fit.R2), show(g.Fit.R2))
		}
	}
	return out
}

// within compares nullable values with a relative tolerance. null only
// matches null.
func within(a, b *float64, tol float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return math.Abs(*a-*b) <= tol*math.Max(1, math.Max(math.Abs(*a), math.Abs(*b)))
}

func show(v *float64) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%.17g", *v)
}

// #endregion replay
