package gate

import (
	"fmt"
	"math"
	"strings"
)

// #region checks
// AtMost passes when observed <= tol. NaN never passes.
func AtMost(name string, observed, tol float64) Result {
	return Result{
		Name:       name,
		Tolerance:  tol,
		Observed:   observed,
		Comparison: AtMostTol,
		Passed:     !math.IsNaN(observed) && observed <= tol,
	}
}

// AtLeast passes when observed >= tol. NaN never passes.
func AtLeast(name string, observed, tol float64) Result {
	return Result{
		Name:       name,
		Tolerance:  tol,
		Observed:   observed,
		Comparison: AtLeastTol,
		Passed:     !math.IsNaN(observed) && observed >= tol,
	}
}

// RelativeTo passes when |observed − target|/|target| <= tol. A zero target
// switches to the absolute deviation.
func RelativeTo(name string, observed, target, tol float64) Result {
	dev := math.Abs(observed - target)
	if target != 0 {
		dev /= math.Abs(target)
	}
	r := AtMost(name, dev, tol)
	r.Detail = fmt.Sprintf("observed %.6g, target %.6g", observed, target)
	return r
}

// Skip records a gate that does not apply to the configuration.
func Skip(name, detail string) Result {
	return Result{Name: name, Passed: true, Skipped: true, Detail: detail}
}

// Fail records a gate that could not be evaluated at all.
func Fail(name, detail string) Result {
	return Result{Name: name, Observed: math.NaN(), Passed: false, Detail: detail}
}

// #endregion checks

// #region evaluate
// Evaluate folds results into a report. Every result is kept; one failing
// gate never hides the others.
func Evaluate(scheme string, results []Result) Report {
	var failReasons []string
	for _, r := range results {
		if r.Skipped || r.Passed {
			continue
		}
		failReasons = append(failReasons, describe(r))
	}

	reason := "all gates passed"
	if len(failReasons) == 1 {
		reason = "gate failed: " + failReasons[0]
	} else if len(failReasons) > 1 {
		reason = fmt.Sprintf("%d gates failed: %s", len(failReasons), strings.Join(failReasons, "; "))
	}

	return Report{
		Scheme:  scheme,
		Results: results,
		Passed:  len(failReasons) == 0,
		Reason:  reason,
	}
}

// Failed returns the non-skipped results that did not pass.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Skipped && !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// Merge appends the results of other reports and re-evaluates.
func (r Report) Merge(others ...Report) Report {
	all := append([]Result(nil), r.Results...)
	for _, o := range others {
		all = append(all, o.Results...)
	}
	return Evaluate(r.Scheme, all)
}

// #endregion evaluate

// #region helpers
func describe(r Result) string {
	switch r.Comparison {
	case AtMostTol:
		return fmt.Sprintf("%s %.4g exceeds %.4g", r.Name, r.Observed, r.Tolerance)
	case AtLeastTol:
		return fmt.Sprintf("%s %.4g below %.4g", r.Name, r.Observed, r.Tolerance)
	}
	if r.Detail != "" {
		return fmt.Sprintf("%s: %s", r.Name, r.Detail)
	}
	return r.Name
}

// #endregion helpers
