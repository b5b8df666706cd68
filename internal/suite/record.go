package suite

import (
	"encoding/json"
	"math"

	"github.com/danielpatrickdp/metriplectic/internal/field"
	"github.com/danielpatrickdp/metriplectic/internal/fit"
	"github.com/danielpatrickdp/metriplectic/internal/gate"
)

// #region record
// Record is the machine-readable output of one validator for one scheme.
// Non-finite numbers are encoded as null.
type Record struct {
	RunID     string      `json:"run_id"`
	Scheme    string      `json:"scheme"`
	Validator string      `json:"validator"`
	Grid      field.Grid  `json:"grid"`
	Params    any         `json:"params"`
	Samples   []Sample    `json:"samples"`
	Fit       *FitSummary `json:"fit,omitempty"`
	Gate      GateSummary `json:"gate"`
	Reason    string      `json:"reason,omitempty"`
}

// Sample is one measured unit. Exactly one of Dt, Mode or Draw locates
// it: a (seed, dt) convergence error, a dispersion mode frequency or the
// index of a structure draw. Metric names the quantity when a record holds
// more than one kind of value.
type Sample struct {
	Seed   int64    `json:"seed"`
	Dt     float64  `json:"dt,omitempty"`
	Mode   int      `json:"mode,omitempty"`
	Draw   *int     `json:"draw,omitempty"`
	Metric string   `json:"metric,omitempty"`
	Value  *float64 `json:"value"`
}

// FitSummary is fit.Line with nullable members.
type FitSummary struct {
	Slope     *float64 `json:"slope"`
	Intercept *float64 `json:"intercept"`
	R2        *float64 `json:"r2"`
}

// GateSummary records the decision and every tolerance it was made against.
type GateSummary struct {
	Passed     bool                `json:"passed"`
	Thresholds map[string]float64  `json:"thresholds"`
	Observed   map[string]*float64 `json:"observed"`
	Skipped    []string            `json:"skipped,omitempty"`
}

// #endregion record

// #region helpers
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func summarizeFit(l fit.Line) *FitSummary {
	return &FitSummary{Slope: finite(l.Slope), Intercept: finite(l.Intercept), R2: finite(l.R2)}
}

func summarizeGates(rep gate.Report) GateSummary {
	s := GateSummary{
		Passed:     rep.Passed,
		Thresholds: make(map[string]float64, len(rep.Results)),
		Observed:   make(map[string]*float64, len(rep.Results)),
	}
	for _, r := range rep.Results {
		if r.Skipped {
			s.Skipped = append(s.Skipped, r.Name)
			continue
		}
		if !math.IsNaN(r.Tolerance) && !math.IsInf(r.Tolerance, 0) {
			s.Thresholds[r.Name] = r.Tolerance
		}
		s.Observed[r.Name] = finite(r.Observed)
	}
	return s
}

// Encode returns the JSON form of rec.
func (rec Record) Encode() ([]byte, error) {
	return json.Marshal(rec)
}

// #endregion helpers
