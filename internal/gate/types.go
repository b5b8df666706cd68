package gate

import "context"

// #region comparison
// Comparison states how an observed value is held against its tolerance.
type Comparison string

const (
	AtMostTol  Comparison = "le" // observed <= tolerance
	AtLeastTol Comparison = "ge" // observed >= tolerance
)

// #endregion comparison

// #region thresholds
// Thresholds holds every tolerance the validators gate on.
type Thresholds struct {
	Skew          float64 `json:"skew" yaml:"skew" env:"SKEW"`                         // median |⟨v,Jv⟩·dx|
	PSD           float64 `json:"psd" yaml:"psd" env:"PSD"`                            // min ⟨u,Mu⟩·dx >= −PSD
	SlopeMargin   float64 `json:"slope_margin" yaml:"slope_margin" env:"SLOPE_MARGIN"` // slope >= expected − margin
	MinR2         float64 `json:"min_r2" yaml:"min_r2" env:"MIN_R2"`
	DispersionRel float64 `json:"dispersion_rel" yaml:"dispersion_rel" env:"DISPERSION_REL"` // |fit − exact|/exact
	Reversibility float64 `json:"reversibility" yaml:"reversibility" env:"REVERSIBILITY"`
	MeanDrift     float64 `json:"mean_drift" yaml:"mean_drift" env:"MEAN_DRIFT"`
	Lyapunov      float64 `json:"lyapunov" yaml:"lyapunov" env:"LYAPUNOV"` // max ΔL
}

// DefaultThresholds returns the tolerances used by the validation suite.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Skew:          1e-12,
		PSD:           1e-12,
		SlopeMargin:   0.1,
		MinR2:         0.999,
		DispersionRel: 0.01,
		Reversibility: 1e-12,
		MeanDrift:     1e-12,
		Lyapunov:      1e-10,
	}
}

// #endregion thresholds

// #region result
// Result is one named pass/fail decision with its tolerance.
type Result struct {
	Name       string     `json:"name"`
	Tolerance  float64    `json:"tolerance"`
	Observed   float64    `json:"observed"`
	Comparison Comparison `json:"comparison,omitempty"`
	Passed     bool       `json:"passed"`
	Skipped    bool       `json:"skipped,omitempty"`
	Detail     string     `json:"detail,omitempty"`
}

// #endregion result

// #region report
// Report aggregates the gates of one scheme run. Passed is the AND of every
// non-skipped result.
type Report struct {
	Scheme  string   `json:"scheme"`
	Results []Result `json:"results"`
	Passed  bool     `json:"passed"`
	Reason  string   `json:"reason"`
}

// #endregion report

// #region contradiction
// Contradiction is the diagnostic record emitted for a failed validator:
// the same record that was produced for the run plus a reason.
type Contradiction struct {
	RunID     string `json:"run_id"`
	Scheme    string `json:"scheme"`
	Validator string `json:"validator"`
	Reason    string `json:"reason"`
	Record    []byte `json:"-"` // JSON-encoded record including "reason"
}

// Sink receives contradiction records for quarantine.
type Sink interface {
	Quarantine(ctx context.Context, c Contradiction) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, c Contradiction) error

// Quarantine calls f.
func (f SinkFunc) Quarantine(ctx context.Context, c Contradiction) error {
	return f(ctx, c)
}

// #endregion contradiction
