package energy

import (
	"github.com/danielpatrickdp/metriplectic/internal/field"
	"github.com/danielpatrickdp/metriplectic/internal/gate"
)

// #region monitor-config
// MonitorConfig holds the draws and the tolerance of the Lyapunov monitor.
type MonitorConfig struct {
	Grid      field.Grid `json:"grid" yaml:"grid" envPrefix:"GRID_"`
	Seeds     []int64    `json:"seeds" yaml:"seeds" env:"SEEDS"`
	Dt        float64    `json:"dt" yaml:"dt" env:"DT"`
	Steps     int        `json:"steps" yaml:"steps" env:"STEPS"`
	MaxDeltaL float64    `json:"max_delta_l" yaml:"max_delta_l" env:"MAX_DELTA_L"` // tolerated positive ΔL per step
}

// DefaultMonitorConfig is a single M step from a normal field: N=64,
// dx=1, seed 123, dt=0.01.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Grid:      field.Grid{N: 64, Dx: 1},
		Seeds:     []int64{123},
		Dt:        0.01,
		Steps:     1,
		MaxDeltaL: 1e-10,
	}
}

// #endregion monitor-config

// #region metric
// Metric captures a single measured quantity.
type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Pass  bool    `json:"pass"`
}

// #endregion metric

// #region result
// Result is the output of one monitor run.
type Result struct {
	Passed  bool          `json:"passed"`
	Metrics []Metric      `json:"metrics"`
	Reason  string        `json:"reason"`
	Gates   []gate.Result `json:"gates"`
}

// #endregion result
