package suite

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/metriplectic/internal/compose"
	"github.com/danielpatrickdp/metriplectic/internal/convergence"
	"github.com/danielpatrickdp/metriplectic/internal/dispersion"
	"github.com/danielpatrickdp/metriplectic/internal/dissipative"
	"github.com/danielpatrickdp/metriplectic/internal/energy"
	"github.com/danielpatrickdp/metriplectic/internal/field"
	"github.com/danielpatrickdp/metriplectic/internal/gate"
	"github.com/danielpatrickdp/metriplectic/internal/reversibility"
	"github.com/danielpatrickdp/metriplectic/internal/structure"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "METRIPLECTIC_"

// #region config-types
// Config bundles the configuration of every validator in a suite run.
type Config struct {
	Schemes       []compose.Scheme    `json:"schemes" yaml:"schemes" env:"SCHEMES"`
	Spec          compose.Spec        `json:"spec" yaml:"spec" envPrefix:"SPEC_"`
	Structure     StructureConfig     `json:"structure" yaml:"structure" envPrefix:"STRUCTURE_"`
	Convergence   ConvergenceConfig   `json:"convergence" yaml:"convergence" envPrefix:"CONVERGENCE_"`
	Dispersion    DispersionConfig    `json:"dispersion" yaml:"dispersion" envPrefix:"DISPERSION_"`
	Reversibility ReversibilityConfig `json:"reversibility" yaml:"reversibility" envPrefix:"REVERSIBILITY_"`
	Energy        EnergyConfig        `json:"energy" yaml:"energy" envPrefix:"ENERGY_"`
	Thresholds    gate.Thresholds     `json:"thresholds" yaml:"thresholds" envPrefix:"THRESHOLD_"`
}

// StructureConfig configures the skew and PSD probes.
type StructureConfig struct {
	Grid  field.Grid `json:"grid" yaml:"grid" envPrefix:"GRID_"`
	Draws int        `json:"draws" yaml:"draws" env:"DRAWS"`
	Seed  int64      `json:"seed" yaml:"seed" env:"SEED"`
}

// ConvergenceConfig is the sweep plus the Picard policy used while
// certifying order, and optional per-scheme expectations keyed by tag.
type ConvergenceConfig struct {
	convergence.Config `yaml:",inline"`
	Picard             dissipative.Config                 `json:"picard" yaml:"picard"`
	Expectations       map[string]convergence.Expectation `json:"expectations,omitempty" yaml:"expectations,omitempty"`
}

// DispersionConfig toggles and configures the Klein–Gordon sweep.
type DispersionConfig struct {
	Enabled           bool `json:"enabled" yaml:"enabled" env:"ENABLED"`
	dispersion.Config `yaml:",inline"`
}

// ReversibilityConfig configures the round-trip check.
type ReversibilityConfig struct {
	Grid                 field.Grid `json:"grid" yaml:"grid" envPrefix:"GRID_"`
	Seed                 int64      `json:"seed" yaml:"seed" env:"SEED"`
	reversibility.Config `yaml:",inline"`
}

// EnergyConfig configures the Lyapunov monitor and its coefficients.
type EnergyConfig struct {
	energy.MonitorConfig `yaml:",inline"`
	Params               dissipative.Params `json:"params" yaml:"params" envPrefix:"PARAMS_"`
}

// #endregion config-types

// #region defaults
// DefaultConfig returns the reference suite: all three schemes, order
// certification on a smooth field, the eight-mode dispersion sweep and the
// single-step Lyapunov scenario.
func DefaultConfig() Config {
	spec := compose.DefaultSpec()
	spec.Params = compose.Params{C: 1, D: 0.05, R: 1, U: 0.25, Mass: 1}

	return Config{
		Schemes: compose.Schemes(),
		Spec:    spec,
		Structure: StructureConfig{
			Grid:  field.Grid{N: 64, Dx: 0.1},
			Draws: structure.DefaultDraws,
			Seed:  7,
		},
		Convergence: ConvergenceConfig{
			Config: convergence.DefaultConfig(),
			Picard: dissipative.Config{Iterations: 3, Tolerance: 1e-14, MaxIterations: 200},
		},
		Dispersion: DispersionConfig{
			Enabled: true,
			Config:  dispersion.DefaultConfig(),
		},
		Reversibility: ReversibilityConfig{
			Grid:   field.Grid{N: 64, Dx: 1},
			Seed:   11,
			Config: reversibility.DefaultConfig(),
		},
		Energy: EnergyConfig{
			MonitorConfig: energy.DefaultMonitorConfig(),
			Params:        dissipative.Params{D: 0.5, R: 1, U: 0.25},
		},
		Thresholds: gate.DefaultThresholds(),
	}
}

// #endregion defaults

// #region loader
// LoadConfig starts from DefaultConfig, overlays the file at path (JSON for
// a .json extension, YAML otherwise; empty path skips this step), then
// applies METRIPLECTIC_* environment overrides and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			err = json.Unmarshal(data, &cfg)
		default:
			err = yaml.Unmarshal(data, &cfg)
		}
		if err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration errors, which are fatal for a run.
func (c Config) Validate() error {
	if len(c.Schemes) == 0 {
		return fmt.Errorf("config: no schemes: %w", field.ErrUnknownScheme)
	}
	for _, s := range c.Schemes {
		spec := c.Spec
		spec.Scheme = s
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	for name, g := range map[string]field.Grid{
		"structure":     c.Structure.Grid,
		"convergence":   c.Convergence.Grid,
		"reversibility": c.Reversibility.Grid,
		"energy":        c.Energy.Grid,
	} {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("config %s grid: %w", name, err)
		}
	}
	if c.Structure.Draws < 0 {
		return fmt.Errorf("config structure: draws=%d: %w", c.Structure.Draws, field.ErrEmptySweep)
	}
	if err := c.validateConvergence(); err != nil {
		return err
	}
	if c.Dispersion.Enabled {
		if err := c.validateDispersion(); err != nil {
			return err
		}
	}
	if err := checkStep("reversibility", c.Reversibility.Dt, c.Reversibility.Steps); err != nil {
		return err
	}
	if len(c.Energy.Seeds) == 0 {
		return fmt.Errorf("config energy: no seeds: %w", field.ErrEmptySweep)
	}
	if err := checkStep("energy", c.Energy.Dt, c.Energy.Steps); err != nil {
		return err
	}
	for tag := range c.Convergence.Expectations {
		if _, err := compose.ParseScheme(tag); err != nil {
			return fmt.Errorf("config expectations: %w", err)
		}
	}
	if err := c.Energy.Params.Validate(); err != nil {
		return fmt.Errorf("config energy: %w", err)
	}
	for _, v := range []float64{c.Thresholds.MinR2, c.Thresholds.SlopeMargin, c.Thresholds.Skew, c.Thresholds.PSD} {
		if math.IsNaN(v) {
			return fmt.Errorf("config thresholds: NaN tolerance")
		}
	}
	return nil
}

func (c Config) validateConvergence() error {
	cc := c.Convergence
	if len(cc.Dts) == 0 || len(cc.Seeds) == 0 {
		return fmt.Errorf("config convergence: %d dts, %d seeds: %w", len(cc.Dts), len(cc.Seeds), field.ErrEmptySweep)
	}
	for _, dt := range cc.Dts {
		if err := checkStep("convergence", dt, 0); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) validateDispersion() error {
	dc := c.Dispersion.Config
	if err := dc.Grid.Validate(); err != nil {
		return fmt.Errorf("config dispersion grid: %w", err)
	}
	if len(dc.Modes) == 0 {
		return fmt.Errorf("config dispersion: no modes: %w", field.ErrEmptySweep)
	}
	for _, m := range dc.Modes {
		if m <= 0 {
			return fmt.Errorf("config dispersion: mode %d must be positive", m)
		}
	}
	return checkStep("dispersion", dc.Dt, dc.Steps)
}

// checkStep rejects a zero or non-finite dt and a negative step count.
func checkStep(name string, dt float64, steps int) error {
	if dt == 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("config %s: dt=%g: %w", name, dt, field.ErrDegenerateStep)
	}
	if steps < 0 {
		return fmt.Errorf("config %s: steps=%d: %w", name, steps, field.ErrDegenerateStep)
	}
	return nil
}

// Expectation returns the configured expectation for s, falling back to
// convergence.DefaultExpectation.
func (c Config) Expectation(s compose.Scheme) convergence.Expectation {
	if exp, ok := c.Convergence.Expectations[s.String()]; ok {
		return exp
	}
	return convergence.DefaultExpectation(s)
}

// #endregion loader
