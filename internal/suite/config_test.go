package suite

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/metriplectic/internal/compose"
	"github.com/danielpatrickdp/metriplectic/internal/convergence"
	"github.com/danielpatrickdp/metriplectic/internal/dispersion"
	"github.com/danielpatrickdp/metriplectic/internal/dissipative"
	"github.com/danielpatrickdp/metriplectic/internal/field"
	"github.com/danielpatrickdp/metriplectic/internal/fit"
	"github.com/danielpatrickdp/metriplectic/internal/gate"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, compose.Schemes(), cfg.Schemes)
	assert.Equal(t, 1e-14, cfg.Convergence.Picard.Tolerance)
	assert.True(t, cfg.Dispersion.Enabled)
	assert.Equal(t, 512, cfg.Dispersion.Grid.N)
}

func TestLoadConfigWithoutFile(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "suite.yaml", `
schemes: [jmj, m_only]
spec:
  boundary: neumann
  params:
    D: 0.2
structure:
  draws: 20
convergence:
  seeds: [4, 5]
  picard:
    tolerance: 1.0e-13
    max_iterations: 100
  expectations:
    jmj: {order: 3}
dispersion:
  enabled: false
  policy: fail
thresholds:
  min_r2: 0.99
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []compose.Scheme{compose.JMJStrang, compose.MOnly}, cfg.Schemes)
	assert.Equal(t, dissipative.Neumann, cfg.Spec.Boundary)
	assert.Equal(t, 0.2, cfg.Spec.Params.D)
	assert.Equal(t, 1.0, cfg.Spec.Params.R, "unset keys keep their defaults")
	assert.Equal(t, 20, cfg.Structure.Draws)
	assert.Equal(t, []int64{4, 5}, cfg.Convergence.Seeds)
	assert.Len(t, cfg.Convergence.Dts, 10)
	assert.Equal(t, 100, cfg.Convergence.Picard.MaxIterations)
	assert.False(t, cfg.Dispersion.Enabled)
	assert.Equal(t, dispersion.Fail, cfg.Dispersion.Policy)
	assert.Equal(t, 0.99, cfg.Thresholds.MinR2)
	assert.Equal(t, convergence.Expectation{Order: 3}, cfg.Expectation(compose.JMJStrang))
	assert.Equal(t, convergence.DefaultExpectation(compose.JOnly), cfg.Expectation(compose.JOnly))
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeFile(t, "suite.json", `{"schemes":["j_only"],"reversibility":{"dt":0.1,"steps":10}}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []compose.Scheme{compose.JOnly}, cfg.Schemes)
	assert.Equal(t, 0.1, cfg.Reversibility.Dt)
	assert.Equal(t, 10, cfg.Reversibility.Steps)
	assert.Equal(t, int64(11), cfg.Reversibility.Seed)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("METRIPLECTIC_SCHEMES", "m_only")
	t.Setenv("METRIPLECTIC_SPEC_BOUNDARY", "neumann")
	t.Setenv("METRIPLECTIC_CONVERGENCE_GRID_N", "16")
	t.Setenv("METRIPLECTIC_CONVERGENCE_PICARD_MAX_ITERATIONS", "75")
	t.Setenv("METRIPLECTIC_DISPERSION_ENABLED", "false")
	t.Setenv("METRIPLECTIC_THRESHOLD_SLOPE_MARGIN", "0.2")

	path := writeFile(t, "suite.yaml", "schemes: [jmj]\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []compose.Scheme{compose.MOnly}, cfg.Schemes, "environment wins over the file")
	assert.Equal(t, dissipative.Neumann, cfg.Spec.Boundary)
	assert.Equal(t, 16, cfg.Convergence.Grid.N)
	assert.Equal(t, 75, cfg.Convergence.Picard.MaxIterations)
	assert.False(t, cfg.Dispersion.Enabled)
	assert.Equal(t, 0.2, cfg.Thresholds.SlopeMargin)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "bad.yaml", "schemes: [rk4]\n"))
	assert.ErrorIs(t, err, field.ErrUnknownScheme)

	_, err = LoadConfig(writeFile(t, "bad.json", `{"spec":{"params":{"D":-1}}}`))
	assert.ErrorIs(t, err, field.ErrNegativeDiffusion)

	_, err = LoadConfig(writeFile(t, "grid.yaml", "structure:\n  grid: {n: 0, dx: 1}\n"))
	assert.ErrorIs(t, err, field.ErrInvalidGrid)

	_, err = LoadConfig(writeFile(t, "empty.yaml", "schemes: []\n"))
	assert.ErrorIs(t, err, field.ErrUnknownScheme)
}

func TestValidateRejectsBadSweepBounds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"negative dispersion steps", func(c *Config) { c.Dispersion.Steps = -5 }, field.ErrDegenerateStep},
		{"zero dispersion dt", func(c *Config) { c.Dispersion.Dt = 0 }, field.ErrDegenerateStep},
		{"no dispersion modes", func(c *Config) { c.Dispersion.Modes = nil }, field.ErrEmptySweep},
		{"no convergence dts", func(c *Config) { c.Convergence.Dts = nil }, field.ErrEmptySweep},
		{"no convergence seeds", func(c *Config) { c.Convergence.Seeds = []int64{} }, field.ErrEmptySweep},
		{"NaN convergence dt", func(c *Config) { c.Convergence.Dts = []float64{0.1, math.NaN()} }, field.ErrDegenerateStep},
		{"negative draws", func(c *Config) { c.Structure.Draws = -1 }, field.ErrEmptySweep},
		{"no energy seeds", func(c *Config) { c.Energy.Seeds = nil }, field.ErrEmptySweep},
		{"zero energy dt", func(c *Config) { c.Energy.Dt = 0 }, field.ErrDegenerateStep},
		{"negative reversibility steps", func(c *Config) { c.Reversibility.Steps = -1 }, field.ErrDegenerateStep},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tc.want)
		})
	}

	cfg := DefaultConfig()
	cfg.Dispersion.Modes = []int{1, 0}
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Dispersion.Enabled = false
	cfg.Dispersion.Steps = -5
	assert.NoError(t, cfg.Validate(), "a disabled sweep is not checked")
}

func TestLoadConfigRejectsNegativeStepsFromEnv(t *testing.T) {
	t.Setenv("METRIPLECTIC_DISPERSION_STEPS", "-5")
	_, err := LoadConfig("")
	assert.ErrorIs(t, err, field.ErrDegenerateStep)
}

func TestRecordEncodesNonFiniteAsNull(t *testing.T) {
	rep := gate.Evaluate("jmj", []gate.Result{
		gate.Fail("convergence_fit", "degenerate"),
		gate.AtLeast("convergence_r2", 0.5, 0.999),
	})
	rec := Record{
		RunID:     "r1",
		Scheme:    "jmj",
		Validator: ValidatorConvergence,
		Grid:      field.Grid{N: 8, Dx: 1},
		Samples:   []Sample{{Seed: 1, Dt: 0.1, Value: finite(math.NaN())}, {Seed: 1, Dt: 0.05, Value: finite(2)}},
		Fit:       summarizeFit(fit.Line{Slope: 3, Intercept: math.Inf(-1), R2: math.NaN()}),
		Gate:      summarizeGates(rep),
		Reason:    rep.Reason,
	}
	data, err := rec.Encode()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	samples := decoded["samples"].([]any)
	assert.Nil(t, samples[0].(map[string]any)["value"])
	assert.Equal(t, 2.0, samples[1].(map[string]any)["value"])

	fitJSON := decoded["fit"].(map[string]any)
	assert.Equal(t, 3.0, fitJSON["slope"])
	assert.Nil(t, fitJSON["intercept"])
	assert.Nil(t, fitJSON["r2"])

	g := decoded["gate"].(map[string]any)
	assert.Equal(t, false, g["passed"])
	assert.Nil(t, g["observed"].(map[string]any)["convergence_fit"])
	assert.Equal(t, 0.999, g["thresholds"].(map[string]any)["convergence_r2"])
	assert.Contains(t, decoded["reason"], "2 gates failed")
}
