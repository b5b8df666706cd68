package replay

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/metriplectic/internal/compose"
	"github.com/danielpatrickdp/metriplectic/internal/field"
	"github.com/danielpatrickdp/metriplectic/internal/store"
	"github.com/danielpatrickdp/metriplectic/internal/suite"
)

func quickConfig() suite.Config {
	cfg := suite.DefaultConfig()
	cfg.Schemes = []compose.Scheme{compose.JOnly, compose.MOnly}
	cfg.Structure.Grid = field.Grid{N: 16, Dx: 0.5}
	cfg.Structure.Draws = 10
	cfg.Dispersion.Enabled = false
	return cfg
}

// recordedRun executes quickConfig against a fresh store and exports it.
func recordedRun(t *testing.T) (*store.Store, Fixture) {
	t.Helper()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "replay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	out, err := suite.NewRunner(quickConfig(), suite.WithStore(st)).Run(context.Background())
	require.NoError(t, err)
	require.True(t, out.Passed)

	fx, err := ExportRun(st, out.RunID, "quick run")
	require.NoError(t, err)
	return st, fx
}

func TestExportRun(t *testing.T) {
	_, fx := recordedRun(t)
	assert.Equal(t, "quick run", fx.Description)
	assert.Len(t, fx.ExpectedRecords, 10)
	assert.Equal(t, quickConfig().Schemes, fx.Config.Schemes)
	assert.Len(t, fx.Config.Convergence.Dts, 10)
	require.NoError(t, fx.Config.Validate())
}

func TestExportUnknownRun(t *testing.T) {
	st, _ := recordedRun(t)
	_, err := ExportRun(st, "missing", "")
	assert.Error(t, err)
}

func TestReplayReproducesRun(t *testing.T) {
	_, fx := recordedRun(t)

	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, fx.Save(path))
	loaded, err := LoadFixture(path)
	require.NoError(t, err)

	res, err := Replay(context.Background(), loaded, DefaultTolerance)
	require.NoError(t, err)
	assert.True(t, res.Matched(), "%+v", res.Mismatches)
	assert.Equal(t, 10, res.Records)
	assert.NotEqual(t, fx.RunID, res.RunID)
}

func TestCompareDetectsDrift(t *testing.T) {
	_, fx := recordedRun(t)
	want := fx.ExpectedRecords

	got := make([]suite.Record, len(want))
	copy(got, want)

	var conv int
	for i, rec := range got {
		if rec.Scheme == "m_only" && rec.Validator == suite.ValidatorConvergence {
			conv = i
		}
	}
	rec := got[conv]
	rec.Samples = append([]suite.Sample(nil), rec.Samples...)
	shifted := *rec.Samples[0].Value * (1 + 1e-6)
	rec.Samples[0].Value = &shifted
	rec.Gate.Passed = false
	got[conv] = rec

	mm := Compare(want, got, DefaultTolerance)
	require.Len(t, mm, 2)
	assert.Equal(t, "gate.passed", mm[0].Field)
	assert.Equal(t, "samples[0].value", mm[1].Field)
	assert.Equal(t, "m_only", mm[1].Scheme)

	assert.Empty(t, Compare(want, got, 1e-3)[1:], "a loose tolerance only keeps the gate flip")
}

func TestCompareMissingAndExtraRecords(t *testing.T) {
	want := []suite.Record{{Scheme: "jmj", Validator: "convergence"}}
	got := []suite.Record{{Scheme: "jmj", Validator: "lyapunov"}}
	mm := Compare(want, got, DefaultTolerance)
	require.Len(t, mm, 2)
	assert.Equal(t, Mismatch{Scheme: "jmj", Validator: "convergence", Field: "record", Want: "present", Got: "missing"}, mm[0])
	assert.Equal(t, "absent", mm[1].Want)
}

func TestWithinTreatsNullStrictly(t *testing.T) {
	one := 1.0
	assert.True(t, within(nil, nil, 0))
	assert.False(t, within(&one, nil, 1))
	assert.True(t, within(&one, &one, 0))
}

func TestLoadFixtureErrors(t *testing.T) {
	_, err := LoadFixture(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, Fixture{Config: suite.DefaultConfig()}.Save(path))
	_, err = LoadFixture(path)
	assert.Error(t, err)
}
