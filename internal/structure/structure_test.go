package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/metriplectic/internal/dissipative"
	"github.com/danielpatrickdp/metriplectic/internal/field"
)

func TestApplyJ(t *testing.T) {
	out, err := ApplyJ([]float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, -1, -2}, out)

	_, err = ApplyJ([]float64{1, 2, 3})
	assert.ErrorIs(t, err, field.ErrDimensionMismatch)

	// J² = −I.
	v := field.RandomField(field.NewRand(4), 10)
	jv, err := ApplyJ(v)
	require.NoError(t, err)
	jjv, err := ApplyJ(jv)
	require.NoError(t, err)
	for i := range v {
		assert.Equal(t, -v[i], jjv[i])
	}
}

func TestApplyMMatchesNegativeLaplacian(t *testing.T) {
	u := field.Field{1, 0, 0, 2}
	assert.Equal(t, field.Field{0, -0.5, -1, 1.5}, ApplyM(u, 1, 0.5, dissipative.Periodic))
	assert.Equal(t, field.Field{1, 0, 0, 2}, u)
}

func TestSkewTest(t *testing.T) {
	g, err := field.NewGrid(64, 0.1)
	require.NoError(t, err)
	out, err := SkewTest(field.NewRand(42), g, 0, 1e-12)
	require.NoError(t, err)
	assert.Len(t, out.Values, DefaultDraws)
	assert.True(t, out.Result.Passed, "%+v", out.Result)
	assert.LessOrEqual(t, out.Statistic, 1e-10)
}

func TestSkewTestDeterministic(t *testing.T) {
	g := field.Grid{N: 16, Dx: 1}
	a, err := SkewTest(field.NewRand(1), g, 10, 1e-12)
	require.NoError(t, err)
	b, err := SkewTest(field.NewRand(1), g, 10, 1e-12)
	require.NoError(t, err)
	assert.Equal(t, a.Values, b.Values)
}

func TestPSDTest(t *testing.T) {
	g, err := field.NewGrid(64, 1)
	require.NoError(t, err)
	for _, b := range []dissipative.Boundary{dissipative.Periodic, dissipative.Neumann} {
		out, err := PSDTest(field.NewRand(7), g, 0.5, b, 50, 1e-12)
		require.NoError(t, err)
		assert.Len(t, out.Values, 50)
		assert.True(t, out.Result.Passed, "%s: %+v", b, out.Result)
		for _, v := range out.Values {
			assert.GreaterOrEqual(t, v, -1e-10)
		}
	}
}

func TestPSDTestZeroDiffusion(t *testing.T) {
	out, err := PSDTest(field.NewRand(7), field.Grid{N: 8, Dx: 1}, 0, dissipative.Periodic, 5, 1e-12)
	require.NoError(t, err)
	assert.True(t, out.Result.Passed)
	assert.Equal(t, 0.0, out.Statistic)
}

func TestStructureErrors(t *testing.T) {
	_, err := SkewTest(field.NewRand(1), field.Grid{N: -1, Dx: 1}, 10, 1e-12)
	assert.ErrorIs(t, err, field.ErrInvalidGrid)
	_, err = PSDTest(field.NewRand(1), field.Grid{N: 4, Dx: 1}, -1, dissipative.Periodic, 10, 1e-12)
	assert.ErrorIs(t, err, field.ErrNegativeDiffusion)
}
