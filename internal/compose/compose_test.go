package compose

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/metriplectic/internal/conservative"
	"github.com/danielpatrickdp/metriplectic/internal/dissipative"
	"github.com/danielpatrickdp/metriplectic/internal/field"
	"github.com/danielpatrickdp/metriplectic/internal/spectral"
)

func testGrid(t *testing.T) field.Grid {
	t.Helper()
	g, err := field.NewGrid(32, 0.5)
	require.NoError(t, err)
	return g
}

func TestParseScheme(t *testing.T) {
	cases := map[string]Scheme{
		"j_only":    JOnly,
		"JOnly":     JOnly,
		"m_only":    MOnly,
		"jmj":       JMJStrang,
		"JMJStrang": JMJStrang,
		" strang ":  JMJStrang,
	}
	for tag, want := range cases {
		got, err := ParseScheme(tag)
		require.NoError(t, err, tag)
		assert.Equal(t, want, got, tag)
	}
	_, err := ParseScheme("rk4")
	assert.ErrorIs(t, err, field.ErrUnknownScheme)

	for _, s := range Schemes() {
		back, err := ParseScheme(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, back)
	}
	assert.True(t, JOnly.Conservative())
	assert.False(t, MOnly.Conservative())
	assert.False(t, JMJStrang.Conservative())
}

func TestSchemeJSON(t *testing.T) {
	b, err := json.Marshal(DefaultSpec())
	require.NoError(t, err)
	assert.Contains(t, string(b), `"scheme":"jmj"`)
	assert.Contains(t, string(b), `"boundary":"periodic"`)

	var spec Spec
	require.NoError(t, json.Unmarshal([]byte(`{"scheme":"m_only","boundary":"neumann","params":{"D":0.2}}`), &spec))
	assert.Equal(t, MOnly, spec.Scheme)
	assert.Equal(t, dissipative.Neumann, spec.Boundary)
	assert.Equal(t, 0.2, spec.Params.D)

	assert.Error(t, json.Unmarshal([]byte(`{"scheme":"euler"}`), &spec))
	_, err = json.Marshal(Scheme(9))
	assert.Error(t, err)
}

func TestBuildRejectsBadConfiguration(t *testing.T) {
	g := testGrid(t)

	spec := DefaultSpec()
	spec.Scheme = Scheme(42)
	_, err := Build(g, spec, Options{})
	assert.ErrorIs(t, err, field.ErrUnknownScheme)

	spec = DefaultSpec()
	spec.Params.D = -0.1
	_, err = Build(g, spec, Options{})
	assert.ErrorIs(t, err, field.ErrNegativeDiffusion)

	_, err = Build(field.Grid{N: 0, Dx: 1}, DefaultSpec(), Options{})
	assert.ErrorIs(t, err, field.ErrInvalidGrid)
}

func TestBuildMatchesPrimitives(t *testing.T) {
	g := testGrid(t)
	spec := DefaultSpec()
	w := field.SmoothField(field.NewRand(11), g, 3, 0.5)
	dt := 0.05

	jSpec := spec
	jSpec.Scheme = JOnly
	jStep, err := Build(g, jSpec, Options{})
	require.NoError(t, err)
	gotJ, err := jStep(w, dt)
	require.NoError(t, err)
	assert.InDeltaSlice(t, conservative.Step(w, dt, g.Dx, spec.Params.C), gotJ, 1e-14)

	mSpec := spec
	mSpec.Scheme = MOnly
	mStep, err := Build(g, mSpec, Options{})
	require.NoError(t, err)
	gotM, err := mStep(w, dt)
	require.NoError(t, err)
	wantM, err := dissipative.Step(w, dt, g.Dx, spec.Params.Reaction(), spec.Boundary, spec.Picard.Iterations)
	require.NoError(t, err)
	assert.Equal(t, wantM, gotM)

	sStep, err := Build(g, spec, Options{Cache: spectral.NewCache()})
	require.NoError(t, err)
	gotS, err := sStep(w, dt)
	require.NoError(t, err)
	half := conservative.Step(w, dt/2, g.Dx, spec.Params.C)
	mid, err := dissipative.Step(half, dt, g.Dx, spec.Params.Reaction(), spec.Boundary, spec.Picard.Iterations)
	require.NoError(t, err)
	wantS := conservative.Step(mid, dt/2, g.Dx, spec.Params.C)
	assert.InDeltaSlice(t, wantS, gotS, 1e-14)
}

func TestSteppersArePure(t *testing.T) {
	g := testGrid(t)
	step, err := Build(g, DefaultSpec(), Options{})
	require.NoError(t, err)

	w := field.SmoothField(field.NewRand(3), g, 2, 0.4)
	orig := w.Clone()
	a, err := step(w, 0.02)
	require.NoError(t, err)
	b, err := step(w, 0.02)
	require.NoError(t, err)
	assert.Equal(t, a, b, "repeated calls must not share state")
	assert.Equal(t, orig, w, "input must not be mutated")
}

func TestBuildPropagatesStepErrors(t *testing.T) {
	g := testGrid(t)
	for _, s := range []Scheme{MOnly, JMJStrang} {
		spec := DefaultSpec()
		spec.Scheme = s
		step, err := Build(g, spec, Options{})
		require.NoError(t, err)
		_, err = step(make(field.Field, g.N), 0)
		assert.ErrorIs(t, err, field.ErrDegenerateStep, s.String())
		_, err = step(make(field.Field, g.N+1), 0.1)
		assert.ErrorIs(t, err, field.ErrDimensionMismatch, s.String())
	}
}

func TestAdvance(t *testing.T) {
	g := testGrid(t)
	spec := DefaultSpec()
	spec.Scheme = JOnly
	step, err := Build(g, spec, Options{})
	require.NoError(t, err)

	w := field.SmoothField(field.NewRand(8), g, 3, 1)
	out, err := Advance(step, w, 0.1, 10)
	require.NoError(t, err)
	assert.InDeltaSlice(t, conservative.Step(w, 1.0, g.Dx, spec.Params.C), out, 1e-12)

	same, err := Advance(step, w, 0.1, 0)
	require.NoError(t, err)
	assert.Equal(t, w, same)
}
