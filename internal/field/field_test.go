package field

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGridRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		n    int
		dx   float64
	}{
		{"zero n", 0, 1},
		{"negative n", -4, 1},
		{"zero dx", 8, 0},
		{"negative dx", 8, -0.5},
		{"nan dx", 8, math.NaN()},
		{"inf dx", 8, math.Inf(1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewGrid(tc.n, tc.dx)
			assert.True(t, errors.Is(err, ErrInvalidGrid), "got %v", err)
		})
	}
}

func TestNewGridFromLength(t *testing.T) {
	g, err := NewGridFromLength(64, 2*math.Pi)
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Pi/64, g.Dx, 1e-15)
	assert.InDelta(t, 2*math.Pi, g.Length(), 1e-12)

	_, err = NewGridFromLength(0, 1)
	assert.ErrorIs(t, err, ErrInvalidGrid)
}

func TestCoordinatesSpacing(t *testing.T) {
	g, err := NewGrid(16, 0.25)
	require.NoError(t, err)
	x := g.Coordinates()
	require.Len(t, x, 16)
	assert.Equal(t, 0.0, x[0])
	for i := 1; i < len(x); i++ {
		assert.InDelta(t, 0.25, x[i]-x[i-1], 1e-12)
	}

	single := Grid{N: 1, Dx: 1}
	assert.Equal(t, []float64{0}, single.Coordinates())
}

func TestGridCheck(t *testing.T) {
	g := Grid{N: 4, Dx: 1}
	assert.NoError(t, g.Check(make(Field, 4)))
	assert.ErrorIs(t, g.Check(make(Field, 5)), ErrDimensionMismatch)
}

func TestFieldHelpers(t *testing.T) {
	f := Field{3, -4, 0, 1}
	c := f.Clone()
	c[0] = 100
	assert.Equal(t, 3.0, f[0], "clone must not alias")

	assert.InDelta(t, math.Sqrt(26), f.Norm2(), 1e-15)
	assert.InDelta(t, 0.0, f.Mean(), 1e-15)
	assert.InDelta(t, 97.0, MaxAbsDiff(f, c), 1e-15)
	assert.True(t, f.IsFinite())
	assert.False(t, Field{1, math.NaN()}.IsFinite())
	assert.Equal(t, 0.0, Field{}.Mean())
}

func TestWaveFieldConcat(t *testing.T) {
	w := WaveField{Phi: Field{1, 2}, Pi: Field{3, 4}}
	assert.Equal(t, []float64{1, 2, 3, 4}, w.Concat())
	c := w.Clone()
	c.Pi[0] = 9
	assert.Equal(t, 3.0, w.Pi[0])
}

func TestRandomFieldDeterministic(t *testing.T) {
	a := RandomField(NewRand(123), 32)
	b := RandomField(NewRand(123), 32)
	c := RandomField(NewRand(124), 32)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestDeriveSeedSeparatesStreams(t *testing.T) {
	seen := map[int64]bool{}
	for s := uint64(0); s < 64; s++ {
		v := DeriveSeed(7, s)
		assert.False(t, seen[v], "duplicate derived seed for stream %d", s)
		seen[v] = true
	}
	assert.Equal(t, DeriveSeed(7, 3), DeriveSeed(7, 3))
}

func TestSmoothFieldIsBandLimited(t *testing.T) {
	g, err := NewGridFromLength(64, 2*math.Pi)
	require.NoError(t, err)
	f := SmoothField(NewRand(5), g, 3, 1)
	require.Len(t, f, 64)
	// Only modes 1..3 are present, so the mean is zero.
	assert.InDelta(t, 0, f.Mean(), 1e-12)
	assert.True(t, f.IsFinite())
}
