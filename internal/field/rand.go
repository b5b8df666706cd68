package field

import (
	"math"
	"math/rand"
)

// #region rng
// NewRand returns a deterministic RNG stream for the given seed. Every
// validator receives its RNG from the caller; there is no package-level source.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// DeriveSeed mixes a base seed with a stream index (SplitMix64 finalizer) so
// parallel units get independent, reproducible streams.
func DeriveSeed(base int64, stream uint64) int64 {
	x := uint64(base) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return int64(x)
}

// #endregion rng

// #region draws
// RandomField draws N independent standard-normal samples.
func RandomField(rng *rand.Rand, n int) Field {
	f := make(Field, n)
	for i := range f {
		f[i] = rng.NormFloat64()
	}
	return f
}

// SmoothField draws a band-limited field Σ_{m=1..maxMode} (a_m sin + b_m cos)(2πm x/L)
// with normal coefficients scaled by amp/m.
func SmoothField(rng *rand.Rand, g Grid, maxMode int, amp float64) Field {
	f := make(Field, g.N)
	x := g.Coordinates()
	l := g.Length()
	for m := 1; m <= maxMode; m++ {
		a := rng.NormFloat64() * amp / float64(m)
		b := rng.NormFloat64() * amp / float64(m)
		k := 2 * math.Pi * float64(m) / l
		for j := range f {
			f[j] += a*math.Sin(k*x[j]) + b*math.Cos(k*x[j])
		}
	}
	return f
}

// #endregion draws
