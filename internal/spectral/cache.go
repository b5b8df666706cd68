package spectral

import (
	"sync"

	"github.com/danielpatrickdp/metriplectic/internal/field"
)

// #region tables
// Tables holds the wavenumber arrays for one (N, dx). The slices are shared
// between callers of the same Cache and must be treated as read-only.
type Tables struct {
	K    []float64 // 2π·fftfreq
	KOdd []float64 // K with the Nyquist bin zeroed
}

type cacheKey struct {
	n  int
	dx float64
}

// #endregion tables

// #region cache
// Cache memoizes Tables keyed by (N, dx). It is an explicit value owned by
// the caller and safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]Tables
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]Tables)}
}

// Tables returns the wavenumber tables for g, computing them on first use.
func (c *Cache) Tables(g field.Grid) Tables {
	key := cacheKey{n: g.N, dx: g.Dx}

	c.mu.RLock()
	t, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return t
	}

	t = Tables{K: Wavenumbers(g.N, g.Dx), KOdd: OddWavenumbers(g.N, g.Dx)}
	c.mu.Lock()
	if existing, ok := c.entries[key]; ok {
		t = existing
	} else {
		c.entries[key] = t
	}
	c.mu.Unlock()
	return t
}

// Len returns the number of cached (N, dx) entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// #endregion cache

// #region ops
// Ops binds the spectral operators to one grid with precomputed tables.
type Ops struct {
	Grid   field.Grid
	tables Tables
}

// NewOps returns operators for g, pulling the tables from cache when non-nil.
func NewOps(g field.Grid, cache *Cache) (Ops, error) {
	if err := g.Validate(); err != nil {
		return Ops{}, err
	}
	var t Tables
	if cache != nil {
		t = cache.Tables(g)
	} else {
		t = Tables{K: Wavenumbers(g.N, g.Dx), KOdd: OddWavenumbers(g.N, g.Dx)}
	}
	return Ops{Grid: g, tables: t}, nil
}

// Tables exposes the precomputed wavenumbers (read-only).
func (o Ops) Tables() Tables {
	return o.tables
}

// Laplacian applies −ω² using the bound tables.
func (o Ops) Laplacian(u field.Field) field.Field {
	return laplacianWith(u, o.tables.K)
}

// Gradient applies iω using the bound tables.
func (o Ops) Gradient(u field.Field) field.Field {
	return gradientWith(u, o.tables.KOdd)
}

// #endregion ops
