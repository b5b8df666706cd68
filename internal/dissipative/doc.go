// Package dissipative implements the M step: a discrete-gradient (AVF)
// solver for the reaction–diffusion law
//
//	∂tφ = D∇²φ + f(φ),  f(φ) = rφ − uφ² − λφ³,
//
// whose Lyapunov functional L[φ] = ∫ (D/2|∇φ|² + V(φ)) dx, V′ = −f, is
// non-increasing along the discrete trajectory.
//
// The implicit step
//
//	(φ¹ − φ⁰)/Δt = D·Δh((φ¹ + φ⁰)/2) + f̄(φ⁰, φ¹)
//
// is solved by an explicit-Euler predictor followed by a fixed number of
// Picard sweeps (default 3). The sweep error contracts by roughly
// q = |Δt|·(2D/dx² + max|f′(φ)|) per sweep, so after k sweeps the residual
// is O(q^k) times the predictor error O(Δt²). With finite sweeps an energy
// increase up to 1e-10 is numerical noise. Setting Config.Tolerance selects
// the convergence-checked variant instead.
//
// The Laplacian and the gradient used by the energy come as one Boundary
// unit (Periodic or Neumann) so they are always summation-by-parts
// consistent; mixing them would break the monotonicity guarantee.
package dissipative
