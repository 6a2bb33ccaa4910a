package mete

import (
	"math"

	"github.com/matzehuels/macroeco/pkg/errors"
)

// Psi is the community energy distribution (Harte 2011, table 7.3).
//
// With gamma(e) = β + (e−1)·λ2 and g = e^{-gamma}:
//
//	PDF(e)    = S/(N·norm) · [g/(1−g)² − g^N/(1−g) · (N + g/(1−g))]   (eq. 7.24)
//	AltPDF(e) = f · g · (1 − (N+1)·g^N + N·g^{N+1}) / (1−g)²
//
// where f = λ2 / (Σ_{k≤N} e^{-kβ} − Σ_{k≤N} e^{-kσ}). The two disagree at high
// energies; see the package documentation.
type Psi struct {
	params     Params
	prefactor  float64 // S / (N·norm)
	normFactor float64
}

// NewPsi builds psi from derived parameters.
func NewPsi(p Params) (*Psi, error) {
	if err := p.Community.Validate(); err != nil {
		return nil, err
	}
	if !(p.Beta > 0) || !(p.Lambda2 > 0) {
		return nil, errors.New(errors.ErrCodePrecondition,
			"psi needs positive beta and lambda2, got beta=%g lambda2=%g", p.Beta, p.Lambda2)
	}
	if p.Norm == 0 || !finite(p.Norm) {
		return nil, errors.New(errors.ErrCodeNumericInstability, "psi normalisation constant is %g", p.Norm)
	}

	diff, err := geometricDiff(p.Beta, p.Sigma, p.Community.N)
	if err != nil {
		return nil, err
	}

	return &Psi{
		params:     p,
		prefactor:  float64(p.Community.S) / (float64(p.Community.N) * p.Norm),
		normFactor: p.Lambda2 / diff,
	}, nil
}

// Name implements Density.
func (p *Psi) Name() string { return "psi" }

// Domain implements Density.
func (p *Psi) Domain() (float64, float64) { return 1, p.params.Community.E }

// Params returns the parameters psi was built from.
func (p *Psi) Params() Params { return p.params }

// terms returns g = e^{-gamma(e)} and 1 − g.
func (p *Psi) terms(e float64) (g, omg float64) {
	gamma := p.params.Beta + (e-1)*p.params.Lambda2
	return math.Exp(-gamma), -math.Expm1(-gamma)
}

// PDF implements Density with eq. 7.24.
func (p *Psi) PDF(e float64) float64 {
	if !inDomain(p, e) {
		return 0
	}
	n := float64(p.params.Community.N)
	g, omg := p.terms(e)
	gn := math.Pow(g, n)
	r := g / omg
	return p.prefactor * (r/omg - gn/omg*(n+r))
}

// AltPDF evaluates the independently normalised formulation.
func (p *Psi) AltPDF(e float64) float64 {
	if !inDomain(p, e) {
		return 0
	}
	n := float64(p.params.Community.N)
	g, omg := p.terms(e)
	gn := math.Pow(g, n)
	return p.normFactor * g * (1 - (n+1)*gn + n*gn*g) / (omg * omg)
}

// Alternate returns AltPDF as a Density.
func (p *Psi) Alternate() Density { return psiAlt{p} }

type psiAlt struct{ *Psi }

func (a psiAlt) Name() string          { return "psi-alt" }
func (a psiAlt) PDF(e float64) float64 { return a.AltPDF(e) }

// TruncationRatio returns ∫PDF / ∫AltPDF over [1, E], which is
// Σ_{k<N}(e^{-kβ} − e^{-kσ}) / Σ_{k≤N}(e^{-kβ} − e^{-kσ}).
func (p *Psi) TruncationRatio() float64 {
	n := p.params.Community.N
	beta, sigma := p.params.Beta, p.params.Sigma
	full := geometricSum(beta, n) - geometricSum(sigma, n)
	last := math.Exp(-beta*float64(n)) - math.Exp(-sigma*float64(n))
	return (full - last) / full
}
