package mete

import (
	"math"

	"github.com/matzehuels/macroeco/pkg/errors"
)

// NuLowerOffset keeps the nu support off its singular point at eta = 1.
const NuLowerOffset = 1e-10

// Nu is the distribution of metabolic rates averaged over the individuals of
// a species (Harte 2011, table 7.3):
//
//	nu(eta) = 1/ln(1/β) · e^{-β/(λ2(eta−1))} / (eta−1),  1 < eta ≤ E
//
// The expression is used as published and is not renormalised, so it does not
// integrate to one over its support.
type Nu struct {
	community Community
	beta      float64
	lambda2   float64
	scale     float64 // 1 / ln(1/β)
}

// NewNu builds nu from derived parameters.
func NewNu(p Params) (*Nu, error) {
	if err := p.Community.Validate(); err != nil {
		return nil, err
	}
	if !(p.Beta > 0) || !(p.Lambda2 > 0) {
		return nil, errors.New(errors.ErrCodePrecondition,
			"nu needs positive beta and lambda2, got beta=%g lambda2=%g", p.Beta, p.Lambda2)
	}

	logInv := math.Log(1 / p.Beta)
	if logInv == 0 || !finite(logInv) {
		return nil, errors.New(errors.ErrCodeNumericInstability,
			"nu prefactor 1/ln(1/beta) is undefined for beta=%g", p.Beta)
	}

	return &Nu{
		community: p.Community,
		beta:      p.Beta,
		lambda2:   p.Lambda2,
		scale:     1 / logInv,
	}, nil
}

// Name implements Density.
func (n *Nu) Name() string { return "nu" }

// Domain implements Density. The lower end is open, so it is offset by NuLowerOffset.
func (n *Nu) Domain() (float64, float64) { return 1 + NuLowerOffset, n.community.E }

// PDF implements Density.
func (n *Nu) PDF(eta float64) float64 {
	if !inDomain(n, eta) {
		return 0
	}
	d := eta - 1
	return n.scale * math.Exp(-n.beta/(n.lambda2*d)) / d
}
