package mete

import (
	"math"

	"github.com/matzehuels/macroeco/pkg/errors"
)

// Params are the derived Lagrange multipliers for a community.
// Values are computed fresh by Derive and never mutated.
type Params struct {
	Community  Community `json:"community"`
	Beta       float64   `json:"beta"`
	Lambda1    float64   `json:"lambda1"`
	Lambda2    float64   `json:"lambda2"`
	Sigma      float64   `json:"sigma"`
	Norm       float64   `json:"norm"` // Harte (2011) eq. 7.22
	Iterations int       `json:"iterations"`
}

// Derive solves for beta and computes the dependent parameters.
func Derive(c Community, opts SolverOptions) (Params, error) {
	if err := c.Validate(); err != nil {
		return Params{}, err
	}
	sol, err := SolveBeta(c.S, c.N, opts)
	if err != nil {
		return Params{}, err
	}
	p, err := ParamsFor(c, sol.Beta)
	if err != nil {
		return Params{}, err
	}
	p.Iterations = sol.Iterations
	return p, nil
}

// ParamsFor computes lambda1, lambda2, sigma and the normalisation constant
// for a known beta.
func ParamsFor(c Community, beta float64) (Params, error) {
	if err := c.Validate(); err != nil {
		return Params{}, err
	}
	if !(beta > 0) || math.IsInf(beta, 0) {
		return Params{}, errors.New(errors.ErrCodePrecondition, "beta must be positive and finite, got %g", beta)
	}

	lambda2 := c.Lambda2()
	lambda1 := beta - lambda2
	sigma := lambda1 + c.E*lambda2

	diff, err := geometricDiff(beta, sigma, c.N)
	if err != nil {
		return Params{}, err
	}
	norm := float64(c.S) / (lambda2 * float64(c.N)) * diff
	if !finite(norm) || norm == 0 {
		return Params{}, errors.New(errors.ErrCodeNumericInstability,
			"normalisation constant is %g for S=%d N=%d E=%g", norm, c.S, c.N, c.E)
	}

	return Params{
		Community: c,
		Beta:      beta,
		Lambda1:   lambda1,
		Lambda2:   lambda2,
		Sigma:     sigma,
		Norm:      norm,
	}, nil
}

// geometricSum returns Σ_{k=1}^{n} e^{-tk}, i.e.
// (e^{-t} − e^{-t(n+1)}) / (1 − e^{-t}), using its limit n at t = 0.
func geometricSum(t float64, n int) float64 {
	if t == 0 {
		return float64(n)
	}
	return math.Exp(-t) * math.Expm1(-t*float64(n)) / math.Expm1(-t)
}

// geometricDiff returns geometricSum(beta) − geometricSum(sigma), the bracket
// shared by the psi normalisation constants.
func geometricDiff(beta, sigma float64, n int) (float64, error) {
	d := geometricSum(beta, n) - geometricSum(sigma, n)
	if !finite(d) || d == 0 {
		return 0, errors.New(errors.ErrCodeNumericInstability,
			"geometric sums cancel (beta=%g sigma=%g N=%d)", beta, sigma, n)
	}
	return d, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
