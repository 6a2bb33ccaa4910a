// Package mete evaluates the energy distributions of the Maximum Entropy
// Theory of Ecology (Harte 2011).
//
// A community is summarised by three state variables: the species count S,
// the individual count N and the total metabolic energy E, with 1 < S < N < E.
// From them the package derives the Lagrange multipliers of the entropy
// maximisation and evaluates three closed-form densities:
//
//   - [Theta]: the intra-specific distribution of individual energy for a species with n individuals
//   - [Nu]: the distribution of per-species average metabolic rate
//   - [Psi]: the community distribution of individual energy
//
// # Solving for beta
//
// beta is the root of the balance equation
//
//	Σ_{k=1}^{N} x^k · S/N = Σ_{k=1}^{N} x^k / k,   x = e^{-beta}
//
// found with Brent's method on the bracket [0.3, min(2, (MaxFloat64/S)^{1/N})].
// The upper end is clamped so x^N·S cannot overflow.
//
// # Densities and likelihoods
//
// Every distribution implements [Density]. [Grid] turns its nominal domain
// into a deterministic support, [Evaluate] returns the density over any set of
// points and [NegLogLikelihood] reduces a sample to −Σ ln pdf.
//
//	p, err := mete.Derive(mete.Community{S: 5, N: 20, E: 100}, mete.DefaultSolverOptions())
//	if err != nil {
//	    return err
//	}
//	psi, err := mete.NewPsi(p)
//	support, _ := mete.DefaultGrid().Support(psi)
//	density, err := mete.Evaluate(psi, support)
//
// # Known limitations
//
// [Nu] is not renormalised over its support and does not integrate to one.
//
// [Psi] carries two formulations. PDF (Harte 2011, eq. 7.24) reduces to
// Σ_{k=1}^{N-1} k·g^k while AltPDF sums to N, so the two drift apart as the
// energy grows and ∫PDF falls short of one by the k = N term. Both are exposed;
// PDF is the default.
//
// All functions are pure. Nothing is cached between calls, so values may be
// shared freely across goroutines.
package mete
