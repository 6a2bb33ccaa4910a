package mete

import (
	"math"

	"github.com/matzehuels/macroeco/pkg/errors"
)

// Theta is the intra-specific energy distribution (Harte 2011, eq. 7.25)
// for a species with n individuals:
//
//	theta(e) = n·λ2·e^{-λ2·n·e} / (e^{-λ2·n} − e^{-λ2·n·E}),  1 ≤ e ≤ E
type Theta struct {
	community Community
	n         int
	rate      float64 // λ2·n
	scale     float64 // rate / (1 − e^{-rate(E−1)})
}

// NewTheta builds theta for a species of n individuals, 1 ≤ n < N.
func NewTheta(c Community, n int) (*Theta, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if n < 1 || n >= c.N {
		return nil, errors.New(errors.ErrCodePrecondition, "n must be in [1, N), got n=%d N=%d", n, c.N)
	}

	rate := c.Lambda2() * float64(n)
	// e^{-rate} − e^{-rate·E} = e^{-rate}·(1 − e^{-rate(E−1)}); the e^{-rate}
	// factor cancels against the numerator.
	den := -math.Expm1(-rate * (c.E - 1))
	if !(den > 0) || !finite(den) {
		return nil, errors.New(errors.ErrCodeNumericInstability,
			"theta normalisation vanishes for n=%d (rate %g)", n, rate)
	}

	return &Theta{
		community: c,
		n:         n,
		rate:      rate,
		scale:     rate / den,
	}, nil
}

// Name implements Density.
func (t *Theta) Name() string { return "theta" }

// Domain implements Density.
func (t *Theta) Domain() (float64, float64) { return 1, t.community.E }

// Abundance returns n.
func (t *Theta) Abundance() int { return t.n }

// PDF implements Density.
func (t *Theta) PDF(e float64) float64 {
	if !inDomain(t, e) {
		return 0
	}
	return t.scale * math.Exp(-t.rate*(e-1))
}
