package mete

import (
	"github.com/matzehuels/macroeco/pkg/errors"
)

// ValidateSample checks an empirical species-abundance sample against c:
// one count per species, counts summing to N, each count in [1, N).
func ValidateSample(c Community, counts []int) error {
	if len(counts) != c.S {
		return errors.New(errors.ErrCodeInvalidSample,
			"sample has %d species, want S=%d", len(counts), c.S)
	}
	total := 0
	for i, n := range counts {
		if n < 1 || n >= c.N {
			return errors.New(errors.ErrCodeInvalidSample,
				"count %d at index %d is outside [1, %d)", n, i, c.N)
		}
		total += n
	}
	if total != c.N {
		return errors.New(errors.ErrCodeInvalidSample,
			"sample sums to %d, want N=%d", total, c.N)
	}
	return nil
}

// RankAbundance returns the expected metabolic rate of each species,
// eta_i = 1 + 1/(n_i·λ2) (Harte 2011, table 7.3), in input order.
func RankAbundance(c Community, counts []int) ([]float64, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateSample(c, counts); err != nil {
		return nil, err
	}

	lambda2 := c.Lambda2()
	eta := make([]float64, len(counts))
	for i, n := range counts {
		eta[i] = 1 + 1/(float64(n)*lambda2)
	}
	return eta, nil
}
