package mete

import (
	"math"

	"github.com/matzehuels/macroeco/pkg/errors"
)

// Community holds the METE state variables.
type Community struct {
	S int     `json:"S" toml:"S" yaml:"S"` // species
	N int     `json:"N" toml:"N" yaml:"N"` // individuals
	E float64 `json:"E" toml:"E" yaml:"E"` // total metabolic energy
}

// Validate enforces 1 < S < N < E.
func (c Community) Validate() error {
	if err := validateCounts(c.S, c.N); err != nil {
		return err
	}
	if math.IsNaN(c.E) || math.IsInf(c.E, 0) {
		return errors.New(errors.ErrCodePrecondition, "E must be finite, got %g", c.E)
	}
	if !(float64(c.N) < c.E) {
		return errors.New(errors.ErrCodePrecondition, "N must be less than E, got N=%d E=%g", c.N, c.E)
	}
	return nil
}

func validateCounts(s, n int) error {
	if s <= 1 {
		return errors.New(errors.ErrCodePrecondition, "S must be greater than 1, got %d", s)
	}
	if n <= 0 {
		return errors.New(errors.ErrCodePrecondition, "N must be greater than 0, got %d", n)
	}
	if s >= n {
		return errors.New(errors.ErrCodePrecondition, "S must be less than N, got S=%d N=%d", s, n)
	}
	return nil
}

// Lambda2 returns S / (E − N) (Harte 2011, eq. 7.26).
// The caller is responsible for validating c first.
func (c Community) Lambda2() float64 {
	return float64(c.S) / (c.E - float64(c.N))
}
