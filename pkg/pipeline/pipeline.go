// Package pipeline evaluates METE distributions for the command line and the
// workflow harness.
//
// The numerical core in package mete never caches and never logs. This
// package wraps it with the concerns a complete run needs: option defaults,
// a content-addressed result cache, debug logging of solver diagnostics, and
// observability events.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Distribution: pipeline.DistPsi,
//	    Community:    mete.Community{S: 5, N: 20, E: 100},
//	    Summarize:    true,
//	    Sample:       []float64{1.5, 2, 7.25},
//	})
//	fmt.Println(result.NegLogLikelihood)
//
// # Distributions
//
//   - theta: energy of individuals within one species of abundance Species
//   - nu: metabolic rate of species (not renormalised)
//   - psi: energy of individuals in the community; Alternate selects the
//     independently normalised formulation
//   - rank: expected metabolic rate per species for an abundance sample
package pipeline

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/macroeco/pkg/cache"
	"github.com/matzehuels/macroeco/pkg/errors"
	"github.com/matzehuels/macroeco/pkg/mete"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Workflow
// =============================================================================

// Distribution names.
const (
	DistTheta = "theta"
	DistNu    = "nu"
	DistPsi   = "psi"
	DistRank  = "rank"
)

// ValidDistributions is the set of supported distributions.
var ValidDistributions = map[string]bool{
	DistTheta: true,
	DistNu:    true,
	DistPsi:   true,
	DistRank:  true,
}

// DefaultPointsPerUnit is the support resolution per unit of energy.
const DefaultPointsPerUnit = mete.DefaultPointsPerUnit

// =============================================================================
// Options - Evaluation Configuration
// =============================================================================

// Options describes one evaluation.
type Options struct {
	Distribution string         `json:"distribution"`
	Community    mete.Community `json:"community"`

	// Species is the abundance n of the species theta describes.
	Species int `json:"species,omitempty"`
	// Abundances is the empirical sample for rank.
	Abundances []int `json:"abundances,omitempty"`

	// Summarize reduces the density to a negative log-likelihood over Sample.
	// Without a Sample the support grid itself is used.
	Summarize bool      `json:"summarize,omitempty"`
	Sample    []float64 `json:"sample,omitempty"`

	// Alternate selects the independently normalised psi formulation.
	Alternate bool `json:"alternate,omitempty"`

	PointsPerUnit float64            `json:"points_per_unit,omitempty"`
	Solver        mete.SolverOptions `json:"solver"`

	// Refresh skips the cache lookup; the fresh result is still stored.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result is the outcome of one evaluation.
type Result struct {
	Distribution string `json:"distribution"`

	// Params holds the derived parameters for nu and psi.
	Params *mete.Params `json:"params,omitempty"`

	// Support and Density are the evaluation grid and the density on it.
	// For rank, Support holds the abundances and Density the expected rates.
	Support []float64 `json:"support,omitempty"`
	Density []float64 `json:"density,omitempty"`

	// Integral is the trapezoidal integral of Density over Support.
	Integral float64 `json:"integral,omitempty"`

	// NegLogLikelihood is set when Summarized is true.
	Summarized       bool    `json:"summarized,omitempty"`
	NegLogLikelihood float64 `json:"nll,omitempty"`

	// Cached reports whether the result came from the cache.
	Cached bool  `json:"-"`
	Stats  Stats `json:"-"`
}

// Stats contains evaluation statistics.
type Stats struct {
	Points           int
	SolverIterations int
	Duration         time.Duration
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateDistribution checks that a distribution name is known.
func ValidateDistribution(name string) error {
	if !ValidDistributions[name] {
		return errors.New(errors.ErrCodeInvalidInput,
			"invalid distribution: %q (must be one of: theta, nu, psi, rank)", name)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options and fills in defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := ValidateDistribution(o.Distribution); err != nil {
		return err
	}
	if o.Alternate && o.Distribution != DistPsi {
		return errors.New(errors.ErrCodeInvalidInput, "alternate formulation only exists for psi")
	}
	if o.Distribution == DistRank && (o.Summarize || len(o.Sample) > 0) {
		return errors.New(errors.ErrCodeInvalidInput, "rank has no density to summarize")
	}
	if o.Distribution == DistTheta && o.Species == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "theta needs the species abundance")
	}
	if len(o.Sample) > 0 && !o.Summarize {
		return errors.New(errors.ErrCodeInvalidInput, "a sample is only used with summarize")
	}

	switch {
	case o.PointsPerUnit == 0:
		o.PointsPerUnit = DefaultPointsPerUnit
	case !(o.PointsPerUnit > 0) || math.IsInf(o.PointsPerUnit, 0):
		return errors.New(errors.ErrCodeInvalidInput, "points per unit must be positive and finite, got %g", o.PointsPerUnit)
	}
	if err := validateSolver(o.Solver); err != nil {
		return err
	}
	o.Solver = o.Solver.WithDefaults()

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// validateSolver rejects non-finite solver settings. Zero still means default.
func validateSolver(s mete.SolverOptions) error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"lower", s.Lower}, {"upper", s.Upper}, {"xtol", s.XTol}, {"rtol", s.RTol}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return errors.New(errors.ErrCodeInvalidInput, "solver %s must be finite, got %g", f.name, f.v)
		}
	}
	return nil
}

// Grid returns the support grid for these options.
func (o *Options) Grid() mete.Grid {
	return mete.Grid{PointsPerUnit: o.PointsPerUnit}
}

// EvalKeyOpts returns cache key options for this evaluation.
func (o *Options) EvalKeyOpts() cache.EvalKeyOpts {
	return cache.EvalKeyOpts{
		S:             o.Community.S,
		N:             o.Community.N,
		E:             o.Community.E,
		Species:       o.Species,
		Sample:        o.Sample,
		Abundances:    o.Abundances,
		Summarize:     o.Summarize,
		Alternate:     o.Alternate,
		PointsPerUnit: o.PointsPerUnit,
		Solver:        o.Solver,
	}
}

// Label names the evaluated density, e.g. "psi" or "psi-alt".
func (o *Options) Label() string {
	if o.Alternate {
		return fmt.Sprintf("%s-alt", o.Distribution)
	}
	return o.Distribution
}
