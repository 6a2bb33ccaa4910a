package mete

import (
	"math"

	"github.com/matzehuels/macroeco/pkg/errors"
	"github.com/matzehuels/macroeco/pkg/rootfind"
)

// Default bracket for x = e^{-beta}.
const (
	DefaultLower = 0.3
	DefaultUpper = 2.0
)

// SolverOptions configures the beta root finder.
type SolverOptions struct {
	Lower   float64 `json:"lower"`    // lower end of the x bracket
	Upper   float64 `json:"upper"`    // requested upper end, clamped against overflow
	XTol    float64 `json:"xtol"`     // absolute tolerance on x
	RTol    float64 `json:"rtol"`     // relative tolerance on x
	MaxIter int     `json:"max_iter"` // iteration budget
}

// DefaultSolverOptions returns the bracket [0.3, 2] with brentq tolerances.
func DefaultSolverOptions() SolverOptions {
	return SolverOptions{
		Lower:   DefaultLower,
		Upper:   DefaultUpper,
		XTol:    rootfind.DefaultXTol,
		RTol:    rootfind.DefaultRTol,
		MaxIter: rootfind.DefaultMaxIter,
	}
}

// WithDefaults fills zero fields from DefaultSolverOptions.
func (o SolverOptions) WithDefaults() SolverOptions {
	d := DefaultSolverOptions()
	if o.Lower <= 0 {
		o.Lower = d.Lower
	}
	if o.Upper <= 0 {
		o.Upper = d.Upper
	}
	if o.XTol <= 0 {
		o.XTol = d.XTol
	}
	if o.RTol <= 0 {
		o.RTol = d.RTol
	}
	if o.MaxIter <= 0 {
		o.MaxIter = d.MaxIter
	}
	return o
}

// validate rejects non-finite settings. An infinite tolerance would stop the
// root finder on a bracket endpoint.
func (o SolverOptions) validate() error {
	names := [...]string{"lower", "upper", "xtol", "rtol"}
	for i, v := range [...]float64{o.Lower, o.Upper, o.XTol, o.RTol} {
		if !finite(v) {
			return errors.New(errors.ErrCodePrecondition, "solver %s must be finite, got %g", names[i], v)
		}
	}
	return nil
}

// BetaSolution is a converged beta together with solver diagnostics.
type BetaSolution struct {
	Beta       float64 `json:"beta"`
	X          float64 `json:"x"` // e^{-beta}
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"` // effective, after clamping
	Iterations int     `json:"iterations"`
}

// BalanceEquation evaluates Σ_{k=1}^{N} x^k (S/N − 1/k).
// Its root in x is e^{-beta}.
func BalanceEquation(s, n int, x float64) float64 {
	ratio := float64(s) / float64(n)
	var sum, xk float64 = 0, 1
	for k := 1; k <= n; k++ {
		xk *= x
		sum += xk * (ratio - 1/float64(k))
	}
	return sum
}

// UpperBracket returns min(stop, (MaxFloat64/S)^{1/N}).
func UpperBracket(s, n int, stop float64) float64 {
	return math.Min(stop, math.Pow(math.MaxFloat64/float64(s), 1/float64(n)))
}

// SolveBeta finds beta > 0 for the given species and individual counts.
func SolveBeta(s, n int, opts SolverOptions) (BetaSolution, error) {
	if err := validateCounts(s, n); err != nil {
		return BetaSolution{}, err
	}
	if err := opts.validate(); err != nil {
		return BetaSolution{}, err
	}
	opts = opts.WithDefaults()

	upper := UpperBracket(s, n, opts.Upper)
	if !(upper > opts.Lower) {
		return BetaSolution{}, errors.New(errors.ErrCodeRootFinding,
			"empty bracket [%g, %g] for S=%d N=%d", opts.Lower, upper, s, n)
	}

	f := func(x float64) float64 { return BalanceEquation(s, n, x) }
	res, err := rootfind.Brent(f, opts.Lower, upper, rootfind.Options{
		XTol:    opts.XTol,
		RTol:    opts.RTol,
		MaxIter: opts.MaxIter,
	})
	if err != nil {
		return BetaSolution{}, errors.Wrap(errors.ErrCodeRootFinding, err,
			"solve beta for S=%d N=%d on [%g, %g]", s, n, opts.Lower, upper)
	}

	beta := -math.Log(res.Root)
	if !(beta > 0) || math.IsInf(beta, 0) {
		return BetaSolution{}, errors.New(errors.ErrCodeRootFinding,
			"root x=%g gives non-positive beta %g for S=%d N=%d", res.Root, beta, s, n)
	}

	return BetaSolution{
		Beta:       beta,
		X:          res.Root,
		Lower:      opts.Lower,
		Upper:      upper,
		Iterations: res.Iterations,
	}, nil
}
