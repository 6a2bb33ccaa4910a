// Package rootfind locates roots of scalar functions on a bracketing interval.
//
// Brent's method combines bisection, the secant rule and inverse quadratic
// interpolation. Given f(a) and f(b) of opposite sign it always converges, and
// the iteration count is bounded by Options.MaxIter so a call never loops
// indefinitely.
package rootfind

import (
	"errors"
	"math"
)

// Sentinel errors returned by Brent.
var (
	// ErrNotBracketed is returned when f(a) and f(b) have the same sign.
	ErrNotBracketed = errors.New("root not bracketed")

	// ErrMaxIterations is returned when the tolerance is not met within MaxIter steps.
	ErrMaxIterations = errors.New("maximum iterations exceeded")

	// ErrNaN is returned when f evaluates to NaN at a bracket end or iterate.
	ErrNaN = errors.New("function returned NaN")
)

// Defaults match the usual brentq settings.
const (
	DefaultXTol    = 2e-12
	DefaultRTol    = 4 * 2.220446049250313e-16
	DefaultMaxIter = 100
)

// Options controls convergence.
type Options struct {
	XTol    float64 // absolute tolerance on the root
	RTol    float64 // relative tolerance on the root
	MaxIter int     // iteration budget
}

// DefaultOptions returns Options populated with the package defaults.
func DefaultOptions() Options {
	return Options{XTol: DefaultXTol, RTol: DefaultRTol, MaxIter: DefaultMaxIter}
}

func (o Options) withDefaults() Options {
	if o.XTol <= 0 {
		o.XTol = DefaultXTol
	}
	if o.RTol <= 0 {
		o.RTol = DefaultRTol
	}
	if o.MaxIter <= 0 {
		o.MaxIter = DefaultMaxIter
	}
	return o
}

// Result describes a converged root.
type Result struct {
	Root       float64
	Iterations int
}

// Brent finds x in [a, b] with f(x) = 0.
func Brent(f func(float64) float64, a, b float64, opts Options) (Result, error) {
	opts = opts.withDefaults()

	fa, fb := f(a), f(b)
	if math.IsNaN(fa) || math.IsNaN(fb) {
		return Result{}, ErrNaN
	}
	if fa == 0 {
		return Result{Root: a}, nil
	}
	if fb == 0 {
		return Result{Root: b}, nil
	}
	if math.Signbit(fa) == math.Signbit(fb) {
		return Result{}, ErrNotBracketed
	}

	c, fc := a, fa
	d, e := b-a, b-a
	for i := 1; i <= opts.MaxIter; i++ {
		if math.Signbit(fb) == math.Signbit(fc) {
			c, fc = a, fa
			d, e = b-a, b-a
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}

		tol := opts.XTol + opts.RTol*math.Abs(b)
		xm := 0.5 * (c - b)
		if math.Abs(xm) <= tol || fb == 0 {
			return Result{Root: b, Iterations: i}, nil
		}

		if math.Abs(e) >= tol && math.Abs(fa) > math.Abs(fb) {
			var p, q float64
			s := fb / fa
			if a != c && fa != fc {
				// Inverse quadratic interpolation.
				r := fb / fc
				t := fa / fc
				p = s * (2*xm*t*(t-r) - (b-a)*(r-1))
				q = (t - 1) * (r - 1) * (s - 1)
			} else {
				// Secant step.
				p = 2 * xm * s
				q = 1 - s
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)
			if 2*p < math.Min(3*xm*q-math.Abs(tol*q), math.Abs(e*q)) {
				e, d = d, p/q
			} else {
				d, e = xm, xm
			}
		} else {
			d, e = xm, xm
		}

		a, fa = b, fb
		if math.Abs(d) > tol {
			b += d
		} else {
			b += math.Copysign(tol, xm)
		}
		fb = f(b)
		if math.IsNaN(fb) {
			return Result{Root: b, Iterations: i}, ErrNaN
		}
	}
	return Result{Root: b, Iterations: opts.MaxIter}, ErrMaxIterations
}
