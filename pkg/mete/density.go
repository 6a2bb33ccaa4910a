package mete

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"

	"github.com/matzehuels/macroeco/pkg/errors"
)

// Density is a METE probability density over a bounded energy domain.
type Density interface {
	// Name identifies the distribution ("theta", "nu", "psi", "psi-alt").
	Name() string
	// Domain returns the closed interval the density is evaluated on.
	Domain() (lo, hi float64)
	// PDF returns the density at x, or 0 outside the domain.
	PDF(x float64) float64
}

// DefaultPointsPerUnit is the support resolution used when none is configured.
const DefaultPointsPerUnit = 10

// Grid builds evaluation supports. Memory is O(hi·PointsPerUnit).
type Grid struct {
	PointsPerUnit float64
}

// DefaultGrid returns a Grid with DefaultPointsPerUnit.
func DefaultGrid() Grid {
	return Grid{PointsPerUnit: DefaultPointsPerUnit}
}

// Points returns ⌊hi·PointsPerUnit⌋ evenly spaced points from lo to hi inclusive.
func (g Grid) Points(lo, hi float64) ([]float64, error) {
	ppu := g.PointsPerUnit
	if ppu <= 0 {
		ppu = DefaultPointsPerUnit
	}
	if !finite(lo) || !finite(hi) || !(hi > lo) {
		return nil, errors.New(errors.ErrCodePrecondition, "invalid support [%g, %g]", lo, hi)
	}
	n := int(math.Floor(hi * ppu))
	if n < 2 {
		return nil, errors.New(errors.ErrCodePrecondition,
			"support [%g, %g] at %g points per unit has fewer than two points", lo, hi, ppu)
	}
	pts := floats.Span(make([]float64, n), lo, hi)
	pts[n-1] = hi
	return pts, nil
}

// Support returns the grid over d's domain.
func (g Grid) Support(d Density) ([]float64, error) {
	lo, hi := d.Domain()
	return g.Points(lo, hi)
}

// Evaluate returns d.PDF at every point. A non-finite value fails the whole call.
func Evaluate(d Density, points []float64) ([]float64, error) {
	out := make([]float64, len(points))
	for i, x := range points {
		v := d.PDF(x)
		if !finite(v) {
			return nil, errors.New(errors.ErrCodeNumericInstability,
				"%s density is %g at %g", d.Name(), v, x)
		}
		out[i] = v
	}
	return out, nil
}

// NegLogLikelihood returns −Σ ln d.PDF(x) over the sample.
// Every density value must be strictly positive and finite.
func NegLogLikelihood(d Density, sample []float64) (float64, error) {
	if len(sample) == 0 {
		return 0, errors.New(errors.ErrCodePrecondition, "empty sample")
	}
	var nll float64
	for _, x := range sample {
		v := d.PDF(x)
		if !(v > 0) || math.IsInf(v, 0) {
			return 0, errors.New(errors.ErrCodeNumericInstability,
				"%s density is %g at sample point %g", d.Name(), v, x)
		}
		nll -= math.Log(v)
	}
	return nll, nil
}

// Integral integrates density over support with the trapezoidal rule.
// Supports shorter than two points integrate to zero.
func Integral(support, density []float64) float64 {
	if len(support) < 2 || len(support) != len(density) {
		return 0
	}
	return integrate.Trapezoidal(support, density)
}

func inDomain(d Density, x float64) bool {
	lo, hi := d.Domain()
	return x >= lo && x <= hi
}
