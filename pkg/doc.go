// Package pkg provides the libraries behind macroeco, an implementation of the
// Maximum Entropy Theory of Ecology (METE) energy distributions.
//
// # Overview
//
// Given a community of S species, N individuals and total metabolic energy E,
// METE predicts how energy is spread across individuals and species. The pkg
// directory is organized into three areas:
//
//  1. Numerical core: [mete] (beta solver, theta, nu, psi, rank abundance)
//     on top of [rootfind] (bracketed Brent root finding)
//  2. Data plumbing: [table] (survey CSV tables and reshaping), [params]
//     (named parameter runs), [workflow] (per-invocation bookkeeping)
//  3. Orchestration: [pipeline] (cached evaluations), [cache], [metrics],
//     [observability], [errors]
//
// # Architecture
//
// The typical data flow:
//
//	Survey CSV + parameter file
//	         ↓
//	    [workflow] package (datasets × runs)
//	         ↓
//	    [pipeline] package (validate → cache lookup → evaluate)
//	         ↓
//	    [mete] package (solve beta → density → support / NLL)
//	         ↓
//	    CSV result tables
//
// # Quick Start
//
// Evaluate psi for a community and reduce it to a likelihood:
//
//	import (
//	    "github.com/matzehuels/macroeco/pkg/mete"
//	)
//
//	c := mete.Community{S: 5, N: 20, E: 100}
//	p, err := mete.Derive(c, mete.DefaultSolverOptions())
//	if err != nil {
//	    return err
//	}
//	psi, err := mete.NewPsi(p)
//	if err != nil {
//	    return err
//	}
//	nll, err := mete.NegLogLikelihood(psi, []float64{1.5, 2, 7.25})
//
// Or run the whole evaluation through a cached [pipeline.Runner]:
//
//	runner := pipeline.NewRunner(cache.NewNullCache("example"), nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Distribution: pipeline.DistPsi,
//	    Community:    c,
//	    Summarize:    true,
//	    Sample:       []float64{1.5, 2, 7.25},
//	})
//
// # Error Handling
//
// Every package returns *[errors.Error] values carrying a code.
// [errors.Numerical] separates the numerical core's failures, which a batch
// run records and skips, from input and I/O failures, which abort it.
package pkg
