package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/macroeco/pkg/cache"
	"github.com/matzehuels/macroeco/pkg/mete"
	"github.com/matzehuels/macroeco/pkg/observability"
)

// TTLResult is how long evaluation results stay cached. Results are a pure
// function of their key, so they only expire to bound the cache's size.
const TTLResult = 30 * 24 * time.Hour

// Runner encapsulates evaluation with caching.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store evaluation results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache("no cache configured")
	}
	if logger == nil {
		logger = log.Default()
	}
	if nc, ok := c.(*cache.NullCache); ok {
		logger.Debug("caching disabled", "reason", nc.Reason)
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute evaluates the distribution described by opts, consulting the cache first.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	label := opts.Label()
	key, keyErr := r.Keyer.EvalKey(label, opts.EvalKeyOpts())
	cacheable := keyErr == nil
	if !cacheable {
		opts.Logger.Debug("bypassing cache", "distribution", label, "err", keyErr)
	}

	if cacheable && !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var cached Result
			if err := json.Unmarshal(data, &cached); err == nil {
				observability.Cache().OnCacheHit(ctx, label)
				cached.Cached = true
				cached.Stats.Points = len(cached.Support)
				if cached.Params != nil {
					cached.Stats.SolverIterations = cached.Params.Iterations
				}
				opts.Logger.Debug("cache hit", "distribution", label, "key", key)
				return &cached, nil
			}
			// If deserialization fails, fall through to recompute
		}
		observability.Cache().OnCacheMiss(ctx, label)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := r.evaluate(ctx, opts)
	elapsed := time.Since(start)
	observability.Eval().OnEvaluate(ctx, label, elapsed, err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	result.Stats.Duration = elapsed

	opts.Logger.Info("evaluated distribution",
		"distribution", label,
		"points", result.Stats.Points,
		"duration", elapsed.Round(time.Microsecond))

	if !cacheable {
		return result, nil
	}
	if data, err := json.Marshal(result); err == nil {
		if err := r.Cache.Set(ctx, key, data, TTLResult); err != nil {
			opts.Logger.Warn("cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, label, len(data))
		}
	}

	return result, nil
}

// evaluate runs the numerical core for opts.
func (r *Runner) evaluate(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{Distribution: opts.Label()}

	if opts.Distribution == DistRank {
		eta, err := mete.RankAbundance(opts.Community, opts.Abundances)
		if err != nil {
			return nil, err
		}
		result.Support = make([]float64, len(opts.Abundances))
		for i, n := range opts.Abundances {
			result.Support[i] = float64(n)
		}
		result.Density = eta
		result.Stats.Points = len(eta)
		return result, nil
	}

	d, err := r.density(ctx, opts, result)
	if err != nil {
		return nil, err
	}

	support, err := opts.Grid().Support(d)
	if err != nil {
		return nil, err
	}
	result.Stats.Points = len(support)
	opts.Logger.Debug("built support",
		"distribution", d.Name(),
		"points", len(support),
		"lo", support[0],
		"hi", support[len(support)-1])

	if opts.Summarize {
		sample := opts.Sample
		if len(sample) == 0 {
			sample = support
		}
		nll, err := mete.NegLogLikelihood(d, sample)
		if err != nil {
			return nil, err
		}
		result.Summarized = true
		result.NegLogLikelihood = nll
		return result, nil
	}

	density, err := mete.Evaluate(d, support)
	if err != nil {
		return nil, err
	}
	result.Support = support
	result.Density = density
	result.Integral = mete.Integral(support, density)
	return result, nil
}

// density builds the Density for opts, deriving parameters where needed.
func (r *Runner) density(ctx context.Context, opts Options, result *Result) (mete.Density, error) {
	if opts.Distribution == DistTheta {
		return mete.NewTheta(opts.Community, opts.Species)
	}

	p, err := r.derive(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Params = &p
	result.Stats.SolverIterations = p.Iterations

	if opts.Distribution == DistNu {
		return mete.NewNu(p)
	}
	psi, err := mete.NewPsi(p)
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("psi truncation", "ratio", psi.TruncationRatio())
	if opts.Alternate {
		return psi.Alternate(), nil
	}
	return psi, nil
}

// derive solves for beta and reports the solve to the logger and hooks.
func (r *Runner) derive(ctx context.Context, opts Options) (mete.Params, error) {
	c := opts.Community
	start := time.Now()
	p, err := mete.Derive(c, opts.Solver)
	observability.Eval().OnSolve(ctx, c.S, c.N, p.Iterations, time.Since(start), err)
	if err != nil {
		return mete.Params{}, err
	}
	opts.Logger.Debug("solved beta",
		"S", c.S, "N", c.N, "E", c.E,
		"beta", p.Beta,
		"lambda1", p.Lambda1,
		"lambda2", p.Lambda2,
		"sigma", p.Sigma,
		"norm", p.Norm,
		"iterations", p.Iterations)
	return p, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
