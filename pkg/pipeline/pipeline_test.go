package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/macroeco/pkg/cache"
	"github.com/matzehuels/macroeco/pkg/errors"
	"github.com/matzehuels/macroeco/pkg/mete"
	"github.com/matzehuels/macroeco/pkg/observability"
)

var (
	small  = mete.Community{S: 3, N: 10, E: 50}
	medium = mete.Community{S: 5, N: 20, E: 100}
)

func TestValidateDistribution(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"theta", false},
		{"nu", false},
		{"psi", false},
		{"rank", false},
		{"PSI", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateDistribution(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateDistribution(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	o := Options{Distribution: DistPsi, Community: medium}
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.Equal(t, float64(DefaultPointsPerUnit), o.PointsPerUnit)
	assert.Equal(t, mete.DefaultSolverOptions(), o.Solver)
	assert.NotNil(t, o.Logger)
	assert.Equal(t, "psi", o.Label())

	// Idempotent
	require.NoError(t, o.ValidateAndSetDefaults())

	tests := []struct {
		name string
		opts Options
	}{
		{"unknown distribution", Options{Distribution: "gamma"}},
		{"alternate on nu", Options{Distribution: DistNu, Alternate: true}},
		{"summarize rank", Options{Distribution: DistRank, Summarize: true}},
		{"theta without species", Options{Distribution: DistTheta}},
		{"sample without summarize", Options{Distribution: DistPsi, Sample: []float64{2}}},
		{"negative resolution", Options{Distribution: DistPsi, PointsPerUnit: -1}},
		{"infinite resolution", Options{Distribution: DistPsi, PointsPerUnit: math.Inf(1)}},
		{"infinite solver tolerance", Options{Distribution: DistPsi, Solver: mete.SolverOptions{XTol: math.Inf(1)}}},
		{"NaN solver bracket", Options{Distribution: DistPsi, Solver: mete.SolverOptions{Lower: math.NaN()}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "err = %v", err)
		})
	}
}

func TestExecuteTheta(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), Options{Distribution: DistTheta, Community: small, Species: 3})
	require.NoError(t, err)

	assert.Equal(t, "theta", res.Distribution)
	assert.Nil(t, res.Params)
	assert.Len(t, res.Support, 500)
	assert.Len(t, res.Density, 500)
	assert.InDelta(t, 1, res.Integral, 1e-3)
	assert.False(t, res.Cached)
	assert.Equal(t, 500, res.Stats.Points)
}

func TestExecuteSummarize(t *testing.T) {
	sample := []float64{1.1, 3, 9.5}
	r := NewRunner(nil, nil, nil)

	res, err := r.Execute(context.Background(), Options{
		Distribution: DistPsi,
		Community:    small,
		Summarize:    true,
		Sample:       sample,
	})
	require.NoError(t, err)
	require.True(t, res.Summarized)
	assert.Empty(t, res.Density)

	p, err := mete.Derive(small, mete.DefaultSolverOptions())
	require.NoError(t, err)
	psi, err := mete.NewPsi(p)
	require.NoError(t, err)
	want, err := mete.NegLogLikelihood(psi, sample)
	require.NoError(t, err)
	assert.Equal(t, want, res.NegLogLikelihood)
	assert.Equal(t, p, *res.Params)
	assert.Equal(t, p.Iterations, res.Stats.SolverIterations)

	// Without a sample the support grid is the sample.
	grid, err := r.Execute(context.Background(), Options{Distribution: DistPsi, Community: small, Summarize: true})
	require.NoError(t, err)
	support, err := mete.DefaultGrid().Support(psi)
	require.NoError(t, err)
	want, err = mete.NegLogLikelihood(psi, support)
	require.NoError(t, err)
	assert.Equal(t, want, grid.NegLogLikelihood)
}

func TestExecuteAlternate(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), Options{Distribution: DistPsi, Community: medium, Alternate: true})
	require.NoError(t, err)
	assert.Equal(t, "psi-alt", res.Distribution)
	assert.Greater(t, res.Integral, 0.0)
}

func TestExecuteRank(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), Options{Distribution: DistRank, Community: small, Abundances: []int{1, 2, 7}})
	require.NoError(t, err)

	want, err := mete.RankAbundance(small, []int{1, 2, 7})
	require.NoError(t, err)
	assert.Equal(t, want, res.Density)
	assert.Equal(t, []float64{1, 2, 7}, res.Support)
}

func TestExecuteErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"invalid community", Options{Distribution: DistPsi, Community: mete.Community{S: 3, N: 50, E: 50}}, errors.ErrCodePrecondition},
		{"non-positive beta", Options{Distribution: DistNu, Community: mete.Community{S: 2, N: 10, E: 50}}, errors.ErrCodeRootFinding},
		{"species out of range", Options{Distribution: DistTheta, Community: small, Species: 10}, errors.ErrCodePrecondition},
		{"bad sample", Options{Distribution: DistRank, Community: small, Abundances: []int{5, 5}}, errors.ErrCodeInvalidSample},
		{"sample outside support", Options{Distribution: DistPsi, Community: small, Summarize: true, Sample: []float64{0.5}}, errors.ErrCodeNumericInstability},
	}

	r := NewRunner(nil, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Execute(context.Background(), tt.opts)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestExecuteCaching(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := NewRunner(fc, nil, nil)
	defer r.Close()

	opts := Options{Distribution: DistNu, Community: medium}
	first, err := r.Execute(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := r.Execute(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Density, second.Density)
	assert.Equal(t, first.Integral, second.Integral)
	assert.Equal(t, *first.Params, *second.Params)
	assert.Equal(t, first.Stats.Points, second.Stats.Points)

	opts.Refresh = true
	third, err := r.Execute(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, third.Cached)

	// A different resolution is a different entry.
	fourth, err := r.Execute(context.Background(), Options{Distribution: DistNu, Community: medium, PointsPerUnit: 5})
	require.NoError(t, err)
	assert.False(t, fourth.Cached)
	assert.Len(t, fourth.Support, 500)
}

func TestExecuteUnencodableRequests(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := NewRunner(fc, nil, nil)
	defer r.Close()
	ctx := context.Background()

	stored, err := r.Execute(ctx, Options{Distribution: DistPsi, Community: medium, Summarize: true, Sample: []float64{2, 4}})
	require.NoError(t, err)
	require.False(t, stored.Cached)

	// None of these can be keyed, so none may be answered from the cache.
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"NaN sample", Options{Distribution: DistPsi, Community: small, Summarize: true, Sample: []float64{math.NaN()}}, errors.ErrCodeNumericInstability},
		{"infinite sample", Options{Distribution: DistPsi, Community: medium, Summarize: true, Sample: []float64{2, math.Inf(1)}}, errors.ErrCodeNumericInstability},
		{"infinite energy", Options{Distribution: DistPsi, Community: mete.Community{S: 3, N: 10, E: math.Inf(1)}}, errors.ErrCodePrecondition},
		{"infinite tolerance", Options{Distribution: DistPsi, Community: small, Solver: mete.SolverOptions{XTol: math.Inf(1)}}, errors.ErrCodeInvalidInput},
		{"infinite tolerance again", Options{Distribution: DistPsi, Community: medium, Solver: mete.SolverOptions{XTol: math.Inf(1)}}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Execute(ctx, tt.opts)
			require.Error(t, err, "got result for %+v", res)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestExecuteKeyErrorBypassesCache(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetEvalHooks(hooks)
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := NewRunner(fc, failingKeyer{}, nil)
	defer r.Close()

	opts := Options{Distribution: DistTheta, Community: small, Species: 3}
	for i := 0; i < 2; i++ {
		res, err := r.Execute(context.Background(), opts)
		require.NoError(t, err)
		assert.False(t, res.Cached, "call %d", i)
		assert.Len(t, res.Support, 500)
	}

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	assert.Equal(t, []string{"theta:ok", "theta:ok"}, hooks.evals)
	assert.Zero(t, hooks.hits)
	assert.Zero(t, hooks.misses)
	assert.Zero(t, hooks.sets)
}

func TestNewRunnerLogsDisabledCache(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})

	NewRunner(cache.NewNullCache("--no-cache"), nil, logger)
	assert.Contains(t, buf.String(), "caching disabled")
	assert.Contains(t, buf.String(), "--no-cache")

	buf.Reset()
	NewRunner(nil, nil, logger)
	assert.Contains(t, buf.String(), "no cache configured")

	buf.Reset()
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	NewRunner(fc, nil, logger)
	assert.Empty(t, buf.String())
}

type failingKeyer struct{}

func (failingKeyer) EvalKey(string, cache.EvalKeyOpts) (string, error) {
	return "", fmt.Errorf("unencodable request")
}

func TestExecuteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(nil, nil, nil).Execute(ctx, Options{Distribution: DistPsi, Community: small})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecuteHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetEvalHooks(hooks)
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := NewRunner(fc, nil, nil)

	opts := Options{Distribution: DistPsi, Community: small, Summarize: true}
	_, err = r.Execute(context.Background(), opts)
	require.NoError(t, err)
	_, err = r.Execute(context.Background(), opts)
	require.NoError(t, err)
	_, err = r.Execute(context.Background(), Options{Distribution: DistNu, Community: mete.Community{S: 2, N: 10, E: 50}})
	require.Error(t, err)

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	assert.Equal(t, []string{"psi:ok", "nu:error"}, hooks.evals)
	assert.Equal(t, 2, hooks.solves)
	assert.Equal(t, 1, hooks.hits)
	assert.Equal(t, 2, hooks.misses)
	assert.Equal(t, 1, hooks.sets)
}

func TestExecuteConcurrent(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	opts := Options{Distribution: DistPsi, Community: medium, Summarize: true}
	want, err := r.Execute(context.Background(), opts)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]float64, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := r.Execute(context.Background(), opts)
			if err == nil {
				results[i] = res.NegLogLikelihood
			}
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want.NegLogLikelihood, got)
	}
}

type recordingHooks struct {
	mu                         sync.Mutex
	evals                      []string
	solves, hits, misses, sets int
}

func (h *recordingHooks) OnSolve(context.Context, int, int, int, time.Duration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.solves++
}

func (h *recordingHooks) OnEvaluate(_ context.Context, dist string, _ time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	h.evals = append(h.evals, dist+":"+outcome)
}

func (h *recordingHooks) OnCacheHit(context.Context, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hits++
}

func (h *recordingHooks) OnCacheMiss(context.Context, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.misses++
}

func (h *recordingHooks) OnCacheSet(context.Context, string, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sets++
}
