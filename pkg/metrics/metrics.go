// Package metrics records evaluation metrics in a prometheus registry.
//
// A [Recorder] implements the observability hooks, so registering it at
// startup is enough to collect solver and evaluation statistics:
//
//	rec := metrics.NewRecorder()
//	observability.SetEvalHooks(rec)
//	observability.SetCacheHooks(rec)
//	defer rec.WriteTextfile("macroeco.prom")
//
// The textfile output is meant for node_exporter's textfile collector, since
// macroeco runs as a short-lived batch command rather than a scrape target.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/macroeco/pkg/observability"
)

const namespace = "macroeco"

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder collects macroeco metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	evaluations *prometheus.CounterVec
	evalSeconds *prometheus.HistogramVec
	solves      *prometheus.CounterVec
	iterations  prometheus.Histogram
	cacheEvents *prometheus.CounterVec
	cacheBytes  prometheus.Counter
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Distribution evaluations by distribution and outcome.",
		}, []string{"distribution", "outcome"}),
		evalSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_seconds",
			Help:      "Wall time of one distribution evaluation.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}, []string{"distribution"}),
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solver_runs_total",
			Help:      "Beta solver runs by outcome.",
		}, []string{"outcome"}),
		iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solver_iterations",
			Help:      "Brent iterations needed to solve for beta.",
			Buckets:   prometheus.LinearBuckets(5, 5, 20),
		}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Result cache lookups and writes.",
		}, []string{"distribution", "event"}),
		cacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the result cache.",
		}),
	}
	r.registry.MustRegister(r.evaluations, r.evalSeconds, r.solves, r.iterations, r.cacheEvents, r.cacheBytes)
	return r
}

// Registry returns the underlying registry, or nil for a nil Recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// OnSolve implements observability.EvalHooks.
func (r *Recorder) OnSolve(_ context.Context, _, _, iterations int, _ time.Duration, err error) {
	if r == nil {
		return
	}
	r.solves.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		r.iterations.Observe(float64(iterations))
	}
}

// OnEvaluate implements observability.EvalHooks.
func (r *Recorder) OnEvaluate(_ context.Context, distribution string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.evaluations.WithLabelValues(distribution, outcome(err)).Inc()
	r.evalSeconds.WithLabelValues(distribution).Observe(d.Seconds())
}

// OnCacheHit implements observability.CacheHooks.
func (r *Recorder) OnCacheHit(_ context.Context, distribution string) {
	if r == nil {
		return
	}
	r.cacheEvents.WithLabelValues(distribution, "hit").Inc()
}

// OnCacheMiss implements observability.CacheHooks.
func (r *Recorder) OnCacheMiss(_ context.Context, distribution string) {
	if r == nil {
		return
	}
	r.cacheEvents.WithLabelValues(distribution, "miss").Inc()
}

// OnCacheSet implements observability.CacheHooks.
func (r *Recorder) OnCacheSet(_ context.Context, distribution string, size int) {
	if r == nil {
		return
	}
	r.cacheEvents.WithLabelValues(distribution, "set").Inc()
	r.cacheBytes.Add(float64(size))
}

// WriteTextfile writes all metrics in the text exposition format to path.
// It does nothing for a nil Recorder or an empty path.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

var (
	_ observability.EvalHooks  = (*Recorder)(nil)
	_ observability.CacheHooks = (*Recorder)(nil)
)
