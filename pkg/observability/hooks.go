// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through the registered hooks and never import a
// metrics backend themselves. The command line registers a prometheus-backed
// implementation (see package metrics) at startup; everything else sees the
// no-op defaults.
//
// # Usage
//
// Register hooks at application startup:
//
//	rec := metrics.NewRecorder()
//	observability.SetEvalHooks(rec)
//	observability.SetCacheHooks(rec)
//
// Libraries call hooks to emit events:
//
//	observability.Eval().OnSolve(ctx, s, n, iterations, duration, err)
//	observability.Eval().OnEvaluate(ctx, "psi", duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Evaluation Hooks
// =============================================================================

// EvalHooks receives events from distribution evaluation.
type EvalHooks interface {
	// OnSolve records one beta solve for a community with s species and n individuals.
	OnSolve(ctx context.Context, s, n, iterations int, duration time.Duration, err error)

	// OnEvaluate records one complete evaluation of a distribution.
	OnEvaluate(ctx context.Context, distribution string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, distribution string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, distribution string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, distribution string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopEvalHooks is a no-op implementation of EvalHooks.
type NoopEvalHooks struct{}

func (NoopEvalHooks) OnSolve(context.Context, int, int, int, time.Duration, error) {}
func (NoopEvalHooks) OnEvaluate(context.Context, string, time.Duration, error)     {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	evalHooks  EvalHooks  = NoopEvalHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	hooksMu    sync.RWMutex
)

// SetEvalHooks registers custom evaluation hooks.
// This should be called once at application startup before any evaluation.
func SetEvalHooks(h EvalHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		evalHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Eval returns the registered evaluation hooks.
func Eval() EvalHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return evalHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	evalHooks = NoopEvalHooks{}
	cacheHooks = NoopCacheHooks{}
}
