// Package cache stores evaluation results between macroeco invocations.
//
// The numerical core never caches: every call derives its parameters afresh.
// Caching happens one level up, where a complete evaluation request (community,
// distribution, sample, resolution and solver settings) is hashed into a key
// and its serialised result is kept on disk.
//
// # Implementations
//
//   - [FileCache]: one JSON file per entry under a directory, with optional expiry
//   - [NullCache]: never stores anything (--no-cache)
//
// # Keys
//
// A [Keyer] turns requests into keys. [ScopedKeyer] prefixes every key, which
// keeps separate namespaces for, e.g., different parameter files.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the data for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources held by the cache.
	Close() error
}

// EvalKeyOpts are the request fields that make an evaluation unique.
type EvalKeyOpts struct {
	S             int       `json:"s"`
	N             int       `json:"n"`
	E             float64   `json:"e"`
	Species       int       `json:"species,omitempty"`
	Sample        []float64 `json:"sample,omitempty"`
	Abundances    []int     `json:"abundances,omitempty"`
	Summarize     bool      `json:"summarize,omitempty"`
	Alternate     bool      `json:"alternate,omitempty"`
	PointsPerUnit float64   `json:"ppu"`
	Solver        any       `json:"solver,omitempty"`
}

// Keyer generates cache keys.
type Keyer interface {
	// EvalKey returns the key for one evaluation of a distribution. It fails
	// when opts cannot be encoded; callers must then bypass the cache.
	EvalKey(distribution string, opts EvalKeyOpts) (string, error)
}

// DefaultKeyer hashes request fields into "eval:<distribution>:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// EvalKey implements Keyer.
func (DefaultKeyer) EvalKey(distribution string, opts EvalKeyOpts) (string, error) {
	return hashKey("eval:"+distribution, opts)
}
