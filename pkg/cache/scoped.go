package cache

// ScopedKeyer wraps a Keyer with a prefix so that independent workflows
// sharing one cache directory do not see each other's entries.
//
//	runKeyer := NewScopedKeyer(NewDefaultKeyer(), "params:bcis:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// EvalKey generates a prefixed evaluation key.
func (k *ScopedKeyer) EvalKey(distribution string, opts EvalKeyOpts) (string, error) {
	key, err := k.inner.EvalKey(distribution, opts)
	if err != nil {
		return "", err
	}
	return k.prefix + key, nil
}
