package cache

// ScopedKeyer wraps a Keyer with a prefix so several projects can share one
// cache backend without colliding.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "project:neuro:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// WalksKey generates a prefixed walks key.
func (k *ScopedKeyer) WalksKey(networkHash string, opts WalksKeyOpts) string {
	return k.prefix + k.inner.WalksKey(networkHash, opts)
}

// EmbeddingKey generates a prefixed embedding key.
func (k *ScopedKeyer) EmbeddingKey(corpusHash string, opts EmbeddingKeyOpts) string {
	return k.prefix + k.inner.EmbeddingKey(corpusHash, opts)
}
