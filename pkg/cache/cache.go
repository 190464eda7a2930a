// Package cache stores intermediate pipeline products between runs.
//
// Walk generation and training are the expensive stages of a run. Their
// outputs are cached under keys derived from a hash of the input network
// and every parameter that influences the result, so a rerun with the same
// inputs skips straight to export.
//
// Three backends are provided: [FileCache] for local CLI use, [RedisCache]
// for sharing results between machines, and [NullCache] to disable caching.
package cache

import (
	"context"
	"time"
)

// Time-to-live defaults for cached products.
const (
	TTLWalks      = 7 * 24 * time.Hour
	TTLEmbeddings = 30 * 24 * time.Hour
)

// Cache is a byte-oriented key-value store with expiration.
type Cache interface {
	// Get returns the value for key. A missing or expired key is a miss
	// (hit == false) and not an error.
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)

	// Set stores data under key. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// Clearer is implemented by caches that can drop all of their entries.
type Clearer interface {
	// Clear removes every entry and returns how many were removed.
	Clear(ctx context.Context) (int, error)
}
