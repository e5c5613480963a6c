// Package cache stores rendered artifacts and downloaded backgrounds.
//
// Entries are opaque byte slices with an optional time-to-live. Three
// backends are provided:
//
//   - [FileCache]: one JSON file per entry, used by the CLI
//   - [RedisCache]: shared cache for `starkviz serve` deployments
//   - [NullCache]: caching disabled
//
// Keys are built by a [Keyer] so that every option influencing the
// produced bytes is part of the key.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the stored bytes and true on a hit. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Entry lifetimes.
const (
	// TTLBackground is how long a downloaded background image is kept.
	TTLBackground = 7 * 24 * time.Hour

	// TTLRender is how long a rendered image is kept.
	TTLRender = 24 * time.Hour
)
