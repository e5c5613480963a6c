package cache

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned by helpers that must distinguish a miss from an
// empty entry.
var ErrCacheMiss = errors.New("cache miss")

// GetOrMiss is Get with a miss reported as ErrCacheMiss.
func GetOrMiss(ctx context.Context, c Cache, key string) ([]byte, error) {
	data, hit, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !hit {
		return nil, ErrCacheMiss
	}
	return data, nil
}
