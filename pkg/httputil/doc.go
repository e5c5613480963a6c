// Package httputil downloads remote resources, currently background images
// referenced by URL.
//
// # Overview
//
//   - [Fetcher]: GET with retry, size limit and an optional byte cache
//   - [Retry]: exponential backoff for errors marked [RetryableError]
//
// # Retry
//
// Network errors, 5xx responses and 429 responses are retried. Everything
// else (404, malformed URLs, oversized bodies) fails immediately:
//
//	f := httputil.NewFetcher(c, keyer)
//	data, err := f.Get(ctx, "https://example.com/world.png")
//
// # Caching
//
// Successful bodies are stored in the supplied [cache.Cache] under
// [cache.Keyer.BackgroundKey], so repeated renders over the same backdrop
// download it once.
//
// [cache.Cache]: github.com/matzehuels/starkviz/pkg/cache#Cache
// [cache.Keyer.BackgroundKey]: github.com/matzehuels/starkviz/pkg/cache#Keyer
package httputil
