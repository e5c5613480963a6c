package httputil

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/starkviz/pkg/errors"
)

// maxRetryAfter caps the wait a server may request with Retry-After.
const maxRetryAfter = 30 * time.Second

// RetryableError marks a failed download attempt that [Retry] may repeat.
type RetryableError struct {
	Err error

	// After is the wait the server asked for. Zero uses the backoff delay.
	After time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry calls fn up to attempts times. Only errors wrapped in
// [RetryableError] are retried. The delay doubles after each attempt, and a
// longer Retry-After from the server takes precedence for that attempt.
// It returns the last error, or ctx.Err() if cancelled while waiting.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		var re *RetryableError
		if !stderrors.As(err, &re) {
			return err
		}

		if i < attempts-1 {
			wait := max(delay, min(re.After, maxRetryAfter))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				delay *= 2
			}
		}
	}
	return lastErr
}

// classifyResponse maps a background download response to an error. A
// missing image fails at once with NOT_FOUND; throttling, request timeouts
// and server errors are retried.
func classifyResponse(target string, resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound || code == http.StatusGone:
		return errors.New(errors.ErrCodeNotFound, "get %s: %s", target, resp.Status)
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500:
		return &RetryableError{
			Err:   errors.New(errors.ErrCodeNetwork, "get %s: %s", target, resp.Status),
			After: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return errors.New(errors.ErrCodeNetwork, "get %s: %s", target, resp.Status)
}

// classifyTransport maps a failed round trip. Cancellation of ctx is final;
// any other transport failure is retried.
func classifyTransport(ctx context.Context, target string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "get %s", target)}
}

// parseRetryAfter reads delay-seconds or an HTTP date. Unparseable or past
// values yield zero.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(max(secs, 0)) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return max(time.Until(t), 0)
	}
	return 0
}
