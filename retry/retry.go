// Package retry implements the bridge's backoff-and-retry engine:
// exponential backoff with jitter, pluggable retry classification, and
// an onRetry hook for UI progress indicators.
//
// Generalized from the inline attempt loop in
// lightweight-wallet/chain/mempool/client.go's doRequest (which
// retries on 429/500/502/503/504 with a doubling delay) into a
// standalone, reusable engine — adding the jitter term and the
// network/transport error classification the teacher's loop doesn't
// need, since mempool.space's client only ever classifies HTTP status
// codes.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/thephez/dash-bridge/bridgeerrors"
)

// Options configures a single withRetry invocation.
type Options struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	ShouldRetry  func(err error) bool
	OnRetry      func(attempt, maxAttempts int, err error)
}

// DefaultOptions matches the spec's default RetryEngine configuration.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    10 * time.Second,
		ShouldRetry: DefaultShouldRetry,
	}
}

// Op is the operation withRetry executes; it returns a retryable
// error wrapped in a way DefaultShouldRetry (or a custom classifier)
// can inspect.
type Op func(ctx context.Context) error

// WithRetry executes op, retrying according to opts up to
// opts.MaxAttempts times. Attempts are 0-indexed internally; the delay
// after failed attempt a (for a in [0, MaxAttempts-2]) is
// min(base*2^a, maxDelay) plus a uniform jitter in
// [0, 0.5*min(base*2^a, maxDelay)]. onRetry fires before the sleep.
func WithRetry(ctx context.Context, opts Options, op Op) error {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.ShouldRetry == nil {
		opts.ShouldRetry = DefaultShouldRetry
	}

	var lastErr error
	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		isLastAttempt := attempt == opts.MaxAttempts-1
		if isLastAttempt || !opts.ShouldRetry(lastErr) {
			return lastErr
		}

		if opts.OnRetry != nil {
			opts.OnRetry(attempt+1, opts.MaxAttempts, lastErr)
		}

		delay := BackoffDelay(attempt, opts.BaseDelay, opts.MaxDelay)
		log.Debugf("retrying after attempt %d/%d failed: %v (backoff %s)", attempt+1, opts.MaxAttempts, lastErr, delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// BackoffDelay computes the delay for the given 0-indexed attempt:
// min(base*2^attempt, maxDelay) plus a uniform jitter term in
// [0, 0.5*min(base*2^attempt, maxDelay)].
func BackoffDelay(attempt int, base, maxDelay time.Duration) time.Duration {
	capped := base << uint(attempt)
	if capped <= 0 || capped > maxDelay {
		capped = maxDelay
	}

	jitter := time.Duration(rand.Int63n(int64(capped)/2 + 1))
	return capped + jitter
}

// DefaultShouldRetry classifies network/transport errors and the
// retryable HTTP status classes (429, 500, 502, 503, 504) as
// retryable; application errors (400, 404, 409, ...) are not.
func DefaultShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var netErr *bridgeerrors.NetworkError
	if errors.As(err, &netErr) {
		switch netErr.Status {
		case 0, 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}

	var netOpErr net.Error
	if errors.As(err, &netOpErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"connection refused",
		"connection reset",
		"econnreset",
		"dns",
		"timeout",
		"aborted",
		"failed to fetch",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}

	return false
}
