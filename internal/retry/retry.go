// Package retry provides bounded exponential backoff for remote calls.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"time"

	"github.com/aws/smithy-go"
)

// Backoff retries an operation with exponential backoff and jitter up to a
// bounded attempt count. All fields are set at creation time and never
// modified, so a Backoff is safe for concurrent use.
type Backoff struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// Default retry parameters. Four attempts keeps a transient throttle survivable
// without stalling a CI step for minutes.
const (
	DefaultMaxAttempts = 4
	DefaultBaseDelay   = 100 * time.Millisecond
	DefaultMaxDelay    = 30 * time.Second
)

// New creates a Backoff with the given attempt bound. Non-positive values
// fall back to the defaults.
func New(maxAttempts int) *Backoff {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Backoff{
		maxAttempts: maxAttempts,
		baseDelay:   DefaultBaseDelay,
		maxDelay:    DefaultMaxDelay,
	}
}

// MaxAttempts returns the bound on attempts, including the initial one.
func (b *Backoff) MaxAttempts() int {
	return b.maxAttempts
}

// Do invokes fn until it succeeds, returns a non-retryable error, the attempt
// bound is exhausted, or the context is cancelled. The last error is returned
// unwrapped so callers can classify it.
func (b *Backoff) Do(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
		if attempt == b.maxAttempts {
			break
		}

		select {
		case <-time.After(b.delay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}

// delay computes the backoff for the given attempt number with ±25% jitter
// to avoid thundering-herd retries, capped at maxDelay.
func (b *Backoff) delay(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt-1))) * b.baseDelay

	jitterRange := int64(float64(d) * 0.25)
	if jitterRange > 0 {
		d += time.Duration(rand.Int63n(2*jitterRange) - jitterRange)
	}

	if d > b.maxDelay {
		d = b.maxDelay
	}
	if d < 0 {
		d = 0
	}
	return d
}

// Retryable reports whether an error indicates a transient failure worth
// retrying. It checks AWS API error codes, HTTP status classes, and network
// timeouts.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException",
			"Throttling",
			"TooManyRequestsException",
			"RequestLimitExceeded",
			"SlowDown",
			"RequestTimeout",
			"InternalError",
			"ServiceUnavailable":
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
