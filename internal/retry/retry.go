// Package retry provides a generic backoff executor for flaky provider calls.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/dwern/persona/internal/fault"
	"github.com/dwern/persona/internal/logging"
)

// Policy defines retry behavior for one class of operation.
type Policy struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the computed delay before jitter is applied.
	MaxDelay time.Duration

	// Multiplier is the exponential backoff factor.
	Multiplier float64

	// JitterFraction perturbs each delay by up to ±delay*JitterFraction.
	JitterFraction float64

	// ShouldRetry classifies errors. Nil defaults to fault.Retryable.
	ShouldRetry func(error) bool
}

// ProviderPolicy is the default policy for LLM and third-party API calls.
func ProviderPolicy() Policy {
	return Policy{
		MaxRetries:     3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       8 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.2,
		ShouldRetry:    fault.Retryable,
	}
}

// Delay computes the backoff for a retry attempt (1-based), jittered and
// floored at zero: min(MaxDelay, InitialDelay*Multiplier^(attempt-1)) ± jitter.
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	if max := float64(p.MaxDelay); d > max {
		d = max
	}
	if p.JitterFraction > 0 {
		d += d * p.JitterFraction * (rand.Float64()*2 - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Do runs op, retrying per the policy. The last error is returned as-is on
// exhaustion so the caller can still classify it.
func Do[T any](ctx context.Context, policy Policy, log *logging.Logger, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	shouldRetry := policy.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = fault.Retryable
	}

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := policy.Delay(attempt)
			if log != nil {
				log.Warn().
					Int("attempt", attempt).
					Dur("delay", delay).
					Err(lastErr).
					Msg("retrying after backoff")
			}
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return zero, err
		}
	}

	return zero, lastErr
}
