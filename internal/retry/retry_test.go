package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwern/persona/internal/fault"
)

func fastPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries:     maxRetries,
		InitialDelay:   time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0.2,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	attempts := 0
	result, err := Do(context.Background(), fastPolicy(3), nil, func(context.Context) (string, error) {
		attempts++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, attempts)
}

func TestDoRetriesOverloadedThenSucceeds(t *testing.T) {
	attempts := 0
	result, err := Do(context.Background(), fastPolicy(3), nil, func(context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", fault.New(fault.KindOverloaded, "overloaded")
		}
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, 3, attempts)
}

func TestDoAtMostMaxRetriesPlusOneAttempts(t *testing.T) {
	attempts := 0
	failure := fault.FromStatus(503, "busy")
	_, err := Do(context.Background(), fastPolicy(2), nil, func(context.Context) (int, error) {
		attempts++
		return 0, failure
	})
	assert.Equal(t, 3, attempts)
	// Exhaustion propagates the original error, not a re-wrapped one.
	assert.Same(t, error(failure), err)
}

func TestDoNeverRetriesAuthErrors(t *testing.T) {
	attempts := 0
	_, err := Do(context.Background(), fastPolicy(5), nil, func(context.Context) (int, error) {
		attempts++
		return 0, fault.FromStatus(401, "bad key")
	})
	assert.Equal(t, 1, attempts)
	assert.Equal(t, fault.KindAuth, fault.KindOf(err))
}

func TestDoStopsOnNonRetryableClassifier(t *testing.T) {
	policy := fastPolicy(5)
	policy.ShouldRetry = func(error) bool { return false }
	attempts := 0
	_, err := Do(context.Background(), policy, nil, func(context.Context) (int, error) {
		attempts++
		return 0, errors.New("nope")
	})
	assert.Equal(t, 1, attempts)
	assert.EqualError(t, err, "nope")
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := fastPolicy(3)
	policy.InitialDelay = time.Hour
	policy.JitterFraction = 0
	attempts := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := Do(ctx, policy, nil, func(context.Context) (int, error) {
		attempts++
		return 0, fault.New(fault.KindOverloaded, "overloaded")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDelayBounds(t *testing.T) {
	policy := Policy{
		InitialDelay:   100 * time.Millisecond,
		MaxDelay:       time.Second,
		Multiplier:     3.0,
		JitterFraction: 0.25,
	}
	upper := time.Duration(float64(policy.MaxDelay) * (1 + policy.JitterFraction))
	for attempt := 1; attempt <= 10; attempt++ {
		for i := 0; i < 50; i++ {
			d := policy.Delay(attempt)
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.LessOrEqual(t, d, upper)
		}
	}
}

func TestDelayGrowsExponentiallyBeforeCap(t *testing.T) {
	policy := Policy{
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     time.Hour,
		Multiplier:   2.0,
	}
	assert.Equal(t, 10*time.Millisecond, policy.Delay(1))
	assert.Equal(t, 20*time.Millisecond, policy.Delay(2))
	assert.Equal(t, 40*time.Millisecond, policy.Delay(3))
}
