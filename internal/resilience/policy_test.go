package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriticalAndBestEffortBudgets(t *testing.T) {
	c := Critical()
	assert.Equal(t, 3, c.Retry.MaxAttempts)
	assert.Equal(t, 10*time.Second, c.Timeout)

	b := BestEffort()
	assert.Equal(t, 2, b.Retry.MaxAttempts)
	assert.Equal(t, time.Second, b.Retry.InitialBackoff)
	assert.Zero(t, b.Retry.JitterFraction)
}

func TestNewPolicy_KeepsBaseForZeroValues(t *testing.T) {
	p := NewPolicy(BestEffort(), 0, 0, 0)
	assert.Equal(t, BestEffort().Timeout, p.Timeout)
	assert.Equal(t, 2, p.Retry.MaxAttempts)

	p = NewPolicy(Critical(), 3*time.Second, 5, 10*time.Millisecond)
	assert.Equal(t, 3*time.Second, p.Timeout)
	assert.Equal(t, 5, p.Retry.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, p.Retry.InitialBackoff)
}

func TestCall_PerAttemptTimeoutIsRetried(t *testing.T) {
	p := Policy{Timeout: 20 * time.Millisecond, Retry: fastRetry(2)}

	calls := 0
	v, err := Call(context.Background(), p, nil, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, calls)
}

func TestCall_BestEffortRetriesOnce(t *testing.T) {
	p := BestEffort()
	p.Retry.InitialBackoff = time.Millisecond

	calls := 0
	_, err := Call(context.Background(), p, nil, func(_ context.Context) (int, error) {
		calls++
		return 0, NewTransientError(errors.New("down"), 502)
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestCall_OpenCircuitFailsFast(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})
	tripBreaker(cb, 1)

	calls := 0
	p := Critical()
	p.Retry.InitialBackoff = time.Millisecond
	_, err := Call(context.Background(), p, cb, func(_ context.Context) (int, error) {
		calls++
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls)
}

func TestPolicy_Logged(t *testing.T) {
	p := BestEffort().Logged("dvf", "fetch")
	require.NotNil(t, p.Retry.OnRetry)
	assert.Nil(t, BestEffort().Retry.OnRetry)
}

func TestFromCircuitConfig(t *testing.T) {
	cfg := FromCircuitConfig(0, 0)
	assert.Equal(t, 5, cfg.FailureThreshold)
	assert.Equal(t, 60*time.Second, cfg.ResetTimeout)

	cfg = FromCircuitConfig(3, 10)
	assert.Equal(t, 3, cfg.FailureThreshold)
	assert.Equal(t, 10*time.Second, cfg.ResetTimeout)
}
