package resilience

import (
	"context"
	"time"
)

// DefaultTimeout is the hard per-attempt deadline for an upstream call.
const DefaultTimeout = 10 * time.Second

// Policy is the timeout and retry budget applied to one upstream call.
type Policy struct {
	// Timeout bounds each attempt. Zero means DefaultTimeout.
	Timeout time.Duration
	Retry   RetryConfig
}

// Critical is the budget for calls whose failure aborts the pipeline
// (geocoding): three attempts, backing off 1s then 2s.
func Critical() Policy {
	r := DefaultRetryConfig()
	r.MaxAttempts = 3
	return Policy{Timeout: DefaultTimeout, Retry: r}
}

// BestEffort is the budget for calls whose failure is absorbed: at most
// one retry.
func BestEffort() Policy {
	return Policy{Timeout: DefaultTimeout, Retry: DefaultRetryConfig()}
}

// NewPolicy builds a policy from configured values, keeping the defaults
// of base for any non-positive argument.
func NewPolicy(base Policy, timeout time.Duration, maxAttempts int, initialBackoff time.Duration) Policy {
	if timeout > 0 {
		base.Timeout = timeout
	}
	if maxAttempts > 0 {
		base.Retry.MaxAttempts = maxAttempts
	}
	if initialBackoff > 0 {
		base.Retry.InitialBackoff = initialBackoff
	}
	return base
}

// Logged returns a copy of p that logs every retry for provider/operation.
func (p Policy) Logged(provider, operation string) Policy {
	p.Retry.OnRetry = RetryLogger(provider, operation)
	return p
}

// Call runs fn under p. Each attempt gets its own deadline so a slow first
// attempt does not eat the retry budget. When cb is non-nil every attempt
// goes through the breaker; an open circuit fails fast without retrying.
func Call[T any](ctx context.Context, p Policy, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	attempt := func(ctx context.Context) (T, error) {
		actx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if cb == nil {
			return fn(actx)
		}
		return ExecuteVal(actx, cb, fn)
	}

	return DoVal(ctx, p.Retry, attempt)
}

// FromCircuitConfig converts config values to a CircuitBreakerConfig.
func FromCircuitConfig(failureThreshold, resetTimeoutSecs int) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig()
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	if resetTimeoutSecs > 0 {
		cfg.ResetTimeout = time.Duration(resetTimeoutSecs) * time.Second
	}
	return cfg
}
