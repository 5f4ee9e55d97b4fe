// Package provider adapts the upstream data sources to profile sections.
//
// Every adapter returns an Outcome: either a value or the reason it is
// absent. Adapters never return errors; the geocoder is the only component
// whose failure aborts a profile build.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/house-report/internal/estimate"
	"github.com/sells-group/house-report/internal/metrics"
	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/internal/resilience"
)

// ErrAddressNotFound is returned when geocoding yields no match.
var ErrAddressNotFound = eris.New("address not found")

// Target is the input shared by every adapter once the address is located.
type Target struct {
	Query    model.Query
	Location model.Location
}

// Radius returns the effective search radius in meters.
func (t Target) Radius() int {
	return t.Query.EffectiveRadius()
}

// Outcome is the tagged result of an adapter: Ok(value) or Absent(reason).
type Outcome[T any] struct {
	value  T
	ok     bool
	reason string
	source string
}

// Ok wraps a value fetched from source.
func Ok[T any](v T, source string) Outcome[T] {
	return Outcome[T]{value: v, ok: true, source: source}
}

// Absent records why a section has no value.
func Absent[T any](format string, args ...any) Outcome[T] {
	return Outcome[T]{reason: fmt.Sprintf(format, args...)}
}

// Get returns the value and whether it is present.
func (o Outcome[T]) Get() (T, bool) {
	return o.value, o.ok
}

// OK reports whether the outcome carries a value.
func (o Outcome[T]) OK() bool { return o.ok }

// Reason is the absence reason, empty when OK.
func (o Outcome[T]) Reason() string { return o.reason }

// Source is the upstream URL the value came from, empty when absent.
func (o Outcome[T]) Source() string { return o.source }

// GenerativeTimeout is the per-attempt deadline of search-grounded model
// calls, which routinely outlast plain API calls.
const GenerativeTimeout = 45 * time.Second

// Runtime carries what every adapter shares: call budgets, per-provider
// breakers, instrumentation, heuristics and the clock.
type Runtime struct {
	Critical   resilience.Policy
	BestEffort resilience.Policy
	Generative resilience.Policy
	Breakers   *resilience.ServiceBreakers
	Metrics    *metrics.Metrics
	Tables     *estimate.Tables
	Now        func() time.Time
}

// DefaultRuntime returns a runtime with the stock budgets and tables and no
// breakers or metrics.
func DefaultRuntime() *Runtime {
	return &Runtime{
		Critical:   resilience.Critical(),
		BestEffort: resilience.BestEffort(),
		Generative: resilience.NewPolicy(resilience.BestEffort(), GenerativeTimeout, 0, 0),
		Tables:     estimate.Default(),
		Now:        time.Now,
	}
}

func (rt *Runtime) now() time.Time {
	if rt == nil || rt.Now == nil {
		return time.Now()
	}
	return rt.Now()
}

func (rt *Runtime) tables() *estimate.Tables {
	if rt == nil || rt.Tables == nil {
		return estimate.Default()
	}
	return rt.Tables
}

func (rt *Runtime) breaker(provider string) *resilience.CircuitBreaker {
	if rt == nil || rt.Breakers == nil {
		return nil
	}
	return rt.Breakers.Get(provider)
}

// call runs fn under the best-effort policy and the provider breaker.
func call[T any](ctx context.Context, rt *Runtime, provider, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	p := resilience.BestEffort()
	if rt != nil {
		p = rt.BestEffort
	}
	return callWith(ctx, rt, p, provider, op, fn)
}

// CallGenerative runs fn under the generative policy and the provider
// breaker, for model calls made outside the adapters.
func CallGenerative[T any](ctx context.Context, rt *Runtime, provider, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	return callWith(ctx, rt, rt.generativePolicy(), provider, op, fn)
}

func callWith[T any](ctx context.Context, rt *Runtime, p resilience.Policy, provider, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	v, err := resilience.Call(ctx, p.Logged(provider, op), rt.breaker(provider), fn)

	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
		zap.L().Debug("provider: call failed",
			zap.String("provider", provider),
			zap.String("operation", op),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
	}
	if rt != nil {
		rt.Metrics.ObserveProvider(provider, outcome, time.Since(start))
	}
	return v, err
}

// Unavailable is the Absent reason for a failed upstream call.
func Unavailable[T any](provider string, err error) Outcome[T] {
	if eris.Is(err, resilience.ErrCircuitOpen) {
		return Absent[T]("%s indisponible (circuit ouvert)", provider)
	}
	return Absent[T]("%s indisponible: %v", provider, err)
}

func (rt *Runtime) criticalPolicy() resilience.Policy {
	if rt == nil {
		return resilience.Critical()
	}
	return rt.Critical
}

func (rt *Runtime) generativePolicy() resilience.Policy {
	if rt == nil || rt.Generative.Timeout == 0 {
		return resilience.NewPolicy(resilience.BestEffort(), GenerativeTimeout, 0, 0)
	}
	return rt.Generative
}
