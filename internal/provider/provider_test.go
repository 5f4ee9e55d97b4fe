package provider

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/house-report/internal/metrics"
	"github.com/sells-group/house-report/internal/resilience"
	"github.com/sells-group/house-report/pkg/airquality"
)

func TestOutcome(t *testing.T) {
	ok := Ok(42, "https://example.fr")
	v, present := ok.Get()
	assert.True(t, present)
	assert.Equal(t, 42, v)
	assert.Equal(t, "https://example.fr", ok.Source())
	assert.Empty(t, ok.Reason())

	absent := Absent[int]("%s indisponible", "dvf")
	v, present = absent.Get()
	assert.False(t, present)
	assert.Zero(t, v)
	assert.Equal(t, "dvf indisponible", absent.Reason())
	assert.Empty(t, absent.Source())
}

func TestCall_OpenCircuitIsAbsent(t *testing.T) {
	rt := testRuntime()
	rt.Breakers = resilience.NewServiceBreakers(resilience.CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Hour,
		ShouldTrip:       func(error) bool { return true },
	})
	client := &fakeAirQuality{err: errUpstream}
	a := NewAirQuality(client, rt)

	first := a.Fetch(context.Background(), ordenerTarget())
	assert.False(t, first.OK())
	assert.NotContains(t, first.Reason(), "circuit")

	client.err = nil
	client.cur = &airquality.Current{EuropeanAQI: ptr(10)}
	second := a.Fetch(context.Background(), ordenerTarget())
	assert.False(t, second.OK())
	assert.Contains(t, second.Reason(), "circuit ouvert")
}

func TestCall_ObservesLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	rt := testRuntime()
	rt.Metrics = metrics.New(reg)

	NewAirQuality(&fakeAirQuality{err: errUpstream}, rt).Fetch(context.Background(), ordenerTarget())
	NewAirQuality(&fakeAirQuality{cur: &airquality.Current{EuropeanAQI: ptr(10)}}, rt).Fetch(context.Background(), ordenerTarget())

	families, err := reg.Gather()
	require.NoError(t, err)
	counts := map[string]uint64{}
	for _, mf := range families {
		if mf.GetName() != "house_report_provider_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "outcome" {
					counts[lp.GetValue()] += m.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	assert.Equal(t, uint64(1), counts[metrics.OutcomeError])
	assert.Equal(t, uint64(1), counts[metrics.OutcomeOK])
}

func TestDefaultRuntime(t *testing.T) {
	rt := DefaultRuntime()
	assert.Equal(t, 3, rt.Critical.Retry.MaxAttempts)
	assert.Equal(t, 2, rt.BestEffort.Retry.MaxAttempts)
	assert.Equal(t, GenerativeTimeout, rt.Generative.Timeout)
	assert.NotNil(t, rt.Tables)

	var nilRT *Runtime
	assert.NotNil(t, nilRT.tables())
	assert.False(t, nilRT.now().IsZero())
	assert.Nil(t, nilRT.breaker("dvf"))
}
