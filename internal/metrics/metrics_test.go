package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue returns the value of the named counter with the given
// label value, gathered from reg.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveProvider("dvf", OutcomeOK, time.Second)
		m.ObservePipeline("ok", time.Second)
		m.IncCache("hit")
		m.IncWarning("energy")
		m.SetBreakerState("dvf", 1)
	})
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncCache("hit")
	m.IncCache("hit")
	m.IncCache("miss")
	m.IncWarning("risks")
	m.ObservePipeline("ok", 2*time.Second)
	m.ObserveProvider("georisques", OutcomeAbsent, 300*time.Millisecond)

	assert.InDelta(t, 2.0, counterValue(t, reg, "house_report_cache_lookups_total", "hit"), 1e-9)
	assert.InDelta(t, 1.0, counterValue(t, reg, "house_report_cache_lookups_total", "miss"), 1e-9)
	assert.InDelta(t, 1.0, counterValue(t, reg, "house_report_section_warnings_total", "risks"), 1e-9)
	assert.InDelta(t, 1.0, counterValue(t, reg, "house_report_pipeline_runs_total", "ok"), 1e-9)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "house_report_provider_duration_seconds")
	assert.Contains(t, names, "house_report_pipeline_duration_seconds")
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}

func TestBreakerState(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SetBreakerState("overpass", 1)
	m.SetBreakerState("overpass", 2)

	families, err := reg.Gather()
	require.NoError(t, err)
	var got float64 = -1
	for _, mf := range families {
		if mf.GetName() == "house_report_provider_breaker_state" {
			got = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.InDelta(t, 2.0, got, 1e-9)
}
