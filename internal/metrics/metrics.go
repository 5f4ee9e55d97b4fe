// Package metrics exposes Prometheus instrumentation for provider calls,
// pipeline runs and the profile cache.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Provider call outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeAbsent = "absent"
	OutcomeError  = "error"
)

// Metrics holds every collector. A nil *Metrics is a no-op.
type Metrics struct {
	ProviderLatency  *prometheus.HistogramVec
	PipelineDuration prometheus.Histogram
	PipelineRuns     *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
	Warnings         *prometheus.CounterVec
	BreakerState     *prometheus.GaugeVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "house_report_provider_duration_seconds",
			Help:    "Duration of upstream provider calls including retries",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"provider", "outcome"}),

		PipelineDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "house_report_pipeline_duration_seconds",
			Help:    "Duration of a full profile build",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
		}),

		PipelineRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "house_report_pipeline_runs_total",
			Help: "Profile builds by result",
		}, []string{"result"}), // result: "ok", "not_found", "error"

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "house_report_cache_lookups_total",
			Help: "Profile cache lookups by result",
		}, []string{"result"}), // result: "hit", "miss", "expired", "shared"

		Warnings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "house_report_section_warnings_total",
			Help: "Absorbed section failures by section",
		}, []string{"section"}),

		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "house_report_provider_breaker_state",
			Help: "Provider circuit state: 0 closed, 1 open, 2 half-open",
		}, []string{"provider"}),
	}
}

// ObserveProvider records one provider call.
func (m *Metrics) ObserveProvider(provider, outcome string, d time.Duration) {
	if m != nil {
		m.ProviderLatency.WithLabelValues(provider, outcome).Observe(d.Seconds())
	}
}

// ObservePipeline records one pipeline run.
func (m *Metrics) ObservePipeline(result string, d time.Duration) {
	if m != nil {
		m.PipelineDuration.Observe(d.Seconds())
		m.PipelineRuns.WithLabelValues(result).Inc()
	}
}

// IncCache records a cache lookup result.
func (m *Metrics) IncCache(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}

// IncWarning records an absorbed section failure.
func (m *Metrics) IncWarning(section string) {
	if m != nil {
		m.Warnings.WithLabelValues(section).Inc()
	}
}

// SetBreakerState records a provider circuit transition.
func (m *Metrics) SetBreakerState(provider string, state int) {
	if m != nil {
		m.BreakerState.WithLabelValues(provider).Set(float64(state))
	}
}
