// Package pipeline builds a house profile: it geocodes the address, fans
// out to every provider adapter, then derives recommendations and the AI
// analysis from the assembled profile.
package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/house-report/internal/metrics"
	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/internal/provider"
	"github.com/sells-group/house-report/internal/recommend"
)

// Section names used in warnings and sources.
const (
	SectionRisks        = "risks"
	SectionEnergy       = "energy"
	SectionDVF          = "dvf"
	SectionMelo         = "melo"
	SectionMarketSearch = "market_search"
	SectionEducation    = "education"
	SectionAmenities    = "amenities"
	SectionUrbanism     = "urbanism"
	SectionAirQuality   = "air_quality"
	SectionConnectivity = "connectivity"
	SectionSafety       = "safety"
	SectionSafetySearch = "safety_search"
	SectionPappers      = "pappers"
	SectionAIAnalysis   = "ai_analysis"
)

// Pipeline results recorded on the run metric.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
	// ResultCancelled marks a run whose caller went away mid-build.
	ResultCancelled = "cancelled"
)

// Fetcher is one provider adapter.
type Fetcher[T any] interface {
	Fetch(ctx context.Context, t provider.Target) provider.Outcome[T]
}

// Locator resolves an address. It is the only stage whose failure aborts
// a run.
type Locator interface {
	Locate(ctx context.Context, address string) (model.Location, error)
}

// Analyzer produces the narrative analysis of an assembled profile.
type Analyzer interface {
	Analyze(ctx context.Context, p *model.HouseProfile) provider.Outcome[*model.AIAnalysis]
}

// Adapters are the provider adapters fanned out after geocoding. A nil
// adapter is skipped without a warning.
type Adapters struct {
	Risks        Fetcher[*model.Risks]
	Energy       Fetcher[*model.Energy]
	Transactions Fetcher[*model.DVF]
	Listings     Fetcher[*model.Melo]
	MarketSearch Fetcher[*model.MarketSearch]
	Schools      Fetcher[*model.Education]
	Amenities    Fetcher[*model.Amenities]
	Urbanism     Fetcher[*model.Urbanism]
	AirQuality   Fetcher[*model.AirQuality]
	Connectivity Fetcher[*model.Connectivity]
	Safety       Fetcher[*model.Safety]
	SafetySearch Fetcher[*model.SafetySearch]
	Cadastral    Fetcher[*model.Pappers]
}

// Pipeline orchestrates one profile build.
type Pipeline struct {
	locator  Locator
	adapters Adapters
	analyzer Analyzer
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics records run duration and absorbed warnings.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline. analyzer may be nil to skip the AI analysis.
func New(locator Locator, adapters Adapters, analyzer Analyzer, opts ...Option) *Pipeline {
	p := &Pipeline{
		locator:  locator,
		adapters: adapters,
		analyzer: analyzer,
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// collector accumulates provenance and warnings from concurrent adapters.
type collector struct {
	mu       sync.Mutex
	now      func() time.Time
	sources  []model.Source
	warnings []string
}

func (c *collector) source(section, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = append(c.sources, model.Source{Section: section, URL: url, FetchedAt: c.now()})
}

func (c *collector) warn(section, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, section+": "+reason)
}

// fanOut runs f in g and stores its value through set. Absence becomes a
// warning; the goroutine never fails the group.
func fanOut[T any](ctx context.Context, g *errgroup.Group, c *collector, m *metrics.Metrics, section string, f Fetcher[T], t provider.Target, set func(T)) {
	if f == nil {
		return
	}
	g.Go(func() error {
		out := f.Fetch(ctx, t)
		if v, ok := out.Get(); ok {
			set(v)
			c.source(section, out.Source())
			return nil
		}
		m.IncWarning(section)
		c.warn(section, out.Reason())
		return nil
	})
}

// Run builds the profile for q. Geocoding failures and cancellation of
// ctx are returned; every other failure is recorded in Meta.Warnings.
func (p *Pipeline) Run(ctx context.Context, q model.Query) (*model.HouseProfile, error) {
	log := zap.L().With(zap.String("address", q.Address), zap.Int("radius", q.EffectiveRadius()))
	log.Info("pipeline: starting profile")
	start := time.Now()

	loc, err := p.locator.Locate(ctx, q.Address)
	if err != nil {
		if eris.Is(err, provider.ErrAddressNotFound) {
			p.metrics.ObservePipeline(ResultNotFound, time.Since(start))
			log.Info("pipeline: address not found")
			return nil, err
		}
		p.metrics.ObservePipeline(ResultError, time.Since(start))
		return nil, eris.Wrap(err, "pipeline: geocode")
	}

	profile := &model.HouseProfile{Query: q, Location: loc}
	target := provider.Target{Query: q, Location: loc}
	c := &collector{now: p.now}

	var (
		dvf          *model.DVF
		melo         *model.Melo
		marketSearch *model.MarketSearch
		safety       *model.Safety
		safetySearch *model.SafetySearch
	)

	a := p.adapters
	g, gctx := errgroup.WithContext(ctx)
	fanOut(gctx, g, c, p.metrics, SectionRisks, a.Risks, target, func(v *model.Risks) { profile.Risks = v })
	fanOut(gctx, g, c, p.metrics, SectionEnergy, a.Energy, target, func(v *model.Energy) { profile.Energy = v })
	fanOut(gctx, g, c, p.metrics, SectionDVF, a.Transactions, target, func(v *model.DVF) { dvf = v })
	fanOut(gctx, g, c, p.metrics, SectionMelo, a.Listings, target, func(v *model.Melo) { melo = v })
	fanOut(gctx, g, c, p.metrics, SectionMarketSearch, a.MarketSearch, target, func(v *model.MarketSearch) { marketSearch = v })
	fanOut(gctx, g, c, p.metrics, SectionEducation, a.Schools, target, func(v *model.Education) { profile.Education = v })
	fanOut(gctx, g, c, p.metrics, SectionAmenities, a.Amenities, target, func(v *model.Amenities) { profile.Amenities = v })
	fanOut(gctx, g, c, p.metrics, SectionUrbanism, a.Urbanism, target, func(v *model.Urbanism) { profile.Urbanism = v })
	fanOut(gctx, g, c, p.metrics, SectionAirQuality, a.AirQuality, target, func(v *model.AirQuality) { profile.AirQuality = v })
	fanOut(gctx, g, c, p.metrics, SectionConnectivity, a.Connectivity, target, func(v *model.Connectivity) { profile.Connectivity = v })
	fanOut(gctx, g, c, p.metrics, SectionSafety, a.Safety, target, func(v *model.Safety) { safety = v })
	fanOut(gctx, g, c, p.metrics, SectionSafetySearch, a.SafetySearch, target, func(v *model.SafetySearch) { safetySearch = v })
	fanOut(gctx, g, c, p.metrics, SectionPappers, a.Cadastral, target, func(v *model.Pappers) { profile.Pappers = v })

	// Adapter failures are absorbed into warnings.
	_ = g.Wait()
	if err := p.cancelled(ctx, start); err != nil {
		return nil, err
	}

	profile.Market = assembleMarket(dvf, melo, marketSearch)
	profile.Safety = assembleSafety(safety, safetySearch)

	recs := recommend.Compute(profile)
	profile.Recommendations = &recs

	if p.analyzer != nil {
		out := p.analyzer.Analyze(ctx, profile)
		if v, ok := out.Get(); ok {
			profile.AIAnalysis = v
			c.source(SectionAIAnalysis, out.Source())
		} else {
			p.metrics.IncWarning(SectionAIAnalysis)
			c.warn(SectionAIAnalysis, out.Reason())
		}
		if err := p.cancelled(ctx, start); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(c.sources, func(i, j int) bool { return c.sources[i].Section < c.sources[j].Section })
	sort.Strings(c.warnings)

	elapsed := time.Since(start)
	profile.Meta = model.Meta{
		GeneratedAt:  p.now(),
		ProcessingMS: elapsed.Milliseconds(),
		Sources:      c.sources,
		Warnings:     c.warnings,
	}
	p.metrics.ObservePipeline(ResultOK, elapsed)

	log.Info("pipeline: profile complete",
		zap.Int64("duration_ms", elapsed.Milliseconds()),
		zap.Int("sources", len(c.sources)),
		zap.Int("warnings", len(c.warnings)),
	)
	return profile, nil
}

// cancelled reports a caller that went away: the sections it left empty
// are not provider outages, so the profile is dropped.
func (p *Pipeline) cancelled(ctx context.Context, start time.Time) error {
	if ctx.Err() == nil {
		return nil
	}
	p.metrics.ObservePipeline(ResultCancelled, time.Since(start))
	return eris.Wrap(ctx.Err(), "pipeline: cancelled")
}

func assembleMarket(dvf *model.DVF, melo *model.Melo, search *model.MarketSearch) *model.Market {
	if dvf == nil && melo == nil && search == nil {
		return nil
	}
	return &model.Market{DVF: dvf, Melo: melo, WebSearch: search}
}

// assembleSafety attaches the search enrichment to the commune statistics,
// or carries it alone when the statistics are absent.
func assembleSafety(stats *model.Safety, search *model.SafetySearch) *model.Safety {
	switch {
	case stats == nil && search == nil:
		return nil
	case stats == nil:
		return &model.Safety{WebSearch: search}
	default:
		stats.WebSearch = search
		return stats
	}
}
