package pipeline

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/house-report/internal/estimate"
	"github.com/sells-group/house-report/internal/fetcher"
	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/internal/provider"
	"github.com/sells-group/house-report/internal/resilience"
	"github.com/sells-group/house-report/pkg/ademe"
	"github.com/sells-group/house-report/pkg/airquality"
	"github.com/sells-group/house-report/pkg/arcep"
	"github.com/sells-group/house-report/pkg/dvf"
	"github.com/sells-group/house-report/pkg/education"
	"github.com/sells-group/house-report/pkg/geocode"
	"github.com/sells-group/house-report/pkg/georisques"
	"github.com/sells-group/house-report/pkg/google"
	"github.com/sells-group/house-report/pkg/gpu"
	"github.com/sells-group/house-report/pkg/melo"
	"github.com/sells-group/house-report/pkg/overpass"
	"github.com/sells-group/house-report/pkg/pappers"
	"github.com/sells-group/house-report/pkg/ssmsi"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

var ordener = model.Location{
	Label: "10 Rue Ordener 75018 Paris",
	GPS:   model.GPS{Lat: 48.89193, Lon: 2.34787},
	Admin: model.Admin{City: "Paris", Postcode: "75018", Citycode: "75118", Department: "75", Region: "Île-de-France"},
}

type fakeLocator struct {
	loc model.Location
	err error
}

func (f fakeLocator) Locate(context.Context, string) (model.Location, error) {
	return f.loc, f.err
}

type fakeFetcher[T any] struct {
	out   provider.Outcome[T]
	calls atomic.Int32
}

func (f *fakeFetcher[T]) Fetch(context.Context, provider.Target) provider.Outcome[T] {
	f.calls.Add(1)
	return f.out
}

func present[T any](v T, src string) *fakeFetcher[T] {
	return &fakeFetcher[T]{out: provider.Ok(v, src)}
}

func absent[T any](reason string) *fakeFetcher[T] {
	return &fakeFetcher[T]{out: provider.Absent[T]("%s", reason)}
}

type fakeAnalyzer struct {
	seen *model.HouseProfile
	out  provider.Outcome[*model.AIAnalysis]
}

func (f *fakeAnalyzer) Analyze(_ context.Context, p *model.HouseProfile) provider.Outcome[*model.AIAnalysis] {
	f.seen = p
	return f.out
}

func TestRun_AssemblesSections(t *testing.T) {
	fiber := false
	analyzer := &fakeAnalyzer{out: provider.Ok(&model.AIAnalysis{Score: 71}, "gemini")}
	p := New(fakeLocator{loc: ordener}, Adapters{
		Energy:       present(&model.Energy{DPE: &model.DPE{ClassEnergy: "F"}}, "https://ademe.example"),
		Transactions: present(&model.DVF{Summary: model.DVFSummary{PriceM2Median1Y: 9800}}, "https://dvf.example"),
		MarketSearch: present(&model.MarketSearch{PriceM2: 10200}, "https://news.example"),
		Connectivity: present(&model.Connectivity{FiberAvailable: &fiber}, "https://arcep.example"),
		SafetySearch: present(&model.SafetySearch{CrimeRate: "moyen", SafetyScore: 60}, "https://press.example"),
		Risks:        absent[*model.Risks]("georisques indisponible: timeout"),
	}, analyzer, WithClock(func() time.Time { return testNow }))

	profile, err := p.Run(context.Background(), model.Query{Address: "10 Rue Ordener, 75018 Paris"})
	require.NoError(t, err)

	assert.Equal(t, ordener, profile.Location)
	require.NotNil(t, profile.Market)
	assert.Equal(t, 9800, profile.Market.DVF.Summary.PriceM2Median1Y)
	assert.Equal(t, 10200.0, profile.Market.WebSearch.PriceM2)
	assert.Nil(t, profile.Market.Melo)

	require.NotNil(t, profile.Safety)
	assert.Empty(t, profile.Safety.Indicators)
	assert.Equal(t, "moyen", profile.Safety.WebSearch.CrimeRate)

	assert.Nil(t, profile.Risks)
	assert.Equal(t, []string{"risks: georisques indisponible: timeout"}, profile.Meta.Warnings)

	require.NotNil(t, profile.Recommendations)
	assert.NotEmpty(t, profile.Recommendations.Items)
	assert.Equal(t, 71.0, profile.AIAnalysis.Score)
	assert.Same(t, profile, analyzer.seen)
	assert.NotNil(t, analyzer.seen.Recommendations, "analysis runs after recommendations")

	assert.Equal(t, testNow, profile.Meta.GeneratedAt)
	var sections []string
	for _, s := range profile.Meta.Sources {
		sections = append(sections, s.Section)
		assert.Equal(t, testNow, s.FetchedAt)
	}
	assert.Equal(t, []string{
		SectionAIAnalysis, SectionConnectivity, SectionDVF, SectionEnergy, SectionMarketSearch, SectionSafetySearch,
	}, sections)
}

func TestRun_AnalyzerAbsenceIsWarning(t *testing.T) {
	analyzer := &fakeAnalyzer{out: provider.Absent[*model.AIAnalysis]("analyse IA non configurée")}
	p := New(fakeLocator{loc: ordener}, Adapters{}, analyzer)

	profile, err := p.Run(context.Background(), model.Query{Address: "10 Rue Ordener, 75018 Paris"})
	require.NoError(t, err)
	assert.Nil(t, profile.AIAnalysis)
	assert.Equal(t, []string{"ai_analysis: analyse IA non configurée"}, profile.Meta.Warnings)
	assert.Nil(t, profile.Market)
	assert.Nil(t, profile.Safety)
}

func TestRun_AddressNotFound(t *testing.T) {
	energy := present(&model.Energy{}, "x")
	p := New(fakeLocator{err: provider.ErrAddressNotFound}, Adapters{Energy: energy}, nil)

	profile, err := p.Run(context.Background(), model.Query{Address: "nulle part"})
	assert.Nil(t, profile)
	assert.ErrorIs(t, err, provider.ErrAddressNotFound)
	assert.Zero(t, energy.calls.Load(), "no adapter runs without a location")
}

func TestRun_GeocodeTransportFailure(t *testing.T) {
	p := New(fakeLocator{err: eris.New("geocode: search: connection refused")}, Adapters{}, nil)

	_, err := p.Run(context.Background(), model.Query{Address: "10 Rue Ordener, 75018 Paris"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: geocode")
	assert.NotErrorIs(t, err, provider.ErrAddressNotFound)
}

func TestAssembleSafety(t *testing.T) {
	search := &model.SafetySearch{CrimeRate: "faible"}
	stats := &model.Safety{Period: "2024"}

	assert.Nil(t, assembleSafety(nil, nil))
	assert.Equal(t, &model.Safety{WebSearch: search}, assembleSafety(nil, search))

	got := assembleSafety(stats, search)
	assert.Equal(t, "2024", got.Period)
	assert.Same(t, search, got.WebSearch)
}

// failingSearcher stands in for a search-grounded model during an outage.
type failingSearcher struct{}

func (failingSearcher) Name() string { return "gemini" }

func (failingSearcher) Search(context.Context, string) (*provider.SearchResult, error) {
	return nil, resilience.NewTransientError(eris.New("gemini: unavailable"), http.StatusServiceUnavailable)
}

func TestRun_ProviderOutageKeepsLocation(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"features":[{
			"geometry":{"type":"Point","coordinates":[2.34787,48.89193]},
			"properties":{"label":"10 Rue Ordener 75018 Paris","postcode":"75018","citycode":"75118",
				"city":"Paris","context":"75, Paris, Île-de-France"}}]}`)
	}))
	t.Cleanup(geo.Close)

	var outageCalls atomic.Int32
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		outageCalls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(down.Close)

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{RateLimiters: map[string]*fetcher.AdaptiveLimiter{}})
	fast := resilience.NewPolicy(resilience.BestEffort(), time.Second, 0, time.Millisecond)
	rt := &provider.Runtime{
		Critical:   resilience.NewPolicy(resilience.Critical(), time.Second, 0, time.Millisecond),
		BestEffort: fast,
		Generative: fast,
		Tables:     estimate.Default(),
		Now:        func() time.Time { return testNow },
	}

	locator := provider.NewGeocoder(geocode.NewClient(geocode.WithBaseURL(geo.URL), geocode.WithFetcher(f)), rt)
	adapters := Adapters{
		Risks:        provider.NewRisks(georisques.NewClient(georisques.WithBaseURL(down.URL), georisques.WithFetcher(f)), rt),
		Energy:       provider.NewEnergy(ademe.NewClient(ademe.WithBaseURL(down.URL), ademe.WithFetcher(f)), rt),
		Transactions: provider.NewTransactions(dvf.NewClient(dvf.WithBaseURL(down.URL), dvf.WithFetcher(f)), rt),
		Listings:     provider.NewListings(melo.NewClient("melo-key", melo.WithBaseURL(down.URL), melo.WithFetcher(f)), rt),
		MarketSearch: provider.NewMarketSearch(failingSearcher{}, rt),
		Schools: provider.NewSchools(
			education.NewClient(education.WithBaseURL(down.URL), education.WithFetcher(f)),
			google.NewClient("places-key", google.WithBaseURL(down.URL), google.WithFetcher(f)),
			rt,
		),
		Amenities:    provider.NewAmenities(overpass.NewClient(overpass.WithBaseURL(down.URL), overpass.WithFetcher(f)), rt),
		Urbanism:     provider.NewUrbanism(gpu.NewClient(gpu.WithBaseURL(down.URL), gpu.WithFetcher(f)), rt),
		AirQuality:   provider.NewAirQuality(airquality.NewClient(airquality.WithBaseURL(down.URL), airquality.WithFetcher(f)), rt),
		Connectivity: provider.NewConnectivity(arcep.NewClient(arcep.WithBaseURL(down.URL), arcep.WithFetcher(f)), rt),
		Safety:       provider.NewSafety(ssmsi.NewClient(ssmsi.WithBaseURL(down.URL), ssmsi.WithFetcher(f)), rt),
		SafetySearch: provider.NewSafetySearch(failingSearcher{}, rt),
		Cadastral:    provider.NewCadastral(pappers.NewClient("pappers-key", pappers.WithBaseURL(down.URL), pappers.WithFetcher(f)), rt),
	}

	profile, err := New(locator, adapters, nil, WithClock(func() time.Time { return testNow })).
		Run(context.Background(), model.Query{Address: "10 Rue Ordener, 75018 Paris"})
	require.NoError(t, err)

	assert.Equal(t, "75118", profile.Location.Admin.Citycode)
	assert.Equal(t, 48.89193, profile.Location.GPS.Lat)
	assert.Equal(t, testNow, profile.Meta.GeneratedAt)
	assert.Greater(t, outageCalls.Load(), int32(0))

	assert.Nil(t, profile.Risks)
	assert.Nil(t, profile.Energy)
	assert.Nil(t, profile.Education)
	assert.Nil(t, profile.Amenities)
	assert.Nil(t, profile.Urbanism)
	assert.Nil(t, profile.AirQuality)
	assert.Nil(t, profile.Connectivity)
	assert.Nil(t, profile.Safety)
	assert.Nil(t, profile.Pappers)
	assert.Nil(t, profile.Market)
	require.NotNil(t, profile.Recommendations)

	failed := map[string]bool{}
	for _, w := range profile.Meta.Warnings {
		section, _, found := strings.Cut(w, ": ")
		require.True(t, found, w)
		failed[section] = true
	}
	for _, section := range []string{
		SectionRisks, SectionEnergy, SectionDVF, SectionMelo, SectionMarketSearch, SectionEducation,
		SectionAmenities, SectionUrbanism, SectionAirQuality, SectionConnectivity, SectionSafety,
		SectionSafetySearch, SectionPappers,
	} {
		assert.True(t, failed[section], "missing warning for %s", section)
	}
	assert.Empty(t, profile.Meta.Sources)
}

// cancellingLocator resolves the address, then cancels the run.
type cancellingLocator struct {
	cancel context.CancelFunc
}

func (l cancellingLocator) Locate(context.Context, string) (model.Location, error) {
	l.cancel()
	return ordener, nil
}

type ctxFetcher[T any] struct{}

func (ctxFetcher[T]) Fetch(ctx context.Context, _ provider.Target) provider.Outcome[T] {
	if err := ctx.Err(); err != nil {
		return provider.Unavailable[T]("dvf", err)
	}
	var zero T
	return provider.Ok(zero, "https://dvf.example")
}

func TestRun_CallerCancelledAfterGeocode(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	analyzer := &fakeAnalyzer{out: provider.Ok(&model.AIAnalysis{Score: 50}, "gemini")}
	p := New(cancellingLocator{cancel: cancel}, Adapters{
		Transactions: ctxFetcher[*model.DVF]{},
	}, analyzer)

	profile, err := p.Run(ctx, model.Query{Address: "10 Rue Ordener, 75018 Paris"})
	assert.Nil(t, profile)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "pipeline: cancelled")
	assert.Nil(t, analyzer.seen, "no analysis for an abandoned run")
}

// cancellingAnalyzer cancels the run while the analysis is in progress.
type cancellingAnalyzer struct {
	cancel context.CancelFunc
}

func (a cancellingAnalyzer) Analyze(context.Context, *model.HouseProfile) provider.Outcome[*model.AIAnalysis] {
	a.cancel()
	return provider.Absent[*model.AIAnalysis]("context canceled")
}

func TestRun_CallerCancelledDuringAnalysis(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := New(fakeLocator{loc: ordener}, Adapters{}, cancellingAnalyzer{cancel: cancel})

	profile, err := p.Run(ctx, model.Query{Address: "10 Rue Ordener, 75018 Paris"})
	assert.Nil(t, profile)
	assert.ErrorIs(t, err, context.Canceled)
}
