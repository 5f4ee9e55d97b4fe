package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/house-report/internal/cache"
	"github.com/sells-group/house-report/internal/config"
	"github.com/sells-group/house-report/internal/estimate"
	"github.com/sells-group/house-report/internal/fetcher"
	"github.com/sells-group/house-report/internal/metrics"
	"github.com/sells-group/house-report/internal/pipeline"
	"github.com/sells-group/house-report/internal/provider"
	"github.com/sells-group/house-report/internal/resilience"
	"github.com/sells-group/house-report/internal/store"
	"github.com/sells-group/house-report/internal/synthesis"
	"github.com/sells-group/house-report/pkg/ademe"
	"github.com/sells-group/house-report/pkg/airquality"
	anthropicpkg "github.com/sells-group/house-report/pkg/anthropic"
	"github.com/sells-group/house-report/pkg/arcep"
	"github.com/sells-group/house-report/pkg/dvf"
	"github.com/sells-group/house-report/pkg/education"
	"github.com/sells-group/house-report/pkg/gemini"
	"github.com/sells-group/house-report/pkg/geocode"
	"github.com/sells-group/house-report/pkg/georisques"
	"github.com/sells-group/house-report/pkg/google"
	"github.com/sells-group/house-report/pkg/gpu"
	"github.com/sells-group/house-report/pkg/melo"
	"github.com/sells-group/house-report/pkg/overpass"
	"github.com/sells-group/house-report/pkg/pappers"
	"github.com/sells-group/house-report/pkg/perplexity"
	"github.com/sells-group/house-report/pkg/ssmsi"
)

// pipelineEnv holds the built pipeline and what it shares with the serve
// and profile commands.
type pipelineEnv struct {
	Pipeline *pipeline.Pipeline
	Cache    *cache.Cache
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Breakers *resilience.ServiceBreakers
}

// initPipeline builds every client, adapter and the pipeline from cfg.
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	rt, err := newRuntime(cfg, m)
	if err != nil {
		return nil, err
	}

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    "house-report/1.0",
		Timeout:      cfg.Policy.Timeout(),
		RateLimiters: fetcher.DefaultRateLimiters(),
	})

	var gem gemini.Client
	if cfg.Gemini.Key != "" {
		gem, err = gemini.NewClient(ctx, cfg.Gemini.Key, gemini.WithModel(cfg.Gemini.Model))
		if err != nil {
			return nil, eris.Wrap(err, "init gemini")
		}
	}

	locator := provider.NewGeocoder(geocode.NewClient(
		geocode.WithBaseURL(cfg.Providers.Adresse.BaseURL), geocode.WithFetcher(f)), rt)

	adapters := newAdapters(cfg, rt, f)
	if searcher := newSearcher(cfg, gem); searcher != nil {
		adapters.MarketSearch = provider.NewMarketSearch(searcher, rt)
		adapters.SafetySearch = provider.NewSafetySearch(searcher, rt)
		zap.L().Info("web search enrichment enabled", zap.String("provider", cfg.WebSearch.Provider))
	} else {
		zap.L().Info("web search enrichment disabled")
	}

	analyzer := synthesis.New(newGenerator(cfg, gem), rt)

	c, err := cache.New(cache.Options{
		TTL:      cfg.Cache.TTL(),
		Capacity: cfg.Cache.Capacity,
		Metrics:  m,
	})
	if err != nil {
		return nil, err
	}

	return &pipelineEnv{
		Pipeline: pipeline.New(locator, adapters, analyzer, pipeline.WithMetrics(m)),
		Cache:    c,
		Metrics:  m,
		Registry: reg,
		Breakers: rt.Breakers,
	}, nil
}

// newRuntime translates the policy settings into call budgets and loads
// the heuristic tables.
func newRuntime(c *config.Config, m *metrics.Metrics) (*provider.Runtime, error) {
	tables := estimate.Default()
	if c.Estimate.TablePath != "" {
		t, err := estimate.Load(c.Estimate.TablePath)
		if err != nil {
			return nil, eris.Wrap(err, "load estimate tables")
		}
		tables = t
	}

	p := c.Policy
	breakers := resilience.NewServiceBreakers(resilience.FromCircuitConfig(p.BreakerThreshold, p.BreakerResetSecs)).
		WithObserver(func(provider string, _, to resilience.CircuitState) {
			m.SetBreakerState(provider, int(to))
		})

	best := resilience.NewPolicy(resilience.BestEffort(), p.Timeout(), p.BestEffortAttempts, p.InitialBackoff())
	return &provider.Runtime{
		Critical:   resilience.NewPolicy(resilience.Critical(), p.Timeout(), p.CriticalAttempts, p.InitialBackoff()),
		BestEffort: best,
		Generative: resilience.NewPolicy(best, provider.GenerativeTimeout, 0, 0),
		Breakers:   breakers,
		Metrics:    m,
		Tables:     tables,
		Now:        time.Now,
	}, nil
}

// newAdapters builds the data-provider adapters. Keyed providers are left
// nil, and so skipped, when their key is missing.
func newAdapters(c *config.Config, rt *provider.Runtime, f fetcher.Fetcher) pipeline.Adapters {
	pc := c.Providers

	var places google.Client
	if pc.Google.Key != "" {
		places = google.NewClient(pc.Google.Key, google.WithBaseURL(pc.Google.BaseURL), google.WithFetcher(f))
	} else {
		zap.L().Debug("GOOGLE_PLACES_API_KEY not set, school ratings disabled")
	}

	a := pipeline.Adapters{
		Risks: provider.NewRisks(georisques.NewClient(
			georisques.WithBaseURL(pc.Georisques.BaseURL), georisques.WithFetcher(f)), rt),
		Energy: provider.NewEnergy(ademe.NewClient(
			ademe.WithBaseURL(pc.Ademe.BaseURL), ademe.WithFetcher(f)), rt),
		Transactions: provider.NewTransactions(dvf.NewClient(
			dvf.WithBaseURL(pc.DVF.BaseURL), dvf.WithFetcher(f)), rt),
		Schools: provider.NewSchools(education.NewClient(
			education.WithBaseURL(pc.Education.BaseURL), education.WithFetcher(f)), places, rt).
			WithLimits(provider.SchoolLimits{
				Rows:        c.Schools.MaxResults,
				EnrichLimit: c.Schools.EnrichLimit,
				Concurrency: c.Schools.Concurrency,
				MatchRadius: c.Schools.MatchRadiusM,
			}),
		Amenities: provider.NewAmenities(overpass.NewClient(
			overpass.WithBaseURL(pc.Overpass.BaseURL), overpass.WithFetcher(f)), rt).
			WithCap(c.Amenities.PerCategory),
		Urbanism: provider.NewUrbanism(gpu.NewClient(
			gpu.WithBaseURL(pc.GPU.BaseURL), gpu.WithFetcher(f)), rt),
		AirQuality: provider.NewAirQuality(airquality.NewClient(
			airquality.WithBaseURL(pc.AirQuality.BaseURL), airquality.WithFetcher(f)), rt),
		Connectivity: provider.NewConnectivity(arcep.NewClient(
			arcep.WithBaseURL(pc.Arcep.BaseURL), arcep.WithFetcher(f)), rt),
		Safety: provider.NewSafety(ssmsi.NewClient(
			ssmsi.WithBaseURL(pc.SSMSI.BaseURL),
			ssmsi.WithResources(pc.SSMSI.CommuneResource, pc.SSMSI.NationalResource),
			ssmsi.WithFetcher(f)), rt),
	}

	if pc.Melo.Key != "" {
		a.Listings = provider.NewListings(melo.NewClient(pc.Melo.Key,
			melo.WithBaseURL(pc.Melo.BaseURL()), melo.WithFetcher(f)), rt)
	} else {
		zap.L().Debug("MELO_API_KEY not set, comparable listings disabled")
	}
	if pc.Pappers.Key != "" {
		a.Cadastral = provider.NewCadastral(pappers.NewClient(pc.Pappers.Key,
			pappers.WithBaseURL(pc.Pappers.BaseURL), pappers.WithFetcher(f)), rt)
	} else {
		zap.L().Debug("PAPPERS_API_KEY not set, cadastral dossier disabled")
	}
	return a
}

// newSearcher returns the web-search backend, or nil when disabled or
// unconfigured.
func newSearcher(c *config.Config, gem gemini.Client) provider.Searcher {
	if !c.WebSearch.Enabled {
		return nil
	}
	switch c.WebSearch.Provider {
	case "perplexity":
		if c.Perplexity.Key == "" {
			zap.L().Warn("web search uses perplexity but PERPLEXITY_API_KEY is not set")
			return nil
		}
		return provider.NewPerplexitySearcher(perplexity.NewClient(c.Perplexity.Key,
			perplexity.WithBaseURL(c.Perplexity.BaseURL), perplexity.WithModel(c.Perplexity.Model)))
	default:
		if gem == nil {
			zap.L().Warn("web search uses gemini but GEMINI_API_KEY is not set")
			return nil
		}
		return provider.NewGeminiSearcher(gem)
	}
}

// newGenerator returns the synthesis backend, or nil when its key is
// missing; the analysis section is then reported absent.
func newGenerator(c *config.Config, gem gemini.Client) synthesis.Generator {
	switch c.Synthesis.Provider {
	case "anthropic":
		if c.Anthropic.Key == "" {
			zap.L().Warn("synthesis uses anthropic but ANTHROPIC_API_KEY is not set")
			return nil
		}
		return synthesis.NewAnthropicGenerator(anthropicpkg.NewClient(c.Anthropic.Key), c.Anthropic.Model)
	default:
		if gem == nil {
			zap.L().Warn("synthesis uses gemini but GEMINI_API_KEY is not set")
			return nil
		}
		return synthesis.NewGeminiGenerator(gem)
	}
}

// initStore opens and migrates the configured store.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "house-report.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
