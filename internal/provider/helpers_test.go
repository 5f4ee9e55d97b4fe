package provider

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/house-report/internal/estimate"
	"github.com/sells-group/house-report/internal/fetcher"
	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/internal/resilience"
)

var (
	errUpstream = eris.New("upstream: boom")
	testNow     = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
)

// testRuntime never sleeps between attempts and pins the clock.
func testRuntime() *Runtime {
	fast := resilience.NewPolicy(resilience.BestEffort(), time.Second, 0, time.Millisecond)
	return &Runtime{
		Critical:   resilience.NewPolicy(resilience.Critical(), time.Second, 0, time.Millisecond),
		BestEffort: fast,
		Generative: fast,
		Tables:     estimate.Default(),
		Now:        func() time.Time { return testNow },
	}
}

func ordenerTarget() Target {
	return Target{
		Query: model.Query{Address: "10 Rue Ordener, 75018 Paris"},
		Location: model.Location{
			Label: "10 Rue Ordener 75018 Paris",
			GPS:   model.GPS{Lat: 48.89193, Lon: 2.34787},
			Admin: model.Admin{
				City:       "Paris",
				Postcode:   "75018",
				Citycode:   "75118",
				Department: "75",
				Region:     "Île-de-France",
			},
		},
	}
}

func testFetcher(t *testing.T, handler http.HandlerFunc) (string, fetcher.Fetcher) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL, fetcher.NewHTTPFetcher(fetcher.HTTPOptions{RateLimiters: map[string]*fetcher.AdaptiveLimiter{}})
}

func fetcherFloat(v float64) fetcher.Float { return fetcher.Float(v) }

func twoDigits(n int) string {
	if n < 10 {
		return "0" + string(rune('0'+n))
	}
	return "1" + string(rune('0'+n-10))
}
