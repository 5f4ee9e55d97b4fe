package ademe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/house-report/internal/fetcher"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{RateLimiters: map[string]*fetcher.AdaptiveLimiter{}})
	return NewClient(WithBaseURL(srv.URL), WithFetcher(f))
}

func TestNearest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lines", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2.347870:48.891930:200", q.Get("geo_distance"))
		assert.Equal(t, "-date_etablissement_dpe", q.Get("sort"))
		assert.Equal(t, "1", q.Get("size"))
		assert.Contains(t, q.Get("select"), "etiquette_dpe")
		_, _ = io.WriteString(w, `{"total": 3, "results": [{
			"numero_dpe": "2375E0123456X",
			"etiquette_dpe": "f",
			"etiquette_ges": "D",
			"surface_habitable_logement": "42,5",
			"type_batiment": "appartement",
			"date_etablissement_dpe": "2024-03-12",
			"adresse_ban": "10 Rue Ordener 75018 Paris",
			"conso_5_usages_par_m2_ep": 345.2
		}]}`)
	})

	dpes, err := c.Nearest(context.Background(), 48.89193, 2.34787, 200, 1)
	require.NoError(t, err)
	require.Len(t, dpes, 1)
	assert.Equal(t, "F", dpes[0].EnergyClass)
	assert.Equal(t, "D", dpes[0].GHGClass)
	assert.InDelta(t, 42.5, float64(dpes[0].Surface), 1e-9)
	assert.Equal(t, "2024-03-12", dpes[0].Date)
}

func TestNearest_SkipsInvalidClass(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"results": [{"etiquette_dpe": ""}, {"etiquette_dpe": "Z"}]}`)
	})

	dpes, err := c.Nearest(context.Background(), 48.0, 2.0, 100, 5)
	require.NoError(t, err)
	assert.Empty(t, dpes)
}

func TestNearest_Error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Nearest(context.Background(), 48.0, 2.0, 100, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ademe: unexpected status 404")
}
