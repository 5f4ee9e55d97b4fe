package georisques

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

const reportJSON = `{
	"commune": {"libelle": "Paris 18e Arrondissement", "codeInsee": "75118"},
	"risquesNaturels": {
		"inondation": {"present": true, "libelle": "Inondation", "libelleStatutCommune": "Risque Existant", "libelleStatutAdresse": "Risque Existant"},
		"seisme": {"present": false, "libelle": "Séisme"},
		"mouvementTerrain": {"present": true, "libelle": "Mouvements de terrain"}
	},
	"risquesTechnologiques": {
		"icpe": {"present": false, "libelle": "Installations industrielles"}
	}
}`

func TestRiskReport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resultats_rapport_risque", r.URL.Path)
		assert.Equal(t, "2.347870,48.891930", r.URL.Query().Get("latlon"))
		_, _ = io.WriteString(w, reportJSON)
	})

	report, raw, err := c.RiskReport(context.Background(), 48.89193, 2.34787)
	require.NoError(t, err)
	assert.True(t, report.NaturalRisks["inondation"].Present)
	assert.Equal(t, "Risque Existant", report.NaturalRisks["inondation"].AddressStatus)
	assert.Equal(t, []string{"Inondation", "Mouvements de terrain"}, report.PresentLabels())
	assert.Contains(t, string(raw), "risquesNaturels")
}

func TestRiskReport_EmptyIsRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"commune": {}}`)
	})

	_, _, err := c.RiskReport(context.Background(), 48.0, 2.0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no hazard entries")
}

func TestRadon(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/radon", r.URL.Path)
		assert.Equal(t, "29019", r.URL.Query().Get("code_insee"))
		_, _ = io.WriteString(w, `{"data":[{"classe_potentiel":"3"}]}`)
	})

	class, raw, err := c.Radon(context.Background(), "29019")
	require.NoError(t, err)
	assert.Equal(t, 3, class)
	assert.NotEmpty(t, raw)
}

func TestRadon_NoData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":[]}`)
	})

	class, _, err := c.Radon(context.Background(), "75118")
	require.NoError(t, err)
	assert.Zero(t, class)
}

func TestSeismicZone(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/zonage_sismique", r.URL.Path)
		_, _ = io.WriteString(w, `{"data":[{"code_zone":"","zone_sismicite":"2 - FAIBLE"}]}`)
	})

	zone, _, err := c.SeismicZone(context.Background(), "69123")
	require.NoError(t, err)
	assert.Equal(t, 2, zone)
}

func TestParseLeadingDigit(t *testing.T) {
	assert.Equal(t, 1, parseLeadingDigit("1 - TRES FAIBLE", 5))
	assert.Equal(t, 0, parseLeadingDigit("9", 5))
	assert.Equal(t, 0, parseLeadingDigit("", 5))
	assert.Equal(t, 0, parseLeadingDigit("x", 5))
}
