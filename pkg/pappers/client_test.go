package pappers

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
	return NewClient("tok", WithBaseURL(srv.URL), WithFetcher(f))
}

const parcelFixture = `{"total": 1, "resultats": [{
	"numero": "0042", "section": "AB", "prefixe": "000", "contenance": "312", "code_commune": "75118",
	"proprietaires": [
		{"siren": "552100554", "denomination": "SCI ORDENER", "forme_juridique": "SCI"},
		{"nom": "DUPONT", "prenom": "Marie"}
	],
	"ventes": [{"date_vente": "2019-06-01", "prix": 1250000, "nature": "Vente", "surface": 180.5}],
	"batiments": [{"usage": "Habitation", "annee_construction": 1905, "nombre_niveaux": 6, "nombre_logements": 18}],
	"dpe": [{"classe_bilan_dpe": "E", "classe_emission_ges": "D", "date_etablissement": "2022-02-03"}],
	"occupants": [],
	"permis": [{"type": "PC", "date_autorisation": "2021-09-10", "nature": "Ravalement"}],
	"fonds_de_commerce": [{"denomination": "BOULANGERIE ORDENER", "siren": "812345678", "activite": "Boulangerie"}],
	"coproprietes": [{"nom": "SDC 10 RUE ORDENER", "numero_immatriculation": "AA1234567", "nombre_lots": "24", "syndic": "Cabinet X"}]
}]}`

func TestParcelsByAddress(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/parcelles", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "10 Rue Ordener 75018 Paris", q.Get("adresse"))
		assert.Equal(t, "tok", q.Get("api_token"))
		assert.Contains(t, q.Get("bases"), "fonds_de_commerce")
		_, _ = io.WriteString(w, parcelFixture)
	})

	parcels, err := c.ParcelsByAddress(context.Background(), "10 Rue Ordener 75018 Paris")
	require.NoError(t, err)
	require.Len(t, parcels, 1)
	p := parcels[0]

	assert.Equal(t, "0042", p.Number)
	assert.Equal(t, "AB", p.Section)
	assert.InDelta(t, 312.0, float64(p.Area), 1e-9)

	require.Len(t, p.Owners, 2)
	assert.Equal(t, "552100554", p.Owners[0].Value.Siren)
	assert.Equal(t, "SCI ORDENER", p.Owners[0].Value.DisplayName())
	assert.Equal(t, "Marie DUPONT", p.Owners[1].Value.DisplayName())
	assert.JSONEq(t, `{"nom": "DUPONT", "prenom": "Marie"}`, string(p.Owners[1].Raw))

	require.Len(t, p.Condominiums, 1)
	assert.InDelta(t, 24.0, float64(p.Condominiums[0].Value.Lots), 1e-9)
	assert.Empty(t, p.Occupants)
	require.Len(t, p.Businesses, 1)
	assert.Equal(t, "Boulangerie", p.Businesses[0].Value.Activity)
}

func TestParcelsByAddress_EmptyAddress(t *testing.T) {
	c := NewClient("tok")
	_, err := c.ParcelsByAddress(context.Background(), " ")
	require.Error(t, err)
}

func TestParcelsByAddress_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error": "token invalide"}`)
	})

	_, err := c.ParcelsByAddress(context.Background(), "10 Rue Ordener")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pappers: unexpected status 401")
}
