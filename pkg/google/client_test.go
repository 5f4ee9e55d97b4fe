package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/house-report/internal/fetcher"
)

func newTestClient(t *testing.T, key string, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{RateLimiters: map[string]*fetcher.AdaptiveLimiter{}})
	return NewClient(key, WithBaseURL(srv.URL), WithFetcher(f))
}

func TestTextSearch_Success(t *testing.T) {
	client := newTestClient(t, "test-key", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/places:searchText", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Contains(t, r.Header.Get("X-Goog-FieldMask"), "places.rating")
		assert.Contains(t, r.Header.Get("X-Goog-FieldMask"), "places.nationalPhoneNumber")

		var body TextSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ecole Ordener Paris", body.TextQuery)
		require.NotNil(t, body.LocationBias)
		assert.InDelta(t, 48.8919, body.LocationBias.Circle.Center.Latitude, 0.0001)
		assert.InDelta(t, 500.0, body.LocationBias.Circle.Radius, 0.001)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(TextSearchResponse{
			Places: []Place{
				{
					ID:              "ChIJ-ordener",
					DisplayName:     DisplayName{Text: "École Élémentaire Ordener"},
					Rating:          4.5,
					UserRatingCount: 127,
					Location:        &LatLng{Latitude: 48.892, Longitude: 2.348},
					Phone:           "01 42 00 00 00",
					WebsiteURI:      "https://ecole-ordener.fr",
				},
			},
		})
	})

	resp, err := client.TextSearch(context.Background(), NearRequest("Ecole Ordener Paris", 48.8919, 2.3478, 500))

	require.NoError(t, err)
	require.Len(t, resp.Places, 1)
	p := resp.Places[0]
	assert.Equal(t, "École Élémentaire Ordener", p.DisplayName.Text)
	assert.InDelta(t, 4.5, p.Rating, 0.001)
	assert.Equal(t, 127, p.UserRatingCount)
	assert.Equal(t, "01 42 00 00 00", p.Phone)
	require.NotNil(t, p.Location)
}

func TestTextSearch_NoResults(t *testing.T) {
	client := newTestClient(t, "test-key", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(TextSearchResponse{Places: nil})
	})

	resp, err := client.TextSearch(context.Background(), TextSearchRequest{TextQuery: "nothing"})

	require.NoError(t, err)
	assert.Empty(t, resp.Places)
}

func TestTextSearch_EmptyQuery(t *testing.T) {
	client := NewClient("test-key")
	_, err := client.TextSearch(context.Background(), TextSearchRequest{TextQuery: "  "})
	require.Error(t, err)
}

func TestTextSearch_APIError(t *testing.T) {
	client := newTestClient(t, "bad-key", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": "invalid API key"}`))
	})

	resp, err := client.TextSearch(context.Background(), TextSearchRequest{TextQuery: "test"})

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "403")
}

func TestTextSearch_ContextCanceled(t *testing.T) {
	client := newTestClient(t, "test-key", func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := client.TextSearch(ctx, TextSearchRequest{TextQuery: "test"})

	assert.Error(t, err)
	assert.Nil(t, resp)
}
