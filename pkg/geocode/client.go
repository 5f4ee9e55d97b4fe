// Package geocode resolves French addresses with the Base Adresse Nationale
// search API.
package geocode

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/house-report/internal/fetcher"
)

const (
	defaultBaseURL = "https://api-adresse.data.gouv.fr"
	provider       = "adresse"
)

// Client geocodes free-text addresses.
type Client interface {
	// Search returns at most limit candidate features, best match first.
	Search(ctx context.Context, query string, limit int) ([]Feature, error)
}

// SearchResponse is the GeoJSON FeatureCollection returned by /search.
type SearchResponse struct {
	Features []Feature `json:"features"`
}

// Feature is one geocoding candidate.
type Feature struct {
	Geometry   Geometry   `json:"geometry"`
	Properties Properties `json:"properties"`
}

// Geometry is a GeoJSON point in [lon, lat] order.
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// Properties carries the normalized address fields.
type Properties struct {
	Label       string  `json:"label"`
	Score       float64 `json:"score"`
	HouseNumber string  `json:"housenumber"`
	Street      string  `json:"street"`
	Postcode    string  `json:"postcode"`
	Citycode    string  `json:"citycode"`
	City        string  `json:"city"`
	Context     string  `json:"context"`
	Type        string  `json:"type"`
}

// Lon returns the feature longitude.
func (f Feature) Lon() float64 { return f.Geometry.Coordinates[0] }

// Lat returns the feature latitude.
func (f Feature) Lat() float64 { return f.Geometry.Coordinates[1] }

// Validate rejects features that cannot produce a usable location.
func (f Feature) Validate() error {
	if len(f.Geometry.Coordinates) != 2 {
		return eris.Errorf("geocode: feature %q has %d coordinates", f.Properties.Label, len(f.Geometry.Coordinates))
	}
	if f.Properties.Citycode == "" {
		return eris.Errorf("geocode: feature %q has no citycode", f.Properties.Label)
	}
	return nil
}

// Department derives the department code from an INSEE city code: two
// characters, or three for overseas codes starting with 97.
func Department(citycode string) string {
	if len(citycode) >= 3 && strings.HasPrefix(citycode, "97") {
		return citycode[:3]
	}
	if len(citycode) >= 2 {
		return citycode[:2]
	}
	return citycode
}

// Region extracts the region from a context string such as
// "75, Paris, Île-de-France".
func Region(context string) string {
	parts := strings.Split(context, ",")
	if len(parts) < 3 {
		return ""
	}
	return strings.TrimSpace(parts[len(parts)-1])
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithFetcher overrides the HTTP fetcher.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(c *httpClient) {
		c.fetch = f
	}
}

type httpClient struct {
	baseURL string
	fetch   fetcher.Fetcher
}

// NewClient creates a Base Adresse Nationale client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		fetch:   fetcher.Default,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, query string, limit int) ([]Feature, error) {
	if limit <= 0 {
		limit = 1
	}
	params := url.Values{
		"q":     {query},
		"limit": {strconv.Itoa(limit)},
	}

	var resp SearchResponse
	if err := c.fetch.GetJSON(ctx, provider, c.baseURL+"/search/?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	out := make([]Feature, 0, len(resp.Features))
	for _, f := range resp.Features {
		if err := f.Validate(); err != nil {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}
