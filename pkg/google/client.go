// Package google is a Places API (New) client used to rate nearby schools.
package google

import (
	"context"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/house-report/internal/fetcher"
)

const (
	defaultBaseURL = "https://places.googleapis.com/v1"
	provider       = "google"
	fieldMask      = "places.id,places.displayName,places.rating,places.userRatingCount," +
		"places.location,places.nationalPhoneNumber,places.websiteUri,places.formattedAddress"
)

// Client performs Google Places API operations.
type Client interface {
	TextSearch(ctx context.Context, req TextSearchRequest) (*TextSearchResponse, error)
}

// TextSearchRequest is the body of POST /places:searchText.
type TextSearchRequest struct {
	TextQuery      string        `json:"textQuery"`
	LanguageCode   string        `json:"languageCode,omitempty"`
	MaxResultCount int           `json:"maxResultCount,omitempty"`
	LocationBias   *LocationBias `json:"locationBias,omitempty"`
}

// LocationBias prefers results inside a circle.
type LocationBias struct {
	Circle Circle `json:"circle"`
}

// Circle is a center and radius in meters.
type Circle struct {
	Center LatLng  `json:"center"`
	Radius float64 `json:"radius"`
}

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NearRequest builds a text search biased toward a circle around lat/lon.
func NearRequest(query string, lat, lon, radius float64) TextSearchRequest {
	return TextSearchRequest{
		TextQuery:      query,
		LanguageCode:   "fr",
		MaxResultCount: 5,
		LocationBias: &LocationBias{Circle: Circle{
			Center: LatLng{Latitude: lat, Longitude: lon},
			Radius: radius,
		}},
	}
}

// TextSearchResponse is the response from Places Text Search.
type TextSearchResponse struct {
	Places []Place `json:"places"`
}

// Place represents a place returned by the API.
type Place struct {
	ID               string      `json:"id"`
	DisplayName      DisplayName `json:"displayName"`
	Rating           float64     `json:"rating"`
	UserRatingCount  int         `json:"userRatingCount"`
	Location         *LatLng     `json:"location,omitempty"`
	Phone            string      `json:"nationalPhoneNumber"`
	WebsiteURI       string      `json:"websiteUri"`
	FormattedAddress string      `json:"formattedAddress"`
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text string `json:"text"`
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
	apiKey  string
	baseURL string
	fetch   fetcher.Fetcher
}

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		fetch:   fetcher.Default,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) TextSearch(ctx context.Context, req TextSearchRequest) (*TextSearchResponse, error) {
	if strings.TrimSpace(req.TextQuery) == "" {
		return nil, eris.New("google: empty text query")
	}

	header := http.Header{}
	header.Set("X-Goog-Api-Key", c.apiKey)
	header.Set("X-Goog-FieldMask", fieldMask)

	var result TextSearchResponse
	if err := c.fetch.PostJSON(ctx, provider, c.baseURL+"/places:searchText", header, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
