// Package dvf reads "Demandes de valeurs foncières" mutations around a point.
package dvf

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sells-group/house-report/internal/fetcher"
)

const (
	defaultBaseURL = "https://api.cquest.org/dvf"
	provider       = "dvf"
)

// Client lists recorded property sales.
type Client interface {
	// Mutations returns sales within radius meters of the coordinate.
	Mutations(ctx context.Context, lat, lon float64, radius int) ([]Mutation, error)
}

// Mutation is one DVF row. Numeric columns arrive as numbers or strings
// depending on the export, hence fetcher.Float.
type Mutation struct {
	Date       string        `json:"date_mutation"`
	Nature     string        `json:"nature_mutation"`
	Price      fetcher.Float `json:"valeur_fonciere"`
	Type       string        `json:"type_local"`
	Surface    fetcher.Float `json:"surface_reelle_bati"`
	StreetNo   string        `json:"numero_voie"`
	StreetType string        `json:"type_voie"`
	Street     string        `json:"voie"`
	Postcode   string        `json:"code_postal"`
	City       string        `json:"commune"`
	Citycode   string        `json:"code_commune"`
	Lat        fetcher.Float `json:"lat"`
	Lon        fetcher.Float `json:"lon"`
}

// Valid reports whether the row has a date and positive price and surface.
func (m Mutation) Valid() bool {
	return m.Date != "" && m.Price > 0 && m.Surface > 0
}

// HasPosition reports whether the row is geolocated.
func (m Mutation) HasPosition() bool {
	return m.Lat != 0 || m.Lon != 0
}

// Address joins the street fields into a single line.
func (m Mutation) Address() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{m.StreetNo, m.StreetType, m.Street, m.Postcode, m.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

type mutationsResponse struct {
	Count     int        `json:"nb_resultats"`
	Resultats []Mutation `json:"resultats"`
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

// NewClient creates a DVF client.
func NewClient(opts ...Option) Client {
	c := &httpClient{baseURL: defaultBaseURL, fetch: fetcher.Default}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Mutations(ctx context.Context, lat, lon float64, radius int) ([]Mutation, error) {
	params := url.Values{
		"lat":  {fmt.Sprintf("%f", lat)},
		"lon":  {fmt.Sprintf("%f", lon)},
		"dist": {strconv.Itoa(radius)},
	}

	var resp mutationsResponse
	if err := c.fetch.GetJSON(ctx, provider, c.baseURL+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Resultats, nil
}
