// Package education searches the national school directory published on
// data.education.gouv.fr.
package education

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sells-group/house-report/internal/fetcher"
)

const (
	defaultBaseURL = "https://data.education.gouv.fr/api/records/1.0/search"
	defaultDataset = "fr-en-annuaire-education"
	provider       = "education"
)

// Client searches schools around a point.
type Client interface {
	Nearby(ctx context.Context, lat, lon float64, radius, rows int) ([]Record, error)
}

// Record is one directory entry.
type Record struct {
	ID       string   `json:"recordid"`
	Fields   Fields   `json:"fields"`
	Geometry Geometry `json:"geometry"`
}

// Fields are the directory columns used by the profile.
type Fields struct {
	UAI          string `json:"identifiant_de_l_etablissement"`
	OfficialName string `json:"appellation_officielle"`
	Name         string `json:"nom_etablissement"`
	Kind         string `json:"type_etablissement"`
	Sector       string `json:"statut_public_prive"`
	Address      string `json:"adresse_1"`
	Postcode     string `json:"code_postal"`
	City         string `json:"commune"`
	CityName     string `json:"nom_commune"`
	Phone        string `json:"telephone"`
	Website      string `json:"web"`
}

// Geometry is a GeoJSON point in [lon, lat] order.
type Geometry struct {
	Coordinates []float64 `json:"coordinates"`
}

// DisplayName prefers the official name.
func (r Record) DisplayName() string {
	if r.Fields.OfficialName != "" {
		return r.Fields.OfficialName
	}
	return r.Fields.Name
}

// Commune returns whichever city column the dataset filled.
func (r Record) Commune() string {
	if r.Fields.City != "" {
		return r.Fields.City
	}
	return r.Fields.CityName
}

// Valid reports whether the record has a name and a position.
func (r Record) Valid() bool {
	return strings.TrimSpace(r.DisplayName()) != "" && len(r.Geometry.Coordinates) == 2
}

// Lat returns the record latitude.
func (r Record) Lat() float64 { return r.Geometry.Coordinates[1] }

// Lon returns the record longitude.
func (r Record) Lon() float64 { return r.Geometry.Coordinates[0] }

type searchResponse struct {
	NHits   int      `json:"nhits"`
	Records []Record `json:"records"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithDataset overrides the dataset identifier.
func WithDataset(dataset string) Option {
	return func(c *httpClient) {
		c.dataset = dataset
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
	dataset string
	fetch   fetcher.Fetcher
}

// NewClient creates a school directory client.
func NewClient(opts ...Option) Client {
	c := &httpClient{baseURL: defaultBaseURL, dataset: defaultDataset, fetch: fetcher.Default}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Nearby(ctx context.Context, lat, lon float64, radius, rows int) ([]Record, error) {
	params := url.Values{
		"dataset":            {c.dataset},
		"geofilter.distance": {fmt.Sprintf("%f,%f,%d", lat, lon, radius)},
		"rows":               {strconv.Itoa(rows)},
	}

	var resp searchResponse
	if err := c.fetch.GetJSON(ctx, provider, c.baseURL+"/?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	var out []Record
	for _, r := range resp.Records {
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out, nil
}
