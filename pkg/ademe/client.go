// Package ademe queries the ADEME energy-performance diagnostic dataset
// (dpe03existant) through its data-fair API.
package ademe

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sells-group/house-report/internal/fetcher"
)

const (
	defaultBaseURL = "https://data.ademe.fr/data-fair/api/v1/datasets/dpe03existant"
	provider       = "ademe"
)

var selectFields = []string{
	"numero_dpe",
	"etiquette_dpe",
	"etiquette_ges",
	"surface_habitable_logement",
	"type_batiment",
	"date_etablissement_dpe",
	"adresse_ban",
	"conso_5_usages_par_m2_ep",
}

// Client searches energy diagnostics.
type Client interface {
	// Nearest returns up to size diagnostics within radius meters of the
	// coordinate, most recent first.
	Nearest(ctx context.Context, lat, lon float64, radius, size int) ([]Diagnostic, error)
}

// Diagnostic is one DPE row.
type Diagnostic struct {
	Number        string        `json:"numero_dpe"`
	EnergyClass   string        `json:"etiquette_dpe"`
	GHGClass      string        `json:"etiquette_ges"`
	Surface       fetcher.Float `json:"surface_habitable_logement"`
	BuildingType  string        `json:"type_batiment"`
	Date          string        `json:"date_etablissement_dpe"`
	Address       string        `json:"adresse_ban"`
	ConsumptionM2 fetcher.Float `json:"conso_5_usages_par_m2_ep"`
}

// Valid reports whether the row carries an A to G energy class.
func (d Diagnostic) Valid() bool {
	c := strings.ToUpper(strings.TrimSpace(d.EnergyClass))
	return len(c) == 1 && c[0] >= 'A' && c[0] <= 'G'
}

type linesResponse struct {
	Total   int          `json:"total"`
	Results []Diagnostic `json:"results"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default dataset URL.
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

// NewClient creates an ADEME client.
func NewClient(opts ...Option) Client {
	c := &httpClient{baseURL: defaultBaseURL, fetch: fetcher.Default}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Nearest(ctx context.Context, lat, lon float64, radius, size int) ([]Diagnostic, error) {
	if size <= 0 {
		size = 1
	}
	params := url.Values{
		"geo_distance": {fmt.Sprintf("%f:%f:%d", lon, lat, radius)},
		"sort":         {"-date_etablissement_dpe"},
		"size":         {strconv.Itoa(size)},
		"select":       {strings.Join(selectFields, ",")},
	}

	var resp linesResponse
	if err := c.fetch.GetJSON(ctx, provider, c.baseURL+"/lines?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	var out []Diagnostic
	for _, d := range resp.Results {
		if d.Valid() {
			d.EnergyClass = strings.ToUpper(strings.TrimSpace(d.EnergyClass))
			out = append(out, d)
		}
	}
	return out, nil
}
