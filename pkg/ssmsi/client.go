// Package ssmsi reads recorded-crime statistics (SSMSI "bases statistiques")
// from the data.gouv.fr tabular API.
package ssmsi

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/house-report/internal/fetcher"
)

const (
	defaultBaseURL = "https://tabular-api.data.gouv.fr/api/resources"
	provider       = "ssmsi"
	pageSize       = 200
	codeColumn     = "CODGEO_2024"
)

// Client reads commune and national crime rows.
type Client interface {
	Commune(ctx context.Context, citycode string) ([]Row, error)
	National(ctx context.Context) ([]Row, error)
}

// Row is one (year, offence class) line. Rates are per thousand inhabitants.
type Row struct {
	Year     fetcher.Float `json:"annee"`
	Class    string        `json:"classe"`
	Facts    fetcher.Float `json:"faits"`
	RatePerK fetcher.Float `json:"tauxpourmille"`
}

// FullYear returns the four-digit year; exports sometimes use two digits.
func (r Row) FullYear() int {
	y := int(r.Year)
	if y > 0 && y < 100 {
		y += 2000
	}
	return y
}

type dataResponse struct {
	Data []Row `json:"data"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithResources sets the commune-level and national resource identifiers.
func WithResources(commune, national string) Option {
	return func(c *httpClient) {
		c.communeResource = commune
		c.nationalResource = national
	}
}

// WithFetcher overrides the HTTP fetcher.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(c *httpClient) {
		c.fetch = f
	}
}

type httpClient struct {
	baseURL          string
	communeResource  string
	nationalResource string
	fetch            fetcher.Fetcher
}

// NewClient creates an SSMSI client.
func NewClient(opts ...Option) Client {
	c := &httpClient{baseURL: defaultBaseURL, fetch: fetcher.Default}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Commune(ctx context.Context, citycode string) ([]Row, error) {
	if c.communeResource == "" {
		return nil, eris.New("ssmsi: commune resource not configured")
	}
	params := url.Values{
		codeColumn + "__exact": {citycode},
		"page_size":            {strconv.Itoa(pageSize)},
	}
	return c.rows(ctx, c.communeResource, params)
}

func (c *httpClient) National(ctx context.Context) ([]Row, error) {
	if c.nationalResource == "" {
		return nil, eris.New("ssmsi: national resource not configured")
	}
	return c.rows(ctx, c.nationalResource, url.Values{"page_size": {strconv.Itoa(pageSize)}})
}

func (c *httpClient) rows(ctx context.Context, resource string, params url.Values) ([]Row, error) {
	u := c.baseURL + "/" + url.PathEscape(resource) + "/data/?" + params.Encode()

	var resp dataResponse
	if err := c.fetch.GetJSON(ctx, provider, u, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
