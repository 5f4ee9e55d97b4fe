// Package airquality reads current pollutant levels from the Open-Meteo
// air-quality API.
package airquality

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/house-report/internal/fetcher"
)

const (
	defaultBaseURL = "https://air-quality-api.open-meteo.com/v1/air-quality"
	provider       = "airquality"
	currentFields  = "european_aqi,pm10,pm2_5,nitrogen_dioxide,ozone"
)

// Client fetches current air quality.
type Client interface {
	Current(ctx context.Context, lat, lon float64) (*Current, error)
}

// Current holds the latest hourly values.
type Current struct {
	Time        string   `json:"time"`
	EuropeanAQI *float64 `json:"european_aqi"`
	PM10        *float64 `json:"pm10"`
	PM25        *float64 `json:"pm2_5"`
	NO2         *float64 `json:"nitrogen_dioxide"`
	O3          *float64 `json:"ozone"`
}

type response struct {
	Current *Current `json:"current"`
}

// Label maps a European AQI value onto the EEA bands.
func Label(aqi float64) string {
	switch {
	case aqi < 20:
		return "bon"
	case aqi < 40:
		return "correct"
	case aqi < 60:
		return "moyen"
	case aqi < 80:
		return "mauvais"
	case aqi < 100:
		return "très mauvais"
	default:
		return "extrêmement mauvais"
	}
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API URL.
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

// NewClient creates an air-quality client.
func NewClient(opts ...Option) Client {
	c := &httpClient{baseURL: defaultBaseURL, fetch: fetcher.Default}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Current(ctx context.Context, lat, lon float64) (*Current, error) {
	params := url.Values{
		"latitude":  {fmt.Sprintf("%f", lat)},
		"longitude": {fmt.Sprintf("%f", lon)},
		"current":   {currentFields},
		"timezone":  {"Europe/Paris"},
	}

	var resp response
	if err := c.fetch.GetJSON(ctx, provider, c.baseURL+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Current == nil || resp.Current.EuropeanAQI == nil {
		return nil, eris.New("airquality: response has no current european_aqi")
	}
	return resp.Current, nil
}
