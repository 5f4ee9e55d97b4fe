// Package gpu queries the Géoportail de l'Urbanisme zoning layer through the
// IGN apicarto service.
package gpu

import (
	"context"
	"net/url"
	"strings"

	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	geomjson "github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/house-report/internal/fetcher"
)

const (
	defaultBaseURL = "https://apicarto.ign.fr/api/gpu"
	provider       = "gpu"
)

// Client looks up planning zones.
type Client interface {
	// ZonesAt returns the urban-planning zones covering the coordinate.
	ZonesAt(ctx context.Context, lat, lon float64) ([]Zone, error)
}

// Zone is one zone-urba feature.
type Zone struct {
	Label       string
	LongLabel   string
	Type        string
	Partition   string
	DocumentURL string
}

// PointGeoJSON encodes a WGS84 point as a GeoJSON geometry.
func PointGeoJSON(lat, lon float64) (string, error) {
	b, err := geomjson.Marshal(geom.NewPointFlat(geom.XY, []float64{lon, lat}))
	if err != nil {
		return "", eris.Wrap(err, "gpu: encode point")
	}
	return string(b), nil
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

// NewClient creates a GPU client.
func NewClient(opts ...Option) Client {
	c := &httpClient{baseURL: defaultBaseURL, fetch: fetcher.Default}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) ZonesAt(ctx context.Context, lat, lon float64) ([]Zone, error) {
	point, err := PointGeoJSON(lat, lon)
	if err != nil {
		return nil, err
	}
	params := url.Values{"geom": {point}}

	fc := geojson.NewFeatureCollection()
	if err := c.fetch.GetJSON(ctx, provider, c.baseURL+"/zone-urba?"+params.Encode(), nil, fc); err != nil {
		return nil, err
	}

	var zones []Zone
	for _, f := range fc.Features {
		z := Zone{
			Label:       f.Properties.MustString("libelle", ""),
			LongLabel:   f.Properties.MustString("libelong", ""),
			Type:        f.Properties.MustString("typezone", ""),
			Partition:   f.Properties.MustString("partition", ""),
			DocumentURL: f.Properties.MustString("urlfic", ""),
		}
		if z.Label == "" {
			continue
		}
		zones = append(zones, z)
	}
	return zones, nil
}
