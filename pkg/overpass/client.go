// Package overpass runs Overpass QL queries against OpenStreetMap.
package overpass

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sells-group/house-report/internal/fetcher"
)

const (
	defaultBaseURL = "https://overpass-api.de/api/interpreter"
	provider       = "overpass"
)

// Category is the amenity family an element belongs to.
type Category string

const (
	CategorySupermarket Category = "supermarket"
	CategoryTransit     Category = "transit"
	CategoryPark        Category = "park"
)

// Client runs Overpass queries.
type Client interface {
	Amenities(ctx context.Context, box BBox, timeoutSec int) ([]Element, error)
}

// BBox is a south, west, north, east bounding box.
type BBox struct {
	South, West, North, East float64
}

func (b BBox) String() string {
	return fmt.Sprintf("%f,%f,%f,%f", b.South, b.West, b.North, b.East)
}

// Element is a node or way. Ways carry their position in Center.
type Element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *Center           `json:"center,omitempty"`
	Tags   map[string]string `json:"tags"`
}

// Center is the computed center of a way or relation.
type Center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Position returns the element coordinate and whether it has one.
func (e Element) Position() (lat, lon float64, ok bool) {
	if e.Lat != 0 || e.Lon != 0 {
		return e.Lat, e.Lon, true
	}
	if e.Center != nil {
		return e.Center.Lat, e.Center.Lon, true
	}
	return 0, 0, false
}

// Name returns the element name tag.
func (e Element) Name() string {
	return strings.TrimSpace(e.Tags["name"])
}

// Category classifies the element from its tags.
func (e Element) Category() (Category, bool) {
	switch {
	case e.Tags["shop"] == "supermarket":
		return CategorySupermarket, true
	case e.Tags["leisure"] == "park":
		return CategoryPark, true
	case e.Tags["public_transport"] == "station",
		e.Tags["railway"] == "station",
		e.Tags["railway"] == "tram_stop",
		e.Tags["highway"] == "bus_stop":
		return CategoryTransit, true
	}
	return "", false
}

type response struct {
	Elements []Element `json:"elements"`
}

// AmenityQuery builds the QL for supermarkets, transit and parks inside box.
func AmenityQuery(box BBox, timeoutSec int) string {
	if timeoutSec <= 0 {
		timeoutSec = 10
	}
	b := box.String()
	var sb strings.Builder
	fmt.Fprintf(&sb, "[out:json][timeout:%d];(", timeoutSec)
	for _, filter := range []string{
		`nwr["shop"="supermarket"]`,
		`node["public_transport"="station"]`,
		`node["railway"="station"]`,
		`node["railway"="tram_stop"]`,
		`node["highway"="bus_stop"]`,
		`nwr["leisure"="park"]`,
	} {
		fmt.Fprintf(&sb, "%s(%s);", filter, b)
	}
	sb.WriteString(");out center tags;")
	return sb.String()
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default interpreter URL.
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

// NewClient creates an Overpass client.
func NewClient(opts ...Option) Client {
	c := &httpClient{baseURL: defaultBaseURL, fetch: fetcher.Default}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Amenities(ctx context.Context, box BBox, timeoutSec int) ([]Element, error) {
	form := url.Values{"data": {AmenityQuery(box, timeoutSec)}}

	var resp response
	if err := c.fetch.PostForm(ctx, provider, c.baseURL, form, &resp); err != nil {
		return nil, err
	}
	return resp.Elements, nil
}
