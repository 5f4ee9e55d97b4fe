// Package melo reads live property listings from the Melo (notif.immo) API.
package melo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/house-report/internal/fetcher"
)

const (
	// ProductionURL is the live API.
	ProductionURL = "https://api.notif.immo"
	// SandboxURL serves fixture data for integration work.
	SandboxURL = "https://preprod-api.notif.immo"

	provider = "melo"
)

// Property type codes used by the API.
const (
	TypeApartment = 0
	TypeHouse     = 1
)

// Client searches listings.
type Client interface {
	Properties(ctx context.Context, q PropertyQuery) (*Collection, error)
}

// PropertyQuery filters a property search.
type PropertyQuery struct {
	Lat, Lon     float64
	RadiusKm     float64
	PropertyType []int
	BudgetMin    int
	BudgetMax    int
	SurfaceMin   int
	ItemsPerPage int
}

func (q PropertyQuery) values() url.Values {
	v := url.Values{
		"lat":               {fmt.Sprintf("%f", q.Lat)},
		"lon":               {fmt.Sprintf("%f", q.Lon)},
		"radius":            {strconv.FormatFloat(q.RadiusKm, 'f', -1, 64)},
		"transactionType":   {"0"},
		"withCoherentPrice": {"true"},
		"order[createdAt]":  {"desc"},
		"itemsPerPage":      {strconv.Itoa(q.ItemsPerPage)},
	}
	for _, t := range q.PropertyType {
		v.Add("propertyTypes[]", strconv.Itoa(t))
	}
	if q.BudgetMin > 0 {
		v.Set("budgetMin", strconv.Itoa(q.BudgetMin))
	}
	if q.BudgetMax > 0 {
		v.Set("budgetMax", strconv.Itoa(q.BudgetMax))
	}
	if q.SurfaceMin > 0 {
		v.Set("surfaceMin", strconv.Itoa(q.SurfaceMin))
	}
	return v
}

// Collection is a Hydra collection of properties.
type Collection struct {
	Members    []Property `json:"hydra:member"`
	TotalItems int        `json:"hydra:totalItems"`
}

// Property is one listed property aggregated across adverts.
type Property struct {
	ID            string        `json:"@id"`
	UUID          string        `json:"uuid"`
	Title         string        `json:"title"`
	PropertyType  int           `json:"propertyType"`
	Price         fetcher.Float `json:"price"`
	PricePerMeter fetcher.Float `json:"pricePerMeter"`
	Surface       fetcher.Float `json:"surface"`
	Rooms         int           `json:"room"`
	Location      *Location     `json:"location"`
	Adverts       []Advert      `json:"adverts"`
	CreatedAt     string        `json:"createdAt"`
}

// Location is the listing position.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Advert is one publication of the property on a portal.
type Advert struct {
	URL         string        `json:"url"`
	Price       fetcher.Float `json:"price"`
	EnergyClass string        `json:"energyCategory"`
	CreatedAt   string        `json:"createdAt"`
}

// EnergyClass returns the first advert energy category.
func (p Property) EnergyClass() string {
	for _, a := range p.Adverts {
		if a.EnergyClass != "" {
			return strings.ToUpper(a.EnergyClass)
		}
	}
	return ""
}

// URL returns the first advert URL.
func (p Property) URL() string {
	for _, a := range p.Adverts {
		if a.URL != "" {
			return a.URL
		}
	}
	return ""
}

// PriceM2 returns the listed price per m², computing it when the API
// omitted it.
func (p Property) PriceM2() int {
	if p.PricePerMeter > 0 {
		return int(p.PricePerMeter + 0.5)
	}
	if p.Price > 0 && p.Surface > 0 {
		return int(float64(p.Price)/float64(p.Surface) + 0.5)
	}
	return 0
}

// TypeLabel names the property type.
func (p Property) TypeLabel() string {
	switch p.PropertyType {
	case TypeApartment:
		return "appartement"
	case TypeHouse:
		return "maison"
	default:
		return "autre"
	}
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the API base URL.
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

// NewClient creates a Melo client against the production API.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{apiKey: apiKey, baseURL: ProductionURL, fetch: fetcher.Default}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Properties(ctx context.Context, q PropertyQuery) (*Collection, error) {
	if q.RadiusKm <= 0 {
		return nil, eris.New("melo: radius must be positive")
	}
	if q.ItemsPerPage <= 0 {
		q.ItemsPerPage = 30
	}

	header := http.Header{}
	header.Set("X-API-KEY", c.apiKey)
	header.Set("Accept", "application/ld+json")

	var coll Collection
	if err := c.fetch.GetJSON(ctx, provider, c.baseURL+"/documents/properties?"+q.values().Encode(), header, &coll); err != nil {
		return nil, err
	}
	return &coll, nil
}
