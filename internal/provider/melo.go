package provider

import (
	"context"
	"math"

	"github.com/sells-group/house-report/internal/geo"
	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/pkg/melo"
)

const (
	meloSource = "https://www.melo.io"

	listingsPerPage = 30
	maxListings     = 10
)

// Listings adapts the Melo comparable-listings search.
type Listings struct {
	client melo.Client
	rt     *Runtime
}

// NewListings wraps a Melo client. A nil client makes every fetch absent.
func NewListings(client melo.Client, rt *Runtime) *Listings {
	return &Listings{client: client, rt: rt}
}

// Fetch returns the closest priced listings and their price/m² spread.
func (a *Listings) Fetch(ctx context.Context, t Target) Outcome[*model.Melo] {
	if a.client == nil {
		return Absent[*model.Melo]("melo non configuré")
	}
	radius := t.Radius()
	center := t.Location.GPS
	q := melo.PropertyQuery{
		Lat:          center.Lat,
		Lon:          center.Lon,
		RadiusKm:     float64(radius) / 1000,
		PropertyType: []int{melo.TypeApartment, melo.TypeHouse},
		ItemsPerPage: listingsPerPage,
	}
	coll, err := call(ctx, a.rt, "melo", "properties", func(ctx context.Context) (*melo.Collection, error) {
		return a.client.Properties(ctx, q)
	})
	if err != nil {
		return Unavailable[*model.Melo]("melo", err)
	}

	var listings []model.Listing
	for _, p := range coll.Members {
		pm2 := p.PriceM2()
		if pm2 <= 0 || p.Location == nil {
			continue
		}
		d := geo.Haversine(center, model.GPS{Lat: p.Location.Lat, Lon: p.Location.Lon})
		if d > radius {
			continue
		}
		listings = append(listings, model.Listing{
			Title:        p.Title,
			PropertyType: p.TypeLabel(),
			Price:        float64(p.Price),
			PriceM2:      pm2,
			Surface:      float64(p.Surface),
			Rooms:        p.Rooms,
			DistanceM:    d,
			EnergyClass:  p.EnergyClass(),
			URL:          p.URL(),
			PublishedAt:  p.CreatedAt,
		})
	}
	if len(listings) == 0 {
		return Absent[*model.Melo]("aucune annonce à moins de %d m", radius)
	}

	insights := Insights(listings)
	listings = geo.NearestFirst(listings, func(l model.Listing) int { return l.DistanceM }, maxListings)
	return Ok(&model.Melo{Listings: listings, Insights: insights, TotalItems: coll.TotalItems}, meloSource)
}

// Insights computes the average, minimum and maximum price/m² of listings.
func Insights(listings []model.Listing) model.MarketInsights {
	var in model.MarketInsights
	sum := 0
	for _, l := range listings {
		if l.PriceM2 <= 0 {
			continue
		}
		if in.Count == 0 || l.PriceM2 < in.MinPriceM2 {
			in.MinPriceM2 = l.PriceM2
		}
		if l.PriceM2 > in.MaxPriceM2 {
			in.MaxPriceM2 = l.PriceM2
		}
		sum += l.PriceM2
		in.Count++
	}
	if in.Count > 0 {
		in.AvgPriceM2 = int(math.Round(float64(sum) / float64(in.Count)))
	}
	return in
}
