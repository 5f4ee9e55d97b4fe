package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/pkg/melo"
)

type fakeMelo struct {
	coll  *melo.Collection
	err   error
	query melo.PropertyQuery
}

func (f *fakeMelo) Properties(_ context.Context, q melo.PropertyQuery) (*melo.Collection, error) {
	f.query = q
	return f.coll, f.err
}

func TestListings_Fetch(t *testing.T) {
	client := &fakeMelo{coll: &melo.Collection{TotalItems: 42, Members: []melo.Property{
		{Title: "T2 lumineux", PropertyType: melo.TypeApartment, Price: 420000, Surface: 42, Location: &melo.Location{Lat: 48.8925, Lon: 2.3485},
			Adverts: []melo.Advert{{URL: "https://example.fr/a", EnergyClass: "d"}}},
		{Title: "Maison", PropertyType: melo.TypeHouse, Price: 900000, PricePerMeter: 9000, Surface: 100, Location: &melo.Location{Lat: 48.8940, Lon: 2.3500}},
		{Title: "Sans prix", Surface: 30, Location: &melo.Location{Lat: 48.8925, Lon: 2.3485}},
		{Title: "Sans position", Price: 300000, Surface: 30},
		{Title: "Lyon", Price: 300000, Surface: 30, Location: &melo.Location{Lat: 45.76, Lon: 4.83}},
	}}}

	out := NewListings(client, testRuntime()).Fetch(context.Background(), ordenerTarget())
	m, ok := out.Get()
	require.True(t, ok, out.Reason())

	assert.Equal(t, 1.0, client.query.RadiusKm)
	assert.Equal(t, 42, m.TotalItems)
	require.Len(t, m.Listings, 2)
	assert.Equal(t, "T2 lumineux", m.Listings[0].Title)
	assert.Equal(t, 10000, m.Listings[0].PriceM2)
	assert.Equal(t, "D", m.Listings[0].EnergyClass)
	assert.Equal(t, "appartement", m.Listings[0].PropertyType)
	assert.Equal(t, model.MarketInsights{AvgPriceM2: 9500, MinPriceM2: 9000, MaxPriceM2: 10000, Count: 2}, m.Insights)
}

func TestListings_Absent(t *testing.T) {
	assert.False(t, NewListings(nil, testRuntime()).Fetch(context.Background(), ordenerTarget()).OK())
	assert.False(t, NewListings(&fakeMelo{err: errUpstream}, testRuntime()).Fetch(context.Background(), ordenerTarget()).OK())
	assert.False(t, NewListings(&fakeMelo{coll: &melo.Collection{}}, testRuntime()).Fetch(context.Background(), ordenerTarget()).OK())
}

func TestInsights_Empty(t *testing.T) {
	assert.Equal(t, model.MarketInsights{}, Insights(nil))
}
