package provider

import (
	"context"

	"github.com/sells-group/house-report/internal/geo"
	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/pkg/overpass"
)

const (
	overpassSource = "https://www.openstreetmap.org"

	// amenityCap bounds each amenity list.
	amenityCap      = 5
	overpassTimeout = 10
)

// Amenities adapts OpenStreetMap points of interest.
type Amenities struct {
	client      overpass.Client
	perCategory int
	rt          *Runtime
}

// NewAmenities wraps an Overpass client.
func NewAmenities(client overpass.Client, rt *Runtime) *Amenities {
	return &Amenities{client: client, perCategory: amenityCap, rt: rt}
}

// WithCap bounds each amenity list to n entries; n <= 0 keeps the default.
func (a *Amenities) WithCap(n int) *Amenities {
	a.perCategory = positiveOr(n, amenityCap)
	return a
}

// Fetch returns supermarkets, transit stops and parks within the query
// radius, each list closest first and capped.
func (a *Amenities) Fetch(ctx context.Context, t Target) Outcome[*model.Amenities] {
	radius := t.Radius()
	center := t.Location.GPS
	b := geo.Bound(center, radius)
	box := overpass.BBox{South: b.Min.Lat(), West: b.Min.Lon(), North: b.Max.Lat(), East: b.Max.Lon()}

	elements, err := call(ctx, a.rt, "overpass", "amenities", func(ctx context.Context) ([]overpass.Element, error) {
		return a.client.Amenities(ctx, box, overpassTimeout)
	})
	if err != nil {
		return Unavailable[*model.Amenities]("overpass", err)
	}

	byCategory := map[overpass.Category][]model.POI{}
	seen := map[overpass.Category]map[string]bool{}
	for _, e := range elements {
		cat, ok := e.Category()
		if !ok {
			continue
		}
		name := e.Name()
		if name == "" {
			continue
		}
		lat, lon, ok := e.Position()
		if !ok {
			continue
		}
		gps := model.GPS{Lat: lat, Lon: lon}
		d := geo.Haversine(center, gps)
		if d > radius {
			continue
		}
		if seen[cat] == nil {
			seen[cat] = map[string]bool{}
		}
		// Stops and stations are mapped once per platform; keep the closest.
		if seen[cat][name] {
			replaceIfCloser(byCategory[cat], name, d, gps)
			continue
		}
		seen[cat][name] = true
		byCategory[cat] = append(byCategory[cat], model.POI{Name: name, Kind: string(cat), DistanceM: d, GPS: gps})
	}

	dist := func(p model.POI) int { return p.DistanceM }
	out := &model.Amenities{
		Supermarkets: geo.NearestFirst(byCategory[overpass.CategorySupermarket], dist, a.perCategory),
		Transit:      geo.NearestFirst(byCategory[overpass.CategoryTransit], dist, a.perCategory),
		Parks:        geo.NearestFirst(byCategory[overpass.CategoryPark], dist, a.perCategory),
	}
	if len(out.Supermarkets) == 0 && len(out.Transit) == 0 && len(out.Parks) == 0 {
		return Absent[*model.Amenities]("aucun commerce, transport ou parc à moins de %d m", radius)
	}
	return Ok(out, overpassSource)
}

func replaceIfCloser(pois []model.POI, name string, d int, gps model.GPS) {
	for i := range pois {
		if pois[i].Name == name && d < pois[i].DistanceM {
			pois[i].DistanceM = d
			pois[i].GPS = gps
		}
	}
}
