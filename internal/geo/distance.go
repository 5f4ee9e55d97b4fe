// Package geo holds the distance and bounding-box helpers used to rank and
// filter results around a geocoded address.
package geo

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"

	"github.com/sells-group/house-report/internal/model"
)

// EarthRadius is the spherical-earth radius in meters used for distances.
const EarthRadius = 6371000.0

// Point converts a GPS coordinate to an orb point (lon, lat order).
func Point(g model.GPS) orb.Point {
	return orb.Point{g.Lon, g.Lat}
}

// Haversine returns the great-circle distance between a and b in meters,
// rounded to the nearest meter.
func Haversine(a, b model.GPS) int {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	d := 2 * EarthRadius * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return int(math.Round(d))
}

// Bound returns the box extending radius meters around center.
func Bound(center model.GPS, radius int) orb.Bound {
	return orbgeo.NewBoundAroundPoint(Point(center), float64(radius))
}

// Within reports whether p lies within radius meters of center.
func Within(center, p model.GPS, radius int) bool {
	return Haversine(center, p) <= radius
}

// NearestFirst sorts items by the distance returned by dist, closest first,
// keeping the input order for ties, and truncates to limit when limit > 0.
func NearestFirst[T any](items []T, dist func(T) int, limit int) []T {
	sort.SliceStable(items, func(i, j int) bool {
		return dist(items[i]) < dist(items[j])
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
