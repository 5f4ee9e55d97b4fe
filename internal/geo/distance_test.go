package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/house-report/internal/model"
)

var (
	paris = model.GPS{Lat: 48.8566, Lon: 2.3522}
	lyon  = model.GPS{Lat: 45.7640, Lon: 4.8357}
)

func TestHaversine_SamePointIsZero(t *testing.T) {
	for _, p := range []model.GPS{paris, lyon, {Lat: 0, Lon: 0}, {Lat: -33.86, Lon: 151.2}} {
		assert.Equal(t, 0, Haversine(p, p))
	}
}

func TestHaversine_ParisLyon(t *testing.T) {
	d := Haversine(paris, lyon)
	assert.GreaterOrEqual(t, d, 390000)
	assert.LessOrEqual(t, d, 410000)
	assert.Equal(t, d, Haversine(lyon, paris))
}

func TestHaversine_ShortDistance(t *testing.T) {
	// 0.001 degree of latitude is about 111 m.
	d := Haversine(paris, model.GPS{Lat: paris.Lat + 0.001, Lon: paris.Lon})
	assert.InDelta(t, 111, d, 1)
}

func TestWithin(t *testing.T) {
	near := model.GPS{Lat: paris.Lat + 0.002, Lon: paris.Lon}
	assert.True(t, Within(paris, near, 500))
	assert.False(t, Within(paris, near, 100))
}

func TestBound_ContainsCenter(t *testing.T) {
	b := Bound(paris, 1000)
	assert.True(t, b.Contains(Point(paris)))
	assert.Less(t, b.Min.Lat(), paris.Lat)
	assert.Greater(t, b.Max.Lon(), paris.Lon)
	assert.False(t, b.Contains(Point(lyon)))
}

func TestNearestFirst(t *testing.T) {
	items := []int{300, 100, 200, 100}
	out := NearestFirst(items, func(v int) int { return v }, 3)
	assert.Equal(t, []int{100, 100, 200}, out)

	all := NearestFirst([]int{5, 1}, func(v int) int { return v }, 0)
	assert.Equal(t, []int{1, 5}, all)
}
