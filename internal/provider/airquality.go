package provider

import (
	"context"

	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/pkg/airquality"
)

const airQualitySource = "https://open-meteo.com/en/docs/air-quality-api"

// AirQuality adapts the Open-Meteo air-quality forecast.
type AirQuality struct {
	client airquality.Client
	rt     *Runtime
}

// NewAirQuality wraps an air-quality client.
func NewAirQuality(client airquality.Client, rt *Runtime) *AirQuality {
	return &AirQuality{client: client, rt: rt}
}

// Fetch returns the current measurements at the address.
func (a *AirQuality) Fetch(ctx context.Context, t Target) Outcome[*model.AirQuality] {
	cur, err := call(ctx, a.rt, "airquality", "current", func(ctx context.Context) (*airquality.Current, error) {
		return a.client.Current(ctx, t.Location.GPS.Lat, t.Location.GPS.Lon)
	})
	if err != nil {
		return Unavailable[*model.AirQuality]("airquality", err)
	}

	aqi := deref(cur.EuropeanAQI)
	return Ok(&model.AirQuality{
		EuropeanAQI: aqi,
		PM25:        deref(cur.PM25),
		PM10:        deref(cur.PM10),
		NO2:         deref(cur.NO2),
		O3:          deref(cur.O3),
		Level:       airquality.Label(aqi),
		MeasuredAt:  cur.Time,
	}, airQualitySource)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
