package provider

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/pkg/geocode"
)

// Geocoder resolves a free-text address to a Location. It is the only
// component whose failure aborts a profile build.
type Geocoder struct {
	client geocode.Client
	rt     *Runtime
}

// NewGeocoder wraps a geocoding client.
func NewGeocoder(client geocode.Client, rt *Runtime) *Geocoder {
	return &Geocoder{client: client, rt: rt}
}

// Locate returns the best match for address. Zero candidates yields
// ErrAddressNotFound; transport failures are returned after the critical
// retry budget is spent.
func (g *Geocoder) Locate(ctx context.Context, address string) (model.Location, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return model.Location{}, ErrAddressNotFound
	}

	p := g.rt.criticalPolicy()
	features, err := callWith(ctx, g.rt, p, "geocode", "search", func(ctx context.Context) ([]geocode.Feature, error) {
		return g.client.Search(ctx, address, 1)
	})
	if err != nil {
		return model.Location{}, eris.Wrap(err, "geocode: search")
	}

	for _, f := range features {
		if f.Validate() != nil {
			continue
		}
		loc := model.Location{
			Label: f.Properties.Label,
			GPS:   model.GPS{Lat: f.Lat(), Lon: f.Lon()},
			Admin: model.Admin{
				City:       f.Properties.City,
				Postcode:   f.Properties.Postcode,
				Citycode:   f.Properties.Citycode,
				Department: geocode.Department(f.Properties.Citycode),
				Region:     geocode.Region(f.Properties.Context),
			},
		}
		zap.L().Debug("geocode: located",
			zap.String("address", address),
			zap.String("label", loc.Label),
			zap.String("citycode", loc.Admin.Citycode),
		)
		return loc, nil
	}
	return model.Location{}, ErrAddressNotFound
}
