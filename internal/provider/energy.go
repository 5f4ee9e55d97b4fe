package provider

import (
	"context"

	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/pkg/ademe"
)

const (
	ademeSource = "https://data.ademe.fr/datasets/dpe03existant"

	// energyRadius bounds the DPE search to the building itself and its
	// immediate neighbours.
	energyRadius = 100
	energyRows   = 5
)

// Energy adapts the ADEME diagnostic registry.
type Energy struct {
	client ademe.Client
	rt     *Runtime
}

// NewEnergy wraps an ADEME client.
func NewEnergy(client ademe.Client, rt *Runtime) *Energy {
	return &Energy{client: client, rt: rt}
}

// Fetch returns the most recent diagnostic near the address.
func (a *Energy) Fetch(ctx context.Context, t Target) Outcome[*model.Energy] {
	rows, err := call(ctx, a.rt, "ademe", "nearest", func(ctx context.Context) ([]ademe.Diagnostic, error) {
		return a.client.Nearest(ctx, t.Location.GPS.Lat, t.Location.GPS.Lon, energyRadius, energyRows)
	})
	if err != nil {
		return Unavailable[*model.Energy]("ademe", err)
	}
	if len(rows) == 0 {
		return Absent[*model.Energy]("aucun DPE à moins de %d m", energyRadius)
	}

	d := rows[0]
	return Ok(&model.Energy{DPE: &model.DPE{
		ID:               d.Number,
		ClassEnergy:      d.EnergyClass,
		ClassGES:         d.GHGClass,
		Surface:          float64(d.Surface),
		HousingType:      d.BuildingType,
		Date:             d.Date,
		Address:          d.Address,
		ConsumptionKWhM2: float64(d.ConsumptionM2),
	}}, ademeSource)
}
