package provider

import (
	"context"

	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/pkg/gpu"
)

const gpuSource = "https://www.geoportail-urbanisme.gouv.fr"

// Urbanism adapts the Géoportail de l'Urbanisme zoning lookup.
type Urbanism struct {
	client gpu.Client
	rt     *Runtime
}

// NewUrbanism wraps a GPU client.
func NewUrbanism(client gpu.Client, rt *Runtime) *Urbanism {
	return &Urbanism{client: client, rt: rt}
}

// Fetch returns the zones covering the address. The first zone is the
// primary one.
func (a *Urbanism) Fetch(ctx context.Context, t Target) Outcome[*model.Urbanism] {
	zones, err := call(ctx, a.rt, "gpu", "zone_urba", func(ctx context.Context) ([]gpu.Zone, error) {
		return a.client.ZonesAt(ctx, t.Location.GPS.Lat, t.Location.GPS.Lon)
	})
	if err != nil {
		return Unavailable[*model.Urbanism]("gpu", err)
	}

	out := &model.Urbanism{}
	for _, z := range zones {
		if z.Label == "" {
			continue
		}
		out.Zones = append(out.Zones, model.Zone{
			Label:       z.Label,
			Type:        z.Type,
			LongLabel:   z.LongLabel,
			Partition:   z.Partition,
			DocumentURL: z.DocumentURL,
		})
	}
	if len(out.Zones) == 0 {
		return Absent[*model.Urbanism]("aucune zone d'urbanisme publiée")
	}
	out.Zoning = out.Zones[0].Label
	return Ok(out, gpuSource)
}
