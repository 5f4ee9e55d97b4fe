package provider

import (
	"context"

	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/pkg/arcep"
)

const arcepSource = "https://maconnexioninternet.arcep.fr"

// Connectivity adapts the Arcep broadband eligibility map.
type Connectivity struct {
	client arcep.Client
	rt     *Runtime
}

// NewConnectivity wraps an Arcep client.
func NewConnectivity(client arcep.Client, rt *Runtime) *Connectivity {
	return &Connectivity{client: client, rt: rt}
}

// Fetch returns fiber availability, the fastest technology and the
// operators serving the address.
func (a *Connectivity) Fetch(ctx context.Context, t Target) Outcome[*model.Connectivity] {
	e, err := call(ctx, a.rt, "arcep", "eligibility", func(ctx context.Context) (*arcep.Eligibility, error) {
		return a.client.Eligibility(ctx, t.Location.GPS.Lat, t.Location.GPS.Lon)
	})
	if err != nil {
		return Unavailable[*model.Connectivity]("arcep", err)
	}
	if e == nil || len(e.Offers) == 0 {
		return Absent[*model.Connectivity]("aucune offre internet référencée")
	}

	fiber := e.FiberAvailable()
	tech, mbps := e.Best()
	return Ok(&model.Connectivity{
		FiberAvailable:  &fiber,
		BestTechnology:  tech,
		MaxDownloadMbps: mbps,
		Operators:       e.Operators(),
	}, arcepSource)
}
