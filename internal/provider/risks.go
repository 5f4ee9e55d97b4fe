package provider

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/pkg/georisques"
)

const georisquesSource = "https://www.georisques.gouv.fr/api/v1/resultats_rapport_risque"

// Risks adapts the Géorisques hazard registry.
type Risks struct {
	client georisques.Client
	rt     *Runtime
}

// NewRisks wraps a Géorisques client.
func NewRisks(client georisques.Client, rt *Runtime) *Risks {
	return &Risks{client: client, rt: rt}
}

// Fetch builds the hazard section. The commune-level radon and seismic
// lookups are optional; only the report itself is required.
func (a *Risks) Fetch(ctx context.Context, t Target) Outcome[*model.Risks] {
	type report struct {
		parsed *georisques.RiskReport
		raw    json.RawMessage
	}
	r, err := call(ctx, a.rt, "georisques", "rapport", func(ctx context.Context) (report, error) {
		parsed, raw, err := a.client.RiskReport(ctx, t.Location.GPS.Lat, t.Location.GPS.Lon)
		return report{parsed: parsed, raw: raw}, err
	})
	if err != nil {
		return Unavailable[*model.Risks]("georisques", err)
	}

	out := &model.Risks{
		Raw: map[string]json.RawMessage{"rapport": r.raw},
		Normalized: model.RiskSummary{
			FloodLevel: floodLevel(r.parsed),
			Notes:      r.parsed.PresentLabels(),
		},
	}

	citycode := t.Location.Admin.Citycode
	if citycode != "" {
		if zone, raw, err := a.zone(ctx, "radon", citycode, a.client.Radon); err == nil {
			out.Normalized.RadonZone = zone
			out.Raw["radon"] = raw
		}
		if zone, raw, err := a.zone(ctx, "seismic", citycode, a.client.SeismicZone); err == nil {
			out.Normalized.SeismicLevel = zone
			out.Raw["seismic"] = raw
		}
	}
	return Ok(out, georisquesSource)
}

type zoneLookup func(ctx context.Context, citycode string) (int, json.RawMessage, error)

func (a *Risks) zone(ctx context.Context, op, citycode string, lookup zoneLookup) (int, json.RawMessage, error) {
	type zone struct {
		class int
		raw   json.RawMessage
	}
	z, err := call(ctx, a.rt, "georisques", op, func(ctx context.Context) (zone, error) {
		class, raw, err := lookup(ctx, citycode)
		return zone{class: class, raw: raw}, err
	})
	return z.class, z.raw, err
}

// floodLevel grades the flood entry of the report. The address status
// wins over the commune status when both are published.
func floodLevel(r *georisques.RiskReport) model.Level {
	if r == nil {
		return model.LevelUnknown
	}
	entry, ok := r.NaturalRisks["inondation"]
	if !ok {
		return model.LevelUnknown
	}
	if !entry.Present {
		return model.LevelLow
	}
	status := strings.ToLower(entry.AddressStatus)
	if status == "" {
		status = strings.ToLower(entry.CommuneStatus)
	}
	switch {
	case strings.Contains(status, "important"), strings.Contains(status, "fort"), strings.Contains(status, "élevé"):
		return model.LevelHigh
	case strings.Contains(status, "faible"), strings.Contains(status, "non concerné"):
		return model.LevelLow
	default:
		return model.LevelMedium
	}
}
