package provider

import (
	"context"
	"math"
	"strings"

	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/pkg/pappers"
)

const pappersSource = "https://immobilier.pappers.fr"

// Cadastral adapts the Pappers Immobilier parcel dossier.
type Cadastral struct {
	client pappers.Client
	rt     *Runtime
}

// NewCadastral wraps a Pappers client. A nil client makes every fetch
// absent.
func NewCadastral(client pappers.Client, rt *Runtime) *Cadastral {
	return &Cadastral{client: client, rt: rt}
}

// Fetch maps the first parcel matching the address.
func (a *Cadastral) Fetch(ctx context.Context, t Target) Outcome[*model.Pappers] {
	if a.client == nil {
		return Absent[*model.Pappers]("pappers non configuré")
	}
	address := t.Location.Label
	if address == "" {
		address = t.Query.Address
	}

	parcels, err := call(ctx, a.rt, "pappers", "parcelles", func(ctx context.Context) ([]pappers.Parcel, error) {
		return a.client.ParcelsByAddress(ctx, address)
	})
	if err != nil {
		return Unavailable[*model.Pappers]("pappers", err)
	}
	if len(parcels) == 0 {
		return Absent[*model.Pappers]("aucune parcelle pour %q", address)
	}
	return Ok(MapParcel(parcels[0]), pappersSource)
}

// MapParcel converts a parcel into the profile dossier. Owners with a SIREN
// are legal persons; every element keeps its raw payload.
func MapParcel(p pappers.Parcel) *model.Pappers {
	out := &model.Pappers{}
	if p.Number != "" || p.Section != "" {
		out.Cadastre = &model.Cadastre{
			Number:      p.Number,
			Section:     p.Section,
			Prefix:      p.Prefix,
			AreaM2:      int(math.Round(float64(p.Area))),
			CommuneCode: p.CommuneCode,
		}
	}

	out.Owners = mapRecords(p.Owners, func(o pappers.Owner) model.Owner {
		kind := model.OwnerPhysical
		if strings.TrimSpace(o.Siren) != "" {
			kind = model.OwnerLegal
		}
		return model.Owner{Type: kind, Name: o.DisplayName(), Siren: o.Siren, LegalForm: o.LegalForm}
	}, func(o *model.Owner, raw []byte) { o.Raw = raw })

	out.Transactions = mapRecords(p.Sales, func(s pappers.Sale) model.PropertySale {
		return model.PropertySale{Date: s.Date, Price: float64(s.Price), Nature: s.Nature, Surface: float64(s.Surface)}
	}, func(s *model.PropertySale, raw []byte) { s.Raw = raw })

	out.Buildings = mapRecords(p.Buildings, func(b pappers.Building) model.Building {
		return model.Building{Usage: b.Usage, YearBuilt: int(b.YearBuilt), Floors: int(b.Floors), Dwellings: int(b.Dwellings)}
	}, func(b *model.Building, raw []byte) { b.Raw = raw })

	out.Condominiums = mapRecords(p.Condominiums, func(c pappers.Condominium) model.Condominium {
		return model.Condominium{Name: c.Name, RegistrationNumber: c.RegistrationNumber, Lots: int(c.Lots), Manager: c.Manager}
	}, func(c *model.Condominium, raw []byte) { c.Raw = raw })

	out.DPE = mapRecords(p.DPE, func(d pappers.DPE) model.DPERecord {
		return model.DPERecord{ClassEnergy: d.ClassEnergy, ClassGES: d.ClassGES, Date: d.Date}
	}, func(d *model.DPERecord, raw []byte) { d.Raw = raw })

	out.Occupants = mapRecords(p.Occupants, func(o pappers.Occupant) model.Occupant {
		return model.Occupant{Name: o.Name, Siren: o.Siren}
	}, func(o *model.Occupant, raw []byte) { o.Raw = raw })

	out.Permits = mapRecords(p.Permits, func(pm pappers.Permit) model.Permit {
		return model.Permit{Type: pm.Type, Date: pm.Date, Nature: pm.Nature}
	}, func(pm *model.Permit, raw []byte) { pm.Raw = raw })

	out.Businesses = mapRecords(p.Businesses, func(b pappers.Business) model.Business {
		return model.Business{Name: b.Name, Siren: b.Siren, Activity: b.Activity}
	}, func(b *model.Business, raw []byte) { b.Raw = raw })

	return out
}

// mapRecords converts each record and attaches its raw payload. It returns
// nil for an empty input so absent lists stay absent.
func mapRecords[T, U any](in []pappers.Record[T], conv func(T) U, setRaw func(*U, []byte)) []U {
	if len(in) == 0 {
		return nil
	}
	out := make([]U, len(in))
	for i, r := range in {
		out[i] = conv(r.Value)
		setRaw(&out[i], r.Raw)
	}
	return out
}
