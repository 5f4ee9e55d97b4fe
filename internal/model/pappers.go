package model

import "encoding/json"

// OwnerType distinguishes legal persons from natural persons.
type OwnerType string

const (
	OwnerLegal    OwnerType = "personne_morale"
	OwnerPhysical OwnerType = "personne_physique"
)

// Pappers is the cadastral and ownership dossier of the parcel. Every list
// is independently optional; elements keep their raw payload for traceability.
type Pappers struct {
	Cadastre     *Cadastre      `json:"cadastre,omitempty"`
	Owners       []Owner        `json:"owners,omitempty"`
	Transactions []PropertySale `json:"transactions,omitempty"`
	Buildings    []Building     `json:"buildings,omitempty"`
	Condominiums []Condominium  `json:"condominiums,omitempty"`
	DPE          []DPERecord    `json:"dpe,omitempty"`
	Occupants    []Occupant     `json:"occupants,omitempty"`
	Permits      []Permit       `json:"permits,omitempty"`
	Businesses   []Business     `json:"businesses,omitempty"`
}

// Cadastre identifies the parcel.
type Cadastre struct {
	Number      string `json:"number"`
	Section     string `json:"section"`
	Prefix      string `json:"prefix,omitempty"`
	AreaM2      int    `json:"area_m2,omitempty"`
	CommuneCode string `json:"commune_code,omitempty"`
}

// Owner is a parcel owner.
type Owner struct {
	Type      OwnerType       `json:"type"`
	Name      string          `json:"name"`
	Siren     string          `json:"siren,omitempty"`
	LegalForm string          `json:"legal_form,omitempty"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// PropertySale is a past sale of the parcel.
type PropertySale struct {
	Date    string          `json:"date,omitempty"`
	Price   float64         `json:"price,omitempty"`
	Nature  string          `json:"nature,omitempty"`
	Surface float64         `json:"surface,omitempty"`
	Raw     json.RawMessage `json:"raw,omitempty"`
}

// Building is a building on the parcel.
type Building struct {
	Usage     string          `json:"usage,omitempty"`
	YearBuilt int             `json:"year_built,omitempty"`
	Floors    int             `json:"floors,omitempty"`
	Dwellings int             `json:"dwellings,omitempty"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// Condominium is an entry of the condominium registry.
type Condominium struct {
	Name               string          `json:"name,omitempty"`
	RegistrationNumber string          `json:"registration_number,omitempty"`
	Lots               int             `json:"lots,omitempty"`
	Manager            string          `json:"manager,omitempty"`
	Raw                json.RawMessage `json:"raw,omitempty"`
}

// DPERecord is an energy diagnostic attached to the parcel.
type DPERecord struct {
	ClassEnergy string          `json:"class_energy,omitempty"`
	ClassGES    string          `json:"class_ges,omitempty"`
	Date        string          `json:"date,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// Occupant is a registered occupant of the premises.
type Occupant struct {
	Name  string          `json:"name,omitempty"`
	Siren string          `json:"siren,omitempty"`
	Raw   json.RawMessage `json:"raw,omitempty"`
}

// Permit is a building permit on the parcel.
type Permit struct {
	Type   string          `json:"type,omitempty"`
	Date   string          `json:"date,omitempty"`
	Nature string          `json:"nature,omitempty"`
	Raw    json.RawMessage `json:"raw,omitempty"`
}

// Business is a business operating on the premises.
type Business struct {
	Name     string          `json:"name,omitempty"`
	Siren    string          `json:"siren,omitempty"`
	Activity string          `json:"activity,omitempty"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// HasLegalOwner reports whether any owner is a legal person.
func (p *Pappers) HasLegalOwner() bool {
	if p == nil {
		return false
	}
	for _, o := range p.Owners {
		if o.Type == OwnerLegal {
			return true
		}
	}
	return false
}
