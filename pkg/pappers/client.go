// Package pappers is a client for the Pappers Immobilier parcel API.
package pappers

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/house-report/internal/fetcher"
)

const (
	defaultBaseURL = "https://api-immobilier.pappers.fr/v1"
	provider       = "pappers"
)

// Bases lists every sub-base requested with a parcel lookup.
var Bases = []string{
	"proprietaires",
	"ventes",
	"batiments",
	"dpe",
	"occupants",
	"permis",
	"fonds_de_commerce",
	"coproprietes",
}

// Client looks up parcels.
type Client interface {
	// ParcelsByAddress returns the parcels matching a postal address.
	ParcelsByAddress(ctx context.Context, address string) ([]Parcel, error)
}

// Record decodes a T and keeps the payload it came from.
type Record[T any] struct {
	Value T
	Raw   json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record[T]) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &r.Value); err != nil {
		return err
	}
	r.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// Parcel is one cadastral parcel with its requested sub-bases.
type Parcel struct {
	Number       string                `json:"numero"`
	Section      string                `json:"section"`
	Prefix       string                `json:"prefixe"`
	Area         fetcher.Float         `json:"contenance"`
	CommuneCode  string                `json:"code_commune"`
	Owners       []Record[Owner]       `json:"proprietaires"`
	Sales        []Record[Sale]        `json:"ventes"`
	Buildings    []Record[Building]    `json:"batiments"`
	DPE          []Record[DPE]         `json:"dpe"`
	Occupants    []Record[Occupant]    `json:"occupants"`
	Permits      []Record[Permit]      `json:"permis"`
	Businesses   []Record[Business]    `json:"fonds_de_commerce"`
	Condominiums []Record[Condominium] `json:"coproprietes"`
}

// Owner is a registered owner. Legal persons carry a SIREN.
type Owner struct {
	Siren     string `json:"siren"`
	Name      string `json:"denomination"`
	LastName  string `json:"nom"`
	FirstName string `json:"prenom"`
	LegalForm string `json:"forme_juridique"`
}

// DisplayName returns the company name or the person's full name.
func (o Owner) DisplayName() string {
	if o.Name != "" {
		return o.Name
	}
	return strings.TrimSpace(o.FirstName + " " + o.LastName)
}

// Sale is a recorded sale of the parcel.
type Sale struct {
	Date    string        `json:"date_vente"`
	Price   fetcher.Float `json:"prix"`
	Nature  string        `json:"nature"`
	Surface fetcher.Float `json:"surface"`
}

// Building is a building on the parcel.
type Building struct {
	Usage     string        `json:"usage"`
	YearBuilt fetcher.Float `json:"annee_construction"`
	Floors    fetcher.Float `json:"nombre_niveaux"`
	Dwellings fetcher.Float `json:"nombre_logements"`
}

// DPE is an energy diagnostic registered on the parcel.
type DPE struct {
	ClassEnergy string `json:"classe_bilan_dpe"`
	ClassGES    string `json:"classe_emission_ges"`
	Date        string `json:"date_etablissement"`
}

// Occupant is a company registered at the premises.
type Occupant struct {
	Name  string `json:"denomination"`
	Siren string `json:"siren"`
}

// Permit is a planning permission.
type Permit struct {
	Type   string `json:"type"`
	Date   string `json:"date_autorisation"`
	Nature string `json:"nature"`
}

// Business is a goodwill (fonds de commerce) operated on the premises.
type Business struct {
	Name     string `json:"denomination"`
	Siren    string `json:"siren"`
	Activity string `json:"activite"`
}

// Condominium is a syndicate registry entry.
type Condominium struct {
	Name               string        `json:"nom"`
	RegistrationNumber string        `json:"numero_immatriculation"`
	Lots               fetcher.Float `json:"nombre_lots"`
	Manager            string        `json:"syndic"`
}

type parcelsResponse struct {
	Total   int      `json:"total"`
	Results []Parcel `json:"resultats"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithFetcher overrides the HTTP fetcher.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(c *httpClient) {
		c.fetch = f
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	fetch   fetcher.Fetcher
}

// NewClient creates a Pappers Immobilier client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{apiKey: apiKey, baseURL: defaultBaseURL, fetch: fetcher.Default}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) ParcelsByAddress(ctx context.Context, address string) ([]Parcel, error) {
	if strings.TrimSpace(address) == "" {
		return nil, eris.New("pappers: empty address")
	}
	params := url.Values{
		"adresse":   {address},
		"bases":     {strings.Join(Bases, ",")},
		"api_token": {c.apiKey},
	}

	var resp parcelsResponse
	if err := c.fetch.GetJSON(ctx, provider, c.baseURL+"/parcelles?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}
