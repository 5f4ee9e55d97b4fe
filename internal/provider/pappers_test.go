package provider

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/pkg/pappers"
)

type fakePappers struct {
	parcels []pappers.Parcel
	err     error
	address string
}

func (f *fakePappers) ParcelsByAddress(_ context.Context, address string) ([]pappers.Parcel, error) {
	f.address = address
	return f.parcels, f.err
}

const parcelJSON = `{
	"numero": "0042", "section": "AB", "prefixe": "000", "contenance": "312", "code_commune": "75118",
	"proprietaires": [
		{"siren": "552100554", "denomination": "SCI ORDENER", "forme_juridique": "SCI"},
		{"nom": "Martin", "prenom": "Claire"}
	],
	"ventes": [{"date_vente": "2019-04-02", "prix": 450000, "nature": "Vente", "surface": 65}],
	"batiments": [{"usage": "Habitation", "annee_construction": 1910, "nombre_niveaux": 6, "nombre_logements": 24}],
	"coproprietes": [{"nom": "10 RUE ORDENER", "numero_immatriculation": "AA1234567", "nombre_lots": 30, "syndic": "Foncia"}],
	"fonds_de_commerce": [{"denomination": "BOULANGERIE ORDENER", "siren": "812345678", "activite": "Boulangerie"}]
}`

func TestMapParcel(t *testing.T) {
	var p pappers.Parcel
	require.NoError(t, json.Unmarshal([]byte(parcelJSON), &p))

	out := MapParcel(p)
	require.NotNil(t, out.Cadastre)
	assert.Equal(t, "AB", out.Cadastre.Section)
	assert.Equal(t, 312, out.Cadastre.AreaM2)

	require.Len(t, out.Owners, 2)
	assert.Equal(t, model.OwnerLegal, out.Owners[0].Type)
	assert.Equal(t, "SCI ORDENER", out.Owners[0].Name)
	assert.Equal(t, model.OwnerPhysical, out.Owners[1].Type)
	assert.Equal(t, "Claire Martin", out.Owners[1].Name)
	assert.JSONEq(t, `{"nom": "Martin", "prenom": "Claire"}`, string(out.Owners[1].Raw))
	assert.True(t, out.HasLegalOwner())

	require.Len(t, out.Transactions, 1)
	assert.Equal(t, 450000.0, out.Transactions[0].Price)
	require.Len(t, out.Buildings, 1)
	assert.Equal(t, 1910, out.Buildings[0].YearBuilt)
	require.Len(t, out.Condominiums, 1)
	assert.Equal(t, 30, out.Condominiums[0].Lots)
	require.Len(t, out.Businesses, 1)
	assert.NotEmpty(t, out.Businesses[0].Raw)

	assert.Nil(t, out.Permits)
	assert.Nil(t, out.Occupants)
	assert.Nil(t, out.DPE)
}

func TestCadastral_FirstParcel(t *testing.T) {
	client := &fakePappers{parcels: []pappers.Parcel{{Number: "1", Section: "AA"}, {Number: "2", Section: "BB"}}}

	out := NewCadastral(client, testRuntime()).Fetch(context.Background(), ordenerTarget())
	p, ok := out.Get()
	require.True(t, ok)
	assert.Equal(t, "AA", p.Cadastre.Section)
	assert.Equal(t, "10 Rue Ordener 75018 Paris", client.address)
}

func TestCadastral_Absent(t *testing.T) {
	assert.False(t, NewCadastral(nil, testRuntime()).Fetch(context.Background(), ordenerTarget()).OK())
	assert.False(t, NewCadastral(&fakePappers{}, testRuntime()).Fetch(context.Background(), ordenerTarget()).OK())
	assert.False(t, NewCadastral(&fakePappers{err: errUpstream}, testRuntime()).Fetch(context.Background(), ordenerTarget()).OK())
}
