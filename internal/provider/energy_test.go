package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/house-report/pkg/ademe"
)

type fakeADEME struct {
	rows   []ademe.Diagnostic
	err    error
	radius int
}

func (f *fakeADEME) Nearest(_ context.Context, _, _ float64, radius, _ int) ([]ademe.Diagnostic, error) {
	f.radius = radius
	return f.rows, f.err
}

func TestEnergy_LatestDiagnostic(t *testing.T) {
	client := &fakeADEME{rows: []ademe.Diagnostic{
		{Number: "2375E1234567A", EnergyClass: "F", GHGClass: "E", Surface: 54.5, BuildingType: "appartement", Date: "2024-03-02"},
		{Number: "2175E0000001B", EnergyClass: "D", Date: "2021-01-10"},
	}}

	out := NewEnergy(client, testRuntime()).Fetch(context.Background(), ordenerTarget())
	energy, ok := out.Get()
	require.True(t, ok, out.Reason())
	require.NotNil(t, energy.DPE)
	assert.Equal(t, "F", energy.DPE.ClassEnergy)
	assert.Equal(t, "E", energy.DPE.ClassGES)
	assert.Equal(t, 54.5, energy.DPE.Surface)
	assert.Equal(t, "2024-03-02", energy.DPE.Date)
	assert.Equal(t, energyRadius, client.radius)
}

func TestEnergy_NoDiagnostic(t *testing.T) {
	out := NewEnergy(&fakeADEME{}, testRuntime()).Fetch(context.Background(), ordenerTarget())
	assert.False(t, out.OK())
	assert.Contains(t, out.Reason(), "DPE")
}

func TestEnergy_UpstreamError(t *testing.T) {
	out := NewEnergy(&fakeADEME{err: errUpstream}, testRuntime()).Fetch(context.Background(), ordenerTarget())
	assert.False(t, out.OK())
	assert.Contains(t, out.Reason(), "ademe")
}
