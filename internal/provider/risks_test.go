package provider

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/pkg/georisques"
)

type fakeGeorisques struct {
	report    *georisques.RiskReport
	reportErr error
	radon     int
	radonErr  error
	seismic   int
}

func (f *fakeGeorisques) RiskReport(context.Context, float64, float64) (*georisques.RiskReport, json.RawMessage, error) {
	if f.reportErr != nil {
		return nil, nil, f.reportErr
	}
	return f.report, json.RawMessage(`{"rapport":true}`), nil
}

func (f *fakeGeorisques) Radon(context.Context, string) (int, json.RawMessage, error) {
	if f.radonErr != nil {
		return 0, nil, f.radonErr
	}
	return f.radon, json.RawMessage(`{"radon":true}`), nil
}

func (f *fakeGeorisques) SeismicZone(context.Context, string) (int, json.RawMessage, error) {
	return f.seismic, json.RawMessage(`{"seismic":true}`), nil
}

func TestRisks_Fetch(t *testing.T) {
	client := &fakeGeorisques{
		report: &georisques.RiskReport{NaturalRisks: map[string]georisques.Risk{
			"inondation":              {Present: true, Label: "Inondation", AddressStatus: "Risque important"},
			"mouvementTerrain":        {Present: false, Label: "Mouvement de terrain"},
			"retraitGonflementArgile": {Present: true, Label: "Retrait-gonflement des argiles"},
		}},
		radon:   2,
		seismic: 1,
	}

	out := NewRisks(client, testRuntime()).Fetch(context.Background(), ordenerTarget())
	risks, ok := out.Get()
	require.True(t, ok, out.Reason())

	assert.Equal(t, model.LevelHigh, risks.Normalized.FloodLevel)
	assert.Equal(t, 2, risks.Normalized.RadonZone)
	assert.Equal(t, 1, risks.Normalized.SeismicLevel)
	assert.Equal(t, []string{"Inondation", "Retrait-gonflement des argiles"}, risks.Normalized.Notes)
	assert.Contains(t, risks.Raw, "rapport")
	assert.Contains(t, risks.Raw, "radon")
	assert.Contains(t, risks.Raw, "seismic")
	assert.NotEmpty(t, out.Source())
}

func TestRisks_RadonFailureIsOptional(t *testing.T) {
	client := &fakeGeorisques{
		report:   &georisques.RiskReport{NaturalRisks: map[string]georisques.Risk{"inondation": {Present: false}}},
		radonErr: errUpstream,
	}

	risks, ok := NewRisks(client, testRuntime()).Fetch(context.Background(), ordenerTarget()).Get()
	require.True(t, ok)
	assert.Equal(t, model.LevelLow, risks.Normalized.FloodLevel)
	assert.Zero(t, risks.Normalized.RadonZone)
	assert.NotContains(t, risks.Raw, "radon")
}

func TestRisks_ReportFailureIsAbsent(t *testing.T) {
	out := NewRisks(&fakeGeorisques{reportErr: errUpstream}, testRuntime()).Fetch(context.Background(), ordenerTarget())
	assert.False(t, out.OK())
	assert.Contains(t, out.Reason(), "georisques")
}

func TestFloodLevel(t *testing.T) {
	tests := []struct {
		name  string
		risks map[string]georisques.Risk
		want  model.Level
	}{
		{"missing entry", map[string]georisques.Risk{}, model.LevelUnknown},
		{"not present", map[string]georisques.Risk{"inondation": {Present: false}}, model.LevelLow},
		{"important at address", map[string]georisques.Risk{"inondation": {Present: true, AddressStatus: "Risque important"}}, model.LevelHigh},
		{"commune status only", map[string]georisques.Risk{"inondation": {Present: true, CommuneStatus: "Aléa fort"}}, model.LevelHigh},
		{"present without grade", map[string]georisques.Risk{"inondation": {Present: true, CommuneStatus: "Risque existant"}}, model.LevelMedium},
		{"present but weak", map[string]georisques.Risk{"inondation": {Present: true, AddressStatus: "Risque faible"}}, model.LevelLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, floodLevel(&georisques.RiskReport{NaturalRisks: tt.risks}))
		})
	}
	assert.Equal(t, model.LevelUnknown, floodLevel(nil))
}
