package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/house-report/internal/model"
)

func baseProfile() *model.HouseProfile {
	return &model.HouseProfile{
		Query: model.Query{Address: "10 Rue Ordener, 75018 Paris"},
		Location: model.Location{
			Label: "10 Rue Ordener 75018 Paris",
			GPS:   model.GPS{Lat: 48.89193, Lon: 2.34787},
			Admin: model.Admin{City: "Paris", Postcode: "75018", Citycode: "75118", Department: "75"},
		},
	}
}

func findSection(sections []model.Section, id string) (model.Section, bool) {
	for _, s := range sections {
		if s.ID == id {
			return s, true
		}
	}
	return model.Section{}, false
}

func findItem(s model.Section, label string) (model.SectionItem, bool) {
	for _, it := range s.Items {
		if it.Label == label {
			return it, true
		}
	}
	return model.SectionItem{}, false
}

func TestProject_AbsentFieldsProduceNoSection(t *testing.T) {
	sections := Project(baseProfile())

	require.Len(t, sections, 1)
	assert.Equal(t, SectionLocation, sections[0].ID)
	_, ok := findSection(sections, SectionRisks)
	assert.False(t, ok)
}

func TestProject_NilProfile(t *testing.T) {
	assert.Nil(t, Project(nil))
}

func TestProject_DPEFlags(t *testing.T) {
	tests := []struct {
		class string
		want  model.Flag
	}{
		{"A", model.FlagOK},
		{"C", model.FlagOK},
		{"D", model.FlagWarn},
		{"E", model.FlagRisk},
		{"F", model.FlagRisk},
		{"G", model.FlagRisk},
	}
	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			p := baseProfile()
			p.Energy = &model.Energy{DPE: &model.DPE{ClassEnergy: tt.class}}

			s, ok := findSection(Project(p), SectionEnergy)
			require.True(t, ok)
			it, ok := findItem(s, "Classe énergie")
			require.True(t, ok)
			assert.Equal(t, tt.want, it.Flag)
		})
	}
}

func TestProject_RiskFlags(t *testing.T) {
	p := baseProfile()
	p.Risks = &model.Risks{Normalized: model.RiskSummary{
		FloodLevel:   model.LevelHigh,
		SeismicLevel: 1,
		RadonZone:    2,
		Notes:        []string{"Inondation", "Radon"},
	}}

	s, ok := findSection(Project(p), SectionRisks)
	require.True(t, ok)

	flood, _ := findItem(s, "Inondation")
	assert.Equal(t, model.FlagRisk, flood.Flag)
	radon, _ := findItem(s, "Potentiel radon")
	assert.Equal(t, model.FlagWarn, radon.Flag)
	seismic, _ := findItem(s, "Zone sismique")
	assert.Equal(t, model.FlagOK, seismic.Flag)
	assert.Equal(t, []string{"Inondation", "Radon"}, s.Notes)

	p.Risks.Normalized.FloodLevel = model.LevelMedium
	p.Risks.Normalized.RadonZone = 3
	s, _ = findSection(Project(p), SectionRisks)
	flood, _ = findItem(s, "Inondation")
	assert.Equal(t, model.FlagWarn, flood.Flag)
	radon, _ = findItem(s, "Potentiel radon")
	assert.Equal(t, model.FlagRisk, radon.Flag)
}

func TestProject_SafetyHighIsRisk(t *testing.T) {
	p := baseProfile()
	p.Safety = &model.Safety{
		Period: "2024",
		Indicators: []model.SafetyIndicator{
			{Category: "Cambriolages de logement", RateLocal: 6.1, RateNational: 3.2, LevelVsNational: model.LevelHigh},
			{Category: "Vols de véhicules", RateLocal: 1.0, RateNational: 2.0, LevelVsNational: model.LevelLow},
		},
	}

	s, ok := findSection(Project(p), SectionSafety)
	require.True(t, ok)
	burglary, _ := findItem(s, "Cambriolages de logement")
	assert.Equal(t, model.FlagRisk, burglary.Flag)
	vehicles, _ := findItem(s, "Vols de véhicules")
	assert.Equal(t, model.FlagOK, vehicles.Flag)
	assert.Contains(t, s.Notes, "Statistiques communales 2024")
}

func TestProject_FiberAndAirQuality(t *testing.T) {
	noFiber := false
	p := baseProfile()
	p.Connectivity = &model.Connectivity{FiberAvailable: &noFiber}
	p.AirQuality = &model.AirQuality{EuropeanAQI: 85, Level: "très mauvais"}

	sections := Project(p)
	conn, ok := findSection(sections, SectionConnectivity)
	require.True(t, ok)
	fiber, _ := findItem(conn, "Fibre optique")
	assert.Equal(t, model.FlagWarn, fiber.Flag)

	air, ok := findSection(sections, SectionAirQuality)
	require.True(t, ok)
	assert.Equal(t, model.FlagRisk, air.Items[0].Flag)

	p.AirQuality.Level = "mauvais"
	air, _ = findSection(Project(p), SectionAirQuality)
	assert.Equal(t, model.FlagWarn, air.Items[0].Flag)
}

func TestProject_EstimatedDVFCarriesHint(t *testing.T) {
	p := baseProfile()
	p.Market = &model.Market{DVF: &model.DVF{Summary: model.DVFSummary{
		PriceM2Median1Y: 10000,
		PriceM2Median3Y: 10000,
		TrendLabel:      model.TrendStable,
		Estimated:       true,
	}}}

	s, ok := findSection(Project(p), SectionMarket)
	require.True(t, ok)
	median, ok := findItem(s, "Prix médian DVF (1 an)")
	require.True(t, ok)
	assert.Equal(t, "10 000 €/m²", median.Value)
	assert.Equal(t, estimatedHint, median.Hint)
	_, hasCount := findItem(s, "Ventes sur 3 ans")
	assert.False(t, hasCount)
}

func TestProject_EmptyAmenitiesProduceNoSection(t *testing.T) {
	p := baseProfile()
	p.Amenities = &model.Amenities{}
	_, ok := findSection(Project(p), SectionAmenities)
	assert.False(t, ok)
}

func TestProject_Order(t *testing.T) {
	p := baseProfile()
	p.AIAnalysis = &model.AIAnalysis{Score: 70}
	p.Energy = &model.Energy{DPE: &model.DPE{ClassEnergy: "B"}}
	p.Recommendations = &model.Recommendations{Summary: "RAS"}

	var ids []string
	for _, s := range Project(p) {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{SectionLocation, SectionEnergy, SectionRecommendations, SectionAIAnalysis}, ids)
}

func TestEuroM2(t *testing.T) {
	assert.Equal(t, "950 €/m²", euroM2(950))
	assert.Equal(t, "9 800 €/m²", euroM2(9800))
	assert.Equal(t, "12 345 €/m²", euroM2(12345))
}

func TestMarkdown_Placeholders(t *testing.T) {
	p := baseProfile()
	p.Energy = &model.Energy{DPE: &model.DPE{ClassEnergy: "G"}}
	p.Meta = model.Meta{
		GeneratedAt:  time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
		ProcessingMS: 4210,
		Warnings:     []string{"risks: georisques indisponible: timeout"},
	}

	md := Markdown(p)
	assert.Contains(t, md, "# Rapport immobilier: 10 Rue Ordener 75018 Paris")
	assert.Contains(t, md, "Généré le 15/06/2025 12:00 en 4210 ms")
	assert.Contains(t, md, "- **Classe énergie**: G [risque]")
	assert.Contains(t, md, "## Risques naturels et technologiques\n"+NoData)
	assert.Contains(t, md, "## Écoles\n"+NoData)
	assert.Contains(t, md, "- risks: georisques indisponible: timeout")
}

func TestMarkdown_NilProfile(t *testing.T) {
	assert.Contains(t, Markdown(nil), NoData)
}
