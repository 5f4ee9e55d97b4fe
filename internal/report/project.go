// Package report projects a house profile into flat display sections and
// renders them as a Markdown report.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sells-group/house-report/internal/model"
)

// Section ids, in display order.
const (
	SectionLocation        = "location"
	SectionEnergy          = "energy"
	SectionRisks           = "risks"
	SectionMarket          = "market"
	SectionEducation       = "education"
	SectionAmenities       = "amenities"
	SectionUrbanism        = "urbanism"
	SectionAirQuality      = "air_quality"
	SectionConnectivity    = "connectivity"
	SectionSafety          = "safety"
	SectionPappers         = "pappers"
	SectionRecommendations = "recommendations"
	SectionAIAnalysis      = "ai_analysis"
)

const estimatedHint = "Estimation issue d'une table de référence, aucune vente enregistrée à proximité"

// projector builds one section. ok is false when the profile has no data
// for it.
type projector struct {
	id    string
	title string
	build func(p *model.HouseProfile) (items []model.SectionItem, notes []string, ok bool)
}

var projectors = []projector{
	{SectionLocation, "Localisation", location},
	{SectionEnergy, "Performance énergétique", energy},
	{SectionRisks, "Risques naturels et technologiques", risks},
	{SectionMarket, "Marché immobilier", market},
	{SectionEducation, "Écoles", education},
	{SectionAmenities, "Commerces et transports", amenities},
	{SectionUrbanism, "Urbanisme", urbanism},
	{SectionAirQuality, "Qualité de l'air", airQuality},
	{SectionConnectivity, "Connectivité", connectivity},
	{SectionSafety, "Sécurité", safety},
	{SectionPappers, "Cadastre et propriété", pappers},
	{SectionRecommendations, "Recommandations", recommendations},
	{SectionAIAnalysis, "Analyse IA", aiAnalysis},
}

// Project returns the display sections of p. Absent profile fields produce
// no section. A nil profile yields nil.
func Project(p *model.HouseProfile) []model.Section {
	if p == nil {
		return nil
	}
	var out []model.Section
	for _, pr := range projectors {
		items, notes, ok := pr.build(p)
		if !ok {
			continue
		}
		out = append(out, model.Section{ID: pr.id, Title: pr.title, Items: items, Notes: notes})
	}
	return out
}

func item(label, value string, flag model.Flag) model.SectionItem {
	return model.SectionItem{Label: label, Value: value, Flag: flag}
}

func location(p *model.HouseProfile) ([]model.SectionItem, []string, bool) {
	if p.Location.Label == "" {
		return nil, nil, false
	}
	a := p.Location.Admin
	items := []model.SectionItem{
		item("Adresse", p.Location.Label, ""),
		item("Commune", strings.TrimSpace(a.Postcode+" "+a.City), ""),
		item("Coordonnées", fmt.Sprintf("%.5f, %.5f", p.Location.GPS.Lat, p.Location.GPS.Lon), ""),
		item("Rayon d'analyse", fmt.Sprintf("%d m", p.Query.EffectiveRadius()), ""),
	}
	if a.Region != "" {
		items = append(items, item("Région", a.Region, ""))
	}
	return items, nil, true
}

func energy(p *model.HouseProfile) ([]model.SectionItem, []string, bool) {
	if p.Energy == nil || p.Energy.DPE == nil {
		return nil, nil, false
	}
	d := p.Energy.DPE
	items := []model.SectionItem{item("Classe énergie", d.ClassEnergy, dpeFlag(d.ClassEnergy))}
	if d.ClassGES != "" {
		items = append(items, item("Classe GES", d.ClassGES, dpeFlag(d.ClassGES)))
	}
	if d.ConsumptionKWhM2 > 0 {
		items = append(items, item("Consommation", fmt.Sprintf("%.0f kWh/m²/an", d.ConsumptionKWhM2), ""))
	}
	if d.Surface > 0 {
		items = append(items, item("Surface", fmt.Sprintf("%.0f m²", d.Surface), ""))
	}
	if d.Date != "" {
		items = append(items, item("Date du diagnostic", d.Date, ""))
	}
	return items, nil, true
}

func dpeFlag(class string) model.Flag {
	switch strings.ToUpper(strings.TrimSpace(class)) {
	case "E", "F", "G":
		return model.FlagRisk
	case "D":
		return model.FlagWarn
	default:
		return model.FlagOK
	}
}

func risks(p *model.HouseProfile) ([]model.SectionItem, []string, bool) {
	if p.Risks == nil {
		return nil, nil, false
	}
	n := p.Risks.Normalized
	items := []model.SectionItem{item("Inondation", string(n.FloodLevel), levelFlag(n.FloodLevel))}
	if n.SeismicLevel > 0 {
		items = append(items, item("Zone sismique", fmt.Sprintf("%d/5", n.SeismicLevel), seismicFlag(n.SeismicLevel)))
	}
	if n.RadonZone > 0 {
		items = append(items, item("Potentiel radon", fmt.Sprintf("%d/3", n.RadonZone), radonFlag(n.RadonZone)))
	}
	return items, n.Notes, true
}

func levelFlag(l model.Level) model.Flag {
	switch l {
	case model.LevelHigh:
		return model.FlagRisk
	case model.LevelMedium:
		return model.FlagWarn
	case model.LevelLow:
		return model.FlagOK
	default:
		return ""
	}
}

func radonFlag(zone int) model.Flag {
	switch {
	case zone >= 3:
		return model.FlagRisk
	case zone == 2:
		return model.FlagWarn
	default:
		return model.FlagOK
	}
}

func seismicFlag(level int) model.Flag {
	switch {
	case level >= 4:
		return model.FlagRisk
	case level == 3:
		return model.FlagWarn
	default:
		return model.FlagOK
	}
}

func market(p *model.HouseProfile) ([]model.SectionItem, []string, bool) {
	m := p.Market
	if m == nil || (m.DVF == nil && m.Melo == nil && m.WebSearch == nil) {
		return nil, nil, false
	}
	var items []model.SectionItem
	var notes []string
	if m.DVF != nil {
		s := m.DVF.Summary
		hint := ""
		if s.Estimated {
			hint = estimatedHint
		}
		if s.PriceM2Median1Y > 0 {
			items = append(items, model.SectionItem{Label: "Prix médian DVF (1 an)", Value: euroM2(s.PriceM2Median1Y), Hint: hint})
		}
		if s.PriceM2Median3Y > 0 {
			items = append(items, model.SectionItem{Label: "Prix médian DVF (3 ans)", Value: euroM2(s.PriceM2Median3Y), Hint: hint})
		}
		if !s.Estimated {
			items = append(items, item("Ventes sur 3 ans", strconv.Itoa(s.Count3Y), ""))
		}
		if s.TrendLabel != "" {
			items = append(items, item("Tendance", s.TrendLabel, ""))
		}
	}
	if m.Melo != nil && m.Melo.Insights.Count > 0 {
		in := m.Melo.Insights
		items = append(items, item("Annonces comparables",
			fmt.Sprintf("%d annonces, %s en moyenne", in.Count, euroM2(in.AvgPriceM2)), ""))
	}
	if w := m.WebSearch; w != nil {
		items = append(items, item("Prix constaté en ligne", euroM2(int(w.PriceM2+0.5)), ""))
		if w.Commentary != "" {
			notes = append(notes, w.Commentary)
		}
	}
	return items, notes, true
}

func education(p *model.HouseProfile) ([]model.SectionItem, []string, bool) {
	if p.Education == nil || len(p.Education.Schools) == 0 {
		return nil, nil, false
	}
	items := make([]model.SectionItem, 0, len(p.Education.Schools))
	for _, s := range p.Education.Schools {
		v := fmt.Sprintf("%d m", s.DistanceM)
		if s.Kind != "" {
			v = s.Kind + ", " + v
		}
		if s.Rating > 0 {
			v += fmt.Sprintf(", note %.1f/5 (%d avis)", s.Rating, s.RatingCount)
		}
		items = append(items, item(s.Name, v, ""))
	}
	return items, nil, true
}

func amenities(p *model.HouseProfile) ([]model.SectionItem, []string, bool) {
	a := p.Amenities
	if a == nil {
		return nil, nil, false
	}
	var items []model.SectionItem
	for _, group := range []struct {
		label string
		pois  []model.POI
	}{
		{"Supermarché", a.Supermarkets},
		{"Transport", a.Transit},
		{"Parc", a.Parks},
	} {
		for _, poi := range group.pois {
			items = append(items, item(group.label, fmt.Sprintf("%s (%d m)", poi.Name, poi.DistanceM), ""))
		}
	}
	return items, nil, len(items) > 0
}

func urbanism(p *model.HouseProfile) ([]model.SectionItem, []string, bool) {
	if p.Urbanism == nil || p.Urbanism.Zoning == "" {
		return nil, nil, false
	}
	items := []model.SectionItem{item("Zonage", p.Urbanism.Zoning, "")}
	for _, z := range p.Urbanism.Zones {
		if z.LongLabel != "" {
			items = append(items, item("Zone "+z.Label, z.LongLabel, ""))
		}
	}
	return items, nil, true
}

func airQuality(p *model.HouseProfile) ([]model.SectionItem, []string, bool) {
	aq := p.AirQuality
	if aq == nil {
		return nil, nil, false
	}
	items := []model.SectionItem{
		item("Indice européen", fmt.Sprintf("%.0f (%s)", aq.EuropeanAQI, aq.Level), airFlag(aq.Level)),
	}
	if aq.PM25 > 0 {
		items = append(items, item("PM2.5", fmt.Sprintf("%.1f µg/m³", aq.PM25), ""))
	}
	if aq.NO2 > 0 {
		items = append(items, item("NO2", fmt.Sprintf("%.1f µg/m³", aq.NO2), ""))
	}
	return items, nil, true
}

func airFlag(level string) model.Flag {
	switch level {
	case "très mauvais", "extrêmement mauvais":
		return model.FlagRisk
	case "mauvais":
		return model.FlagWarn
	default:
		return model.FlagOK
	}
}

func connectivity(p *model.HouseProfile) ([]model.SectionItem, []string, bool) {
	c := p.Connectivity
	if c == nil {
		return nil, nil, false
	}
	var items []model.SectionItem
	if c.FiberAvailable != nil {
		if *c.FiberAvailable {
			items = append(items, item("Fibre optique", "disponible", model.FlagOK))
		} else {
			items = append(items, item("Fibre optique", "non disponible", model.FlagWarn))
		}
	}
	if c.BestTechnology != "" {
		items = append(items, item("Meilleure technologie", c.BestTechnology, ""))
	}
	if len(c.Operators) > 0 {
		items = append(items, item("Opérateurs", strings.Join(c.Operators, ", "), ""))
	}
	return items, nil, len(items) > 0
}

func safety(p *model.HouseProfile) ([]model.SectionItem, []string, bool) {
	s := p.Safety
	if s == nil {
		return nil, nil, false
	}
	var items []model.SectionItem
	var notes []string
	for _, in := range s.Indicators {
		items = append(items, item(in.Category,
			fmt.Sprintf("%.1f ‰ (France %.1f ‰)", in.RateLocal, in.RateNational),
			levelFlag(in.LevelVsNational)))
	}
	if w := s.WebSearch; w != nil {
		if w.CrimeRate != "" {
			items = append(items, item("Délinquance perçue", w.CrimeRate, levelFlag(model.Level(w.CrimeRate))))
		}
		items = append(items, item("Score de sécurité", fmt.Sprintf("%.0f/100", w.SafetyScore), ""))
		if w.Commentary != "" {
			notes = append(notes, w.Commentary)
		}
	}
	if s.Period != "" && len(s.Indicators) > 0 {
		notes = append(notes, "Statistiques communales "+s.Period)
	}
	return items, notes, len(items) > 0
}

func pappers(p *model.HouseProfile) ([]model.SectionItem, []string, bool) {
	pp := p.Pappers
	if pp == nil {
		return nil, nil, false
	}
	var items []model.SectionItem
	if c := pp.Cadastre; c != nil {
		v := strings.TrimSpace(c.Section + " " + c.Number)
		if c.AreaM2 > 0 {
			v += fmt.Sprintf(" (%d m²)", c.AreaM2)
		}
		items = append(items, item("Parcelle", v, ""))
	}
	for _, o := range pp.Owners {
		flag := model.FlagOK
		if o.Type == model.OwnerLegal {
			flag = model.FlagWarn
		}
		items = append(items, item("Propriétaire", o.Name, flag))
	}
	if n := len(pp.Condominiums); n > 0 {
		items = append(items, item("Copropriétés", strconv.Itoa(n), model.FlagWarn))
	}
	if n := len(pp.Businesses); n > 0 {
		items = append(items, item("Fonds de commerce", strconv.Itoa(n), model.FlagWarn))
	}
	if n := len(pp.Permits); n > 0 {
		items = append(items, item("Permis de construire", strconv.Itoa(n), ""))
	}
	if n := len(pp.Transactions); n > 0 {
		items = append(items, item("Ventes de la parcelle", strconv.Itoa(n), ""))
	}
	return items, nil, len(items) > 0
}

func recommendations(p *model.HouseProfile) ([]model.SectionItem, []string, bool) {
	r := p.Recommendations
	if r == nil {
		return nil, nil, false
	}
	items := make([]model.SectionItem, 0, len(r.Items))
	for _, rec := range r.Items {
		flag := model.FlagWarn
		if rec.Priority == 1 {
			flag = model.FlagRisk
		}
		items = append(items, model.SectionItem{Label: rec.Title, Value: rec.Reason, Flag: flag})
	}
	var notes []string
	if r.Summary != "" {
		notes = []string{r.Summary}
	}
	return items, notes, true
}

func aiAnalysis(p *model.HouseProfile) ([]model.SectionItem, []string, bool) {
	a := p.AIAnalysis
	if a == nil {
		return nil, nil, false
	}
	items := []model.SectionItem{
		item("Score global", fmt.Sprintf("%.0f/100", a.Score), scoreFlag(a.Score)),
		item("Marché", fmt.Sprintf("%.0f/100", a.Market.Score), scoreFlag(a.Market.Score)),
		item("Quartier", fmt.Sprintf("%.0f/100", a.Neighborhood.Score), scoreFlag(a.Neighborhood.Score)),
		item("Risques", fmt.Sprintf("%.0f/100", a.Risk.Score), scoreFlag(a.Risk.Score)),
	}
	if a.Market.PriceM2Estimate > 0 {
		items = append(items, model.SectionItem{
			Label: "Prix estimé",
			Value: euroM2(a.Market.PriceM2Estimate),
			Hint:  a.Market.PriceSource,
		})
	}
	var notes []string
	if a.Summary != "" {
		notes = append(notes, a.Summary)
	}
	for _, s := range a.Strengths {
		notes = append(notes, "+ "+s)
	}
	for _, w := range a.Weaknesses {
		notes = append(notes, "- "+w)
	}
	return items, notes, true
}

func scoreFlag(score float64) model.Flag {
	switch {
	case score < 40:
		return model.FlagRisk
	case score < 60:
		return model.FlagWarn
	default:
		return model.FlagOK
	}
}

// euroM2 formats a price/m² with space-separated thousands.
func euroM2(v int) string {
	s := strconv.Itoa(v)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return b.String() + " €/m²"
}
