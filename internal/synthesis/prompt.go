package synthesis

import (
	"fmt"
	"strings"

	"github.com/sells-group/house-report/internal/model"
)

// NotAvailable is written in place of every missing value.
const NotAvailable = "Non disponible"

const systemPrompt = "Tu es un expert immobilier français. Tu analyses des données publiques sur un bien et tu réponds uniquement par un objet JSON valide respectant le schéma demandé."

const schema = `{
  "score": nombre de 0 à 100,
  "summary": texte,
  "market": {"score": nombre de 0 à 100, "price_m2_estimate": nombre, "trend": "hausse" | "baisse" | "stable", "commentary": texte},
  "neighborhood": {"score": nombre de 0 à 100, "commentary": texte, "highlights": [texte]},
  "risk": {"score": nombre de 0 à 100, "level": "faible" | "moyen" | "élevé", "commentary": texte},
  "strengths": [texte],
  "weaknesses": [texte],
  "recommendations": [texte]
}`

// BuildPrompt renders every known field of p, with NotAvailable for the
// missing ones, followed by the answer schema.
func BuildPrompt(p *model.HouseProfile) string {
	var b strings.Builder

	lang := p.Query.Language
	if lang == "" {
		lang = "fr"
	}
	fmt.Fprintf(&b, "Analyse ce bien immobilier et réponds en langue %q.\n\n", lang)

	b.WriteString("## Localisation\n")
	fmt.Fprintf(&b, "- Adresse: %s\n", orNA(p.Location.Label))
	fmt.Fprintf(&b, "- Commune: %s (%s), département %s, région %s\n",
		orNA(p.Location.Admin.City), orNA(p.Location.Admin.Postcode),
		orNA(p.Location.Admin.Department), orNA(p.Location.Admin.Region))
	fmt.Fprintf(&b, "- Rayon d'analyse: %d m\n\n", p.Query.EffectiveRadius())

	writeEnergy(&b, p.Energy)
	writeMarket(&b, p.Market)
	writeRisks(&b, p.Risks)
	writeNeighborhood(&b, p)
	writeSafety(&b, p.Safety)
	writePappers(&b, p.Pappers)

	b.WriteString("## Format de réponse\n")
	b.WriteString("Réponds uniquement avec un objet JSON de cette forme:\n")
	b.WriteString(schema)
	b.WriteString("\n")
	return b.String()
}

func writeEnergy(b *strings.Builder, e *model.Energy) {
	b.WriteString("## Énergie\n")
	if e == nil || e.DPE == nil {
		fmt.Fprintf(b, "- DPE: %s\n\n", NotAvailable)
		return
	}
	d := e.DPE
	fmt.Fprintf(b, "- DPE: classe énergie %s, classe GES %s, surface %s, établi le %s\n\n",
		orNA(d.ClassEnergy), orNA(d.ClassGES), floatOrNA(d.Surface, "m²"), orNA(d.Date))
}

func writeMarket(b *strings.Builder, m *model.Market) {
	b.WriteString("## Marché\n")
	if m == nil || m.DVF == nil {
		fmt.Fprintf(b, "- Transactions DVF: %s\n", NotAvailable)
	} else {
		s := m.DVF.Summary
		fmt.Fprintf(b, "- Prix médian DVF 1 an: %s (%d ventes)\n", intOrNA(s.PriceM2Median1Y, "€/m²"), s.Count1Y)
		fmt.Fprintf(b, "- Prix médian DVF 3 ans: %s (%d ventes)\n", intOrNA(s.PriceM2Median3Y, "€/m²"), s.Count3Y)
		fmt.Fprintf(b, "- Tendance DVF: %s\n", orNA(s.TrendLabel))
		if s.Estimated {
			b.WriteString("- ATTENTION: aucune vente réelle trouvée, le prix DVF est une estimation issue d'une table de référence. Ne présente pas ce chiffre comme une mesure précise.\n")
		} else {
			b.WriteString("- Prix DVF estimé: non, issu de ventes enregistrées\n")
		}
	}
	if m == nil || m.Melo == nil {
		fmt.Fprintf(b, "- Annonces comparables: %s\n", NotAvailable)
	} else {
		in := m.Melo.Insights
		fmt.Fprintf(b, "- Annonces comparables: %d, prix moyen %d €/m² (de %d à %d)\n", in.Count, in.AvgPriceM2, in.MinPriceM2, in.MaxPriceM2)
	}
	if m == nil || m.WebSearch == nil {
		fmt.Fprintf(b, "- Recherche web marché: %s\n\n", NotAvailable)
		return
	}
	w := m.WebSearch
	fmt.Fprintf(b, "- Recherche web marché: %s (fourchette %s à %s), tendance %s\n",
		floatOrNA(w.PriceM2, "€/m²"), floatOrNA(w.PriceM2Min, ""), floatOrNA(w.PriceM2Max, ""), orNA(w.Trend))
	if w.Commentary != "" {
		fmt.Fprintf(b, "- Commentaire web: %s\n", w.Commentary)
	}
	b.WriteString("\n")
}

func writeRisks(b *strings.Builder, r *model.Risks) {
	b.WriteString("## Risques\n")
	if r == nil {
		fmt.Fprintf(b, "- Risques naturels et technologiques: %s\n\n", NotAvailable)
		return
	}
	n := r.Normalized
	fmt.Fprintf(b, "- Inondation: %s\n", orNA(string(n.FloodLevel)))
	fmt.Fprintf(b, "- Zone sismique: %s\n", intOrNA(n.SeismicLevel, "/5"))
	fmt.Fprintf(b, "- Potentiel radon: %s\n", intOrNA(n.RadonZone, "/3"))
	fmt.Fprintf(b, "- Risques recensés: %s\n\n", listOrNA(n.Notes))
}

func writeNeighborhood(b *strings.Builder, p *model.HouseProfile) {
	b.WriteString("## Quartier\n")
	if p.Education == nil {
		fmt.Fprintf(b, "- Écoles: %s\n", NotAvailable)
	} else {
		names := make([]string, 0, 5)
		for i, s := range p.Education.Schools {
			if i == 5 {
				break
			}
			names = append(names, fmt.Sprintf("%s (%d m)", s.Name, s.DistanceM))
		}
		fmt.Fprintf(b, "- Écoles (%d): %s\n", len(p.Education.Schools), strings.Join(names, ", "))
	}
	if p.Amenities == nil {
		fmt.Fprintf(b, "- Commerces et transports: %s\n", NotAvailable)
	} else {
		a := p.Amenities
		fmt.Fprintf(b, "- Supermarchés: %s\n", poisOrNA(a.Supermarkets))
		fmt.Fprintf(b, "- Transports: %s\n", poisOrNA(a.Transit))
		fmt.Fprintf(b, "- Parcs: %s\n", poisOrNA(a.Parks))
	}
	if p.AirQuality == nil {
		fmt.Fprintf(b, "- Qualité de l'air: %s\n", NotAvailable)
	} else {
		fmt.Fprintf(b, "- Qualité de l'air: indice européen %.0f (%s)\n", p.AirQuality.EuropeanAQI, p.AirQuality.Level)
	}
	if p.Connectivity == nil || p.Connectivity.FiberAvailable == nil {
		fmt.Fprintf(b, "- Fibre: %s\n", NotAvailable)
	} else {
		fmt.Fprintf(b, "- Fibre: %s, meilleure technologie %s\n", yesNo(*p.Connectivity.FiberAvailable), orNA(p.Connectivity.BestTechnology))
	}
	if p.Urbanism == nil {
		fmt.Fprintf(b, "- Zonage: %s\n\n", NotAvailable)
	} else {
		fmt.Fprintf(b, "- Zonage: %s\n\n", orNA(p.Urbanism.Zoning))
	}
}

func writeSafety(b *strings.Builder, s *model.Safety) {
	b.WriteString("## Sécurité\n")
	if s == nil || len(s.Indicators) == 0 {
		fmt.Fprintf(b, "- Statistiques communales: %s\n", NotAvailable)
	} else {
		fmt.Fprintf(b, "- Statistiques communales %s:\n", s.Period)
		for _, in := range s.Indicators {
			fmt.Fprintf(b, "  - %s: %.1f ‰ contre %.1f ‰ en France (%s)\n", in.Category, in.RateLocal, in.RateNational, in.LevelVsNational)
		}
	}
	if s == nil || s.WebSearch == nil {
		fmt.Fprintf(b, "- Recherche web sécurité: %s\n\n", NotAvailable)
		return
	}
	fmt.Fprintf(b, "- Recherche web sécurité: délinquance %s, score %.0f/100. %s\n\n",
		orNA(s.WebSearch.CrimeRate), s.WebSearch.SafetyScore, s.WebSearch.Commentary)
}

func writePappers(b *strings.Builder, p *model.Pappers) {
	b.WriteString("## Cadastre et propriété\n")
	if p == nil {
		fmt.Fprintf(b, "- Dossier cadastral: %s\n\n", NotAvailable)
		return
	}
	if p.Cadastre != nil {
		fmt.Fprintf(b, "- Parcelle %s %s, %s\n", p.Cadastre.Section, p.Cadastre.Number, intOrNA(p.Cadastre.AreaM2, "m²"))
	}
	fmt.Fprintf(b, "- Propriétaire personne morale: %s\n", yesNo(p.HasLegalOwner()))
	fmt.Fprintf(b, "- Copropriété: %s\n", yesNo(len(p.Condominiums) > 0))
	fmt.Fprintf(b, "- Commerces dans l'immeuble: %d\n", len(p.Businesses))
	fmt.Fprintf(b, "- Permis de construire: %d\n\n", len(p.Permits))
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}

func intOrNA(v int, unit string) string {
	if v <= 0 {
		return NotAvailable
	}
	return strings.TrimSpace(fmt.Sprintf("%d %s", v, unit))
}

func floatOrNA(v float64, unit string) string {
	if v <= 0 {
		return NotAvailable
	}
	return strings.TrimSpace(fmt.Sprintf("%.0f %s", v, unit))
}

func listOrNA(items []string) string {
	if len(items) == 0 {
		return NotAvailable
	}
	return strings.Join(items, ", ")
}

func poisOrNA(pois []model.POI) string {
	if len(pois) == 0 {
		return NotAvailable
	}
	parts := make([]string, len(pois))
	for i, p := range pois {
		parts[i] = fmt.Sprintf("%s (%d m)", p.Name, p.DistanceM)
	}
	return strings.Join(parts, ", ")
}

func yesNo(b bool) string {
	if b {
		return "oui"
	}
	return "non"
}
