// Package recommend derives advisory items from an assembled profile.
package recommend

import (
	"fmt"
	"strings"

	"github.com/sells-group/house-report/internal/model"
)

// MaxItems caps the number of recommendations.
const MaxItems = 5

const noFindings = "Aucun point de vigilance particulier n'a été relevé dans les données disponibles."

// rule fires when its predicate holds and produces one item.
type rule struct {
	id    string
	check func(p *model.HouseProfile) (reason string, ok bool)
	item  model.Recommendation
}

// rules are evaluated in order; each fires independently.
var rules = []rule{
	{
		id: "insulation",
		check: func(p *model.HouseProfile) (string, bool) {
			if p.Energy == nil || p.Energy.DPE == nil {
				return "", false
			}
			class := strings.ToUpper(p.Energy.DPE.ClassEnergy)
			switch class {
			case "D", "E", "F", "G":
				return fmt.Sprintf("Le DPE classe %s signale une performance énergétique médiocre.", class), true
			}
			return "", false
		},
		item: model.Recommendation{Title: "Améliorer l'isolation du logement", Priority: 1, RelatedSections: []string{"energy"}},
	},
	{
		id: "radon",
		check: func(p *model.HouseProfile) (string, bool) {
			if p.Risks == nil || p.Risks.Normalized.RadonZone < 2 {
				return "", false
			}
			return fmt.Sprintf("La commune est classée en zone radon %d.", p.Risks.Normalized.RadonZone), true
		},
		item: model.Recommendation{Title: "Faire mesurer le radon", Priority: 1, RelatedSections: []string{"risks"}},
	},
	{
		id: "flood",
		check: func(p *model.HouseProfile) (string, bool) {
			if p.Risks == nil || p.Risks.Normalized.FloodLevel != model.LevelHigh {
				return "", false
			}
			return "L'adresse est exposée à un risque d'inondation élevé.", true
		},
		item: model.Recommendation{Title: "Vérifier l'assurance inondation", Priority: 1, RelatedSections: []string{"risks"}},
	},
	{
		id: "zoning",
		check: func(p *model.HouseProfile) (string, bool) {
			if p.Urbanism == nil || strings.TrimSpace(p.Urbanism.Zoning) == "" {
				return "", false
			}
			return fmt.Sprintf("La parcelle relève de la zone %s du document d'urbanisme.", p.Urbanism.Zoning), true
		},
		item: model.Recommendation{Title: "Consulter le règlement d'urbanisme avant travaux", Priority: 2, RelatedSections: []string{"urbanism"}},
	},
	{
		id: "fiber",
		check: func(p *model.HouseProfile) (string, bool) {
			if p.Connectivity == nil || p.Connectivity.FiberAvailable == nil || *p.Connectivity.FiberAvailable {
				return "", false
			}
			return "La fibre n'est pas disponible à cette adresse.", true
		},
		item: model.Recommendation{Title: "Étudier les alternatives d'accès internet", Priority: 2, RelatedSections: []string{"connectivity"}},
	},
	{
		id: "legal_owner",
		check: func(p *model.HouseProfile) (string, bool) {
			if !p.Pappers.HasLegalOwner() {
				return "", false
			}
			return "Une personne morale figure parmi les propriétaires.", true
		},
		item: model.Recommendation{Title: "Vérifier le propriétaire personne morale", Priority: 2, RelatedSections: []string{"pappers"}},
	},
	{
		id: "condominium",
		check: func(p *model.HouseProfile) (string, bool) {
			if p.Pappers == nil || len(p.Pappers.Condominiums) == 0 {
				return "", false
			}
			return "Le bien dépend d'une copropriété immatriculée.", true
		},
		item: model.Recommendation{Title: "Lire le règlement de copropriété", Priority: 2, RelatedSections: []string{"pappers"}},
	},
	{
		id: "commercial_lease",
		check: func(p *model.HouseProfile) (string, bool) {
			if p.Pappers == nil || len(p.Pappers.Businesses) == 0 {
				return "", false
			}
			return "Un fonds de commerce est exploité dans l'immeuble.", true
		},
		item: model.Recommendation{Title: "Vérifier les contraintes du bail commercial", Priority: 2, RelatedSections: []string{"pappers"}},
	},
}

// Compute evaluates every rule against p. It reads p only and returns at
// most MaxItems items in rule order.
func Compute(p *model.HouseProfile) model.Recommendations {
	if p == nil {
		return model.Recommendations{Summary: noFindings}
	}

	var items []model.Recommendation
	var reasons []string
	for _, r := range rules {
		reason, ok := r.check(p)
		if !ok {
			continue
		}
		reasons = append(reasons, reason)
		if len(items) < MaxItems {
			item := r.item
			item.Reason = reason
			item.RelatedSections = append([]string(nil), r.item.RelatedSections...)
			items = append(items, item)
		}
	}

	if len(items) == 0 {
		return model.Recommendations{Summary: noFindings}
	}
	return model.Recommendations{
		Summary: strings.Join(reasons, " "),
		Items:   items,
	}
}
