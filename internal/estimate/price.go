// Package estimate holds the business heuristics used when real data is
// missing: the price-per-m² lookup tables and the comparison thresholds.
// Every value can be overridden from a YAML file.
package estimate

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/house-report/internal/model"
)

// Method names which table level produced a fallback price.
type Method string

const (
	MethodDepartment Method = "department_table"
	MethodRegion     Method = "region_table"
	MethodDefault    Method = "national_default"
)

// Thresholds are the tunable comparison constants.
type Thresholds struct {
	// Local rate below SafetyLow × national is "faible", above SafetyHigh ×
	// national is "élevé".
	SafetyLow  float64 `yaml:"safety_low"`
	SafetyHigh float64 `yaml:"safety_high"`
	// Newest-half median above TrendUp × oldest is "hausse", below
	// TrendDown × oldest is "baisse".
	TrendUp   float64 `yaml:"trend_up"`
	TrendDown float64 `yaml:"trend_down"`
	// Transaction price/m² outside (PriceM2Min, PriceM2Max) is a data error.
	PriceM2Min int `yaml:"price_m2_min"`
	PriceM2Max int `yaml:"price_m2_max"`
	// Search-grounded price/m² must fall inside [WebPriceMin, WebPriceMax].
	WebPriceMin int `yaml:"web_price_min"`
	WebPriceMax int `yaml:"web_price_max"`
}

// Tables are the fallback price/m² tables.
type Tables struct {
	Departments map[string]int `yaml:"departments"`
	Regions     map[string]int `yaml:"regions"`
	Default     int            `yaml:"default"`
	Thresholds  Thresholds     `yaml:"thresholds"`
}

// DefaultThresholds returns the built-in constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SafetyLow:   0.75,
		SafetyHigh:  1.25,
		TrendUp:     1.05,
		TrendDown:   0.95,
		PriceM2Min:  100,
		PriceM2Max:  50000,
		WebPriceMin: 500,
		WebPriceMax: 50000,
	}
}

// Default returns the built-in tables.
func Default() *Tables {
	return &Tables{
		Departments: map[string]int{
			"75": 10000, // Paris
			"92": 5000,  // Hauts-de-Seine
			"93": 3500,  // Seine-Saint-Denis
			"94": 3500,  // Val-de-Marne
			"06": 5500,  // Alpes-Maritimes
			"74": 5000,  // Haute-Savoie
			"69": 4500,  // Rhône
			"33": 4500,  // Gironde
			"78": 4500,  // Yvelines
			"64": 4000,  // Pyrénées-Atlantiques
			"44": 3800,  // Loire-Atlantique
			"34": 3800,  // Hérault
			"13": 3500,  // Bouches-du-Rhône
			"31": 3500,  // Haute-Garonne
			"67": 3500,  // Bas-Rhin
			"35": 3500,  // Ille-et-Vilaine
			"59": 3500,  // Nord
		},
		Regions: map[string]int{
			"Île-de-France":              5500,
			"Provence-Alpes-Côte d'Azur": 4000,
			"Corse":                      3800,
			"Auvergne-Rhône-Alpes":       3000,
			"Pays de la Loire":           2800,
			"Nouvelle-Aquitaine":         2700,
			"Occitanie":                  2700,
			"Bretagne":                   2700,
			"Hauts-de-France":            2200,
			"Normandie":                  2200,
			"Grand Est":                  2000,
			"Bourgogne-Franche-Comté":    1900,
			"Centre-Val de Loire":        1900,
		},
		Default:    2500,
		Thresholds: DefaultThresholds(),
	}
}

// Load returns the built-in tables overlaid with the YAML file at path.
// Keys present in the file replace the built-in entry; absent keys keep it.
// An empty path returns the defaults.
func Load(path string) (*Tables, error) {
	t := Default()
	if path == "" {
		return t, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "estimate: read %s", path)
	}

	var o Tables
	if err := yaml.Unmarshal(b, &o); err != nil {
		return nil, eris.Wrapf(err, "estimate: parse %s", path)
	}

	for k, v := range o.Departments {
		t.Departments[k] = v
	}
	for k, v := range o.Regions {
		t.Regions[k] = v
	}
	if o.Default > 0 {
		t.Default = o.Default
	}
	t.Thresholds = mergeThresholds(t.Thresholds, o.Thresholds)

	zap.L().Info("estimate: loaded table overrides",
		zap.String("path", path),
		zap.Int("departments", len(o.Departments)),
		zap.Int("regions", len(o.Regions)),
	)
	return t, nil
}

func mergeThresholds(base, o Thresholds) Thresholds {
	if o.SafetyLow > 0 {
		base.SafetyLow = o.SafetyLow
	}
	if o.SafetyHigh > 0 {
		base.SafetyHigh = o.SafetyHigh
	}
	if o.TrendUp > 0 {
		base.TrendUp = o.TrendUp
	}
	if o.TrendDown > 0 {
		base.TrendDown = o.TrendDown
	}
	if o.PriceM2Min > 0 {
		base.PriceM2Min = o.PriceM2Min
	}
	if o.PriceM2Max > 0 {
		base.PriceM2Max = o.PriceM2Max
	}
	if o.WebPriceMin > 0 {
		base.WebPriceMin = o.WebPriceMin
	}
	if o.WebPriceMax > 0 {
		base.WebPriceMax = o.WebPriceMax
	}
	return base
}

// DepartmentPrice returns the department price/m² and the method used:
// the department entry when present, otherwise the national default.
func (t *Tables) DepartmentPrice(department string) (int, Method) {
	if p, ok := t.Departments[department]; ok {
		return p, MethodDepartment
	}
	return t.Default, MethodDefault
}

// Price tries the department, then the region, then the national default.
func (t *Tables) Price(department, region string) (int, Method) {
	if p, ok := t.Departments[department]; ok {
		return p, MethodDepartment
	}
	if p, ok := t.Regions[strings.TrimSpace(region)]; ok {
		return p, MethodRegion
	}
	return t.Default, MethodDefault
}

// LevelVsNational classifies a local rate against the national one.
func (th Thresholds) LevelVsNational(local, national float64) model.Level {
	if national <= 0 {
		return model.LevelUnknown
	}
	switch {
	case local < th.SafetyLow*national:
		return model.LevelLow
	case local > th.SafetyHigh*national:
		return model.LevelHigh
	default:
		return model.LevelMedium
	}
}

// Trend labels the move from the oldest-half median to the newest-half one.
func (th Thresholds) Trend(oldest, newest float64) string {
	switch {
	case oldest <= 0:
		return model.TrendStable
	case newest > th.TrendUp*oldest:
		return model.TrendUp
	case newest < th.TrendDown*oldest:
		return model.TrendDown
	default:
		return model.TrendStable
	}
}

// PlausibleTransaction reports whether a recorded price/m² is usable.
func (th Thresholds) PlausibleTransaction(priceM2 int) bool {
	return priceM2 > th.PriceM2Min && priceM2 < th.PriceM2Max
}

// PlausibleWeb reports whether a search-grounded price/m² is usable.
func (th Thresholds) PlausibleWeb(priceM2 int) bool {
	return priceM2 >= th.WebPriceMin && priceM2 <= th.WebPriceMax
}
