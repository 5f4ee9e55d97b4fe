package provider

import (
	"context"
	"math"
	"sort"
	"strconv"

	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/pkg/ssmsi"
)

const (
	ssmsiSource = "https://www.data.gouv.fr/fr/datasets/bases-statistiques-communale-departementale-et-regionale-de-la-delinquance-enregistree-par-la-police-et-la-gendarmerie-nationales/"
	safetyScope = "commune"
)

// Safety adapts the SSMSI commune crime statistics.
type Safety struct {
	client ssmsi.Client
	rt     *Runtime
}

// NewSafety wraps an SSMSI client.
func NewSafety(client ssmsi.Client, rt *Runtime) *Safety {
	return &Safety{client: client, rt: rt}
}

// Fetch compares the commune rates of the latest published year with the
// national rates of the same offence classes.
func (a *Safety) Fetch(ctx context.Context, t Target) Outcome[*model.Safety] {
	citycode := t.Location.Admin.Citycode
	if citycode == "" {
		return Absent[*model.Safety]("code commune inconnu")
	}

	local, err := call(ctx, a.rt, "ssmsi", "commune", func(ctx context.Context) ([]ssmsi.Row, error) {
		return a.client.Commune(ctx, citycode)
	})
	if err != nil {
		return Unavailable[*model.Safety]("ssmsi", err)
	}
	national, err := call(ctx, a.rt, "ssmsi", "national", func(ctx context.Context) ([]ssmsi.Row, error) {
		return a.client.National(ctx)
	})
	if err != nil {
		return Unavailable[*model.Safety]("ssmsi", err)
	}

	year, indicators := CompareRates(local, national, a.rt.tables().Thresholds.LevelVsNational)
	if len(indicators) == 0 {
		return Absent[*model.Safety]("aucune statistique publiée pour la commune %s", citycode)
	}
	return Ok(&model.Safety{
		Scope:      safetyScope,
		Period:     strconv.Itoa(year),
		Indicators: indicators,
	}, ssmsiSource)
}

// CompareRates keeps the commune rows of the latest year and grades each
// class against the national rate of the same year, or of the latest year
// the class was published nationally. Classes without a national rate are
// dropped.
func CompareRates(local, national []ssmsi.Row, grade func(local, national float64) model.Level) (int, []model.SafetyIndicator) {
	year := 0
	for _, r := range local {
		year = max(year, r.FullYear())
	}
	if year == 0 {
		return 0, nil
	}

	type key struct {
		class string
		year  int
	}
	nat := map[key]float64{}
	latest := map[string]int{}
	for _, r := range national {
		if r.RatePerK <= 0 {
			continue
		}
		y := r.FullYear()
		nat[key{r.Class, y}] = float64(r.RatePerK)
		if y > latest[r.Class] {
			latest[r.Class] = y
		}
	}

	var out []model.SafetyIndicator
	for _, r := range local {
		if r.FullYear() != year || r.Class == "" {
			continue
		}
		rate, ok := nat[key{r.Class, year}]
		if !ok {
			if y, found := latest[r.Class]; found {
				rate, ok = nat[key{r.Class, y}]
			}
		}
		if !ok {
			continue
		}
		out = append(out, model.SafetyIndicator{
			Category:        r.Class,
			Count:           int(math.Round(float64(r.Facts))),
			RateLocal:       float64(r.RatePerK),
			RateNational:    rate,
			LevelVsNational: grade(float64(r.RatePerK), rate),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return year, out
}
