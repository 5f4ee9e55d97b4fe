package provider

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/sells-group/house-report/internal/estimate"
	"github.com/sells-group/house-report/internal/geo"
	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/pkg/dvf"
)

const (
	dvfSource = "https://app.dvf.etalab.gouv.fr"

	// maxTransactions is how many of the most recent sales the profile keeps.
	maxTransactions = 20
	dvfDateLayout   = "2006-01-02"
)

// Transactions adapts the DVF sales history and derives its summary.
type Transactions struct {
	client dvf.Client
	rt     *Runtime
}

// NewTransactions wraps a DVF client.
func NewTransactions(client dvf.Client, rt *Runtime) *Transactions {
	return &Transactions{client: client, rt: rt}
}

// Fetch lists the sales around the address. When none survive filtering
// the summary is taken from the department table and marked estimated.
func (a *Transactions) Fetch(ctx context.Context, t Target) Outcome[*model.DVF] {
	radius := t.Radius()
	rows, err := call(ctx, a.rt, "dvf", "mutations", func(ctx context.Context) ([]dvf.Mutation, error) {
		return a.client.Mutations(ctx, t.Location.GPS.Lat, t.Location.GPS.Lon, radius)
	})
	if err != nil {
		return Unavailable[*model.DVF]("dvf", err)
	}

	txs := normalizeMutations(rows, t.Location.GPS, radius)
	tables := a.rt.tables()
	if len(txs) == 0 {
		return Ok(&model.DVF{Summary: fallbackSummary(tables, t.Location.Admin.Department)}, dvfSource)
	}

	out := &model.DVF{Summary: Summarize(txs, a.rt.now(), tables.Thresholds)}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date > txs[j].Date })
	if len(txs) > maxTransactions {
		txs = txs[:maxTransactions]
	}
	out.Transactions = txs
	return Ok(out, dvfSource)
}

// normalizeMutations drops invalid rows and rows located beyond radius, and
// computes the per-sale price/m².
func normalizeMutations(rows []dvf.Mutation, center model.GPS, radius int) []model.Transaction {
	var out []model.Transaction
	for _, m := range rows {
		if !m.Valid() {
			continue
		}
		if _, err := time.Parse(dvfDateLayout, m.Date); err != nil {
			continue
		}
		tx := model.Transaction{
			Date:    m.Date,
			Type:    m.Type,
			Nature:  m.Nature,
			Surface: float64(m.Surface),
			Price:   float64(m.Price),
			PriceM2: int(math.Round(float64(m.Price) / float64(m.Surface))),
			Address: m.Address(),
		}
		if m.HasPosition() {
			tx.DistanceM = geo.Haversine(center, model.GPS{Lat: float64(m.Lat), Lon: float64(m.Lon)})
			if tx.DistanceM > radius {
				continue
			}
		}
		out = append(out, tx)
	}
	return out
}

// Summarize derives the 1y/3y medians and the 3y trend relative to now.
// Prices outside the plausible bounds are left out of every median.
func Summarize(txs []model.Transaction, now time.Time, th estimate.Thresholds) model.DVFSummary {
	oneYear := now.AddDate(-1, 0, 0)
	threeYears := now.AddDate(-3, 0, 0)

	type dated struct {
		at      time.Time
		priceM2 int
	}
	var last1y, last3y []int
	var window []dated
	var s model.DVFSummary
	for _, tx := range txs {
		at, err := time.Parse(dvfDateLayout, tx.Date)
		if err != nil || at.After(now) || at.Before(threeYears) {
			continue
		}
		s.Count3Y++
		if !at.Before(oneYear) {
			s.Count1Y++
		}
		if !th.PlausibleTransaction(tx.PriceM2) {
			continue
		}
		last3y = append(last3y, tx.PriceM2)
		window = append(window, dated{at: at, priceM2: tx.PriceM2})
		if !at.Before(oneYear) {
			last1y = append(last1y, tx.PriceM2)
		}
	}

	s.PriceM2Median1Y = median(last1y)
	s.PriceM2Median3Y = median(last3y)

	sort.SliceStable(window, func(i, j int) bool { return window[i].at.Before(window[j].at) })
	prices := make([]int, len(window))
	for i, d := range window {
		prices[i] = d.priceM2
	}
	half := len(prices) / 2
	if half == 0 {
		s.TrendLabel = model.TrendStable
	} else {
		s.TrendLabel = th.Trend(float64(median(prices[:half])), float64(median(prices[half:])))
	}
	return s
}

func fallbackSummary(tables *estimate.Tables, department string) model.DVFSummary {
	price, _ := tables.DepartmentPrice(department)
	return model.DVFSummary{
		PriceM2Median1Y: price,
		PriceM2Median3Y: price,
		TrendLabel:      model.TrendStable,
		Estimated:       true,
	}
}

// median returns the rounded median of values, or 0 when empty.
func median(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return int(math.Round(float64(sorted[mid-1]+sorted[mid]) / 2))
}
