package synthesis

import (
	"math"

	"github.com/sells-group/house-report/internal/estimate"
	"github.com/sells-group/house-report/internal/model"
)

// Price sources recorded on the market analysis. Table estimates record
// the estimate.Method that answered.
const (
	SourceWebSearch = "web_search"
	SourceDVF1Y     = "dvf_1y"
	SourceDVF3Y     = "dvf_3y"
)

// PriceStrategy estimates the price/m² from one kind of evidence and names
// the source it used.
type PriceStrategy func(p *model.HouseProfile) (priceM2 int, source string, ok bool)

// PriceStrategies returns the estimation chain in priority order: the
// search-grounded price, the real DVF medians, then the lookup tables.
// The last strategy always yields a value.
func PriceStrategies(t *estimate.Tables) []PriceStrategy {
	th := t.Thresholds
	return []PriceStrategy{
		func(p *model.HouseProfile) (int, string, bool) {
			if p.Market == nil || p.Market.WebSearch == nil {
				return 0, "", false
			}
			v := int(math.Round(p.Market.WebSearch.PriceM2))
			return v, SourceWebSearch, th.PlausibleWeb(v)
		},
		func(p *model.HouseProfile) (int, string, bool) {
			s, ok := realDVF(p)
			return s.PriceM2Median1Y, SourceDVF1Y, ok && th.PlausibleTransaction(s.PriceM2Median1Y)
		},
		func(p *model.HouseProfile) (int, string, bool) {
			s, ok := realDVF(p)
			return s.PriceM2Median3Y, SourceDVF3Y, ok && th.PlausibleTransaction(s.PriceM2Median3Y)
		},
		func(p *model.HouseProfile) (int, string, bool) {
			v, method := t.Price(p.Location.Admin.Department, p.Location.Admin.Region)
			return v, string(method), true
		},
	}
}

// ResolvePrice returns the first estimate the strategies yield.
func ResolvePrice(p *model.HouseProfile, strategies []PriceStrategy) (int, string) {
	for _, s := range strategies {
		if v, source, ok := s(p); ok {
			return v, source
		}
	}
	return 0, ""
}

// realDVF returns the DVF summary when it comes from recorded sales.
func realDVF(p *model.HouseProfile) (model.DVFSummary, bool) {
	if p.Market == nil || p.Market.DVF == nil || p.Market.DVF.Summary.Estimated {
		return model.DVFSummary{}, false
	}
	return p.Market.DVF.Summary, true
}
