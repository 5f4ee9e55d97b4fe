// Package model defines the house profile document and the types shared by
// the aggregation pipeline, the report projector and the store.
package model

import (
	"encoding/json"
	"time"
)

// DefaultRadius is the search radius in meters used when a query omits one.
const DefaultRadius = 1000

// Level is a three-step qualitative rating used for hazards and crime.
type Level string

const (
	LevelLow     Level = "faible"
	LevelMedium  Level = "moyen"
	LevelHigh    Level = "élevé"
	LevelUnknown Level = "inconnu"
)

// Query is the original request. It is immutable once the pipeline starts.
type Query struct {
	Address  string `json:"address"`
	Radius   int    `json:"radius,omitempty"`
	Language string `json:"language,omitempty"`
}

// EffectiveRadius returns the query radius or DefaultRadius when unset.
func (q Query) EffectiveRadius() int {
	if q.Radius <= 0 {
		return DefaultRadius
	}
	return q.Radius
}

// GPS is a WGS84 coordinate.
type GPS struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Admin holds the administrative codes of a geocoded address.
type Admin struct {
	City       string `json:"city"`
	Postcode   string `json:"postcode"`
	Citycode   string `json:"citycode"`
	Department string `json:"department"`
	Region     string `json:"region,omitempty"`
}

// Location is the geocoding result. Adapters read it and never mutate it.
type Location struct {
	Label string `json:"label"`
	GPS   GPS    `json:"gps"`
	Admin Admin  `json:"admin"`
}

// HouseProfile is the root aggregate for one (address, radius) query.
// Every section other than Query and Location is optional; a nil section
// means the source did not answer.
type HouseProfile struct {
	ID              string           `json:"id,omitempty"`
	Query           Query            `json:"query"`
	Location        Location         `json:"location"`
	Risks           *Risks           `json:"risks,omitempty"`
	Energy          *Energy          `json:"energy,omitempty"`
	Market          *Market          `json:"market,omitempty"`
	Education       *Education       `json:"education,omitempty"`
	Amenities       *Amenities       `json:"amenities,omitempty"`
	Urbanism        *Urbanism        `json:"urbanism,omitempty"`
	AirQuality      *AirQuality      `json:"air_quality,omitempty"`
	Connectivity    *Connectivity    `json:"connectivity,omitempty"`
	Safety          *Safety          `json:"safety,omitempty"`
	Pappers         *Pappers         `json:"pappers,omitempty"`
	Recommendations *Recommendations `json:"recommendations,omitempty"`
	AIAnalysis      *AIAnalysis      `json:"ai_analysis,omitempty"`
	Meta            Meta             `json:"meta"`
}

// Risks holds hazard exposure: raw per-hazard payloads plus a normalized view.
type Risks struct {
	Raw        map[string]json.RawMessage `json:"raw,omitempty"`
	Normalized RiskSummary                `json:"normalized"`
}

// RiskSummary is the normalized projection of the risk registry.
type RiskSummary struct {
	FloodLevel   Level    `json:"flood_level"`
	SeismicLevel int      `json:"seismic_level"` // 0 (unknown) to 5
	RadonZone    int      `json:"radon_zone,omitempty"`
	Notes        []string `json:"notes,omitempty"`
}

// Energy wraps the energy-performance diagnostic.
type Energy struct {
	DPE *DPE `json:"dpe,omitempty"`
}

// DPE is the latest energy diagnostic found near the address.
type DPE struct {
	ID               string  `json:"id,omitempty"`
	ClassEnergy      string  `json:"class_energy"`
	ClassGES         string  `json:"class_ges,omitempty"`
	Surface          float64 `json:"surface,omitempty"`
	HousingType      string  `json:"housing_type,omitempty"`
	Date             string  `json:"date,omitempty"`
	Address          string  `json:"address,omitempty"`
	ConsumptionKWhM2 float64 `json:"consumption_kwh_m2,omitempty"`
}

// Market groups the transaction history and its optional enrichments.
type Market struct {
	DVF       *DVF          `json:"dvf,omitempty"`
	Melo      *Melo         `json:"melo,omitempty"`
	WebSearch *MarketSearch `json:"web_search,omitempty"`
}

// Transaction is one recorded sale.
type Transaction struct {
	Date      string  `json:"date"`
	Type      string  `json:"type,omitempty"`
	Nature    string  `json:"nature,omitempty"`
	Surface   float64 `json:"surface"`
	Price     float64 `json:"price"`
	PriceM2   int     `json:"price_m2"`
	Address   string  `json:"address,omitempty"`
	DistanceM int     `json:"distance_m,omitempty"`
}

// Trend labels for the DVF summary.
const (
	TrendUp     = "hausse"
	TrendDown   = "baisse"
	TrendStable = "stable"
)

// DVFSummary is derived in-process from the transaction list.
type DVFSummary struct {
	PriceM2Median1Y int    `json:"price_m2_median_1y,omitempty"`
	PriceM2Median3Y int    `json:"price_m2_median_3y,omitempty"`
	Count1Y         int    `json:"count_1y"`
	Count3Y         int    `json:"count_3y"`
	TrendLabel      string `json:"trend_label,omitempty"`
	// Estimated is true iff the summary comes from the location fallback
	// table rather than real transactions.
	Estimated bool `json:"estimated"`
}

// DVF is the public transaction history near the address.
type DVF struct {
	Transactions []Transaction `json:"transactions,omitempty"`
	Summary      DVFSummary    `json:"summary"`
}

// Listing is a live or recent comparable listing.
type Listing struct {
	Title        string  `json:"title,omitempty"`
	PropertyType string  `json:"property_type,omitempty"`
	Price        float64 `json:"price"`
	PriceM2      int     `json:"price_m2"`
	Surface      float64 `json:"surface,omitempty"`
	Rooms        int     `json:"rooms,omitempty"`
	DistanceM    int     `json:"distance_m"`
	EnergyClass  string  `json:"energy_class,omitempty"`
	URL          string  `json:"url,omitempty"`
	PublishedAt  string  `json:"published_at,omitempty"`
}

// MarketInsights summarizes the comparable listings.
type MarketInsights struct {
	AvgPriceM2 int `json:"avg_price_m2"`
	MinPriceM2 int `json:"min_price_m2"`
	MaxPriceM2 int `json:"max_price_m2"`
	Count      int `json:"count"`
}

// Melo holds comparable listings and insights.
type Melo struct {
	Listings   []Listing      `json:"listings,omitempty"`
	Insights   MarketInsights `json:"insights"`
	TotalItems int            `json:"total_items"`
}

// ComparableSale is a sale reported by the web-search market enrichment.
type ComparableSale struct {
	Address string  `json:"address,omitempty"`
	Price   float64 `json:"price,omitempty"`
	Surface float64 `json:"surface,omitempty"`
	Date    string  `json:"date,omitempty"`
}

// MarketSearch is the search-grounded market estimate.
type MarketSearch struct {
	PriceM2         float64          `json:"price_m2"`
	PriceM2Min      float64          `json:"price_m2_min,omitempty"`
	PriceM2Max      float64          `json:"price_m2_max,omitempty"`
	Trend           string           `json:"trend,omitempty"`
	TrendPercent    float64          `json:"trend_percent,omitempty"`
	ComparableSales []ComparableSale `json:"comparable_sales,omitempty"`
	Commentary      string           `json:"commentary,omitempty"`
	Sources         []string         `json:"sources,omitempty"`
}

// Education lists nearby schools.
type Education struct {
	Schools []School `json:"schools,omitempty"`
}

// School is a nearby school, optionally enriched with a place rating.
type School struct {
	UAI         string  `json:"uai,omitempty"`
	Name        string  `json:"name"`
	Kind        string  `json:"kind,omitempty"`
	Sector      string  `json:"sector,omitempty"`
	Address     string  `json:"address,omitempty"`
	Postcode    string  `json:"postcode,omitempty"`
	City        string  `json:"city,omitempty"`
	GPS         GPS     `json:"gps"`
	DistanceM   int     `json:"distance_m"`
	Rating      float64 `json:"rating,omitempty"`
	RatingCount int     `json:"rating_count,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	Website     string  `json:"website,omitempty"`
}

// POI is a nearby point of interest.
type POI struct {
	Name      string `json:"name"`
	Kind      string `json:"kind,omitempty"`
	DistanceM int    `json:"distance_m"`
	GPS       GPS    `json:"gps"`
}

// Amenities groups nearby points of interest by category.
type Amenities struct {
	Supermarkets []POI `json:"supermarkets,omitempty"`
	Transit      []POI `json:"transit,omitempty"`
	Parks        []POI `json:"parks,omitempty"`
}

// Zone is one urban-planning zone covering the address.
type Zone struct {
	Label       string `json:"label"`
	Type        string `json:"type,omitempty"`
	LongLabel   string `json:"long_label,omitempty"`
	Partition   string `json:"partition,omitempty"`
	DocumentURL string `json:"document_url,omitempty"`
}

// Urbanism holds zoning information.
type Urbanism struct {
	Zones  []Zone `json:"zones,omitempty"`
	Zoning string `json:"zoning,omitempty"`
}

// AirQuality holds current air-quality measurements.
type AirQuality struct {
	EuropeanAQI float64 `json:"european_aqi"`
	PM25        float64 `json:"pm2_5,omitempty"`
	PM10        float64 `json:"pm10,omitempty"`
	NO2         float64 `json:"no2,omitempty"`
	O3          float64 `json:"o3,omitempty"`
	Level       string  `json:"level"`
	MeasuredAt  string  `json:"measured_at,omitempty"`
}

// Connectivity holds internet access information.
type Connectivity struct {
	FiberAvailable  *bool    `json:"fiber_available,omitempty"`
	BestTechnology  string   `json:"best_technology,omitempty"`
	MaxDownloadMbps int      `json:"max_download_mbps,omitempty"`
	Operators       []string `json:"operators,omitempty"`
}

// SafetyIndicator is one crime category compared to the national rate.
type SafetyIndicator struct {
	Category        string  `json:"category"`
	Count           int     `json:"count,omitempty"`
	RateLocal       float64 `json:"rate_local"`
	RateNational    float64 `json:"rate_national"`
	LevelVsNational Level   `json:"level_vs_national"`
}

// SafetySearch is the search-grounded safety commentary.
type SafetySearch struct {
	CrimeRate       string   `json:"crime_rate,omitempty"`
	SafetyScore     float64  `json:"safety_score"`
	RecentIncidents []string `json:"recent_incidents,omitempty"`
	Commentary      string   `json:"commentary,omitempty"`
	Sources         []string `json:"sources,omitempty"`
}

// Safety holds commune-level crime statistics and the optional web-search
// enrichment.
type Safety struct {
	Scope      string            `json:"scope,omitempty"`
	Period     string            `json:"period,omitempty"`
	Indicators []SafetyIndicator `json:"indicators,omitempty"`
	WebSearch  *SafetySearch     `json:"web_search,omitempty"`
}

// AIAnalysis is the narrative synthesis produced last.
type AIAnalysis struct {
	Score           float64              `json:"score"`
	Summary         string               `json:"summary"`
	Market          MarketAnalysis       `json:"market"`
	Neighborhood    NeighborhoodAnalysis `json:"neighborhood"`
	Risk            RiskAnalysis         `json:"risk"`
	Strengths       []string             `json:"strengths,omitempty"`
	Weaknesses      []string             `json:"weaknesses,omitempty"`
	Recommendations []string             `json:"recommendations,omitempty"`
	Model           string               `json:"model,omitempty"`
}

// MarketAnalysis is the market part of the synthesis.
type MarketAnalysis struct {
	Score           float64 `json:"score"`
	PriceM2Estimate int     `json:"price_m2_estimate"`
	PriceSource     string  `json:"price_source,omitempty"`
	Trend           string  `json:"trend,omitempty"`
	Commentary      string  `json:"commentary,omitempty"`
}

// NeighborhoodAnalysis is the neighborhood part of the synthesis.
type NeighborhoodAnalysis struct {
	Score      float64  `json:"score"`
	Commentary string   `json:"commentary,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
}

// RiskAnalysis is the risk part of the synthesis.
type RiskAnalysis struct {
	Score      float64 `json:"score"`
	Level      string  `json:"level,omitempty"`
	Commentary string  `json:"commentary,omitempty"`
}

// Source records provenance for one fetched section.
type Source struct {
	Section   string    `json:"section"`
	URL       string    `json:"url"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Meta is provenance and timing for a profile.
type Meta struct {
	GeneratedAt  time.Time `json:"generated_at"`
	ProcessingMS int64     `json:"processing_ms"`
	Sources      []Source  `json:"sources,omitempty"`
	Warnings     []string  `json:"warnings,omitempty"`
}
