package provider

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/house-report/internal/geo"
	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/pkg/education"
	"github.com/sells-group/house-report/pkg/google"
)

const (
	educationSource = "https://data.education.gouv.fr/explore/dataset/fr-en-annuaire-education"

	// matchRadius accepts a rating candidate on proximity alone.
	matchRadius = 500
	minWordLen  = 4
)

// SchoolLimits bounds the directory query and the rating enrichment.
type SchoolLimits struct {
	Rows        int
	EnrichLimit int
	Concurrency int
	// MatchRadius is the search radius of each rating lookup.
	MatchRadius int
}

// DefaultSchoolLimits returns the stock limits.
func DefaultSchoolLimits() SchoolLimits {
	return SchoolLimits{Rows: 30, EnrichLimit: 10, Concurrency: 10, MatchRadius: matchRadius}
}

// Schools adapts the national school directory, optionally enriched with
// place ratings.
type Schools struct {
	client education.Client
	places google.Client
	limits SchoolLimits
	rt     *Runtime
}

// NewSchools wraps a directory client. places may be nil to skip rating
// enrichment.
func NewSchools(client education.Client, places google.Client, rt *Runtime) *Schools {
	return &Schools{client: client, places: places, limits: DefaultSchoolLimits(), rt: rt}
}

// WithLimits replaces the limits; non-positive values keep the default.
func (a *Schools) WithLimits(l SchoolLimits) *Schools {
	d := DefaultSchoolLimits()
	a.limits = SchoolLimits{
		Rows:        positiveOr(l.Rows, d.Rows),
		EnrichLimit: positiveOr(l.EnrichLimit, d.EnrichLimit),
		Concurrency: positiveOr(l.Concurrency, d.Concurrency),
		MatchRadius: positiveOr(l.MatchRadius, d.MatchRadius),
	}
	return a
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// Fetch lists schools within the query radius, closest first.
func (a *Schools) Fetch(ctx context.Context, t Target) Outcome[*model.Education] {
	radius := t.Radius()
	center := t.Location.GPS
	records, err := call(ctx, a.rt, "education", "nearby", func(ctx context.Context) ([]education.Record, error) {
		return a.client.Nearby(ctx, center.Lat, center.Lon, radius, a.limits.Rows)
	})
	if err != nil {
		return Unavailable[*model.Education]("education", err)
	}

	var schools []model.School
	for _, r := range records {
		if !r.Valid() {
			continue
		}
		gps := model.GPS{Lat: r.Lat(), Lon: r.Lon()}
		d := geo.Haversine(center, gps)
		if d > radius {
			continue
		}
		schools = append(schools, model.School{
			UAI:       r.Fields.UAI,
			Name:      r.DisplayName(),
			Kind:      r.Fields.Kind,
			Sector:    r.Fields.Sector,
			Address:   r.Fields.Address,
			Postcode:  r.Fields.Postcode,
			City:      r.Commune(),
			GPS:       gps,
			DistanceM: d,
			Phone:     r.Fields.Phone,
			Website:   r.Fields.Website,
		})
	}
	if len(schools) == 0 {
		return Absent[*model.Education]("aucun établissement à moins de %d m", radius)
	}
	schools = geo.NearestFirst(schools, func(s model.School) int { return s.DistanceM }, 0)

	if a.places != nil {
		a.enrich(ctx, schools)
	}
	return Ok(&model.Education{Schools: schools}, educationSource)
}

// enrich merges place ratings into the first schools. Lookups run
// concurrently and every failure leaves the school untouched.
func (a *Schools) enrich(ctx context.Context, schools []model.School) {
	n := min(len(schools), a.limits.EnrichLimit)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limits.Concurrency)
	for i := range n {
		g.Go(func() error {
			s := &schools[i]
			req := google.NearRequest(s.Name+" "+s.City, s.GPS.Lat, s.GPS.Lon, float64(a.limits.MatchRadius))
			resp, err := call(gctx, a.rt, "google_places", "text_search", func(ctx context.Context) (*google.TextSearchResponse, error) {
				return a.places.TextSearch(ctx, req)
			})
			if err != nil {
				zap.L().Debug("schools: rating lookup failed", zap.String("school", s.Name), zap.Error(err))
				return nil
			}
			if place, ok := BestPlace(*s, resp.Places); ok {
				s.Rating = place.Rating
				s.RatingCount = place.UserRatingCount
				if place.Phone != "" {
					s.Phone = place.Phone
				}
				if place.WebsiteURI != "" {
					s.Website = place.WebsiteURI
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

// BestPlace picks the highest scoring candidate for a school and accepts it
// only when it lies within matchRadius or the names contain one another.
func BestPlace(s model.School, candidates []google.Place) (google.Place, bool) {
	schoolName := fold(s.Name)
	words := significantWords(schoolName)

	best, bestScore, found := google.Place{}, 0, false
	for _, c := range candidates {
		name := fold(c.DisplayName.Text)
		dist := -1
		if c.Location != nil {
			dist = geo.Haversine(s.GPS, model.GPS{Lat: c.Location.Latitude, Lon: c.Location.Longitude})
		}

		substring := name != "" && schoolName != "" &&
			(strings.Contains(name, schoolName) || strings.Contains(schoolName, name))
		if !substring && (dist < 0 || dist >= matchRadius) {
			continue
		}

		score := matchScore(c, name, words, dist)
		if !found || score > bestScore {
			best, bestScore, found = c, score, true
		}
	}
	return best, found
}

// matchScore is 1000 for a rated candidate, plus ten per character of every
// significant school word found in the candidate name, minus a tenth of the
// distance in meters.
func matchScore(c google.Place, foldedName string, words []string, dist int) int {
	score := 0
	if c.Rating > 0 {
		score += 1000
	}
	for _, w := range words {
		if strings.Contains(foldedName, w) {
			score += 10 * len([]rune(w))
		}
	}
	if dist > 0 {
		score -= dist / 10
	}
	return score
}

func significantWords(s string) []string {
	var out []string
	for _, w := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(w)) >= minWordLen {
			out = append(out, w)
		}
	}
	return out
}

// fold lowercases s and strips diacritics.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
