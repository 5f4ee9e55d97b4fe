package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/house-report/internal/fetcher"
	"github.com/sells-group/house-report/internal/llmjson"
	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/pkg/gemini"
	"github.com/sells-group/house-report/pkg/perplexity"
)

// SearchResult is a search-grounded model answer and the pages it cites.
type SearchResult struct {
	Text    string
	Sources []string
}

// Searcher asks a search-grounded model a question.
type Searcher interface {
	Search(ctx context.Context, prompt string) (*SearchResult, error)
	Name() string
}

type geminiSearcher struct {
	client gemini.Client
}

// NewGeminiSearcher grounds prompts with the Gemini Google Search tool.
func NewGeminiSearcher(client gemini.Client) Searcher {
	return &geminiSearcher{client: client}
}

func (s *geminiSearcher) Name() string { return "gemini" }

func (s *geminiSearcher) Search(ctx context.Context, prompt string) (*SearchResult, error) {
	resp, err := s.client.Generate(ctx, gemini.GenerateRequest{
		System:   searchSystemPrompt,
		Prompt:   prompt,
		Grounded: true,
	})
	if err != nil {
		return nil, err
	}
	return &SearchResult{Text: resp.Text, Sources: resp.Sources}, nil
}

type perplexitySearcher struct {
	client perplexity.Client
}

// NewPerplexitySearcher answers prompts with Perplexity online models.
func NewPerplexitySearcher(client perplexity.Client) Searcher {
	return &perplexitySearcher{client: client}
}

func (s *perplexitySearcher) Name() string { return "perplexity" }

func (s *perplexitySearcher) Search(ctx context.Context, prompt string) (*SearchResult, error) {
	resp, err := s.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: searchSystemPrompt},
			{Role: "user", Content: prompt},
		},
		SearchRecencyFilter: "year",
	})
	if err != nil {
		return nil, err
	}
	return &SearchResult{Text: resp.Text(), Sources: resp.Citations}, nil
}

const searchSystemPrompt = "Tu es un analyste immobilier français. Tu réponds uniquement par un objet JSON valide, sans texte autour."

// marketAnswer is the JSON object the market prompt asks for.
type marketAnswer struct {
	PriceM2    fetcher.Float `json:"prix_m2_moyen"`
	PriceM2Min fetcher.Float `json:"prix_m2_min"`
	PriceM2Max fetcher.Float `json:"prix_m2_max"`
	Trend      string        `json:"tendance"`
	TrendPct   fetcher.Float `json:"evolution_pct"`
	Sales      []struct {
		Address string        `json:"adresse"`
		Price   fetcher.Float `json:"prix"`
		Surface fetcher.Float `json:"surface"`
		Date    string        `json:"date"`
	} `json:"ventes_comparables"`
	Commentary string   `json:"commentaire"`
	Sources    []string `json:"sources"`
}

// safetyAnswer is the JSON object the safety prompt asks for.
type safetyAnswer struct {
	CrimeRate   string        `json:"taux_criminalite"`
	SafetyScore fetcher.Float `json:"score_securite"`
	Incidents   []string      `json:"incidents_recents"`
	Commentary  string        `json:"commentaire"`
	Sources     []string      `json:"sources"`
}

// MarketSearch asks a search-grounded model for the local price/m².
type MarketSearch struct {
	search Searcher
	rt     *Runtime
}

// NewMarketSearch wraps a searcher. A nil searcher disables the enrichment.
func NewMarketSearch(search Searcher, rt *Runtime) *MarketSearch {
	return &MarketSearch{search: search, rt: rt}
}

// Fetch returns the market estimate. Any transport or parse failure is
// absent.
func (a *MarketSearch) Fetch(ctx context.Context, t Target) Outcome[*model.MarketSearch] {
	if a.search == nil {
		return Absent[*model.MarketSearch]("recherche web désactivée")
	}
	ans, sources, err := ask[marketAnswer](ctx, a.rt, a.search, "market", MarketPrompt(t.Location, 0))
	if err != nil {
		return Absent[*model.MarketSearch]("recherche marché indisponible: %v", err)
	}
	if ans.PriceM2 <= 0 {
		return Absent[*model.MarketSearch]("recherche marché sans prix au m²")
	}

	out := &model.MarketSearch{
		PriceM2:      float64(ans.PriceM2),
		PriceM2Min:   float64(ans.PriceM2Min),
		PriceM2Max:   float64(ans.PriceM2Max),
		Trend:        normalizeTrend(ans.Trend),
		TrendPercent: float64(ans.TrendPct),
		Commentary:   strings.TrimSpace(ans.Commentary),
		Sources:      mergeSources(ans.Sources, sources),
	}
	for _, s := range ans.Sales {
		if s.Price <= 0 {
			continue
		}
		out.ComparableSales = append(out.ComparableSales, model.ComparableSale{
			Address: s.Address,
			Price:   float64(s.Price),
			Surface: float64(s.Surface),
			Date:    s.Date,
		})
	}
	return Ok(out, firstOr(out.Sources, ""))
}

// SafetySearch asks a search-grounded model about neighbourhood safety.
type SafetySearch struct {
	search Searcher
	rt     *Runtime
}

// NewSafetySearch wraps a searcher. A nil searcher disables the enrichment.
func NewSafetySearch(search Searcher, rt *Runtime) *SafetySearch {
	return &SafetySearch{search: search, rt: rt}
}

// Fetch returns the safety commentary. Any transport or parse failure is
// absent.
func (a *SafetySearch) Fetch(ctx context.Context, t Target) Outcome[*model.SafetySearch] {
	if a.search == nil {
		return Absent[*model.SafetySearch]("recherche web désactivée")
	}
	ans, sources, err := ask[safetyAnswer](ctx, a.rt, a.search, "safety", SafetyPrompt(t.Location))
	if err != nil {
		return Absent[*model.SafetySearch]("recherche sécurité indisponible: %v", err)
	}
	if ans.CrimeRate == "" && ans.Commentary == "" {
		return Absent[*model.SafetySearch]("recherche sécurité sans résultat")
	}

	score := float64(ans.SafetyScore)
	out := &model.SafetySearch{
		CrimeRate:       strings.TrimSpace(ans.CrimeRate),
		SafetyScore:     min(max(score, 0), 100),
		RecentIncidents: nonEmpty(ans.Incidents),
		Commentary:      strings.TrimSpace(ans.Commentary),
		Sources:         mergeSources(ans.Sources, sources),
	}
	return Ok(out, firstOr(out.Sources, ""))
}

// ask runs prompt through the searcher and decodes the JSON answer.
func ask[T any](ctx context.Context, rt *Runtime, s Searcher, op, prompt string) (T, []string, error) {
	var zero T
	res, err := callWith(ctx, rt, rt.generativePolicy(), s.Name(), op, func(ctx context.Context) (*SearchResult, error) {
		return s.Search(ctx, prompt)
	})
	if err != nil {
		return zero, nil, eris.Wrapf(err, "websearch: %s", op)
	}
	v, err := llmjson.Decode[T](res.Text)
	if err != nil {
		return zero, nil, eris.Wrapf(err, "websearch: %s", op)
	}
	return v, res.Sources, nil
}

// MarketPrompt asks for the current price/m² around the address. surface
// is included when known.
func MarketPrompt(loc model.Location, surface float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recherche les prix immobiliers actuels autour de l'adresse %q (%s %s).\n",
		loc.Label, loc.Admin.Postcode, loc.Admin.City)
	if surface > 0 {
		fmt.Fprintf(&b, "Le bien fait environ %.0f m².\n", surface)
	}
	b.WriteString(`Réponds uniquement avec cet objet JSON :
{"prix_m2_moyen": nombre, "prix_m2_min": nombre, "prix_m2_max": nombre,
 "tendance": "hausse" | "baisse" | "stable", "evolution_pct": nombre,
 "ventes_comparables": [{"adresse": texte, "prix": nombre, "surface": nombre, "date": "AAAA-MM-JJ"}],
 "commentaire": texte, "sources": [url]}`)
	return b.String()
}

// SafetyPrompt asks for recent safety information about the commune.
func SafetyPrompt(loc model.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recherche des informations récentes sur la sécurité et la délinquance autour de %q (%s %s).\n",
		loc.Label, loc.Admin.Postcode, loc.Admin.City)
	b.WriteString(`Réponds uniquement avec cet objet JSON :
{"taux_criminalite": "faible" | "moyen" | "élevé", "score_securite": nombre de 0 à 100,
 "incidents_recents": [texte], "commentaire": texte, "sources": [url]}`)
	return b.String()
}

func normalizeTrend(s string) string {
	switch f := fold(s); {
	case strings.Contains(f, "hausse"):
		return model.TrendUp
	case strings.Contains(f, "baisse"):
		return model.TrendDown
	case strings.Contains(f, "stable"):
		return model.TrendStable
	default:
		return ""
	}
}

// mergeSources joins the cited and grounding URLs, dropping duplicates.
func mergeSources(lists ...[]string) []string {
	var out []string
	seen := map[string]bool{}
	for _, l := range lists {
		for _, s := range l {
			s = strings.TrimSpace(s)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstOr(list []string, def string) string {
	if len(list) > 0 {
		return list[0]
	}
	return def
}
