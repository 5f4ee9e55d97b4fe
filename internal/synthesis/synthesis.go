// Package synthesis asks a language model for the narrative analysis of a
// house profile and pins its price estimate to the collected evidence.
package synthesis

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/house-report/internal/estimate"
	"github.com/sells-group/house-report/internal/fetcher"
	"github.com/sells-group/house-report/internal/llmjson"
	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/internal/provider"
)

// Synthesizer produces the AI analysis section.
type Synthesizer struct {
	gen        Generator
	rt         *provider.Runtime
	strategies []PriceStrategy
}

// New returns a Synthesizer. A nil generator disables the analysis.
func New(gen Generator, rt *provider.Runtime) *Synthesizer {
	var tables *estimate.Tables
	if rt != nil {
		tables = rt.Tables
	}
	if tables == nil {
		tables = estimate.Default()
	}
	return &Synthesizer{gen: gen, rt: rt, strategies: PriceStrategies(tables)}
}

type answer struct {
	Score   fetcher.Float `json:"score"`
	Summary string        `json:"summary"`
	Market  struct {
		Score           fetcher.Float `json:"score"`
		PriceM2Estimate fetcher.Float `json:"price_m2_estimate"`
		Trend           string        `json:"trend"`
		Commentary      string        `json:"commentary"`
	} `json:"market"`
	Neighborhood struct {
		Score      fetcher.Float `json:"score"`
		Commentary string        `json:"commentary"`
		Highlights []string      `json:"highlights"`
	} `json:"neighborhood"`
	Risk struct {
		Score      fetcher.Float `json:"score"`
		Level      string        `json:"level"`
		Commentary string        `json:"commentary"`
	} `json:"risk"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
}

type generated struct {
	text  string
	model string
}

// Analyze runs the synthesis over p. It never mutates p.
func (s *Synthesizer) Analyze(ctx context.Context, p *model.HouseProfile) provider.Outcome[*model.AIAnalysis] {
	if s == nil || s.gen == nil {
		return provider.Absent[*model.AIAnalysis]("analyse IA non configurée")
	}
	prompt := BuildPrompt(p)
	name := s.gen.Name()

	res, err := provider.CallGenerative(ctx, s.rt, name, "synthesis", func(ctx context.Context) (generated, error) {
		text, modelName, err := s.gen.Generate(ctx, systemPrompt, prompt)
		return generated{text: text, model: modelName}, err
	})
	if err != nil {
		return provider.Unavailable[*model.AIAnalysis]("analyse IA", eris.Wrap(err, "synthesis: generate"))
	}

	a, err := llmjson.Decode[answer](res.text)
	if err != nil {
		return provider.Absent[*model.AIAnalysis]("analyse IA illisible: %v", err)
	}

	out := &model.AIAnalysis{
		Score:   clampScore(float64(a.Score)),
		Summary: strings.TrimSpace(a.Summary),
		Market: model.MarketAnalysis{
			Score:      clampScore(float64(a.Market.Score)),
			Trend:      a.Market.Trend,
			Commentary: a.Market.Commentary,
		},
		Neighborhood: model.NeighborhoodAnalysis{
			Score:      clampScore(float64(a.Neighborhood.Score)),
			Commentary: a.Neighborhood.Commentary,
			Highlights: a.Neighborhood.Highlights,
		},
		Risk: model.RiskAnalysis{
			Score:      clampScore(float64(a.Risk.Score)),
			Level:      a.Risk.Level,
			Commentary: a.Risk.Commentary,
		},
		Strengths:       a.Strengths,
		Weaknesses:      a.Weaknesses,
		Recommendations: a.Recommendations,
		Model:           res.model,
	}
	if out.Model == "" {
		out.Model = name
	}
	out.Market.PriceM2Estimate, out.Market.PriceSource = ResolvePrice(p, s.strategies)
	return provider.Ok(out, name)
}

func clampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
