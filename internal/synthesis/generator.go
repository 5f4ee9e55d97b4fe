package synthesis

import (
	"context"

	"github.com/sells-group/house-report/pkg/anthropic"
	"github.com/sells-group/house-report/pkg/gemini"
)

// Generator produces one model answer for a system and user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (text, model string, err error)
	Name() string
}

type geminiGenerator struct {
	client gemini.Client
}

// NewGeminiGenerator answers in JSON mode with Gemini.
func NewGeminiGenerator(client gemini.Client) Generator {
	return &geminiGenerator{client: client}
}

func (g *geminiGenerator) Name() string { return "gemini" }

func (g *geminiGenerator) Generate(ctx context.Context, system, prompt string) (string, string, error) {
	temp := float32(0.3)
	resp, err := g.client.Generate(ctx, gemini.GenerateRequest{
		System:      system,
		Prompt:      prompt,
		Temperature: &temp,
		JSON:        true,
	})
	if err != nil {
		return "", "", err
	}
	return resp.Text, resp.Model, nil
}

// DefaultAnthropicModel is used when no synthesis model is configured.
const DefaultAnthropicModel = "claude-sonnet-4-5-20250929"

type anthropicGenerator struct {
	client anthropic.Client
	model  string
}

// NewAnthropicGenerator answers with the Anthropic Messages API.
func NewAnthropicGenerator(client anthropic.Client, model string) Generator {
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &anthropicGenerator{client: client, model: model}
}

func (g *anthropicGenerator) Name() string { return "anthropic" }

func (g *anthropicGenerator) Generate(ctx context.Context, system, prompt string) (string, string, error) {
	temp := 0.3
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   4096,
		System:      system,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return "", "", err
	}
	resp.Usage.LogCost(g.model, "synthesis")
	return resp.Text(), resp.Model, nil
}
