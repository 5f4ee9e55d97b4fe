// Package gemini wraps the Google Gen AI SDK for single-shot text generation,
// optionally grounded with Google Search.
package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/sells-group/house-report/internal/resilience"
)

const defaultModel = "gemini-2.5-flash"

// Client generates text.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest is a single-turn prompt.
type GenerateRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature *float32
	// Grounded enables the Google Search tool. The API rejects a JSON
	// response MIME type alongside tools, so JSON is only requested when
	// Grounded is false.
	Grounded bool
	JSON     bool
}

// GenerateResponse is the first candidate text plus grounding sources.
type GenerateResponse struct {
	Text    string
	Sources []string
	Model   string
	Usage   Usage
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens int
	OutputTokens int
}

// Option configures the client.
type Option func(*config)

type config struct {
	model   string
	baseURL string
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *config) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the SDK at another endpoint.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

type sdkClient struct {
	cli   *genai.Client
	model string
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (Client, error) {
	if apiKey == "" {
		return nil, eris.New("gemini: api key is required")
	}
	cfg := config{model: defaultModel}
	for _, o := range opts {
		o(&cfg)
	}

	cc := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if cfg.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.baseURL}
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return &sdkClient{cli: cli, model: cfg.model}, nil
}

func (c *sdkClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	gc := &genai.GenerateContentConfig{Temperature: req.Temperature}
	if req.System != "" {
		gc.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.Grounded {
		gc.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	} else if req.JSON {
		gc.ResponseMIMEType = "application/json"
	}

	resp, err := c.cli.Models.GenerateContent(ctx, model,
		[]*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: req.Prompt}}}},
		gc,
	)
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, eris.New("gemini: empty response")
	}

	cand := resp.Candidates[0]
	out := &GenerateResponse{
		Text:  strings.TrimSpace(cand.Content.Parts[0].Text),
		Model: model,
	}
	if gm := cand.GroundingMetadata; gm != nil {
		for _, ch := range gm.GroundingChunks {
			if ch != nil && ch.Web != nil && ch.Web.URI != "" {
				out.Sources = append(out.Sources, ch.Web.URI)
			}
		}
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{PromptTokens: int(u.PromptTokenCount), OutputTokens: int(u.CandidatesTokenCount)}
	}

	zap.L().Debug("gemini: generated",
		zap.String("model", model),
		zap.Bool("grounded", req.Grounded),
		zap.Int("prompt_tokens", out.Usage.PromptTokens),
		zap.Int("output_tokens", out.Usage.OutputTokens),
	)
	return out, nil
}

// classify marks retryable API statuses as transient.
func classify(err error) error {
	wrapped := eris.Wrap(err, "gemini: generate content")
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}
	if resilience.IsTransientHTTPStatus(code) {
		return resilience.NewTransientError(wrapped, code)
	}
	return wrapped
}
