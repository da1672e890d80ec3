package adjudicate

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// ModelClient is the narrow interface the adjudicator needs from a language
// model: send a system+user prompt pair, get raw text back. It exists so the
// Gemini dependency stays injectable and mockable.
type ModelClient interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// GeminiClient is the ModelClient implementation backed by Gemini. It is
// constructed once per run and passed into the Adjudicator; there is no
// package-level client state.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed model client. Credentials come
// from the environment (GEMINI_API_KEY or application default credentials).
func NewGeminiClient(ctx context.Context, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiClient: create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Generate sends the prompts with temperature 0 and a JSON-only response
// mode and returns the raw model text.
func (g *GeminiClient) Generate(ctx context.Context, system, user string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: user}},
		},
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("Generate: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("Generate: empty response from model")
	}
	return text, nil
}
