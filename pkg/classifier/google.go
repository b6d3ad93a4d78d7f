package classifier

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/genai"
)

const defaultGoogleModel = "gemini-2.5-flash"

// Google is the Gemini API backend.
type Google struct {
	client *genai.Client
	model  string
}

// NewGoogle creates the backend from cfg.
func NewGoogle(cfg Config) (*Google, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("Google API key is required (set GOOGLE_API_KEY or GEMINI_API_KEY)")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Google GenAI client")
	}

	model := cfg.Model
	if model == "" {
		model = defaultGoogleModel
	}

	return &Google{client: client, model: model}, nil
}

// Name returns "google".
func (g *Google) Name() string {
	return BackendGoogle
}

// Complete generates a single response for prompt.
func (g *Google) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0)),
	})
	if err != nil {
		return "", errors.Wrap(err, "generate content request failed")
	}

	if len(resp.Candidates) == 0 {
		return "", errors.New("generate content returned no candidates")
	}

	return resp.Text(), nil
}
