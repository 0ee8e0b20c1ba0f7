package assistant

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Model is the chat-completion surface the orchestrator needs. Fakes in tests
// build GenerateContentResponse values directly.
type Model interface {
	Generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiModel calls the Gemini API. Credentials come from the environment
// (GEMINI_API_KEY or application default credentials), resolved by the client.
type GeminiModel struct {
	client *genai.Client
	name   string
}

// NewGeminiModel creates a Gemini-backed model.
func NewGeminiModel(ctx context.Context, modelName string) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiModel: create genai client: %w", err)
	}
	return &GeminiModel{client: client, name: modelName}, nil
}

func (m *GeminiModel) Generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.name, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("Generate: %w", err)
	}
	return resp, nil
}
