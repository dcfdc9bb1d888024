package ai

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// AIService holds the Gemini client used by the mini tools.
type AIService struct {
	Client *genai.Client
	model  string
}

// NewAIService initializes the Gemini client.
func NewAIService(ctx context.Context, apiKey string) (*AIService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &AIService{Client: client, model: "gemini-1.5-flash"}, nil
}

// Generate runs one prompt and returns the text plus token usage.
func (s *AIService) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, int, error) {
	model := s.Client.GenerativeModel(s.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	res, err := model.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", 0, fmt.Errorf("generate content: %w", err)
	}

	totalTokens := 0
	if res.UsageMetadata != nil {
		totalTokens = int(res.UsageMetadata.TotalTokenCount)
	}

	if len(res.Candidates) == 0 || len(res.Candidates[0].Content.Parts) == 0 {
		return "", totalTokens, fmt.Errorf("empty model response")
	}

	text, ok := res.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", totalTokens, fmt.Errorf("unexpected response part type")
	}
	return string(text), totalTokens, nil
}
