package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	systemInstruction  = "You are a helpful negotiation assistant."
	defaultTemperature = 0.7
	defaultOpenAIModel = "gpt-4o-mini"
)

// OpenAIGenerator talks to any OpenAI-compatible chat completions API
// (OpenAI itself, or a local server such as Ollama via BaseURL).
type OpenAIGenerator struct {
	client openai.Client
	model  string
}

// NewOpenAIGenerator requires an API key unless a custom BaseURL is given.
func NewOpenAIGenerator(s Settings) (*OpenAIGenerator, error) {
	if s.APIKey == "" && s.BaseURL == "" {
		return nil, fmt.Errorf("openai: %w", ErrNotConfigured)
	}

	options := []option.RequestOption{option.WithMaxRetries(1)}
	if s.BaseURL != "" {
		options = append(options, option.WithBaseURL(s.BaseURL))
	}
	if s.APIKey != "" {
		options = append(options, option.WithAPIKey(s.APIKey))
	}

	model := s.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAIGenerator{
		client: openai.NewClient(options...),
		model:  model,
	}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemInstruction),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(defaultTemperature),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in AI response")
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
