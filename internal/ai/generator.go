// Package ai wraps the text-generation services the buyer uses to phrase its messages.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured is returned when a provider is selected without its API key.
var ErrNotConfigured = errors.New("AI client not configured")

// Generator turns a prompt into at most maxTokens of text.
// Implementations must not keep per-call state; a session may call it once per round.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Settings selects and configures a Generator.
type Settings struct {
	Provider string // "mock", "openai" or "gemini"
	Model    string
	APIKey   string
	BaseURL  string
}

// NewGenerator builds the Generator named by s.Provider.
func NewGenerator(s Settings) (Generator, error) {
	switch strings.ToLower(s.Provider) {
	case "", "mock":
		return NewCanned(""), nil
	case "openai":
		return NewOpenAIGenerator(s)
	case "gemini":
		return NewGeminiGenerator(s)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", s.Provider)
	}
}
