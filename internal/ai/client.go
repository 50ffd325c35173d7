package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiGenerator calls the Gemini generateContent REST endpoint.
type GeminiGenerator struct {
	apiKey string
	url    string
	client *http.Client
}

// NewGeminiGenerator needs an API key. BaseURL overrides the public endpoint.
func NewGeminiGenerator(s Settings) (*GeminiGenerator, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrNotConfigured)
	}

	model := s.Model
	if model == "" {
		model = "gemini-2.5-flash" // Sensible default
	}

	base := geminiEndpoint
	if s.BaseURL != "" {
		base = strings.TrimRight(s.BaseURL, "/")
	}

	return &GeminiGenerator{
		apiKey: s.APIKey,
		url:    fmt.Sprintf("%s/%s:generateContent", base, model),
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
		Temperature     float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate sends prompt as a single user turn and returns the first candidate's text.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	var payload geminiRequest
	payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemInstruction}}}
	payload.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}
	payload.GenerationConfig.MaxOutputTokens = maxTokens
	payload.GenerationConfig.Temperature = defaultTemperature

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	// Header, not query string: transport errors quote the URL.
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("AI API error %d: %s", resp.StatusCode, string(raw))
	}

	var result geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}

	// candidates[0].content.parts[0].text
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates in AI response")
	}
	return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text), nil
}
