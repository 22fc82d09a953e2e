package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"guarded-meal-planner/internal/config"
	"guarded-meal-planner/internal/shared"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const providerGemini = "gemini"

// GeminiClient is a client for the Google Gemini API.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(ctx context.Context, cfg *config.Config) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{
		client:      client,
		model:       cfg.GeminiModel,
		temperature: cfg.Generation.Temperature,
	}, nil
}

func (c *GeminiClient) Provider() string { return providerGemini }
func (c *GeminiClient) Model() string    { return c.model }

// GenerateContent sends a prompt to the Gemini model and returns the generated text.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	return c.generate(ctx, prompt, false)
}

// GenerateJSON is GenerateContent with the response MIME type set to JSON.
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string, _ JSONHint) (ContentResponse, error) {
	return c.generate(ctx, prompt, true)
}

func (c *GeminiClient) generate(ctx context.Context, prompt string, jsonMode bool) (ContentResponse, error) {
	// A fresh model per call keeps concurrent callers from sharing settings.
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(c.temperature)
	if jsonMode {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		gErr := &GenerationError{Provider: providerGemini, Err: fmt.Errorf("failed to generate content: %w", err)}
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			gErr.StatusCode = apiErr.Code
		}
		return ContentResponse{}, gErr
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return ContentResponse{}, &GenerationError{
			Provider: providerGemini,
			Err:      fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason),
		}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ContentResponse{}, &GenerationError{Provider: providerGemini, Err: ErrNoContent}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return ContentResponse{}, &GenerationError{Provider: providerGemini, Err: ErrNoContent}
	}

	usage := shared.TokenUsage{Model: c.model}
	if md := resp.UsageMetadata; md != nil {
		usage.PromptTokens = int(md.PromptTokenCount)
		usage.CompletionTokens = int(md.CandidatesTokenCount)
		usage.TotalTokens = int(md.TotalTokenCount)
	}

	return ContentResponse{Content: sb.String(), Usage: usage}, nil
}

// Close closes the underlying Gemini client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}
