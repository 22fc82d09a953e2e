package llm

import (
	"context"
	"fmt"

	"guarded-meal-planner/internal/config"
)

// NewClient returns the generation backend selected by cfg.LLMProvider.
func NewClient(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		c, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ProviderGroq:
		return NewGroqClient(cfg), nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s (allowed: gemini, groq, openai)", cfg.LLMProvider)
	}
}
