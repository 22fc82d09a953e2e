package llm

import (
	"context"
	"errors"
	"fmt"

	"guarded-meal-planner/internal/config"
	"guarded-meal-planner/internal/shared"

	"github.com/openai/openai-go"
	oaoption "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

const providerOpenAI = "openai"

// OpenAIClient generates text through the OpenAI Responses API.
type OpenAIClient struct {
	client      openai.Client
	model       string
	temperature float32
}

// NewOpenAIClient creates a new OpenAI API client.
func NewOpenAIClient(cfg *config.Config) *OpenAIClient {
	return &OpenAIClient{
		client:      openai.NewClient(oaoption.WithAPIKey(cfg.OpenAIAPIKey)),
		model:       cfg.OpenAIModel,
		temperature: cfg.Generation.Temperature,
	}
}

func (c *OpenAIClient) Provider() string { return providerOpenAI }
func (c *OpenAIClient) Model() string    { return c.model }
func (c *OpenAIClient) Close() error     { return nil }

// GenerateContent sends a prompt to the OpenAI model and returns the generated text.
func (c *OpenAIClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	return c.generate(ctx, c.params(prompt))
}

// GenerateJSON attaches the hint as a JSON schema text format. The Responses
// API requires an object at the root, so array hints are sent as plain text.
func (c *OpenAIClient) GenerateJSON(ctx context.Context, prompt string, hint JSONHint) (ContentResponse, error) {
	params := c.params(prompt)
	if hint.ExpectsObject() && hint.Schema != nil {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigParamOfJSONSchema(hint.Name, hint.Schema),
		}
	}
	return c.generate(ctx, params)
}

func (c *OpenAIClient) params(prompt string) responses.ResponseNewParams {
	return responses.ResponseNewParams{
		Model: c.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(prompt),
		},
		Temperature: openai.Float(float64(c.temperature)),
	}
}

func (c *OpenAIClient) generate(ctx context.Context, params responses.ResponseNewParams) (ContentResponse, error) {
	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		gErr := &GenerationError{Provider: providerOpenAI, Err: fmt.Errorf("openai request failed: %w", err)}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			gErr.StatusCode = apiErr.StatusCode
		}
		return ContentResponse{}, gErr
	}

	text := resp.OutputText()
	if text == "" {
		return ContentResponse{}, &GenerationError{Provider: providerOpenAI, Err: ErrNoContent}
	}

	return ContentResponse{
		Content: text,
		Usage: shared.TokenUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
			Model:            c.model,
		},
	}, nil
}
