package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"guarded-meal-planner/internal/config"
	"guarded-meal-planner/internal/shared"
)

const (
	providerGroq = "groq"
	groqAPIURL   = "https://api.groq.com/openai/v1/chat/completions"
)

// GroqClient is a client for the Groq API.
type GroqClient struct {
	apiKey      string
	model       string
	temperature float32
	url         string
	httpClient  *http.Client
}

// NewGroqClient creates a new Groq API client.
func NewGroqClient(cfg *config.Config) *GroqClient {
	return &GroqClient{
		apiKey:      cfg.GroqAPIKey,
		model:       cfg.GroqModel,
		temperature: cfg.Generation.Temperature,
		url:         groqAPIURL,
		httpClient: &http.Client{
			Timeout: cfg.Generation.Timeout,
		},
	}
}

func (c *GroqClient) Provider() string { return providerGroq }
func (c *GroqClient) Model() string    { return c.model }

// Close is a no-op; the HTTP client holds no resources worth releasing.
func (c *GroqClient) Close() error { return nil }

// GenerateContent sends a prompt to the Groq model and returns the generated text.
func (c *GroqClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	return c.generate(ctx, prompt, false)
}

// GenerateJSON enables Groq's JSON object mode. That mode cannot produce a
// top-level array, so array-shaped hints fall back to plain text.
func (c *GroqClient) GenerateJSON(ctx context.Context, prompt string, hint JSONHint) (ContentResponse, error) {
	return c.generate(ctx, prompt, hint.ExpectsObject())
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqRequest struct {
	Model          string            `json:"model"`
	Messages       []groqMessage     `json:"messages"`
	Temperature    float32           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type groqResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *GroqClient) generate(ctx context.Context, prompt string, jsonMode bool) (ContentResponse, error) {
	reqBody := groqRequest{
		Model:       c.model,
		Messages:    []groqMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	}
	if jsonMode {
		reqBody.ResponseFormat = map[string]string{"type": "json_object"}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ContentResponse{}, &GenerationError{Provider: providerGroq, Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ContentResponse{}, &GenerationError{
			Provider:   providerGroq,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("groq api error after %v: body=%s", time.Since(start).Round(time.Millisecond), string(bodyBytes)),
		}
	}

	var groqResp groqResponse
	if err := json.NewDecoder(resp.Body).Decode(&groqResp); err != nil {
		return ContentResponse{}, &GenerationError{Provider: providerGroq, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if len(groqResp.Choices) == 0 || groqResp.Choices[0].Message.Content == "" {
		return ContentResponse{}, &GenerationError{Provider: providerGroq, Err: ErrNoContent}
	}

	model := groqResp.Model
	if model == "" {
		model = c.model
	}
	return ContentResponse{
		Content: groqResp.Choices[0].Message.Content,
		Usage: shared.TokenUsage{
			PromptTokens:     groqResp.Usage.PromptTokens,
			CompletionTokens: groqResp.Usage.CompletionTokens,
			TotalTokens:      groqResp.Usage.TotalTokens,
			Model:            model,
		},
	}, nil
}
