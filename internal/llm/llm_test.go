package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"guarded-meal-planner/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGroq(t *testing.T, handler http.HandlerFunc) *GroqClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.GroqAPIKey = "test-key"
	c := NewGroqClient(cfg)
	c.url = srv.URL
	return c
}

func TestGroqClient_GenerateJSON(t *testing.T) {
	var got groqRequest
	c := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "llama-3.3-70b-versatile",
			"choices": [{"message": {"content": "{\"meals\":{}}"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	})

	resp, err := c.GenerateJSON(context.Background(), "plan my week", JSONHint{Name: "weekly_plan", Schema: map[string]any{"type": "object"}})
	require.NoError(t, err)

	assert.Equal(t, `{"meals":{}}`, resp.Content)
	assert.Equal(t, 17, resp.Usage.TotalTokens)
	assert.Equal(t, 12, resp.Usage.PromptTokens)
	assert.Equal(t, "llama-3.3-70b-versatile", resp.Usage.Model)
	assert.Equal(t, map[string]string{"type": "json_object"}, got.ResponseFormat)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "plan my week", got.Messages[0].Content)
}

func TestGroqClient_ArrayHintSkipsJSONMode(t *testing.T) {
	var got map[string]any
	c := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "[]"}}]}`))
	})

	_, err := c.GenerateJSON(context.Background(), "alternatives", JSONHint{Schema: map[string]any{"type": "array"}})
	require.NoError(t, err)
	assert.NotContains(t, got, "response_format")
}

func TestGroqClient_Errors(t *testing.T) {
	t.Run("status code", func(t *testing.T) {
		c := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limited"}`))
		})

		_, err := c.GenerateContent(context.Background(), "hi")
		var gErr *GenerationError
		require.True(t, errors.As(err, &gErr))
		assert.Equal(t, http.StatusTooManyRequests, gErr.StatusCode)
		assert.Equal(t, "groq", gErr.Provider)
		assert.Contains(t, err.Error(), "rate limited")
	})

	t.Run("empty choices", func(t *testing.T) {
		c := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices": []}`))
		})

		_, err := c.GenerateContent(context.Background(), "hi")
		assert.ErrorIs(t, err, ErrNoContent)
	})

	t.Run("canceled context", func(t *testing.T) {
		c := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "x"}}]}`))
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.GenerateContent(ctx, "hi")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestJSONHint_ExpectsObject(t *testing.T) {
	assert.True(t, JSONHint{}.ExpectsObject())
	assert.True(t, JSONHint{Schema: map[string]any{"type": "object"}}.ExpectsObject())
	assert.False(t, JSONHint{Schema: map[string]any{"type": "array"}}.ExpectsObject())
}

func TestAsGenerationError(t *testing.T) {
	plain := errors.New("boom")
	gErr := AsGenerationError("stub", plain)
	assert.Equal(t, "stub", gErr.Provider)
	assert.ErrorIs(t, gErr, plain)

	same := AsGenerationError("other", gErr)
	assert.Same(t, gErr, same)
}

func TestNewClient(t *testing.T) {
	cfg := config.Default()

	cfg.LLMProvider = config.ProviderGroq
	c, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "groq", c.Provider())

	cfg.LLMProvider = config.ProviderOpenAI
	c, err = NewClient(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Provider())
	assert.Equal(t, cfg.OpenAIModel, c.Model())

	cfg.LLMProvider = "nope"
	_, err = NewClient(context.Background(), cfg)
	assert.Error(t, err)
}
