package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CONFIG_FILE", "LLM_PROVIDER", "GEMINI_API_KEY", "GEMINI_MODEL", "GROQ_API_KEY", "GROQ_MODEL",
	"OPENAI_API_KEY", "OPENAI_MODEL", "DATABASE_PATH", "GENERATION_MAX_ATTEMPTS", "GENERATION_BASE_DELAY",
	"RATE_LIMIT_MAX_REQUESTS", "RATE_LIMIT_WINDOW", "JWT_SECRET", "PORT", "ENVIRONMENT", "SENTRY_DSN",
	"LANGFUSE_ENABLED", "TELEGRAM_BOT_TOKEN", "TELEGRAM_WEBHOOK_URL", "TELEGRAM_ALLOWED_USER_IDS",
	"ADMIN_TELEGRAM_ID",
}

// clearEnv blanks every variable the loader reads; empty means unset to Load.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "gemini_key")
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "11, 22")
		t.Setenv("ADMIN_TELEGRAM_ID", "11")
		t.Setenv("LANGFUSE_ENABLED", "true")

		cfg, err := NewFromEnv()
		require.NoError(t, err)

		assert.Equal(t, ProviderGemini, cfg.LLMProvider)
		assert.Equal(t, "gemini_key", cfg.GeminiAPIKey)
		assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
		assert.Equal(t, 3, cfg.Generation.MaxAttempts)
		assert.Equal(t, 400*time.Millisecond, cfg.Generation.BaseDelay)
		assert.Equal(t, 10, cfg.RateLimit.MaxRequests)
		assert.Equal(t, time.Minute, cfg.RateLimit.Window)
		assert.Equal(t, []int64{11, 22}, cfg.TelegramAllowedUserIDs)
		assert.Equal(t, int64(11), cfg.AdminTelegramID)
		assert.True(t, cfg.LangfuseEnabled)
	})

	t.Run("MissingGeminiAPIKey", func(t *testing.T) {
		clearEnv(t)

		_, err := NewFromEnv()
		require.Error(t, err)
		assert.Equal(t, "GEMINI_API_KEY environment variable not set", err.Error())
	})

	t.Run("MissingGroqAPIKey", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LLM_PROVIDER", "Groq")
		t.Setenv("GEMINI_API_KEY", "gemini_key")

		_, err := NewFromEnv()
		require.Error(t, err)
		assert.Equal(t, "GROQ_API_KEY environment variable not set", err.Error())
	})

	t.Run("MissingOpenAIAPIKey", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LLM_PROVIDER", "openai")

		_, err := NewFromEnv()
		require.Error(t, err)
		assert.Equal(t, "OPENAI_API_KEY environment variable not set", err.Error())
	})

	t.Run("UnknownProvider", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LLM_PROVIDER", "llama.cpp")

		_, err := NewFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown LLM_PROVIDER")
	})

	t.Run("InvalidAttempts", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "gemini_key")
		t.Setenv("GENERATION_MAX_ATTEMPTS", "0")

		_, err := NewFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 1")
	})

	t.Run("MalformedDuration", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "gemini_key")
		t.Setenv("GENERATION_BASE_DELAY", "soon")

		_, err := NewFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GENERATION_BASE_DELAY")
	})
}

func TestLoad_YAMLOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "planner.yaml")
	yamlDoc := `
llm_provider: groq
groq_model: llama-3.1-8b-instant
generation:
  max_attempts: 5
  base_delay: 250ms
rate_limit:
  max_requests: 4
  window: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))
	t.Setenv("GROQ_API_KEY", "groq_key")
	t.Setenv("GENERATION_MAX_ATTEMPTS", "2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderGroq, cfg.LLMProvider)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.GroqModel)
	assert.Equal(t, 2, cfg.Generation.MaxAttempts, "environment wins over the file")
	assert.Equal(t, 250*time.Millisecond, cfg.Generation.BaseDelay)
	assert.Equal(t, 4, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.CleanupInterval, "unset keys keep defaults")
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestRequireHelpers(t *testing.T) {
	cfg := Default()
	assert.EqualError(t, cfg.RequireJWTSecret(), "JWT_SECRET environment variable not set")
	assert.EqualError(t, cfg.RequireTelegram(), "TELEGRAM_BOT_TOKEN environment variable not set")

	cfg.JWTSecret = "s"
	cfg.TelegramBotToken = "t"
	assert.NoError(t, cfg.RequireJWTSecret())
	assert.NoError(t, cfg.RequireTelegram())
}
