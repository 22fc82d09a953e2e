package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported generation backends.
const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
)

// GenerationConfig tunes the guarded generation loop.
type GenerationConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// RateLimitConfig tunes the per-user fixed-window limiter.
type RateLimitConfig struct {
	MaxRequests     int           `yaml:"max_requests"`
	Window          time.Duration `yaml:"window"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// Config holds the configuration for the application.
type Config struct {
	LLMProvider  string `yaml:"llm_provider"`
	GeminiAPIKey string `yaml:"-"`
	GeminiModel  string `yaml:"gemini_model"`
	GroqAPIKey   string `yaml:"-"`
	GroqModel    string `yaml:"groq_model"`
	OpenAIAPIKey string `yaml:"-"`
	OpenAIModel  string `yaml:"openai_model"`

	DatabasePath string `yaml:"database_path"`

	Generation GenerationConfig `yaml:"generation"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`

	// HTTP API
	Port        string `yaml:"port"`
	JWTSecret   string `yaml:"-"`
	Environment string `yaml:"environment"`

	// Observability
	SentryDSN       string `yaml:"-"`
	LangfuseEnabled bool   `yaml:"langfuse_enabled"`

	// Telegram Config
	TelegramBotToken       string  `yaml:"-"`
	TelegramWebhookURL     string  `yaml:"telegram_webhook_url"`
	TelegramAllowedUserIDs []int64 `yaml:"telegram_allowed_user_ids"`
	AdminTelegramID        int64   `yaml:"admin_telegram_id"`
}

// Default returns the configuration used when neither a file nor the
// environment says otherwise.
func Default() *Config {
	return &Config{
		LLMProvider:  ProviderGemini,
		GeminiModel:  "gemini-2.5-flash",
		GroqModel:    "llama-3.3-70b-versatile",
		OpenAIModel:  "gpt-4.1-mini",
		DatabasePath: "data/db/planner.db",
		Generation: GenerationConfig{
			MaxAttempts: 3,
			BaseDelay:   400 * time.Millisecond,
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		RateLimit: RateLimitConfig{
			MaxRequests:     10,
			Window:          time.Minute,
			CleanupInterval: 5 * time.Minute,
		},
		Port:        "8080",
		Environment: "development",
	}
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	return Load(os.Getenv("CONFIG_FILE"))
}

// Load layers the defaults, an optional YAML tuning file at path and the
// environment, then validates the result. Secrets are only read from the
// environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.LLMProvider, "LLM_PROVIDER")
	c.LLMProvider = strings.ToLower(c.LLMProvider)
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.GeminiModel, "GEMINI_MODEL")
	setString(&c.GroqAPIKey, "GROQ_API_KEY")
	setString(&c.GroqModel, "GROQ_MODEL")
	setString(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.OpenAIModel, "OPENAI_MODEL")
	setString(&c.DatabasePath, "DATABASE_PATH")
	setString(&c.Port, "PORT")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.Environment, "ENVIRONMENT")
	setString(&c.SentryDSN, "SENTRY_DSN")
	setString(&c.TelegramBotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.TelegramWebhookURL, "TELEGRAM_WEBHOOK_URL")

	if err := setInt(&c.Generation.MaxAttempts, "GENERATION_MAX_ATTEMPTS"); err != nil {
		return err
	}
	if err := setDuration(&c.Generation.BaseDelay, "GENERATION_BASE_DELAY"); err != nil {
		return err
	}
	if err := setInt(&c.RateLimit.MaxRequests, "RATE_LIMIT_MAX_REQUESTS"); err != nil {
		return err
	}
	if err := setDuration(&c.RateLimit.Window, "RATE_LIMIT_WINDOW"); err != nil {
		return err
	}

	if v := os.Getenv("LANGFUSE_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LANGFUSE_ENABLED %q: %w", v, err)
		}
		c.LangfuseEnabled = enabled
	}

	if v := os.Getenv("TELEGRAM_ALLOWED_USER_IDS"); v != "" {
		ids, err := parseIDs(v)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS: %w", err)
		}
		c.TelegramAllowedUserIDs = ids
	}
	if v := os.Getenv("ADMIN_TELEGRAM_ID"); v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ADMIN_TELEGRAM_ID %q: %w", v, err)
		}
		c.AdminTelegramID = id
	}
	return nil
}

func (c *Config) validate() error {
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	case ProviderGroq:
		if c.GroqAPIKey == "" {
			return fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q (allowed: gemini, groq, openai)", c.LLMProvider)
	}

	if c.Generation.MaxAttempts < 1 {
		return fmt.Errorf("generation max attempts must be at least 1, got %d", c.Generation.MaxAttempts)
	}
	if c.Generation.BaseDelay < 0 {
		return fmt.Errorf("generation base delay must not be negative")
	}
	if c.RateLimit.MaxRequests < 1 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit needs a positive request count and window")
	}
	return nil
}

// RequireJWTSecret reports whether the HTTP API can verify bearer tokens.
func (c *Config) RequireJWTSecret() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable not set")
	}
	return nil
}

// RequireTelegram reports whether the bot can start.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	return nil
}

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}

func parseIDs(v string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
