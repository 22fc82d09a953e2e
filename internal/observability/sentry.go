package observability

import (
	"log"
	"net/http"
	"strings"
	"time"

	"guarded-meal-planner/internal/config"

	"github.com/getsentry/sentry-go"
)

// SentryFlushTimeout bounds the flush on shutdown.
const SentryFlushTimeout = 2 * time.Second

// InitSentry configures the global Sentry hub when a DSN is set and
// returns a flush function for shutdown. The function is a no-op when
// Sentry is disabled.
func InitSentry(cfg *config.Config, release string) func() {
	if cfg.SentryDSN == "" {
		log.Println("Sentry not configured (SENTRY_DSN not set)")
		return func() {}
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		Release:          "guarded-meal-planner@" + release,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		Debug:            !cfg.IsProduction(),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			if event.Request != nil {
				event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
			}
			return event
		},
	})
	if err != nil {
		log.Printf("Failed to initialize Sentry: %v", err)
		return func() {}
	}

	log.Printf("Sentry initialized (environment: %s, release: %s)", cfg.Environment, release)
	return func() { sentry.Flush(SentryFlushTimeout) }
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		switch http.CanonicalHeaderKey(k) {
		case "Authorization", "Cookie", "X-Telegram-Bot-Api-Secret-Token":
			out[k] = "[Filtered]"
		default:
			if strings.Contains(strings.ToLower(k), "token") {
				out[k] = "[Filtered]"
			} else {
				out[k] = v
			}
		}
	}
	return out
}
