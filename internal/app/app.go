// Package app wires storage, generation and the planner into one
// application shared by the CLI, the HTTP API and the Telegram bot.
package app

import (
	"context"
	"fmt"

	"guarded-meal-planner/internal/config"
	"guarded-meal-planner/internal/database"
	"guarded-meal-planner/internal/guard"
	"guarded-meal-planner/internal/llm"
	"guarded-meal-planner/internal/logger"
	"guarded-meal-planner/internal/metrics"
	"guarded-meal-planner/internal/observability"
	"guarded-meal-planner/internal/planner"
	"guarded-meal-planner/internal/ratelimit"
)

// App holds the application's dependencies.
type App struct {
	cfg          *config.Config
	db           *database.DB
	closer       llm.Closer
	limiter      *ratelimit.Limiter
	metricsStore *metrics.Store
	mealPlanner  *planner.Planner
}

// NewApp opens the database, builds the configured model client and
// starts the rate limiter sweep. Close releases all of it.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	client, err := llm.NewClient(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize %s client: %w", cfg.LLMProvider, err)
	}
	logger.Info("Generation client ready", logger.Fields{
		"provider": client.Provider(),
		"model":    client.Model(),
	})

	var tracing guard.Observer
	if cfg.LangfuseEnabled {
		tracing = observability.NewLangfuseObserver(ctx)
	}

	a := newApp(ctx, cfg, db, client, tracing)
	a.closer = client
	return a, nil
}

// newApp assembles an App around an open database and generator.
func newApp(ctx context.Context, cfg *config.Config, db *database.DB, gen llm.TextGenerator, extra ...guard.Observer) *App {
	metricsStore := metrics.NewStore(db.SQL)

	observers := append([]guard.Observer{guard.LogObserver{}, metricsStore}, extra...)
	g := guard.New(gen,
		guard.WithBaseDelay(cfg.Generation.BaseDelay),
		guard.WithObserver(guard.Observers(observers...)),
	)

	limiter := ratelimit.New(
		ratelimit.WithLimit(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window),
		ratelimit.WithCleanupInterval(cfg.RateLimit.CleanupInterval),
	)
	limiter.Start(ctx)

	return &App{
		cfg:          cfg,
		db:           db,
		limiter:      limiter,
		metricsStore: metricsStore,
		mealPlanner:  planner.NewPlanner(db, g, limiter, planner.WithMaxAttempts(cfg.Generation.MaxAttempts)),
	}
}

func (a *App) Config() *config.Config   { return a.cfg }
func (a *App) DB() *database.DB          { return a.db }
func (a *App) Planner() *planner.Planner { return a.mealPlanner }
func (a *App) Metrics() *metrics.Store   { return a.metricsStore }

// Close stops background work and releases the client and database.
func (a *App) Close() error {
	a.limiter.Stop()
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			logger.Warn("Failed to close generation client", logger.Fields{"error": err.Error()})
		}
	}
	return a.db.Close()
}
