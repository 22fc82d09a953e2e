package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guarded-meal-planner/internal/app"
	"guarded-meal-planner/internal/config"
	"guarded-meal-planner/internal/logger"
	"guarded-meal-planner/internal/observability"
	"guarded-meal-planner/internal/telegram"

	"github.com/joho/godotenv"
)

var version = "dev"

const sessionCleanupInterval = time.Hour

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	flush := observability.InitSentry(cfg, version)
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}
	defer a.Close()

	sessions := telegram.NewSessionRepository(a.DB().SQL)
	bot, err := telegram.NewBot(cfg, a.Planner(), sessions, a.Metrics())
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}

	go cleanupSessions(ctx, sessions)

	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Telegram Bot Server listening", logger.Fields{"port": cfg.Port, "version": version})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", err, nil)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

// cleanupSessions removes expired conversation state until ctx is done.
func cleanupSessions(ctx context.Context, sessions *telegram.SessionRepository) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.CleanupExpired(ctx)
			if err != nil {
				logger.Error("Session cleanup failed", err, nil)
				continue
			}
			if n > 0 {
				logger.Info("Expired sessions removed", logger.Fields{"count": n})
			}
		}
	}
}
