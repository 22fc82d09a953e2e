// Package api exposes the planner over HTTP.
package api

import (
	"path/filepath"

	"guarded-meal-planner/internal/api/handlers"
	"guarded-meal-planner/internal/api/middleware"
	"guarded-meal-planner/internal/config"
	"guarded-meal-planner/internal/planner"

	"github.com/gin-gonic/gin"
)

// SetupRouter wires the middleware chain and every route.
func SetupRouter(cfg *config.Config, p *planner.Planner, version string) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Recovery must run first so it sees panics from everything below.
	router.Use(middleware.RecoverWithSentry())
	router.Use(middleware.SentryMiddleware())
	router.Use(middleware.RequestTracking())

	health := handlers.NewHealthHandler(filepath.Dir(cfg.DatabasePath), version)
	router.GET("/health", health.HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.JWTAuth(cfg.JWTSecret))
	{
		plans := handlers.NewMealPlanHandler(p)
		v1.POST("/meal-plans", plans.Generate)
		v1.GET("/meal-plans", plans.List)
		v1.GET("/meal-plans/week/:date", plans.GetWeek)
		v1.GET("/meal-plans/week/:date/shopping-list", plans.ShoppingList)
		v1.POST("/meals/alternatives", plans.Alternatives)
		v1.POST("/meals/swap", plans.Swap)

		profiles := handlers.NewProfileHandler(p.Profiles())
		v1.GET("/profile", profiles.Get)
		v1.PUT("/profile", profiles.Update)
	}

	return router
}
