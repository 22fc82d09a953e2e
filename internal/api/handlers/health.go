package handlers

import (
	"net/http"

	"guarded-meal-planner/internal/metrics"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	dataPath string
	version  string
}

func NewHealthHandler(dataPath, version string) *HealthHandler {
	return &HealthHandler{dataPath: dataPath, version: version}
}

// HealthCheck returns the health status of the API
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": h.version,
		"system":  metrics.GetSysHealth(h.dataPath),
	})
}
