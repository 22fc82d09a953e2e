// Package handlers implements the HTTP handlers of the meal planner API.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"guarded-meal-planner/internal/guard"
	"guarded-meal-planner/internal/logger"
	"guarded-meal-planner/internal/planner"
	"guarded-meal-planner/internal/profile"
	"guarded-meal-planner/internal/ratelimit"
	"guarded-meal-planner/internal/schema"

	"github.com/gin-gonic/gin"
)

// MsgGenerationFailed is shown when every guarded attempt failed.
const MsgGenerationFailed = "generation failed, please retry"

// respondError maps domain errors onto status codes. Unknown errors are
// logged and hidden behind a 500.
func respondError(c *gin.Context, err error) {
	var limitErr *ratelimit.LimitError
	var validationErr *schema.ValidationError

	switch {
	case errors.As(err, &limitErr):
		c.Header("Retry-After", strconv.Itoa(limitErr.RetryAfterSeconds()))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":               limitErr.Error(),
			"retry_after_seconds": limitErr.RetryAfterSeconds(),
		})
	case errors.Is(err, guard.ErrExhausted):
		logger.Warn("Generation exhausted", logger.WithContext(c).Merge(logger.Fields{"error": err.Error()}))
		c.JSON(http.StatusBadGateway, gin.H{"error": MsgGenerationFailed})
	case errors.Is(err, planner.ErrPlanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "meal plan not found"})
	case errors.Is(err, planner.ErrMealNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "meal not found"})
	case errors.As(err, &validationErr):
		details := make([]string, 0, len(validationErr.Fields))
		for _, f := range validationErr.Fields {
			details = append(details, f.Error())
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + validationErr.Schema, "details": details})
	case errors.Is(err, planner.ErrInvalidInput), errors.Is(err, profile.ErrInvalidProfile):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error("Request failed", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
