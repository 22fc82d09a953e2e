package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"guarded-meal-planner/internal/api/middleware"
	"guarded-meal-planner/internal/database"
	"guarded-meal-planner/internal/logger"
	"guarded-meal-planner/internal/planner"
	"guarded-meal-planner/internal/schema"

	"github.com/gin-gonic/gin"
)

type MealPlanHandler struct {
	planner *planner.Planner
	now     func() time.Time
}

func NewMealPlanHandler(p *planner.Planner) *MealPlanHandler {
	return &MealPlanHandler{planner: p, now: time.Now}
}

// GeneratePlanRequest asks for the plan of the week containing WeekStart.
// An empty WeekStart means next week.
type GeneratePlanRequest struct {
	WeekStart string `json:"week_start"`
	Notes     string `json:"notes"`
}

// SlotRequest names one meal slot of a stored plan. Day may be given as a
// weekday name instead of DayOfWeek.
type SlotRequest struct {
	MealPlanID string `json:"meal_plan_id" binding:"required"`
	DayOfWeek  int    `json:"day_of_week"`
	Day        string `json:"day"`
	MealType   string `json:"meal_type" binding:"required"`
}

// SwapRequest replaces the meal in a slot. Meal is validated against the
// meal schema before anything is stored.
type SwapRequest struct {
	SlotRequest
	Meal any `json:"meal" binding:"required"`
}

func (r SlotRequest) slot() (int, planner.MealType, error) {
	day := r.DayOfWeek
	if day == 0 && r.Day != "" {
		d, ok := planner.DayOfWeek(r.Day)
		if !ok {
			return 0, "", fmt.Errorf("%w: unknown day %q", planner.ErrInvalidInput, r.Day)
		}
		day = d
	}
	if day < 1 || day > 7 {
		return 0, "", fmt.Errorf("%w: day_of_week must be 1..7", planner.ErrInvalidInput)
	}
	t, err := planner.ParseMealType(r.MealType)
	if err != nil {
		return 0, "", err
	}
	return day, t, nil
}

func (h *MealPlanHandler) Generate(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req GeneratePlanRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	weekStart := planner.NextMonday(h.now())
	if strings.TrimSpace(req.WeekStart) != "" {
		d, err := database.ParseDate(req.WeekStart)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "week_start must be YYYY-MM-DD"})
			return
		}
		weekStart = d
	}

	plan, err := h.planner.GenerateWeeklyPlan(c.Request.Context(), userID, weekStart, planner.Request{Notes: req.Notes})
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("Meal plan generated via API", logger.WithContext(c).Merge(logger.Fields{
		"plan_id":    plan.ID,
		"week_start": database.FormatDate(plan.WeekStart),
	}))
	c.JSON(http.StatusCreated, plan)
}

func (h *MealPlanHandler) List(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	plans, err := h.planner.ListMealPlans(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if plans == nil {
		plans = []planner.WeekMealPlan{}
	}
	c.JSON(http.StatusOK, gin.H{"meal_plans": plans})
}

func (h *MealPlanHandler) GetWeek(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	date, ok := weekParam(c)
	if !ok {
		return
	}

	plan, err := h.planner.GetMealPlan(c.Request.Context(), userID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *MealPlanHandler) ShoppingList(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	date, ok := weekParam(c)
	if !ok {
		return
	}

	list, err := h.planner.ShoppingList(c.Request.Context(), userID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *MealPlanHandler) Alternatives(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	day, mealType, err := req.slot()
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	current, err := h.planner.CurrentMealFor(ctx, userID, req.MealPlanID, day, mealType)
	if err != nil {
		respondError(c, err)
		return
	}
	alternatives, err := h.planner.GenerateAlternatives(ctx, userID, current)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"current":      current.Title,
		"alternatives": alternatives,
	})
}

func (h *MealPlanHandler) Swap(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	day, mealType, err := req.slot()
	if err != nil {
		respondError(c, err)
		return
	}
	meal, err := schema.Validate(req.Meal, schema.MealSchema)
	if err != nil {
		respondError(c, err)
		return
	}

	swapped, err := h.planner.SwapMeal(c.Request.Context(), userID, req.MealPlanID, day, mealType, meal)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("Meal swapped via API", logger.WithContext(c).Merge(logger.Fields{
		"plan_id":   req.MealPlanID,
		"day":       day,
		"meal_type": string(mealType),
		"recipe_id": swapped.ID,
	}))
	c.JSON(http.StatusOK, swapped)
}

func weekParam(c *gin.Context) (time.Time, bool) {
	date, err := database.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return date, true
}
