package handlers

import (
	"net/http"

	"guarded-meal-planner/internal/api/middleware"
	"guarded-meal-planner/internal/profile"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profiles *profile.Repository
}

func NewProfileHandler(profiles *profile.Repository) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

type UpdateProfileRequest struct {
	DietType    string   `json:"diet_type"`
	Allergies   []string `json:"allergies"`
	CalorieGoal *int     `json:"calorie_goal"`
}

// Get returns the caller's profile. Users without one get an empty
// profile rather than a 404.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	p, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if p == nil {
		p = &profile.Profile{UserID: userID, Allergies: []string{}}
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProfileHandler) Update(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := &profile.Profile{
		UserID:      userID,
		DietType:    req.DietType,
		Allergies:   req.Allergies,
		CalorieGoal: req.CalorieGoal,
	}
	if err := h.profiles.Save(c.Request.Context(), p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
