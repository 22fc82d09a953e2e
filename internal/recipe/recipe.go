package recipe

import (
	"fmt"
	"strings"
	"time"

	"guarded-meal-planner/internal/schema"
)

// Recipe is a stored meal: the validated suggestion plus its owner and id.
type Recipe struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Ingredients     []string         `json:"ingredients"`
	Instructions    []string         `json:"instructions"`
	Nutrition       schema.Nutrition `json:"nutrition"`
	PrepTimeMinutes int              `json:"prep_time_minutes"`
	CookTimeMinutes int              `json:"cook_time_minutes"`
	Servings        int              `json:"servings"`
	CreatedAt       time.Time        `json:"created_at"`
}

// FromMeal builds an unsaved recipe from a validated meal. Absent prep and
// cook times become 0.
func FromMeal(userID string, m schema.Meal, now time.Time) Recipe {
	r := Recipe{
		UserID:       userID,
		Title:        m.Title,
		Description:  m.Description,
		Ingredients:  append([]string(nil), m.Ingredients...),
		Instructions: append([]string(nil), m.Instructions...),
		Nutrition:    m.Nutrition,
		Servings:     m.Servings,
		CreatedAt:    now,
	}
	if m.PrepTimeMinutes != nil {
		r.PrepTimeMinutes = *m.PrepTimeMinutes
	}
	if m.CookTimeMinutes != nil {
		r.CookTimeMinutes = *m.CookTimeMinutes
	}
	return r
}

// Meal converts the recipe back into the validated meal shape.
func (r Recipe) Meal() schema.Meal {
	prep, cook := r.PrepTimeMinutes, r.CookTimeMinutes
	return schema.Meal{
		Title:           r.Title,
		Description:     r.Description,
		Ingredients:     append([]string(nil), r.Ingredients...),
		Instructions:    append([]string(nil), r.Instructions...),
		Nutrition:       r.Nutrition,
		PrepTimeMinutes: &prep,
		CookTimeMinutes: &cook,
		Servings:        r.Servings,
	}
}

// TotalTimeMinutes is prep plus cook time.
func (r Recipe) TotalTimeMinutes() int {
	return r.PrepTimeMinutes + r.CookTimeMinutes
}

// Summary renders a compact one-line description for chat and CLI output.
func (r Recipe) Summary() string {
	var b strings.Builder
	b.WriteString(r.Title)
	fmt.Fprintf(&b, " (%.0f kcal", r.Nutrition.Calories)
	if r.Nutrition.ProteinG != nil {
		fmt.Fprintf(&b, ", %.0fg protein", *r.Nutrition.ProteinG)
	}
	if t := r.TotalTimeMinutes(); t > 0 {
		fmt.Fprintf(&b, ", %d min", t)
	}
	b.WriteString(")")
	return b.String()
}
