package shopping

import (
	"strings"
	"time"

	"guarded-meal-planner/internal/recipe"
)

// ShoppingList represents a shopping list for a meal plan.
type ShoppingList struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	MealPlanID string    `json:"meal_plan_id"`
	Items      []string  `json:"items"`
	CreatedAt  time.Time `json:"created_at"`
}

// Build aggregates the ingredients of recipes into one list. Duplicates are
// matched case-insensitively after trimming; the first spelling wins and
// items keep the order in which they first appear.
func Build(recipes []recipe.Recipe) []string {
	seen := make(map[string]bool)
	items := []string{}
	for _, r := range recipes {
		for _, ing := range r.Ingredients {
			item := strings.TrimSpace(ing)
			if item == "" {
				continue
			}
			key := strings.ToLower(item)
			if seen[key] {
				continue
			}
			seen[key] = true
			items = append(items, item)
		}
	}
	return items
}
