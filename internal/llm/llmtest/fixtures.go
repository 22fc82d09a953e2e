package llmtest

import "encoding/json"

// Meal builds a meal object that passes validation.
func Meal(title string, calories float64, ingredients ...string) map[string]any {
	if len(ingredients) == 0 {
		ingredients = []string{title + " base"}
	}
	return map[string]any{
		"title":           title,
		"description":     "A simple " + title + ".",
		"ingredients":     ingredients,
		"instructions":    []string{"Prepare", "Serve"},
		"nutrition":       map[string]any{"calories": calories, "protein_g": 20, "carbs_g": 40, "fat_g": 10},
		"prepTimeMinutes": 10,
		"servings":        1,
	}
}

// Day groups the slots of one day, keyed breakfast, lunch or dinner.
type Day map[string]map[string]any

// WeeklyPlan renders {"meals": days} as JSON.
func WeeklyPlan(days map[string]Day) string {
	return JSON(map[string]any{"meals": days})
}

// JSON marshals v, panicking on failure.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// Fenced wraps s in a markdown json fence with chatter around it.
func Fenced(s string) string {
	return "Here is your plan:\n```json\n" + s + "\n```\nEnjoy!"
}
