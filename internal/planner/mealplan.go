package planner

import (
	"fmt"
	"strings"
	"time"

	"guarded-meal-planner/internal/recipe"
)

// MealType names a slot within a day.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
)

// MealTypes lists the slots of a day in serving order.
var MealTypes = []MealType{Breakfast, Lunch, Dinner}

// ParseMealType accepts a slot name in any case.
func ParseMealType(s string) (MealType, error) {
	t := MealType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case Breakfast, Lunch, Dinner:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown meal type %q", ErrInvalidInput, s)
}

// Meal is one slot of a stored or freshly generated plan. IDs are empty
// until the plan is persisted.
type Meal struct {
	ID         string        `json:"id"`
	MealPlanID string        `json:"meal_plan_id"`
	DayOfWeek  int           `json:"day_of_week"` // 1=Monday, 7=Sunday
	Type       MealType      `json:"type"`
	Recipe     recipe.Recipe `json:"recipe"`
	CreatedAt  time.Time     `json:"created_at"`
}

// DayMeals groups the slots of one calendar day.
type DayMeals struct {
	Day       string    `json:"day"`
	DayOfWeek int       `json:"day_of_week"`
	Date      time.Time `json:"date"`
	Breakfast *Meal     `json:"breakfast,omitempty"`
	Lunch     *Meal     `json:"lunch,omitempty"`
	Dinner    *Meal     `json:"dinner,omitempty"`
}

// Slot returns the meal of type t, or nil.
func (d *DayMeals) Slot(t MealType) *Meal {
	switch t {
	case Breakfast:
		return d.Breakfast
	case Lunch:
		return d.Lunch
	case Dinner:
		return d.Dinner
	}
	return nil
}

// SetSlot places m in the slot named by m.Type.
func (d *DayMeals) SetSlot(m *Meal) {
	switch m.Type {
	case Breakfast:
		d.Breakfast = m
	case Lunch:
		d.Lunch = m
	case Dinner:
		d.Dinner = m
	}
}

// WeekMealPlan is a user's plan for one Monday-to-Sunday week. Days always
// holds seven entries.
type WeekMealPlan struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	WeekStart time.Time  `json:"week_start"`
	WeekEnd   time.Time  `json:"week_end"`
	Days      []DayMeals `json:"days"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Day returns the entry for dayOfWeek (1..7), or nil.
func (p *WeekMealPlan) Day(dayOfWeek int) *DayMeals {
	if dayOfWeek < 1 || dayOfWeek > len(p.Days) {
		return nil
	}
	return &p.Days[dayOfWeek-1]
}

// Recipes returns the recipe of every filled slot in day and slot order.
func (p *WeekMealPlan) Recipes() []recipe.Recipe {
	var out []recipe.Recipe
	for _, m := range Slots(p) {
		out = append(out, m.Recipe)
	}
	return out
}

// TotalCalories sums the calories of one day.
func (d *DayMeals) TotalCalories() float64 {
	var total float64
	for _, t := range MealTypes {
		if m := d.Slot(t); m != nil {
			total += m.Recipe.Nutrition.Calories
		}
	}
	return total
}
