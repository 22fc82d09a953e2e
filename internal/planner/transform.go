package planner

import (
	"sort"
	"strings"
	"time"

	"guarded-meal-planner/internal/recipe"
	"guarded-meal-planner/internal/schema"
)

// FromWeeklyPlan maps a validated weekly plan onto the seven days starting
// at weekStart. Day names match case-insensitively; unknown names are
// dropped. When two keys name the same day, the canonical spelling wins,
// then the lexically first. IDs stay empty until the plan is saved.
func FromWeeklyPlan(plan schema.WeeklyPlan, weekStart, now time.Time) WeekMealPlan {
	out := WeekMealPlan{
		WeekStart: weekStart,
		WeekEnd:   weekStart.AddDate(0, 0, 6),
		Days:      WeekDays(weekStart),
		CreatedAt: now,
		UpdatedAt: now,
	}

	keys := make([]string, 0, len(plan.Meals))
	for k := range plan.Meals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	chosen := make(map[int]string)
	for _, k := range keys {
		dow, ok := dayFromName(k)
		if !ok {
			continue
		}
		prev, taken := chosen[dow]
		if !taken || (prev != DayNames[dow-1] && k == DayNames[dow-1]) {
			chosen[dow] = k
		}
	}

	for dow, key := range chosen {
		daily := plan.Meals[key]
		day := &out.Days[dow-1]
		for _, t := range MealTypes {
			if m := aiSlot(daily, t); m != nil {
				meal := MealFromAI(*m, dow, t, now)
				day.SetSlot(&meal)
			}
		}
	}
	return out
}

func dayFromName(name string) (int, bool) {
	name = strings.TrimSpace(name)
	for i, d := range DayNames {
		if strings.EqualFold(name, d) {
			return i + 1, true
		}
	}
	return 0, false
}

func aiSlot(d schema.DailyMeals, t MealType) *schema.Meal {
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

// MealFromAI builds an unsaved meal for one slot.
func MealFromAI(m schema.Meal, dayOfWeek int, t MealType, now time.Time) Meal {
	return Meal{
		DayOfWeek: dayOfWeek,
		Type:      t,
		Recipe:    recipe.FromMeal("", m, now),
		CreatedAt: now,
	}
}

// FromStored rebuilds the seven-day view from a plan header and its meal
// rows. Rows with an out-of-range day are ignored.
func FromStored(plan WeekMealPlan, meals []Meal) WeekMealPlan {
	out := plan
	out.WeekEnd = plan.WeekStart.AddDate(0, 0, 6)
	out.Days = WeekDays(plan.WeekStart)
	for i := range meals {
		if day := out.Day(meals[i].DayOfWeek); day != nil {
			m := meals[i]
			day.SetSlot(&m)
		}
	}
	return out
}

// Slots returns the filled slots of p, Monday breakfast first.
func Slots(p *WeekMealPlan) []Meal {
	var out []Meal
	for i := range p.Days {
		for _, t := range MealTypes {
			if m := p.Days[i].Slot(t); m != nil {
				out = append(out, *m)
			}
		}
	}
	return out
}
