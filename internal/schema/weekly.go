package schema

// DailyMeals holds the meals of one day. Any slot may be absent.
type DailyMeals struct {
	Breakfast *Meal `json:"breakfast,omitempty"`
	Lunch     *Meal `json:"lunch,omitempty"`
	Dinner    *Meal `json:"dinner,omitempty"`
}

// WeeklyPlan maps a day name ("Monday") to that day's meals.
type WeeklyPlan struct {
	Meals map[string]DailyMeals `json:"meals"`
}

type weeklyPlanSchema struct{}

// WeeklyPlanSchema validates {"meals": {"<day>": {"breakfast"?, "lunch"?, "dinner"?}}}.
var WeeklyPlanSchema Schema[WeeklyPlan] = weeklyPlanSchema{}

func (weeklyPlanSchema) Name() string { return "weekly_plan" }

func (s weeklyPlanSchema) Validate(candidate any) (WeeklyPlan, error) {
	d := &decoder{}
	plan := WeeklyPlan{Meals: map[string]DailyMeals{}}

	if root, ok := d.object(candidate, "$"); ok {
		if days, ok := d.object(root["meals"], "meals"); ok {
			for day, v := range days {
				plan.Meals[day] = d.day(v, join("meals", day))
			}
		}
	}

	if err := d.result(s.Name()); err != nil {
		return WeeklyPlan{}, err
	}
	return plan, nil
}

func (d *decoder) day(v any, path string) DailyMeals {
	var out DailyMeals
	obj, ok := d.object(v, path)
	if !ok {
		return out
	}

	slot := func(key string) *Meal {
		raw, ok := obj[key]
		if !ok || raw == nil {
			return nil
		}
		m := d.meal(raw, join(path, key))
		return &m
	}
	out.Breakfast = slot("breakfast")
	out.Lunch = slot("lunch")
	out.Dinner = slot("dinner")
	return out
}

func (weeklyPlanSchema) JSONSchema() map[string]any {
	day := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"breakfast": mealJSONSchema(),
			"lunch":     mealJSONSchema(),
			"dinner":    mealJSONSchema(),
		},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"meals": map[string]any{
				"type":                 "object",
				"additionalProperties": day,
			},
		},
		"required": []string{"meals"},
	}
}
