package schema

// Nutrition bounds, inclusive.
const (
	MaxCalories = 5000
	MaxProteinG = 200
	MaxCarbsG   = 1000
	MaxFatG     = 500
	MaxFiberG   = 500
)

// Nutrition is the validated nutrition block of a meal. Calories is always
// present; the finer fields are nil when the model omitted them.
type Nutrition struct {
	Calories float64  `json:"calories"`
	ProteinG *float64 `json:"protein_g,omitempty"`
	CarbsG   *float64 `json:"carbs_g,omitempty"`
	FatG     *float64 `json:"fat_g,omitempty"`
	FiberG   *float64 `json:"fiber_g,omitempty"`
}

// Meal is one validated meal suggestion.
type Meal struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Ingredients     []string  `json:"ingredients"`
	Instructions    []string  `json:"instructions"`
	Nutrition       Nutrition `json:"nutrition"`
	PrepTimeMinutes *int      `json:"prepTimeMinutes,omitempty"`
	CookTimeMinutes *int      `json:"cookTimeMinutes,omitempty"`
	Servings        int       `json:"servings"`
}

func (d *decoder) nutrition(v any, path string) Nutrition {
	var out Nutrition
	obj, ok := d.object(v, path)
	if !ok {
		return out
	}

	if c := d.quantity(obj, "calories", path, 0, MaxCalories, true); c != nil {
		out.Calories = *c
	}
	out.ProteinG = d.quantity(obj, "protein_g", path, 0, MaxProteinG, false)
	out.CarbsG = d.quantity(obj, "carbs_g", path, 0, MaxCarbsG, false)
	out.FatG = d.quantity(obj, "fat_g", path, 0, MaxFatG, false)
	out.FiberG = d.quantity(obj, "fiber_g", path, 0, MaxFiberG, false)
	return out
}

func (d *decoder) meal(v any, path string) Meal {
	var out Meal
	obj, ok := d.object(v, path)
	if !ok {
		return out
	}

	out.Title = d.requiredString(obj, "title", path)
	out.Description = d.requiredString(obj, "description", path)
	out.Ingredients = d.stringList(obj, "ingredients", path, 1)
	out.Instructions = d.stringList(obj, "instructions", path, 1)
	out.Nutrition = d.nutrition(obj["nutrition"], join(path, "nutrition"))
	out.PrepTimeMinutes = d.integer(obj, "prepTimeMinutes", path, 0, false)
	out.CookTimeMinutes = d.integer(obj, "cookTimeMinutes", path, 0, false)
	if s := d.integer(obj, "servings", path, 1, true); s != nil {
		out.Servings = *s
	}
	return out
}

type mealSchema struct{}

// MealSchema validates a single meal object.
var MealSchema Schema[Meal] = mealSchema{}

func (mealSchema) Name() string { return "meal" }

func (s mealSchema) Validate(candidate any) (Meal, error) {
	d := &decoder{}
	m := d.meal(candidate, "")
	if err := d.result(s.Name()); err != nil {
		return Meal{}, err
	}
	return m, nil
}

func (mealSchema) JSONSchema() map[string]any { return mealJSONSchema() }

func quantityJSONSchema(max float64) map[string]any {
	return map[string]any{"type": "number", "minimum": 0, "maximum": max}
}

func mealJSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":        map[string]any{"type": "string", "minLength": 1},
			"description":  map[string]any{"type": "string", "minLength": 1},
			"ingredients":  map[string]any{"type": "array", "minItems": 1, "items": map[string]any{"type": "string"}},
			"instructions": map[string]any{"type": "array", "minItems": 1, "items": map[string]any{"type": "string"}},
			"nutrition": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"calories":  quantityJSONSchema(MaxCalories),
					"protein_g": quantityJSONSchema(MaxProteinG),
					"carbs_g":   quantityJSONSchema(MaxCarbsG),
					"fat_g":     quantityJSONSchema(MaxFatG),
					"fiber_g":   quantityJSONSchema(MaxFiberG),
				},
				"required": []string{"calories"},
			},
			"prepTimeMinutes": map[string]any{"type": "integer", "minimum": 0},
			"cookTimeMinutes": map[string]any{"type": "integer", "minimum": 0},
			"servings":        map[string]any{"type": "integer", "minimum": 1},
		},
		"required": []string{"title", "description", "ingredients", "instructions", "nutrition", "servings"},
	}
}
