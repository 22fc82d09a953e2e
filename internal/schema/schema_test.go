package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeJSON(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func validMeal() map[string]any {
	return map[string]any{
		"title":        "Oats",
		"description":  "Warm porridge",
		"ingredients":  []any{"oats", "milk"},
		"instructions": []any{"cook"},
		"nutrition":    map[string]any{"calories": 300.0},
		"servings":     1.0,
	}
}

func requireValidationError(t *testing.T, err error) *ValidationError {
	t.Helper()
	require.Error(t, err)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr), "expected *ValidationError, got %T", err)
	return vErr
}

func TestMealSchema_CaloriesCoercion(t *testing.T) {
	tests := []struct {
		name     string
		calories any
		want     float64
		reason   Reason
	}{
		{name: "number", calories: 420.0, want: 420},
		{name: "string with unit", calories: "420 kcal", want: 420},
		{name: "decimal string", calories: "about 312.5 calories", want: 312.5},
		{name: "json number", calories: json.Number("250"), want: 250},
		{name: "non numeric string", calories: "unknown", reason: ReasonCoercion},
		{name: "boolean", calories: true, reason: ReasonWrongType},
		{name: "negative string", calories: "-20 kcal", reason: ReasonOutOfBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMeal()
			m["nutrition"] = map[string]any{"calories": tt.calories}

			got, err := Validate(m, MealSchema)
			if tt.reason != "" {
				vErr := requireValidationError(t, err)
				assert.True(t, vErr.Has("nutrition.calories", tt.reason), vErr.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Nutrition.Calories)
		})
	}
}

func TestMealSchema_Bounds(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value any
		ok    bool
	}{
		{name: "calories above ceiling", field: "calories", value: 6000.0},
		{name: "calories at zero", field: "calories", value: 0.0, ok: true},
		{name: "calories at ceiling", field: "calories", value: 5000.0, ok: true},
		{name: "protein above ceiling", field: "protein_g", value: 201.0},
		{name: "carbs at ceiling", field: "carbs_g", value: "1000 g", ok: true},
		{name: "fat above ceiling", field: "fat_g", value: 500.5},
		{name: "fiber negative", field: "fiber_g", value: -1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nutrition := map[string]any{"calories": 300.0}
			nutrition[tt.field] = tt.value
			m := validMeal()
			m["nutrition"] = nutrition

			_, err := Validate(m, MealSchema)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			vErr := requireValidationError(t, err)
			assert.True(t, vErr.Has("nutrition."+tt.field, ReasonOutOfBounds), vErr.Error())
		})
	}
}

func TestMealSchema_RequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m map[string]any)
		path   string
		reason Reason
	}{
		{name: "missing title", mutate: func(m map[string]any) { delete(m, "title") }, path: "title", reason: ReasonMissing},
		{name: "blank description", mutate: func(m map[string]any) { m["description"] = "  " }, path: "description", reason: ReasonMissing},
		{name: "empty ingredients", mutate: func(m map[string]any) { m["ingredients"] = []any{} }, path: "ingredients", reason: ReasonOutOfBounds},
		{name: "non string instruction", mutate: func(m map[string]any) { m["instructions"] = []any{"stir", 3.0} }, path: "instructions[1]", reason: ReasonWrongType},
		{name: "missing nutrition", mutate: func(m map[string]any) { delete(m, "nutrition") }, path: "nutrition", reason: ReasonMissing},
		{name: "missing calories", mutate: func(m map[string]any) { m["nutrition"] = map[string]any{"protein_g": 10.0} }, path: "nutrition.calories", reason: ReasonMissing},
		{name: "zero servings", mutate: func(m map[string]any) { m["servings"] = 0.0 }, path: "servings", reason: ReasonOutOfBounds},
		{name: "fractional servings", mutate: func(m map[string]any) { m["servings"] = 1.5 }, path: "servings", reason: ReasonWrongType},
		{name: "string prep time", mutate: func(m map[string]any) { m["prepTimeMinutes"] = "10" }, path: "prepTimeMinutes", reason: ReasonWrongType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMeal()
			tt.mutate(m)

			_, err := Validate(m, MealSchema)
			vErr := requireValidationError(t, err)
			assert.True(t, vErr.Has(tt.path, tt.reason), vErr.Error())
		})
	}
}

func TestMealSchema_OptionalFields(t *testing.T) {
	m := validMeal()
	m["prepTimeMinutes"] = 10.0
	m["cookTimeMinutes"] = nil
	m["nutrition"] = map[string]any{"calories": 300.0, "protein_g": "12g", "fiber_g": nil}

	got, err := Validate(m, MealSchema)
	require.NoError(t, err)

	require.NotNil(t, got.PrepTimeMinutes)
	assert.Equal(t, 10, *got.PrepTimeMinutes)
	assert.Nil(t, got.CookTimeMinutes)
	require.NotNil(t, got.Nutrition.ProteinG)
	assert.Equal(t, 12.0, *got.Nutrition.ProteinG)
	assert.Nil(t, got.Nutrition.FiberG)
	assert.Nil(t, got.Nutrition.CarbsG)
}

func TestMealSchema_ReportsEveryFailingField(t *testing.T) {
	m := validMeal()
	delete(m, "title")
	m["servings"] = 0.0
	m["nutrition"] = map[string]any{"calories": "n/a"}

	_, err := Validate(m, MealSchema)
	vErr := requireValidationError(t, err)

	assert.Len(t, vErr.Fields, 3)
	assert.Contains(t, vErr.Error(), "meal failed validation")
}

func TestWeeklyPlanSchema(t *testing.T) {
	t.Run("valid plan", func(t *testing.T) {
		raw := `{"meals":{"Monday":{"breakfast":{"title":"Oats","description":"d","ingredients":["oats"],"instructions":["cook"],"nutrition":{"calories":"300 kcal"},"servings":1}},"Tuesday":{}}}`

		plan, err := Validate(decodeJSON(t, raw), WeeklyPlanSchema)
		require.NoError(t, err)

		require.Contains(t, plan.Meals, "Monday")
		monday := plan.Meals["Monday"]
		require.NotNil(t, monday.Breakfast)
		assert.Nil(t, monday.Lunch)
		assert.Equal(t, "Oats", monday.Breakfast.Title)
		assert.Equal(t, 300.0, monday.Breakfast.Nutrition.Calories)
		assert.Contains(t, plan.Meals, "Tuesday")
	})

	t.Run("breakfast missing ingredients", func(t *testing.T) {
		raw := `{"meals":{"Monday":{"breakfast":{"title":"Oats","description":"d","instructions":["cook"],"nutrition":{"calories":300},"servings":1}}}}`

		_, err := Validate(decodeJSON(t, raw), WeeklyPlanSchema)
		vErr := requireValidationError(t, err)
		assert.True(t, vErr.Has("meals.Monday.breakfast.ingredients", ReasonMissing), vErr.Error())
		assert.Len(t, vErr.Fields, 1)
	})

	t.Run("missing meals key", func(t *testing.T) {
		_, err := Validate(decodeJSON(t, `{"Monday":{}}`), WeeklyPlanSchema)
		vErr := requireValidationError(t, err)
		assert.True(t, vErr.Has("meals", ReasonMissing))
	})

	t.Run("array root", func(t *testing.T) {
		_, err := Validate(decodeJSON(t, `[]`), WeeklyPlanSchema)
		vErr := requireValidationError(t, err)
		assert.True(t, vErr.Has("$", ReasonWrongType))
	})

	t.Run("day is not an object", func(t *testing.T) {
		_, err := Validate(decodeJSON(t, `{"meals":{"Monday":"oats"}}`), WeeklyPlanSchema)
		vErr := requireValidationError(t, err)
		assert.True(t, vErr.Has("meals.Monday", ReasonWrongType))
	})
}

func TestAlternativesArraySchema(t *testing.T) {
	t.Run("valid list", func(t *testing.T) {
		alts, err := Validate([]any{validMeal(), validMeal()}, AlternativesArraySchema)
		require.NoError(t, err)
		assert.Len(t, alts, 2)
	})

	t.Run("empty list", func(t *testing.T) {
		_, err := Validate([]any{}, AlternativesArraySchema)
		vErr := requireValidationError(t, err)
		assert.True(t, vErr.Has("$", ReasonOutOfBounds))
	})

	t.Run("object root", func(t *testing.T) {
		_, err := Validate(validMeal(), AlternativesArraySchema)
		vErr := requireValidationError(t, err)
		assert.True(t, vErr.Has("$", ReasonWrongType))
	})

	t.Run("indexed field paths", func(t *testing.T) {
		bad := validMeal()
		delete(bad, "title")

		_, err := Validate([]any{validMeal(), bad}, AlternativesArraySchema)
		vErr := requireValidationError(t, err)
		assert.True(t, vErr.Has("[1].title", ReasonMissing), vErr.Error())
	})
}

func TestJSONSchemaRoots(t *testing.T) {
	assert.Equal(t, "object", WeeklyPlanSchema.JSONSchema()["type"])
	assert.Equal(t, "array", AlternativesArraySchema.JSONSchema()["type"])
	assert.Equal(t, "object", MealSchema.JSONSchema()["type"])
}
