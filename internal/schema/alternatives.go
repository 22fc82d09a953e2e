package schema

// Alternatives is a non-empty list of replacement meal suggestions.
type Alternatives []Meal

type alternativesSchema struct{}

// AlternativesArraySchema validates a non-empty JSON array of meals.
var AlternativesArraySchema Schema[Alternatives] = alternativesSchema{}

func (alternativesSchema) Name() string { return "meal_alternatives" }

func (s alternativesSchema) Validate(candidate any) (Alternatives, error) {
	d := &decoder{}
	var out Alternatives

	switch items := candidate.(type) {
	case nil:
		d.fail("$", ReasonMissing, "array required")
	case []any:
		if len(items) == 0 {
			d.fail("$", ReasonOutOfBounds, "must contain at least 1 item(s)")
			break
		}
		out = make(Alternatives, 0, len(items))
		for i, item := range items {
			out = append(out, d.meal(item, index("", i)))
		}
	default:
		d.fail("$", ReasonWrongType, "expected array, got %s", typeName(candidate))
	}

	if err := d.result(s.Name()); err != nil {
		return nil, err
	}
	return out, nil
}

func (alternativesSchema) JSONSchema() map[string]any {
	return map[string]any{
		"type":     "array",
		"minItems": 1,
		"items":    mealJSONSchema(),
	}
}
