package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numericToken = regexp.MustCompile(`-?\d+(\.\d+)?`)

// decoder walks a generic JSON value and accumulates field errors.
type decoder struct {
	errs []FieldError
}

func (d *decoder) fail(path string, reason Reason, format string, args ...any) {
	d.errs = append(d.errs, FieldError{Path: path, Reason: reason, Detail: fmt.Sprintf(format, args...)})
}

func (d *decoder) result(name string) error {
	if len(d.errs) == 0 {
		return nil
	}
	return &ValidationError{Schema: name, Fields: d.errs}
}

func join(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func index(parent string, i int) string {
	return fmt.Sprintf("%s[%d]", parent, i)
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		if _, ok := asNumber(v); ok {
			return "number"
		}
		return fmt.Sprintf("%T", v)
	}
}

// asNumber accepts the numeric representations produced by encoding/json
// (float64, json.Number) and plain Go integers for hand-built candidates.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// object returns v as a JSON object, recording a failure otherwise.
func (d *decoder) object(v any, path string) (map[string]any, bool) {
	if v == nil {
		d.fail(path, ReasonMissing, "object required")
		return nil, false
	}
	obj, ok := v.(map[string]any)
	if !ok {
		d.fail(path, ReasonWrongType, "expected object, got %s", typeName(v))
		return nil, false
	}
	return obj, true
}

func (d *decoder) requiredString(obj map[string]any, key, path string) string {
	p := join(path, key)
	v, ok := obj[key]
	if !ok || v == nil {
		d.fail(p, ReasonMissing, "string required")
		return ""
	}
	s, ok := v.(string)
	if !ok {
		d.fail(p, ReasonWrongType, "expected string, got %s", typeName(v))
		return ""
	}
	if strings.TrimSpace(s) == "" {
		d.fail(p, ReasonMissing, "must not be empty")
		return ""
	}
	return s
}

func (d *decoder) stringList(obj map[string]any, key, path string, min int) []string {
	p := join(path, key)
	v, ok := obj[key]
	if !ok || v == nil {
		d.fail(p, ReasonMissing, "array required")
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		d.fail(p, ReasonWrongType, "expected array, got %s", typeName(v))
		return nil
	}
	if len(items) < min {
		d.fail(p, ReasonOutOfBounds, "must contain at least %d item(s)", min)
		return nil
	}

	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			d.fail(index(p, i), ReasonWrongType, "expected string, got %s", typeName(item))
			continue
		}
		out = append(out, s)
	}
	return out
}

// coerceQuantity converts a number or a numeric-looking string to float64.
// Strings contribute their first numeric token, so "420 kcal" yields 420.
func coerceQuantity(v any) (float64, Reason, string) {
	if n, ok := asNumber(v); ok {
		return n, "", ""
	}
	s, ok := v.(string)
	if !ok {
		return 0, ReasonWrongType, fmt.Sprintf("expected number, got %s", typeName(v))
	}
	token := numericToken.FindString(s)
	if token == "" {
		return 0, ReasonCoercion, fmt.Sprintf("no numeric value in %q", s)
	}
	n, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, ReasonCoercion, fmt.Sprintf("cannot parse %q", token)
	}
	return n, "", ""
}

// quantity decodes a coerced numeric field within [lo, hi].
// A nil return with no recorded error means an absent optional field.
func (d *decoder) quantity(obj map[string]any, key, path string, lo, hi float64, required bool) *float64 {
	p := join(path, key)
	v, ok := obj[key]
	if !ok || v == nil {
		if required {
			d.fail(p, ReasonMissing, "number required")
		}
		return nil
	}

	n, reason, detail := coerceQuantity(v)
	if reason != "" {
		d.fail(p, reason, "%s", detail)
		return nil
	}
	if math.IsNaN(n) || n < lo || n > hi {
		d.fail(p, ReasonOutOfBounds, "%v not in [%v, %v]", n, lo, hi)
		return nil
	}
	return &n
}

// integer decodes a whole-number field with a lower bound. No string coercion.
func (d *decoder) integer(obj map[string]any, key, path string, min int, required bool) *int {
	p := join(path, key)
	v, ok := obj[key]
	if !ok || v == nil {
		if required {
			d.fail(p, ReasonMissing, "integer required")
		}
		return nil
	}

	n, ok := asNumber(v)
	if !ok {
		d.fail(p, ReasonWrongType, "expected integer, got %s", typeName(v))
		return nil
	}
	if n != math.Trunc(n) || math.IsInf(n, 0) {
		d.fail(p, ReasonWrongType, "expected integer, got %v", n)
		return nil
	}
	if n < float64(min) {
		d.fail(p, ReasonOutOfBounds, "%v is below minimum %d", n, min)
		return nil
	}
	i := int(n)
	return &i
}
