// Package schema holds the structural contracts that model output must
// satisfy before the rest of the application sees it.
//
// A Schema decodes a generic JSON value (the result of json.Unmarshal into
// an `any`) into a typed result in one pass, coercing numeric strings where
// a quantity is expected and collecting every failing field.
package schema

import (
	"fmt"
	"strings"
)

// Schema describes an accepted shape of model output.
type Schema[T any] interface {
	// Name identifies the schema in logs, metrics and backend JSON hints.
	Name() string
	// Validate checks candidate and returns the typed value or a *ValidationError.
	Validate(candidate any) (T, error)
	// JSONSchema returns a JSON Schema document describing the shape,
	// passed to backends that accept one as a formatting hint.
	JSONSchema() map[string]any
}

// Validate runs s against candidate. It has no side effects.
func Validate[T any](candidate any, s Schema[T]) (T, error) {
	return s.Validate(candidate)
}

// Reason classifies a field failure.
type Reason string

const (
	ReasonMissing     Reason = "missing"
	ReasonWrongType   Reason = "wrong_type"
	ReasonOutOfBounds Reason = "out_of_bounds"
	ReasonCoercion    Reason = "failed_coercion"
)

// FieldError reports one failing field by its dotted path.
type FieldError struct {
	Path   string
	Reason Reason
	Detail string
}

func (e FieldError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Path, e.Reason, e.Detail)
}

// ValidationError is returned when a candidate does not satisfy a schema.
type ValidationError struct {
	Schema string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("%s failed validation: %s", e.Schema, strings.Join(parts, "; "))
}

// Has reports whether a field at path failed with reason.
func (e *ValidationError) Has(path string, reason Reason) bool {
	for _, f := range e.Fields {
		if f.Path == path && f.Reason == reason {
			return true
		}
	}
	return false
}
