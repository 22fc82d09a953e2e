package guard

import (
	"errors"
	"fmt"
)

var (
	// ErrExhausted matches every *ExhaustionError.
	ErrExhausted = errors.New("generation attempts exhausted")
	// ErrInvalidAttempts is returned when maxAttempts is below 1.
	ErrInvalidAttempts = errors.New("max attempts must be at least 1")
)

// Kind classifies why an attempt failed.
type Kind string

const (
	KindGeneration Kind = "generation"
	KindExtraction Kind = "extraction"
	KindParse      Kind = "parse"
	KindValidation Kind = "validation"
)

// ParseError reports an extracted candidate that is not valid JSON.
type ParseError struct {
	Candidate string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("candidate is not valid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExhaustionError is the only failure a guarded run reports to its caller
// once every attempt has been spent.
type ExhaustionError struct {
	Schema   string
	Attempts int
	LastKind Kind
	Last     error
}

func (e *ExhaustionError) Error() string {
	return fmt.Sprintf("%s: no valid output after %d attempt(s), last %s failure: %v",
		e.Schema, e.Attempts, e.LastKind, e.Last)
}

func (e *ExhaustionError) Unwrap() error { return e.Last }

func (e *ExhaustionError) Is(target error) bool { return target == ErrExhausted }
