package llm

import (
	"errors"
	"fmt"
)

// ErrNoContent is returned when the backend answered without any text.
var ErrNoContent = errors.New("no content generated")

// GenerationError wraps any failure of a single backend call: transport,
// quota, rejection or an empty answer.
type GenerationError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s generation failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s generation failed: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// AsGenerationError returns err as a *GenerationError, wrapping it for
// provider when it is not one already.
func AsGenerationError(provider string, err error) *GenerationError {
	var gErr *GenerationError
	if errors.As(err, &gErr) {
		return gErr
	}
	return &GenerationError{Provider: provider, Err: err}
}
