package llm

import (
	"context"

	"guarded-meal-planner/internal/shared"
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
// Implementations make exactly one call to the backend and never retry.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// JSONHint asks a backend to format its answer as JSON. Backends treat it
// as best effort.
type JSONHint struct {
	Name   string
	Schema map[string]any
}

// ExpectsObject reports whether the hinted document is a JSON object.
// Backends whose JSON mode only produces objects skip the hint otherwise.
func (h JSONHint) ExpectsObject() bool {
	t, _ := h.Schema["type"].(string)
	return t == "" || t == "object"
}

// JSONGenerator is a TextGenerator that can pass a JSON hint to its backend.
type JSONGenerator interface {
	TextGenerator
	GenerateJSON(ctx context.Context, prompt string, hint JSONHint) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

// Client is what the application holds on to: a JSON-capable generator
// that owns network resources.
type Client interface {
	JSONGenerator
	Closer
	Provider() string
	Model() string
}
