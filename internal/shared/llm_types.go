package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by a request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// Add returns the sum of two usages. The model of u wins when set.
func (t TokenUsage) Add(u TokenUsage) TokenUsage {
	sum := TokenUsage{
		PromptTokens:     t.PromptTokens + u.PromptTokens,
		CompletionTokens: t.CompletionTokens + u.CompletionTokens,
		TotalTokens:      t.TotalTokens + u.TotalTokens,
		Model:            t.Model,
	}
	if u.Model != "" {
		sum.Model = u.Model
	}
	return sum
}

// AgentMeta holds operational metadata for a guarded generation run.
type AgentMeta struct {
	AgentName string
	Usage     TokenUsage
	Latency   time.Duration
	Attempts  int
}
