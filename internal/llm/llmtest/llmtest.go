// Package llmtest provides a scripted text generator for tests of code that
// sits above the generation client.
package llmtest

import (
	"context"
	"sync"

	"guarded-meal-planner/internal/llm"
	"guarded-meal-planner/internal/shared"
)

// Reply is one scripted backend answer.
type Reply struct {
	Content string
	Err     error
}

// Text is shorthand for a successful reply.
func Text(content string) Reply { return Reply{Content: content} }

// Fail is shorthand for a failed call.
func Fail(err error) Reply { return Reply{Err: err} }

// Scripted replays its replies in order and repeats the last one once the
// script runs out. It records every prompt it receives.
type Scripted struct {
	mu      sync.Mutex
	replies []Reply
	prompts []string
	Usage   shared.TokenUsage
}

var _ llm.TextGenerator = (*Scripted)(nil)

// New creates a Scripted generator. It panics without replies.
func New(replies ...Reply) *Scripted {
	if len(replies) == 0 {
		panic("llmtest: at least one reply is required")
	}
	return &Scripted{
		replies: replies,
		Usage:   shared.TokenUsage{PromptTokens: 120, CompletionTokens: 80, TotalTokens: 200, Model: "scripted"},
	}
}

func (s *Scripted) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, prompt)
	if err := ctx.Err(); err != nil {
		return llm.ContentResponse{}, err
	}
	r := s.replies[min(len(s.prompts), len(s.replies))-1]
	if r.Err != nil {
		return llm.ContentResponse{}, r.Err
	}
	return llm.ContentResponse{Content: r.Content, Usage: s.Usage}, nil
}

// Calls returns how many times GenerateContent ran.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

// Prompts returns a copy of the received prompts.
func (s *Scripted) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}
