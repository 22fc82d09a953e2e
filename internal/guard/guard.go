// Package guard turns a single unreliable text-generation call into a
// schema-validated value. A run makes up to maxAttempts sequential attempts,
// each one composing a prompt, calling the backend, extracting the JSON
// candidate, parsing it and validating it. The first valid value ends the
// run; after the last failed attempt the run ends with an *ExhaustionError.
package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"guarded-meal-planner/internal/clock"
	"guarded-meal-planner/internal/extract"
	"guarded-meal-planner/internal/llm"
	"guarded-meal-planner/internal/schema"
	"guarded-meal-planner/internal/shared"

	"github.com/google/uuid"
)

// DefaultBaseDelay is multiplied by the attempt number between attempts.
const DefaultBaseDelay = 400 * time.Millisecond

// State is a position in the attempt state machine.
type State string

const (
	StateAttempting State = "attempting"
	StateSucceeded  State = "succeeded"
	StateExhausted  State = "exhausted"
	StateCanceled   State = "canceled"
)

// Guard holds the collaborators shared by runs. It keeps no per-run state,
// so one Guard serves any number of concurrent runs.
type Guard struct {
	gen       llm.TextGenerator
	provider  string
	baseDelay time.Duration
	clock     clock.Clock
	observer  Observer
}

// Option configures a Guard.
type Option func(*Guard)

// WithBaseDelay sets the linear backoff unit. Zero disables waiting.
func WithBaseDelay(d time.Duration) Option {
	return func(g *Guard) { g.baseDelay = d }
}

// WithClock replaces the wall clock used for backoff waits.
func WithClock(c clock.Clock) Option {
	return func(g *Guard) { g.clock = c }
}

// WithObserver installs an observer for attempt and run events.
func WithObserver(o Observer) Option {
	return func(g *Guard) { g.observer = o }
}

// New creates a Guard around gen.
func New(gen llm.TextGenerator, opts ...Option) *Guard {
	g := &Guard{
		gen:       gen,
		provider:  "llm",
		baseDelay: DefaultBaseDelay,
		clock:     clock.Real{},
		observer:  NoopObserver{},
	}
	if p, ok := gen.(interface{ Provider() string }); ok {
		g.provider = p.Provider()
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.observer == nil {
		g.observer = NoopObserver{}
	}
	return g
}

// Result is a validated value plus run diagnostics.
type Result[T any] struct {
	Value    T
	Attempts int
	RunID    string
	Meta     shared.AgentMeta
}

// Run drives the attempt state machine for prompt against s. It returns the
// validated value, ErrInvalidAttempts, an *ExhaustionError, or an error
// wrapping ctx.Err() when the context ends during a call or a backoff wait.
func Run[T any](ctx context.Context, g *Guard, prompt string, s schema.Schema[T], maxAttempts int) (Result[T], error) {
	if maxAttempts < 1 {
		return Result[T]{}, ErrInvalidAttempts
	}

	m := &machine[T]{
		g:       g,
		schema:  s,
		prompt:  prompt,
		max:     maxAttempts,
		runID:   uuid.NewString(),
		state:   StateAttempting,
		attempt: 1,
		start:   g.clock.Now(),
	}
	for m.state == StateAttempting {
		m.step(ctx)
	}

	summary := Summary{
		RunID:    m.runID,
		Schema:   s.Name(),
		State:    m.state,
		Attempts: m.attempt,
		Err:      m.err,
		Usage:    m.usage,
		Latency:  g.clock.Now().Sub(m.start),
	}
	g.observer.OnFinish(ctx, summary)

	if m.state != StateSucceeded {
		return Result[T]{}, m.err
	}
	return Result[T]{
		Value:    m.value,
		Attempts: m.attempt,
		RunID:    m.runID,
		Meta: shared.AgentMeta{
			AgentName: s.Name(),
			Usage:     m.usage,
			Latency:   summary.Latency,
			Attempts:  m.attempt,
		},
	}, nil
}

// machine is the state of one run. It is never shared between runs.
type machine[T any] struct {
	g      *Guard
	schema schema.Schema[T]
	prompt string
	max    int
	runID  string
	start  time.Time

	state   State
	attempt int
	value   T
	err     error
	usage   shared.TokenUsage
}

// step performs Attempting(k) and moves to the next state.
func (m *machine[T]) step(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		m.cancel(err)
		return
	}

	value, outcome := m.try(ctx)
	m.usage = m.usage.Add(outcome.Usage)
	m.g.observer.OnAttempt(ctx, outcome)

	if outcome.Err == nil {
		m.value = value
		m.state = StateSucceeded
		return
	}
	if err := ctx.Err(); err != nil {
		m.cancel(err)
		return
	}

	if m.attempt >= m.max {
		m.state = StateExhausted
		m.err = &ExhaustionError{
			Schema:   m.schema.Name(),
			Attempts: m.attempt,
			LastKind: outcome.Kind,
			Last:     outcome.Err,
		}
		return
	}

	if err := m.wait(ctx, m.g.baseDelay*time.Duration(m.attempt)); err != nil {
		m.cancel(err)
		return
	}
	m.attempt++
}

func (m *machine[T]) cancel(cause error) {
	m.state = StateCanceled
	m.err = fmt.Errorf("%s: generation canceled during attempt %d: %w", m.schema.Name(), m.attempt, cause)
}

func (m *machine[T]) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.g.clock.After(d):
		return nil
	}
}

// try runs one attempt and classifies its failure, if any.
func (m *machine[T]) try(ctx context.Context) (T, AttemptOutcome) {
	var zero T
	prompt := ComposePrompt(m.prompt, m.attempt)
	outcome := AttemptOutcome{
		RunID:       m.runID,
		Schema:      m.schema.Name(),
		Attempt:     m.attempt,
		MaxAttempts: m.max,
		Prompt:      prompt,
		StartedAt:   m.g.clock.Now(),
	}
	fail := func(kind Kind, err error) (T, AttemptOutcome) {
		outcome.Kind = kind
		outcome.Err = err
		outcome.Latency = m.g.clock.Now().Sub(outcome.StartedAt)
		return zero, outcome
	}

	resp, err := m.generate(ctx, prompt)
	outcome.Usage = resp.Usage
	if err != nil {
		return fail(KindGeneration, llm.AsGenerationError(m.g.provider, err))
	}
	outcome.Raw = resp.Content

	candidate, err := extract.Extract(resp.Content)
	if err != nil {
		return fail(KindExtraction, err)
	}

	var parsed any
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return fail(KindParse, &ParseError{Candidate: candidate, Err: err})
	}

	value, err := schema.Validate(parsed, m.schema)
	if err != nil {
		return fail(KindValidation, err)
	}

	outcome.Latency = m.g.clock.Now().Sub(outcome.StartedAt)
	return value, outcome
}

func (m *machine[T]) generate(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	if jg, ok := m.g.gen.(llm.JSONGenerator); ok {
		return jg.GenerateJSON(ctx, prompt, llm.JSONHint{
			Name:   m.schema.Name(),
			Schema: m.schema.JSONSchema(),
		})
	}
	return m.g.gen.GenerateContent(ctx, prompt)
}
