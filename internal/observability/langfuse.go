// Package observability exports guarded generation runs to Langfuse and
// sets up Sentry for the binaries.
package observability

import (
	"context"
	"errors"
	"log"
	"os"

	"guarded-meal-planner/internal/guard"

	langfuse "github.com/henomis/langfuse-go"
	"github.com/henomis/langfuse-go/model"
)

// tracer is the part of the Langfuse client the observer uses.
type tracer interface {
	Trace(t *model.Trace) (*model.Trace, error)
	Generation(g *model.Generation, parentID *string) (*model.Generation, error)
	GenerationEnd(g *model.Generation) (*model.Generation, error)
	Flush(ctx context.Context)
}

// LangfuseObserver records each guarded run as a Langfuse trace whose id is
// the run id, with one generation per attempt.
type LangfuseObserver struct {
	client tracer
}

var _ guard.Observer = (*LangfuseObserver)(nil)

// NewLangfuseObserver creates the observer. The SDK reads LANGFUSE_HOST,
// LANGFUSE_PUBLIC_KEY and LANGFUSE_SECRET_KEY from the environment. It
// returns nil when the keys are missing, which guard.Observers skips.
func NewLangfuseObserver(ctx context.Context) guard.Observer {
	if os.Getenv("LANGFUSE_PUBLIC_KEY") == "" || os.Getenv("LANGFUSE_SECRET_KEY") == "" {
		log.Println("Langfuse not configured (LANGFUSE_PUBLIC_KEY or LANGFUSE_SECRET_KEY not set)")
		return nil
	}
	log.Printf("Langfuse initialized (host: %s)", os.Getenv("LANGFUSE_HOST"))
	return &LangfuseObserver{client: langfuse.New(ctx)}
}

type userKey struct{}

// WithUser tags runs started under ctx with userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

func userFrom(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

func (o *LangfuseObserver) OnAttempt(ctx context.Context, a guard.AttemptOutcome) {
	if a.Attempt == 1 {
		_, err := o.client.Trace(&model.Trace{
			ID:   a.RunID,
			Name: a.Schema,
			Metadata: map[string]any{
				"user_id":      userFrom(ctx),
				"max_attempts": a.MaxAttempts,
			},
		})
		if err != nil {
			log.Printf("Failed to create Langfuse trace: %v", err)
			return
		}
	}

	start := a.StartedAt
	gen, err := o.client.Generation(&model.Generation{
		TraceID:   a.RunID,
		Name:      a.Schema,
		StartTime: &start,
		Metadata:  map[string]any{"attempt": a.Attempt},
	}, nil)
	if err != nil {
		log.Printf("Failed to create Langfuse generation: %v", err)
		return
	}

	end := a.StartedAt.Add(a.Latency)
	gen.EndTime = &end
	gen.Input = a.Prompt
	gen.Output = a.Raw
	gen.Model = a.Usage.Model
	gen.Usage = model.Usage{
		Input:  a.Usage.PromptTokens,
		Output: a.Usage.CompletionTokens,
		Total:  a.Usage.TotalTokens,
		Unit:   model.ModelUsageUnitTokens,
	}
	if !a.Succeeded() {
		gen.Level = model.ObservationLevel("ERROR")
		gen.Metadata = map[string]any{
			"attempt": a.Attempt,
			"kind":    string(a.Kind),
			"error":   a.Err.Error(),
		}
	}
	if _, err := o.client.GenerationEnd(gen); err != nil {
		log.Printf("Failed to end Langfuse generation: %v", err)
	}
}

// OnFinish flushes the run's events. Canceled runs flush without the
// caller's deadline.
func (o *LangfuseObserver) OnFinish(ctx context.Context, s guard.Summary) {
	if errors.Is(s.Err, context.Canceled) || errors.Is(s.Err, context.DeadlineExceeded) {
		ctx = context.WithoutCancel(ctx)
	}
	o.client.Flush(ctx)
}
