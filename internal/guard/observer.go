package guard

import (
	"context"
	"time"

	"guarded-meal-planner/internal/logger"
	"guarded-meal-planner/internal/shared"
)

// AttemptOutcome records one pass of generate, extract, parse and validate.
type AttemptOutcome struct {
	RunID       string
	Schema      string
	Attempt     int
	MaxAttempts int
	Prompt      string
	Raw         string
	Kind        Kind // empty on success
	Err         error
	Usage       shared.TokenUsage
	StartedAt   time.Time
	Latency     time.Duration
}

// Succeeded reports whether the attempt produced a validated value.
func (o AttemptOutcome) Succeeded() bool { return o.Err == nil }

// Summary describes a finished run.
type Summary struct {
	RunID    string
	Schema   string
	State    State
	Attempts int
	Err      error
	Usage    shared.TokenUsage
	Latency  time.Duration
}

// Observer receives attempt and run events for logging, metrics and tracing.
// Implementations must be safe for concurrent use.
type Observer interface {
	OnAttempt(ctx context.Context, outcome AttemptOutcome)
	OnFinish(ctx context.Context, summary Summary)
}

// NoopObserver discards all events.
type NoopObserver struct{}

func (NoopObserver) OnAttempt(context.Context, AttemptOutcome) {}
func (NoopObserver) OnFinish(context.Context, Summary)         {}

type multiObserver []Observer

// Observers fans events out to every non-nil observer in order.
func Observers(obs ...Observer) Observer {
	var out multiObserver
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (m multiObserver) OnAttempt(ctx context.Context, outcome AttemptOutcome) {
	for _, o := range m {
		o.OnAttempt(ctx, outcome)
	}
}

func (m multiObserver) OnFinish(ctx context.Context, summary Summary) {
	for _, o := range m {
		o.OnFinish(ctx, summary)
	}
}

// LogObserver writes every attempt and run result through the logger.
type LogObserver struct{}

func (LogObserver) OnAttempt(_ context.Context, o AttemptOutcome) {
	fields := logger.Fields{
		"run_id":     o.RunID,
		"schema":     o.Schema,
		"attempt":    o.Attempt,
		"latency_ms": o.Latency.Milliseconds(),
		"tokens":     o.Usage.TotalTokens,
	}
	if o.Usage.Model != "" {
		fields["model"] = o.Usage.Model
	}
	if o.Succeeded() {
		logger.Debug("Guarded attempt succeeded", fields)
		return
	}
	fields["kind"] = string(o.Kind)
	fields["error"] = o.Err
	logger.Warn("Guarded attempt failed", fields)
}

func (LogObserver) OnFinish(_ context.Context, s Summary) {
	fields := logger.Fields{
		"run_id":     s.RunID,
		"schema":     s.Schema,
		"state":      string(s.State),
		"attempts":   s.Attempts,
		"latency_ms": s.Latency.Milliseconds(),
		"tokens":     s.Usage.TotalTokens,
	}
	switch s.State {
	case StateSucceeded:
		logger.Info("Guarded generation finished", fields)
	case StateCanceled:
		logger.Warn("Guarded generation canceled", fields)
	default:
		logger.Error("Guarded generation exhausted", s.Err, fields)
	}
}
