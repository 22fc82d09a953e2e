// Package ratelimit implements the fixed-window limiter that callers consult
// before spending generation quota on a user's behalf.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"guarded-meal-planner/internal/clock"
)

// Defaults: 10 requests per subject and action per minute, with expired
// windows swept every five minutes.
const (
	DefaultMaxRequests     = 10
	DefaultWindow          = time.Minute
	DefaultCleanupInterval = 5 * time.Minute
)

// ErrLimited matches every *LimitError.
var ErrLimited = errors.New("rate limit exceeded")

// LimitError is returned when a subject has used up its window.
type LimitError struct {
	MaxRequests int
	Window      time.Duration
	RetryAfter  time.Duration
}

// RetryAfterSeconds rounds the remaining window up to whole seconds.
func (e *LimitError) RetryAfterSeconds() int {
	return int(math.Ceil(e.RetryAfter.Seconds()))
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("Rate limit exceeded. You can make %d requests per %s. Try again in %d seconds.",
		e.MaxRequests, windowLabel(e.Window), e.RetryAfterSeconds())
}

func (e *LimitError) Is(target error) bool { return target == ErrLimited }

func windowLabel(d time.Duration) string {
	if d == time.Minute {
		return "minute"
	}
	return d.String()
}

type entry struct {
	count     int
	resetTime time.Time
}

// Limiter counts requests per "subject:action" key in fixed windows.
type Limiter struct {
	maxRequests     int
	window          time.Duration
	cleanupInterval time.Duration
	clock           clock.Clock

	mu      sync.Mutex
	entries map[string]*entry

	runMu   sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithLimit sets the request budget per window.
func WithLimit(maxRequests int, window time.Duration) Option {
	return func(l *Limiter) {
		l.maxRequests = maxRequests
		l.window = window
	}
}

// WithCleanupInterval sets how often Start sweeps expired entries.
func WithCleanupInterval(d time.Duration) Option {
	return func(l *Limiter) { l.cleanupInterval = d }
}

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

// New creates a Limiter. It does not sweep until Start is called.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		maxRequests:     DefaultMaxRequests,
		window:          DefaultWindow,
		cleanupInterval: DefaultCleanupInterval,
		clock:           clock.Real{},
		entries:         make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckLimit records a request for subject and action, or returns a
// *LimitError when the current window is used up. A rejected request does
// not count against the window.
func (l *Limiter) CheckLimit(subject, action string) error {
	key := subject + ":" + action
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || now.After(e.resetTime) {
		l.entries[key] = &entry{count: 1, resetTime: now.Add(l.window)}
		return nil
	}

	if e.count >= l.maxRequests {
		return &LimitError{
			MaxRequests: l.maxRequests,
			Window:      l.window,
			RetryAfter:  e.resetTime.Sub(now),
		}
	}

	e.count++
	return nil
}

// Cleanup drops every entry whose window has ended and returns how many
// were removed.
func (l *Limiter) Cleanup() int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, e := range l.entries {
		if now.After(e.resetTime) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Start runs Cleanup every cleanup interval until ctx ends or Stop is
// called. Starting a running limiter is a no-op.
func (l *Limiter) Start(ctx context.Context) {
	l.runMu.Lock()
	defer l.runMu.Unlock()
	if l.stop != nil {
		return
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	l.stop, l.stopped = stop, stopped

	go func() {
		defer close(stopped)
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-l.clock.After(l.cleanupInterval):
				l.Cleanup()
			}
		}
	}()
}

// Stop ends the sweep loop and waits for it to exit.
func (l *Limiter) Stop() {
	l.runMu.Lock()
	defer l.runMu.Unlock()
	if l.stop == nil {
		return
	}
	close(l.stop)
	<-l.stopped
	l.stop, l.stopped = nil, nil
}
