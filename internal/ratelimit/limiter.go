package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RateLimitError is returned by TryAcquire when the current window for a
// source is exhausted. Retry holds the time until the window resets.
type RateLimitError struct {
	Source string
	Retry  time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry in %s", e.Source, e.Retry)
}

// Limits configures one source's fixed window.
type Limits struct {
	MaxCalls int
	Window   time.Duration
}

type windowState struct {
	start time.Time
	used  int
}

// Limiter gates outbound calls per source under a fixed time window. State is
// owned exclusively by the Limiter and guarded by its internal lock; callers
// construct one Limiter per process (or per aggregation session) and inject
// it wherever sources need gating.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]Limits
	windows map[string]*windowState
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates a limiter from per-source limits. Sources without an entry are
// admitted without gating.
func New(limits map[string]Limits) *Limiter {
	return &Limiter{
		limits:  limits,
		windows: make(map[string]*windowState),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Acquire blocks until a call slot is available for source, then reserves it.
// It returns early with the context's error if ctx is cancelled while
// waiting.
func (l *Limiter) Acquire(ctx context.Context, source string) error {
	for {
		wait, ok := l.reserve(source)
		if ok {
			return nil
		}

		logrus.Debugf("rate window for %s exhausted, waiting %s", source, wait)
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// TryAcquire reserves a slot without blocking. When the window is exhausted
// it returns a *RateLimitError carrying the time until reset.
func (l *Limiter) TryAcquire(source string) error {
	wait, ok := l.reserve(source)
	if ok {
		return nil
	}
	return &RateLimitError{Source: source, Retry: wait}
}

// reserve attempts to take a slot. On failure it returns how long until the
// window resets. A call landing exactly on the window boundary resets the
// counter before admission.
func (l *Limiter) reserve(source string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	limits, ok := l.limits[source]
	if !ok || limits.MaxCalls <= 0 {
		return 0, true
	}

	now := l.now()
	w := l.windows[source]
	if w == nil {
		w = &windowState{start: now}
		l.windows[source] = w
	}

	// Stale windows reset deterministically by wall-clock comparison, never
	// by accumulated counters.
	if now.Sub(w.start) >= limits.Window {
		w.start = now
		w.used = 0
	}

	if w.used >= limits.MaxCalls {
		return w.start.Add(limits.Window).Sub(now), false
	}

	w.used++
	return 0, true
}
