// Package ratelimit implements fixed-window attempt counters.  The
// in-process Memory limiter suits a single instance; Redis shares the
// counters between instances.
package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of one attempt.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time // when the current window ends
}

// RetryAfter is the time left until ResetAt, never negative.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if d := r.ResetAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Limiter counts attempts per key.  Allow records the attempt and reports
// whether it fits in the window: the first Max attempts of a window pass,
// every further attempt is denied until the window resets.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
	Reset(ctx context.Context, key string) error
	Max() int
}
