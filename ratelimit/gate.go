// Package ratelimit enforces the global per-minute request budget for
// upstream API calls.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRequestsPerMinute is a conservative default aligned with the
// tightest upstream per-minute limit.
const DefaultRequestsPerMinute = 60

// Gate serializes callers against a single request budget: an acquisition is
// granted at most once per 60/requestsPerMinute seconds. One Gate is shared by
// every extraction call a pipeline instance issues, regardless of call type,
// so the budget must be sized against the tightest upstream limit.
//
// The underlying token bucket holds a single token, which makes "check last
// grant, record new grant" one atomic step: concurrent callers may sleep for
// different durations but two grants never land inside one interval.
type Gate struct {
	limiter *rate.Limiter
}

// NewGate creates a gate allowing requestsPerMinute grants per minute.
// Non-positive values fall back to DefaultRequestsPerMinute.
func NewGate(requestsPerMinute int) *Gate {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	return &Gate{
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1),
	}
}

// Acquire blocks until the budget grants a request or the context is done.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("ratelimit: acquire: %w", err)
	}
	return nil
}

// Interval returns the minimum spacing between two grants.
func (g *Gate) Interval() time.Duration {
	return time.Duration(float64(time.Second) / float64(g.limiter.Limit()))
}
