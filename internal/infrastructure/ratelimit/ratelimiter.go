// Package ratelimit provides sliding-window request limits backed by Redis.
package ratelimit

import (
	"context"
	"time"
)

// Limits caps requests per window. A zero value disables that window.
type Limits struct {
	PerMinute int
	PerHour   int
}

// RateLimiter decides whether another request identified by key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limits Limits) (Decision, error)
	Reset(ctx context.Context, key string) error
}

// Decision is the outcome of one Allow call. RetryAfter is set when denied.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}
