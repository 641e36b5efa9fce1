// Package ratelimit throttles requests per client key. The Redis limiter
// keeps a sliding window shared by all server instances; the memory
// limiter is a per-process token bucket.
package ratelimit

import (
	"context"
	"time"
)

// Result is the verdict for one request.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether the request identified by key may proceed.
// On backend failure implementations return an allowing Result together
// with the error, so callers can log and carry on.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}
