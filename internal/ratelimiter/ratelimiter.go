// Package ratelimiter provides token-bucket rate limiting for the cache
// miss path.
//
// When the cache is cold or under a miss storm, every miss turns into a
// load against the backing store. A token bucket in front of those loads
// caps the sustained rate the store sees while still allowing short
// bursts, protecting shared backends (embedded databases, S3 request
// budgets) from overload.
package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter wraps golang.org/x/time/rate with pincache's configuration
// conventions.
//
// Thread Safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter allowing requestsPerSecond sustained load
// with the given burst capacity.
//
// Special cases:
//   - requestsPerSecond = 0: unlimited (every request allowed)
//   - burst < requestsPerSecond: burst is raised to requestsPerSecond,
//     since a bucket smaller than the refill rate starves steady load
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst < requestsPerSecond {
		burst = requestsPerSecond
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow reports whether one request may proceed now, consuming a token
// if so. It never blocks. Use it to reject over-limit work.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// AllowN consumes n tokens if all are available. No tokens are consumed
// on refusal. Useful for batch loads.
func (r *RateLimiter) AllowN(n uint) bool {
	return r.limiter.AllowN(time.Now(), int(n))
}

// Wait blocks until a token is available or ctx is done, returning the
// context error in the latter case. Use it to throttle rather than
// reject.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Limit returns the configured sustained rate.
func (r *RateLimiter) Limit() rate.Limit {
	return r.limiter.Limit()
}
