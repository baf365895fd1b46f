// Package ratelimit implements a fixed-window request limiter backed by Redis.
// Counters live in Redis so that every API instance shares the same budget
// of attempts per client.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxAttempts = 10
	defaultWindow      = time.Minute
	keyPrefix          = "pocketbook:ratelimit:"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long until the current window resets.
	RetryAfter time.Duration
}

// Limiter counts attempts per key in fixed windows.
type Limiter struct {
	client      redis.UniversalClient
	maxAttempts int
	window      time.Duration
}

// New creates a Limiter allowing maxAttempts per window for each key.
func New(client redis.UniversalClient, maxAttempts int, window time.Duration) *Limiter {
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &Limiter{client: client, maxAttempts: maxAttempts, window: window}
}

// NewFromURL connects to the Redis server at url, e.g. redis://localhost:6379/0.
func NewFromURL(url string, maxAttempts int, window time.Duration) (*Limiter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return New(redis.NewClient(opts), maxAttempts, window), nil
}

// Ping checks that Redis is reachable.
func (l *Limiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (l *Limiter) Close() error {
	return l.client.Close()
}

// Allow records an attempt for key and reports whether it fits in the
// current window. The window starts with the first attempt.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	k := keyPrefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("rate limit check for %q: %w", key, err)
	}

	retryAfter := ttl.Val()
	if retryAfter < 0 {
		// New counter, or one left without an expiry.
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("rate limit expiry for %q: %w", key, err)
		}
		retryAfter = l.window
	}

	count := int(incr.Val())
	remaining := l.maxAttempts - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:    count <= l.maxAttempts,
		Remaining:  remaining,
		RetryAfter: retryAfter,
	}, nil
}
