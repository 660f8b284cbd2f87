// Package ratelimit implements a fixed-window per-key request limiter.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter increments the hit count of a window key and returns the new
// count. The key expires after ttl.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Limiter allows limit requests per key in every window.
type Limiter struct {
	counter   Counter
	limit     int64
	window    time.Duration
	keyPrefix string
	now       func() time.Time
}

// New creates a limiter. A nil counter allows every request.
func New(counter Counter, limit int, window time.Duration, keyPrefix string) *Limiter {
	return &Limiter{
		counter:   counter,
		limit:     int64(limit),
		window:    window,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

// Allow reports whether another request for key fits in the current window.
// Counter errors fail open: the request is allowed and the error returned
// for logging.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.counter == nil || l.limit <= 0 {
		return true, nil
	}
	windowStart := l.now().Truncate(l.window)
	k := fmt.Sprintf("RATELIMIT#%s#%s#%d", l.keyPrefix, key, windowStart.Unix())

	n, err := l.counter.Incr(ctx, k, l.window+time.Minute)
	if err != nil {
		return true, fmt.Errorf("rate limiter error (failing open): %w", err)
	}
	return n <= l.limit, nil
}

// RedisCounter counts in redis with INCR and EXPIRE.
type RedisCounter struct {
	rdb *redis.Client
}

func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// MemoryCounter is an in-process Counter for single-instance deployments.
type MemoryCounter struct {
	mu      sync.Mutex
	counts  map[string]int64
	expires map[string]time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]int64), expires: make(map[string]time.Time)}
}

func (c *MemoryCounter) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for k, exp := range c.expires {
		if now.After(exp) {
			delete(c.counts, k)
			delete(c.expires, k)
		}
	}
	c.counts[key]++
	if _, ok := c.expires[key]; !ok {
		c.expires[key] = now.Add(ttl)
	}
	return c.counts[key], nil
}
