package cache

import (
	"context"
	"math"
	"sync"
	"time"
)

// memoryBucket is the in-process equivalent of the Redis hash the Lua
// script maintains.
type memoryBucket struct {
	tokens     float64
	lastUpdate time.Time
}

// MemoryLimiter is a token bucket rate limiter backed by process
// memory. It mirrors the Redis limiter's semantics so the middleware
// cannot tell them apart, but limits are per instance rather than
// fleet-wide. Single-instance deployments and tests use it instead of
// requiring Redis.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*memoryBucket

	// now is swappable in tests.
	now func() time.Time
}

// NewMemoryLimiter creates a new in-memory rate limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*memoryBucket),
		now:     time.Now,
	}
}

// CheckAPIRateLimit checks and updates the rate limit for an API key.
func (l *MemoryLimiter) CheckAPIRateLimit(_ context.Context, keyID string, ratePerMinute, burst int) (*RateLimitResult, error) {
	if ratePerMinute == 0 {
		return &RateLimitResult{
			Allowed:   true,
			Remaining: int64(burst),
			ResetAt:   l.now().Add(time.Minute),
		}, nil
	}
	return l.take(rateLimitAPIPrefix+keyID, float64(ratePerMinute)/60.0, burst), nil
}

// CheckIPRateLimit checks and updates the rate limit for an IP address.
func (l *MemoryLimiter) CheckIPRateLimit(_ context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	return l.take(rateLimitIPPrefix+hashIP(ip), float64(ratePerSecond), burst), nil
}

// take refills and consumes one token, same math as the Lua script.
func (l *MemoryLimiter) take(key string, rate float64, burst int) *RateLimitResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	bucket, ok := l.buckets[key]
	if !ok {
		l.pruneLocked(now)
		bucket = &memoryBucket{tokens: float64(burst), lastUpdate: now}
		l.buckets[key] = bucket
	}

	elapsed := now.Sub(bucket.lastUpdate).Seconds()
	bucket.tokens = math.Min(float64(burst), bucket.tokens+elapsed*rate)
	bucket.lastUpdate = now

	result := &RateLimitResult{
		ResetAt: now.Add(time.Duration(float64(time.Second) / rate)),
	}
	if bucket.tokens >= 1 {
		bucket.tokens--
		result.Allowed = true
	} else {
		result.RetryAfter = time.Duration(math.Ceil((1-bucket.tokens)/rate)) * time.Second
	}
	result.Remaining = int64(bucket.tokens)

	return result
}

// pruneLocked drops buckets that have been idle long enough to be
// full again. Caller holds mu.
func (l *MemoryLimiter) pruneLocked(now time.Time) {
	if len(l.buckets) < 10000 {
		return
	}
	for key, bucket := range l.buckets {
		if now.Sub(bucket.lastUpdate) > rateLimitAPITTL {
			delete(l.buckets, key)
		}
	}
}
