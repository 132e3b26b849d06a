package ratelimit

import (
	"sync"
	"time"
)

// Result is the outcome of a consume attempt.
type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Bucket is a mutex-guarded token bucket with interval refill.
type Bucket struct {
	mu         sync.Mutex
	policy     Policy
	tokens     int64
	lastRefill time.Time
	now        func() time.Time
}

// NewBucket returns a full bucket.
func NewBucket(policy Policy, now func() time.Time) *Bucket {
	if now == nil {
		now = time.Now
	}
	return &Bucket{
		policy:     policy,
		tokens:     policy.Capacity,
		lastRefill: now(),
		now:        now,
	}
}

// TryConsume takes n tokens if available. A rejected attempt takes nothing.
func (b *Bucket) TryConsume(n int64) Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.refill(now)

	if n <= b.tokens {
		b.tokens -= n
		return Result{Allowed: true, Remaining: b.tokens}
	}

	return Result{
		Allowed:    false,
		Remaining:  b.tokens,
		RetryAfter: b.lastRefill.Add(b.policy.RefillPeriod).Sub(now),
	}
}

// Available returns the current token count after any due refill.
func (b *Bucket) Available() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(b.now())
	return b.tokens
}

// refill adds RefillTokens per whole elapsed period. Partial periods add nothing
// and lastRefill advances by whole periods only.
func (b *Bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	if elapsed < b.policy.RefillPeriod {
		return
	}

	periods := int64(elapsed / b.policy.RefillPeriod)
	b.tokens += periods * b.policy.RefillTokens
	if b.tokens > b.policy.Capacity || b.tokens < 0 {
		b.tokens = b.policy.Capacity
	}
	b.lastRefill = b.lastRefill.Add(time.Duration(periods) * b.policy.RefillPeriod)
}
