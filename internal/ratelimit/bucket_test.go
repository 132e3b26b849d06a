package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestBucket_ConsumesUntilEmpty(t *testing.T) {
	clock := newFakeClock()
	b := NewBucket(DefaultPolicies()[ScopeAuth], clock.Now)

	for i := 0; i < 5; i++ {
		res := b.TryConsume(1)
		require.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, int64(4-i), res.Remaining)
	}

	res := b.TryConsume(1)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)
	assert.Equal(t, 5*time.Minute, res.RetryAfter)
}

func TestBucket_RejectedAttemptTakesNothing(t *testing.T) {
	b := NewBucket(Policy{Capacity: 3, RefillTokens: 3, RefillPeriod: time.Minute}, newFakeClock().Now)

	res := b.TryConsume(5)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(3), b.Available())
}

func TestBucket_IntervalRefill(t *testing.T) {
	clock := newFakeClock()
	b := NewBucket(Policy{Capacity: 5, RefillTokens: 5, RefillPeriod: 5 * time.Minute}, clock.Now)

	for i := 0; i < 5; i++ {
		b.TryConsume(1)
	}

	// A partial period adds nothing.
	clock.Advance(4*time.Minute + 59*time.Second)
	res := b.TryConsume(1)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Second, res.RetryAfter)

	clock.Advance(time.Second)
	res = b.TryConsume(1)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(4), res.Remaining)
}

func TestBucket_RefillCapsAtCapacity(t *testing.T) {
	clock := newFakeClock()
	b := NewBucket(Policy{Capacity: 10, RefillTokens: 4, RefillPeriod: time.Minute}, clock.Now)

	b.TryConsume(6)
	clock.Advance(time.Minute)
	assert.Equal(t, int64(8), b.Available())

	clock.Advance(10 * time.Minute)
	assert.Equal(t, int64(10), b.Available())
}

func TestBucket_RefillKeepsPeriodBoundaries(t *testing.T) {
	clock := newFakeClock()
	b := NewBucket(Policy{Capacity: 2, RefillTokens: 1, RefillPeriod: time.Minute}, clock.Now)

	b.TryConsume(2)
	clock.Advance(90 * time.Second)
	assert.Equal(t, int64(1), b.Available())

	// The next boundary is 2m after creation, not 1m after the last refill check.
	clock.Advance(30 * time.Second)
	assert.Equal(t, int64(2), b.Available())
}

func TestBucket_ConcurrentConsume(t *testing.T) {
	b := NewBucket(Policy{Capacity: 100, RefillTokens: 100, RefillPeriod: time.Hour}, newFakeClock().Now)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 250; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.TryConsume(1).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, allowed)
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicies()[ScopePublic].Validate())
	assert.Error(t, Policy{Capacity: 0, RefillTokens: 1, RefillPeriod: time.Second}.Validate())
	assert.Error(t, Policy{Capacity: 1, RefillTokens: 0, RefillPeriod: time.Second}.Validate())
	assert.Error(t, Policy{Capacity: 1, RefillTokens: 1}.Validate())
}
