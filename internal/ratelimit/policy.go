// Package ratelimit implements per-client token buckets held in process memory.
package ratelimit

import (
	"fmt"
	"time"
)

// Scope names a group of endpoints sharing one policy.
type Scope string

const (
	ScopePublic Scope = "public"
	ScopeAdmin  Scope = "admin"
	ScopeAuth   Scope = "auth"
)

// Policy describes a bucket: Capacity tokens, topped up by RefillTokens
// at the end of every RefillPeriod.
type Policy struct {
	Capacity     int64
	RefillTokens int64
	RefillPeriod time.Duration
}

// Validate reports a policy that could never admit a request or never refill.
func (p Policy) Validate() error {
	if p.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", p.Capacity)
	}
	if p.RefillTokens <= 0 {
		return fmt.Errorf("refill tokens must be positive, got %d", p.RefillTokens)
	}
	if p.RefillPeriod <= 0 {
		return fmt.Errorf("refill period must be positive, got %s", p.RefillPeriod)
	}
	return nil
}

// DefaultPolicies returns the built-in policy per scope.
func DefaultPolicies() map[Scope]Policy {
	return map[Scope]Policy{
		ScopePublic: {Capacity: 100, RefillTokens: 100, RefillPeriod: time.Minute},
		ScopeAdmin:  {Capacity: 50, RefillTokens: 50, RefillPeriod: time.Minute},
		ScopeAuth:   {Capacity: 5, RefillTokens: 5, RefillPeriod: 5 * time.Minute},
	}
}
