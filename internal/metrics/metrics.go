// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Access decision outcomes.
const (
	DecisionAllow           = "allow"
	DecisionDeny            = "deny"
	DecisionUnauthenticated = "unauthenticated"
)

// Recorder captures metric events for the application.
type Recorder interface {
	// Access control
	IncAccessDecision(outcome string)
	IncRateLimited(scope string)
	SetRateLimitBuckets(n int)

	// Principal cache
	IncPrincipalCacheHit()
	IncPrincipalCacheMiss()

	// Content
	IncNewsCreated()
	IncNewsUpdated()
	IncNewsDeleted(n int)
	ObserveHomepageBuild(duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
