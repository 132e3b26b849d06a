package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncAccessDecision(outcome string) {}
func (n *NoopRecorder) IncRateLimited(scope string) {}
func (n *NoopRecorder) SetRateLimitBuckets(count int) {}
func (n *NoopRecorder) IncPrincipalCacheHit() {}
func (n *NoopRecorder) IncPrincipalCacheMiss() {}
func (n *NoopRecorder) IncNewsCreated() {}
func (n *NoopRecorder) IncNewsUpdated() {}
func (n *NoopRecorder) IncNewsDeleted(count int) {}
func (n *NoopRecorder) ObserveHomepageBuild(duration time.Duration) {}
