package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	AccessDecisions      map[string]uint64
	RateLimited          map[string]uint64
	RateLimitBuckets     int64
	PrincipalCacheHits   uint64
	PrincipalCacheMisses uint64
	NewsCreated          uint64
	NewsUpdated          uint64
	NewsDeleted          uint64
	HomepageBuildCount   uint64
	HomepageBuildTotalNs int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu              sync.Mutex
	accessDecisions map[string]uint64
	rateLimited     map[string]uint64

	rateLimitBuckets     int64
	principalCacheHits   uint64
	principalCacheMisses uint64
	newsCreated          uint64
	newsUpdated          uint64
	newsDeleted          uint64
	homepageBuildCount   uint64
	homepageBuildTotalNs int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		accessDecisions: make(map[string]uint64),
		rateLimited:     make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	decisions := make(map[string]uint64, len(m.accessDecisions))
	for k, v := range m.accessDecisions {
		decisions[k] = v
	}
	limited := make(map[string]uint64, len(m.rateLimited))
	for k, v := range m.rateLimited {
		limited[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		AccessDecisions:      decisions,
		RateLimited:          limited,
		RateLimitBuckets:     atomic.LoadInt64(&m.rateLimitBuckets),
		PrincipalCacheHits:   atomic.LoadUint64(&m.principalCacheHits),
		PrincipalCacheMisses: atomic.LoadUint64(&m.principalCacheMisses),
		NewsCreated:          atomic.LoadUint64(&m.newsCreated),
		NewsUpdated:          atomic.LoadUint64(&m.newsUpdated),
		NewsDeleted:          atomic.LoadUint64(&m.newsDeleted),
		HomepageBuildCount:   atomic.LoadUint64(&m.homepageBuildCount),
		HomepageBuildTotalNs: atomic.LoadInt64(&m.homepageBuildTotalNs),
	}
}

// IncAccessDecision counts an access decision by outcome.
func (m *InMemoryRecorder) IncAccessDecision(outcome string) {
	m.mu.Lock()
	m.accessDecisions[outcome]++
	m.mu.Unlock()
}

// IncRateLimited counts a rejected request by scope.
func (m *InMemoryRecorder) IncRateLimited(scope string) {
	m.mu.Lock()
	m.rateLimited[scope]++
	m.mu.Unlock()
}

// SetRateLimitBuckets records the live bucket count.
func (m *InMemoryRecorder) SetRateLimitBuckets(n int) {
	atomic.StoreInt64(&m.rateLimitBuckets, int64(n))
}

func (m *InMemoryRecorder) IncPrincipalCacheHit() {
	atomic.AddUint64(&m.principalCacheHits, 1)
}

func (m *InMemoryRecorder) IncPrincipalCacheMiss() {
	atomic.AddUint64(&m.principalCacheMisses, 1)
}

func (m *InMemoryRecorder) IncNewsCreated() {
	atomic.AddUint64(&m.newsCreated, 1)
}

func (m *InMemoryRecorder) IncNewsUpdated() {
	atomic.AddUint64(&m.newsUpdated, 1)
}

// IncNewsDeleted adds n deleted items; bulk deletes report their affected count.
func (m *InMemoryRecorder) IncNewsDeleted(n int) {
	if n > 0 {
		atomic.AddUint64(&m.newsDeleted, uint64(n))
	}
}

// ObserveHomepageBuild records how long the public homepage took to assemble.
func (m *InMemoryRecorder) ObserveHomepageBuild(duration time.Duration) {
	atomic.AddUint64(&m.homepageBuildCount, 1)
	atomic.AddInt64(&m.homepageBuildTotalNs, duration.Nanoseconds())
}
