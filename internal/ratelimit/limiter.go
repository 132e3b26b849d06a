package ratelimit

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrUnknownScope is returned for a scope without a policy.
var ErrUnknownScope = errors.New("unknown rate limit scope")

// Config configures a Limiter.
type Config struct {
	Policies map[Scope]Policy
	// MaxKeys bounds the number of live buckets across all scopes.
	MaxKeys int
	// IdleTTL evicts buckets not touched for this long. It is raised to the
	// longest refill period so idle expiry never hands out tokens early.
	// MaxKeys eviction can still drop a drained bucket when more than
	// MaxKeys clients are live, and that client starts over full.
	IdleTTL time.Duration
	// Now overrides the clock for buckets. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig uses DefaultPolicies with a 10 minute idle TTL.
func DefaultConfig() Config {
	return Config{
		Policies: DefaultPolicies(),
		MaxKeys:  100_000,
		IdleTTL:  10 * time.Minute,
	}
}

// Limiter hands out one bucket per (scope, client).
type Limiter struct {
	mu       sync.Mutex
	buckets  *expirable.LRU[string, *Bucket]
	policies map[Scope]Policy
	now      func() time.Time
}

// New builds a Limiter. Every policy must be valid.
func New(cfg Config) (*Limiter, error) {
	if len(cfg.Policies) == 0 {
		return nil, errors.New("no rate limit policies configured")
	}

	policies := make(map[Scope]Policy, len(cfg.Policies))
	ttl := cfg.IdleTTL
	for scope, p := range cfg.Policies {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("scope %s: %w", scope, err)
		}
		policies[scope] = p
		if p.RefillPeriod > ttl {
			ttl = p.RefillPeriod
		}
	}

	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultConfig().MaxKeys
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Limiter{
		buckets:  expirable.NewLRU[string, *Bucket](maxKeys, nil, ttl),
		policies: policies,
		now:      now,
	}, nil
}

// Bucket returns the bucket for (scope, clientID), creating it on first use.
// Concurrent callers for the same unseen key receive the same bucket.
func (l *Limiter) Bucket(scope Scope, clientID string) (*Bucket, error) {
	policy, ok := l.policies[scope]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScope, scope)
	}

	key := string(scope) + ":" + clientID

	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets.Get(key); ok {
		// Re-adding refreshes the idle expiry.
		l.buckets.Add(key, b)
		return b, nil
	}

	b := NewBucket(policy, l.now)
	l.buckets.Add(key, b)
	return b, nil
}

// Allow consumes one token from the client's bucket in scope.
func (l *Limiter) Allow(scope Scope, clientID string) (Result, error) {
	b, err := l.Bucket(scope, clientID)
	if err != nil {
		return Result{}, err
	}
	return b.TryConsume(1), nil
}

// Len returns the number of live buckets.
func (l *Limiter) Len() int {
	return l.buckets.Len()
}

// Policy returns the policy for scope.
func (l *Limiter) Policy(scope Scope) (Policy, bool) {
	p, ok := l.policies[scope]
	return p, ok
}

// ClientIP resolves the client identity: the first X-Forwarded-For entry,
// then X-Real-IP, then the host part of the connection's remote address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
