package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/phoebe/phoebe/internal/metrics"
	"github.com/phoebe/phoebe/internal/ratelimit"
)

// Rate limit response headers.
const (
	RateLimitRemainingHeader = "X-Rate-Limit-Remaining"
	RetryAfterHeader         = "Retry-After"
)

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter *ratelimit.Limiter
	Metrics metrics.Recorder
	Enabled bool
}

// ScopeFor picks the bucket scope of a request. Login and every Basic
// authenticated request count as credential checks, whatever the path.
func ScopeFor(r *http.Request) ratelimit.Scope {
	scheme, _, _ := strings.Cut(r.Header.Get("Authorization"), " ")
	if strings.EqualFold(scheme, "Basic") {
		return ratelimit.ScopeAuth
	}
	path := r.URL.Path
	if !strings.HasPrefix(path, "/api/admin/") && path != "/api/admin" {
		return ratelimit.ScopePublic
	}
	if r.Method == http.MethodPost && strings.TrimSuffix(path, "/") == "/api/admin/auth/login" {
		return ratelimit.ScopeAuth
	}
	return ratelimit.ScopeAdmin
}

// RateLimit returns middleware that consumes one token per request from the
// (scope, client IP) bucket and rejects the request with 429 when empty.
// It runs before authentication so rejected requests never touch storage.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || cfg.Limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			scope := ScopeFor(r)
			ip := ratelimit.ClientIP(r)
			setLogScope(r.Context(), string(scope))

			result, err := cfg.Limiter.Allow(scope, ip)
			if err != nil {
				cfg.Logger.Error("rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("scope", string(scope)),
				)
				// Fail open - allow request
				next.ServeHTTP(w, r)
				return
			}
			if cfg.Metrics != nil {
				cfg.Metrics.SetRateLimitBuckets(cfg.Limiter.Len())
			}

			w.Header().Set(RateLimitRemainingHeader, strconv.FormatInt(result.Remaining, 10))

			if !result.Allowed {
				retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				if cfg.Metrics != nil {
					cfg.Metrics.IncRateLimited(string(scope))
				}
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("scope", string(scope)),
					slog.String("ip", ip),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int("retry_after_seconds", retryAfter),
					slog.String("request_id", GetRequestID(r.Context())),
				)

				w.Header().Set(RetryAfterHeader, strconv.Itoa(retryAfter))
				WriteError(w, http.StatusTooManyRequests, CodeRateLimited,
					"rate limit exceeded, retry after "+strconv.Itoa(retryAfter)+" seconds")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
