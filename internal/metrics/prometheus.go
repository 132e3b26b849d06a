package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder exports Recorder events as Prometheus collectors.
type PrometheusRecorder struct {
	accessDecisions  *prometheus.CounterVec
	rateLimited      *prometheus.CounterVec
	rateLimitBuckets prometheus.Gauge
	principalCache   *prometheus.CounterVec
	newsMutations    *prometheus.CounterVec
	homepageBuild    prometheus.Histogram
}

// NewPrometheus creates the collectors and registers them on registry.
func NewPrometheus(registry prometheus.Registerer) *PrometheusRecorder {
	m := &PrometheusRecorder{
		accessDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phoebe_access_decisions_total",
				Help: "Role checks by outcome",
			},
			[]string{"outcome"},
		),
		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phoebe_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"scope"},
		),
		rateLimitBuckets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "phoebe_rate_limit_buckets",
				Help: "Live rate limit buckets held in memory",
			},
		),
		principalCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phoebe_principal_cache_total",
				Help: "Principal cache lookups by result",
			},
			[]string{"result"},
		),
		newsMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phoebe_news_mutations_total",
				Help: "News items created, updated or deleted",
			},
			[]string{"op"},
		),
		homepageBuild: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "phoebe_homepage_build_duration_seconds",
				Help:    "Time spent assembling the public homepage",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	registry.MustRegister(
		m.accessDecisions,
		m.rateLimited,
		m.rateLimitBuckets,
		m.principalCache,
		m.newsMutations,
		m.homepageBuild,
	)

	return m
}

func (m *PrometheusRecorder) IncAccessDecision(outcome string) {
	m.accessDecisions.WithLabelValues(outcome).Inc()
}

func (m *PrometheusRecorder) IncRateLimited(scope string) {
	m.rateLimited.WithLabelValues(scope).Inc()
}

func (m *PrometheusRecorder) SetRateLimitBuckets(n int) {
	m.rateLimitBuckets.Set(float64(n))
}

func (m *PrometheusRecorder) IncPrincipalCacheHit() {
	m.principalCache.WithLabelValues("hit").Inc()
}

func (m *PrometheusRecorder) IncPrincipalCacheMiss() {
	m.principalCache.WithLabelValues("miss").Inc()
}

func (m *PrometheusRecorder) IncNewsCreated() {
	m.newsMutations.WithLabelValues("create").Inc()
}

func (m *PrometheusRecorder) IncNewsUpdated() {
	m.newsMutations.WithLabelValues("update").Inc()
}

func (m *PrometheusRecorder) IncNewsDeleted(n int) {
	if n > 0 {
		m.newsMutations.WithLabelValues("delete").Add(float64(n))
	}
}

func (m *PrometheusRecorder) ObserveHomepageBuild(duration time.Duration) {
	m.homepageBuild.Observe(duration.Seconds())
}
