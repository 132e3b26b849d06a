package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInMemoryRecorder(t *testing.T) {
	m := NewInMemory()

	m.IncAccessDecision(DecisionAllow)
	m.IncAccessDecision(DecisionDeny)
	m.IncAccessDecision(DecisionDeny)
	m.IncRateLimited("auth")
	m.SetRateLimitBuckets(3)
	m.IncNewsDeleted(4)
	m.IncNewsDeleted(0)
	m.ObserveHomepageBuild(time.Millisecond)

	snap := m.Snapshot()
	if snap.AccessDecisions[DecisionDeny] != 2 {
		t.Errorf("expected 2 denials, got %d", snap.AccessDecisions[DecisionDeny])
	}
	if snap.RateLimited["auth"] != 1 {
		t.Errorf("expected 1 auth rejection, got %d", snap.RateLimited["auth"])
	}
	if snap.RateLimitBuckets != 3 {
		t.Errorf("expected 3 buckets, got %d", snap.RateLimitBuckets)
	}
	if snap.NewsDeleted != 4 {
		t.Errorf("expected 4 deleted, got %d", snap.NewsDeleted)
	}
	if snap.HomepageBuildCount != 1 {
		t.Errorf("expected 1 homepage build, got %d", snap.HomepageBuildCount)
	}
}

func TestPrometheusRecorder(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewPrometheus(registry)

	m.IncAccessDecision(DecisionUnauthenticated)
	m.IncRateLimited("public")
	m.IncRateLimited("public")
	m.IncNewsCreated()
	m.IncNewsDeleted(2)

	if got := testutil.ToFloat64(m.accessDecisions.WithLabelValues(DecisionUnauthenticated)); got != 1 {
		t.Errorf("expected 1 unauthenticated decision, got %v", got)
	}
	if got := testutil.ToFloat64(m.rateLimited.WithLabelValues("public")); got != 2 {
		t.Errorf("expected 2 public rejections, got %v", got)
	}
	if got := testutil.ToFloat64(m.newsMutations.WithLabelValues("delete")); got != 2 {
		t.Errorf("expected 2 deletes, got %v", got)
	}

	count, err := testutil.GatherAndCount(registry)
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count == 0 {
		t.Error("expected registered metrics to be gathered")
	}
}
