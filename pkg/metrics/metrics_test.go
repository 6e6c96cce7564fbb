package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	m.ObserveSubmission("add-application", "POST", OutcomeSuccess, 20*time.Millisecond)
	m.ObserveSubmission("add-application", "POST", OutcomeFailure, 10*time.Millisecond)
	m.ObserveSubmission("add-application", "POST", OutcomeSuccess, 5*time.Millisecond)
	m.ObserveTransition("add-application", "next", OutcomeBlocked)

	if got := testutil.ToFloat64(m.submissions.WithLabelValues("add-application", "POST", OutcomeSuccess)); got != 2 {
		t.Fatalf("success submissions = %v", got)
	}
	if got := testutil.ToFloat64(m.stepTransitions.WithLabelValues("add-application", "next", OutcomeBlocked)); got != 1 {
		t.Fatalf("blocked transitions = %v", got)
	}
}

func TestDuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := New(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveSubmission("f", "POST", OutcomeSuccess, time.Second)
	m.ObserveTransition("f", "next", OutcomeSuccess)
	m.ObserveAutosave("f", OutcomeSuccess)
}
