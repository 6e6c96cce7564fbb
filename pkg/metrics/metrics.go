// Package metrics exposes Prometheus collectors for form sessions. All
// methods are safe on a nil *Metrics so callers can leave metrics disabled.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "formflow"

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeBlocked  = "blocked"
	OutcomeCanceled = "canceled"
)

// Metrics groups the collectors registered by New.
type Metrics struct {
	submissions     *prometheus.CounterVec
	submitDuration  *prometheus.HistogramVec
	stepTransitions *prometheus.CounterVec
	autosaves       *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil registerer
// uses a private registry, which keeps repeated construction in tests from
// colliding.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "submit",
				Name:      "requests_total",
				Help:      "Submission requests by form, method and outcome.",
			},
			[]string{"form", "method", "outcome"},
		),
		submitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "submit",
				Name:      "request_duration_seconds",
				Help:      "Duration of submission requests.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
			},
			[]string{"form"},
		),
		stepTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "wizard",
				Name:      "transitions_total",
				Help:      "Step transitions by form, direction and outcome.",
			},
			[]string{"form", "direction", "outcome"},
		),
		autosaves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "autosave",
				Name:      "flushes_total",
				Help:      "Autosave flushes by form and outcome.",
			},
			[]string{"form", "outcome"},
		),
	}

	for _, c := range []prometheus.Collector{m.submissions, m.submitDuration, m.stepTransitions, m.autosaves} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveSubmission records one submission attempt.
func (m *Metrics) ObserveSubmission(form, method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(form, method, outcome).Inc()
	m.submitDuration.WithLabelValues(form).Observe(elapsed.Seconds())
}

// ObserveTransition records a step transition attempt.
func (m *Metrics) ObserveTransition(form, direction, outcome string) {
	if m == nil {
		return
	}
	m.stepTransitions.WithLabelValues(form, direction, outcome).Inc()
}

// ObserveAutosave records an autosave flush.
func (m *Metrics) ObserveAutosave(form, outcome string) {
	if m == nil {
		return
	}
	m.autosaves.WithLabelValues(form, outcome).Inc()
}
