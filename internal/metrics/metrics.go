// Package metrics exposes Prometheus instrumentation for the gateway.
// Registration is against an injectable Registerer so tests and embedders
// can isolate their registries.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Set holds the gateway's collectors.
type Set struct {
	// Decisions counts pre-execution checks by kind (terminal, code) and
	// outcome (allowed, blocked, rate_limited).
	Decisions *prometheus.CounterVec
	// RuleHits counts blocked verdicts by the rule id that matched.
	RuleHits *prometheus.CounterVec
	// CheckDuration observes end-to-end PreExecutionCheck latency.
	CheckDuration prometheus.Histogram
}

// New creates and registers the collector set. A nil reg uses the default
// registry.
func New(reg prometheus.Registerer) *Set {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	s := &Set{
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "execguard",
			Name:      "decisions_total",
			Help:      "Pre-execution check verdicts by kind and outcome.",
		}, []string{"kind", "outcome"}),
		RuleHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "execguard",
			Name:      "rule_hits_total",
			Help:      "Blocked verdicts by matched rule id.",
		}, []string{"rule"}),
		CheckDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "execguard",
			Name:      "check_duration_seconds",
			Help:      "PreExecutionCheck latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}

	reg.MustRegister(s.Decisions, s.RuleHits, s.CheckDuration)
	return s
}
