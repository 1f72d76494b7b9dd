/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_sessions_total",
			Help: "Total number of agent sessions by terminal outcome",
		},
		[]string{"repository", "outcome"},
	)

	sessionTurns = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agent_session_turns",
			Help:    "Number of model turns consumed per session",
			Buckets: []float64{1, 2, 5, 10, 15, 20, 25, 50, 100},
		},
		[]string{"outcome"},
	)

	reviewCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_review_verdicts_total",
			Help: "Total number of automated review verdicts",
		},
		[]string{"verdict"},
	)

	reviewFailOpenCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_review_fail_open_total",
			Help: "Reviews that could not run and were treated as approved",
		},
		[]string{"reason"},
	)
)

// RecordSession records one finished session.
func RecordSession(repository, outcome string, turns int) {
	sessionCounter.With(prometheus.Labels{"repository": repository, "outcome": outcome}).Inc()
	sessionTurns.With(prometheus.Labels{"outcome": outcome}).Observe(float64(turns))
}

// RecordReview records a verdict produced by the reviewer.
func RecordReview(approved bool) {
	verdict := "changes-requested"
	if approved {
		verdict = "approved"
	}
	reviewCounter.With(prometheus.Labels{"verdict": verdict}).Inc()
}

// RecordReviewFailOpen records a review that degraded to approval. Reason
// is one of "transport", "malformed" or "schema".
func RecordReviewFailOpen(reason string) {
	reviewFailOpenCounter.With(prometheus.Labels{"reason": reason}).Inc()
}
