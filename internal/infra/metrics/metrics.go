// Package metrics provides Prometheus metrics for staffxp.
// Counters and histograms for the action pipeline, the stats stores and health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Actions ────────────────────────────────────────────────────────────────

// ActionsTotal counts committed actions by kind and outcome (applied, duplicate, rejected, failed).
var ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "staffxp",
	Name:      "actions_total",
	Help:      "Total actions processed by kind and outcome.",
}, []string{"kind", "outcome"})

// ActionDuration tracks PerformAction latency including persistence.
var ActionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "staffxp",
	Name:      "action_duration_seconds",
	Help:      "End-to-end action processing time in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
})

// XPAwarded tracks XP granted by actions and challenge rewards.
var XPAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "staffxp",
	Name:      "xp_awarded_total",
	Help:      "Total XP awarded.",
}, []string{"source"})

// ─── Badges & Challenges ────────────────────────────────────────────────────

// BadgesUnlocked counts badge unlocks by category.
var BadgesUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "staffxp",
	Name:      "badges_unlocked_total",
	Help:      "Total badges unlocked by category.",
}, []string{"category"})

// ChallengesCompleted counts rewarded challenge completions.
var ChallengesCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "staffxp",
	Name:      "challenges_completed_total",
	Help:      "Total challenges completed.",
})

// PredicateFailures counts badge conditions that errored or panicked.
var PredicateFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "staffxp",
	Name:      "predicate_failures_total",
	Help:      "Badge condition evaluations that failed and were treated as not satisfied.",
}, []string{"badge"})

// ─── Store ──────────────────────────────────────────────────────────────────

// StoreConflicts counts optimistic-version conflicts on save.
var StoreConflicts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "staffxp",
	Name:      "store_conflicts_total",
	Help:      "Total version conflicts when saving user stats.",
})

// StoreErrors counts store failures by operation.
var StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "staffxp",
	Name:      "store_errors_total",
	Help:      "Total stats store errors by operation.",
}, []string{"op"})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "staffxp",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// ─── Events ─────────────────────────────────────────────────────────────────

// EventSubscribers tracks connected websocket clients.
var EventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "staffxp",
	Name:      "event_subscribers",
	Help:      "Number of connected event feed clients.",
})

// RateLimited counts action requests rejected by the per-user limiter.
var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "staffxp",
	Name:      "rate_limited_total",
	Help:      "Total action requests rejected by rate limiting.",
})

// StoreBreakerState tracks the store circuit breaker (0=closed, 1=open, 2=half-open).
var StoreBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "staffxp",
	Name:      "store_breaker_state",
	Help:      "Stats store circuit breaker state (0=closed, 1=open, 2=half-open).",
})
