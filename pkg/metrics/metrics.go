// Package metrics exposes Prometheus collectors for conversation turns and
// their side effects.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TurnsTotal counts executed turns by bot and outcome.
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "botflow",
		Name:      "turns_total",
		Help:      "Number of conversation turns executed, by bot and outcome.",
	}, []string{"bot_id", "outcome"})

	// TurnDuration observes end-to-end turn latency.
	TurnDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "botflow",
		Name:      "turn_duration_seconds",
		Help:      "End-to-end conversation turn latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"bot_id"})

	// NodeExecutions counts node executions by kind.
	NodeExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "botflow",
		Name:      "node_executions_total",
		Help:      "Number of node executions, by node kind.",
	}, []string{"kind"})

	// WebhookAttempts counts individual webhook HTTP attempts by outcome.
	WebhookAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "botflow",
		Name:      "webhook_attempts_total",
		Help:      "Number of webhook HTTP attempts, by outcome.",
	}, []string{"outcome"})

	// ActionsPerformed counts side effects reported by action nodes.
	ActionsPerformed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "botflow",
		Name:      "actions_performed_total",
		Help:      "Number of side effects performed by action nodes.",
	}, []string{"bot_id"})
)
