// Package metrics exposes Prometheus counters for the ledger and commit
// protocol. Request-level HTTP metrics come from the gin-prometheus
// middleware; these cover domain events.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScenarioSaves counts commit protocol runs by terminal state
	ScenarioSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "textmock_scenario_saves_total",
		Help: "Scenario save attempts by terminal state.",
	}, []string{"state"})

	// PartialCommits counts saves that left unpaid-scenario residue
	PartialCommits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "textmock_partial_commits_total",
		Help: "Saves where the scenario persisted but the debit failed.",
	})

	// TokensDebited totals tokens charged for scenario saves
	TokensDebited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "textmock_tokens_debited_total",
		Help: "Tokens debited for committed scenario saves.",
	})

	// TokensCredited totals tokens granted via purchases and bonuses
	TokensCredited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "textmock_tokens_credited_total",
		Help: "Tokens credited via purchases and sign-up bonuses.",
	})

	// AnomaliesResolved counts reconciler outcomes
	AnomaliesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "textmock_anomalies_resolved_total",
		Help: "Commit anomalies processed by the reconciler, by outcome.",
	}, []string{"kind", "outcome"})
)
