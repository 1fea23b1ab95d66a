// Package metrics is the executor's Prometheus instrumentation:
// attempt/fill/swap/disassembly counters and the budget-consumed histogram,
// plus the rollback and feedback-error counters the executor's own loop
// drives.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var AttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tlb",
		Subsystem: "book",
		Name:      "attempts_total",
		Help:      "Total number of attempt() calls by outcome",
	},
	[]string{"pair", "outcome"}, // outcome: complete, disassembled
)

var RecipesEmittedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tlb",
		Subsystem: "book",
		Name:      "recipes_emitted_total",
		Help:      "Total number of complete execution recipes emitted",
	},
	[]string{"pair"},
)

var FillsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tlb",
		Subsystem: "book",
		Name:      "fills_total",
		Help:      "Total number of Fill terminal instructions produced",
	},
	[]string{"pair", "side"},
)

var SwapsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tlb",
		Subsystem: "book",
		Name:      "swaps_total",
		Help:      "Total number of Swap terminal instructions produced",
	},
	[]string{"pair", "side"},
)

var DisassembliesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tlb",
		Subsystem: "book",
		Name:      "disassemblies_total",
		Help:      "Total number of failed attempts restored to the store",
	},
	[]string{"pair"},
)

var BudgetConsumed = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "tlb",
		Subsystem: "book",
		Name:      "budget_consumed",
		Help:      "Execution budget consumed by a single attempt() call",
		Buckets:   prometheus.ExponentialBuckets(1000, 2, 12),
	},
	[]string{"pair"},
)

var ExecutorRollbacksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tlb",
		Subsystem: "executor",
		Name:      "rollbacks_total",
		Help:      "Total number of submissions rolled back after feedback failure",
	},
	[]string{"pair"},
)

var ExecutorFeedbackErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tlb",
		Subsystem: "executor",
		Name:      "feedback_errors_total",
		Help:      "Total number of non-nil errors received on Network.Submit's feedback channel",
	},
	[]string{"pair"},
)

// RecordAttempt records one attempt() call and how much budget it consumed.
func RecordAttempt(pair string, complete bool, budgetConsumed uint64) {
	outcome := "disassembled"
	if complete {
		outcome = "complete"
		RecipesEmittedTotal.WithLabelValues(pair).Inc()
	} else {
		DisassembliesTotal.WithLabelValues(pair).Inc()
	}
	AttemptsTotal.WithLabelValues(pair, outcome).Inc()
	BudgetConsumed.WithLabelValues(pair).Observe(float64(budgetConsumed))
}

// RecordInstruction tallies a single terminal instruction by kind and side.
func RecordInstruction(pair, side string, isSwap bool) {
	if isSwap {
		SwapsTotal.WithLabelValues(pair, side).Inc()
		return
	}
	FillsTotal.WithLabelValues(pair, side).Inc()
}

// RecordRollback records a failed submission's feedback and the rollback it
// triggered.
func RecordRollback(pair string) {
	ExecutorFeedbackErrorsTotal.WithLabelValues(pair).Inc()
	ExecutorRollbacksTotal.WithLabelValues(pair).Inc()
}
