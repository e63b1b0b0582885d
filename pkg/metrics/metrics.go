// Package metrics exposes ledger activity to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoansCreated counts new loans.
	LoansCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pawnledger",
		Name:      "loans_created_total",
		Help:      "Loans created.",
	})

	// PaymentsRecorded counts ledger entries by kind (interest, principal, redemption).
	PaymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pawnledger",
		Name:      "payments_recorded_total",
		Help:      "Payments appended to loan ledgers.",
	}, []string{"kind"})

	// StatusTransitions counts explicit lifecycle changes by target status.
	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pawnledger",
		Name:      "status_transitions_total",
		Help:      "Loans moved to a terminal status.",
	}, []string{"status"})

	// MutationsRejected counts mutations refused with a typed error.
	MutationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pawnledger",
		Name:      "mutations_rejected_total",
		Help:      "Ledger mutations rejected before anything was written.",
	}, []string{"operation"})

	// ValuationRequests counts estimator calls by outcome (ok, error, limited, disabled).
	ValuationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pawnledger",
		Name:      "valuation_requests_total",
		Help:      "Device valuation lookups.",
	}, []string{"outcome"})
)
