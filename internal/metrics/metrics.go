// Package metrics exposes Prometheus collectors for the sale engine and the
// HTTP API. All collectors are registered on the default registry and served
// by the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DepositsTotal counts accepted deposit operations.
	DepositsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "salecore",
		Name:      "deposits_total",
		Help:      "Number of accepted deposit operations.",
	})

	// DepositedAmount counts deposit value accepted into the sale, net of refunds.
	DepositedAmount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "salecore",
		Name:      "deposited_amount_total",
		Help:      "Deposit token value accepted into the sale.",
	})

	// RefundedAmount counts deposit value returned to accounts at deposit time.
	RefundedAmount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "salecore",
		Name:      "refunded_amount_total",
		Help:      "Deposit token value refunded to accounts.",
	})

	// WithdrawalsTotal counts accepted withdrawal operations.
	WithdrawalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "salecore",
		Name:      "withdrawals_total",
		Help:      "Number of accepted withdrawal operations.",
	})

	// ClaimsTotal counts accepted claim operations.
	ClaimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "salecore",
		Name:      "claims_total",
		Help:      "Number of accepted claim operations.",
	})

	// ClaimedAmount counts sale tokens released through claims.
	ClaimedAmount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "salecore",
		Name:      "claimed_amount_total",
		Help:      "Sale token value released through claims.",
	})

	// SettlementTransfers counts external transfer outcomes by kind and result.
	SettlementTransfers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "salecore",
		Name:      "settlement_transfers_total",
		Help:      "External transfers dispatched by the settlement engine.",
	}, []string{"kind", "result"})

	// SettlementRollbacks counts ledger rollbacks after failed transfers,
	// including crash recovery.
	SettlementRollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "salecore",
		Name:      "settlement_rollbacks_total",
		Help:      "Ledger rollbacks after failed or interrupted transfers.",
	}, []string{"kind"})

	// DistributedAmount counts sale tokens delivered to the solver and stakeholders.
	DistributedAmount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "salecore",
		Name:      "distributed_amount_total",
		Help:      "Sale token value delivered by the distribution engine.",
	})

	// SaleParticipants is the current number of distinct depositors.
	SaleParticipants = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "salecore",
		Name:      "participants",
		Help:      "Distinct accounts with an accepted deposit.",
	})

	// SaleSoldTokens is the current global sold-token counter.
	SaleSoldTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "salecore",
		Name:      "sold_tokens",
		Help:      "Global sold token counter.",
	})

	// HTTPRequestDuration observes API handler latency by route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "salecore",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "status"})
)
