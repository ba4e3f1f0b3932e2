package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GateDecisions counts access gate evaluations by decision and reason.
	GateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "investio",
		Name:      "gate_decisions_total",
		Help:      "Access gate evaluations by decision and reason.",
	}, []string{"decision", "reason"})

	// ProviderCalls counts outbound provider calls by operation and outcome.
	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "investio",
		Name:      "provider_calls_total",
		Help:      "Outbound payment and market-data provider calls by operation and outcome.",
	}, []string{"operation", "outcome"})

	// PriceHistoryDuration tracks market-data fetch latency.
	PriceHistoryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "investio",
		Name:      "price_history_duration_seconds",
		Help:      "Market-data price history fetch duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
)
