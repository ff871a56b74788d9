package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraud_worker",
			Name:      "messages_received_total",
			Help:      "Order messages pulled from the stream",
		},
		[]string{"topic"},
	)

	DecodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraud_worker",
			Name:      "decode_failures_total",
			Help:      "Messages dropped because the payload failed to decode or validate",
		},
		[]string{"topic"},
	)

	OrdersPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fraud_worker",
			Name:      "orders_persisted_total",
			Help:      "Order log entries written",
		},
	)

	SavesRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fraud_worker",
			Name:      "saves_rejected_total",
			Help:      "Order snapshots rejected by a storage constraint",
		},
	)

	MutationsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraud_worker",
			Name:      "mutations_applied_total",
			Help:      "Orders corrupted by the demo mutator",
		},
		[]string{"mutation"},
	)

	AlertsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraud_worker",
			Name:      "alerts_raised_total",
			Help:      "Fraud alerts generated by severity",
		},
		[]string{"severity"},
	)

	BadQueriesFired = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fraud_worker",
			Name:      "bad_queries_fired_total",
			Help:      "Deliberately inefficient demo queries issued",
		},
	)

	CleanupRowsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraud_worker",
			Name:      "cleanup_rows_deleted_total",
			Help:      "Rows removed by retention pruning",
		},
		[]string{"table"},
	)

	ProcessLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fraud_worker",
			Name:      "process_duration_seconds",
			Help:      "End-to-end processing latency per message",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"topic"},
	)
)
