package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total number of ledger operations by result",
		},
		[]string{"op", "result"},
	)

	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Time spent inside the exclusive section of a ledger operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(operationsTotal, operationDuration)
}

func observe(op string, err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	operationsTotal.WithLabelValues(op, result).Inc()
	operationDuration.WithLabelValues(op).Observe(d.Seconds())
}
