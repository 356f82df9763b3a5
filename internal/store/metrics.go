package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK       = "ok"
	resultNotFound = "not_found"
	resultRejected = "rejected"
	resultNoop     = "noop"
)

var (
	mutationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lazytodo_task_mutations_total",
			Help: "Task store mutations by operation and result",
		},
		[]string{"op", "result"},
	)

	persistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lazytodo_persist_failures_total",
			Help: "Swallowed persistence failures by kind",
		},
		[]string{"kind"},
	)
)

func countMutation(op, result string) {
	mutationCount.WithLabelValues(op, result).Inc()
}
