package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	RESULT_SUCCESS = "success"
	RESULT_FAILED  = "failed"
)

var (
	CartMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "cart",
		Name:      "mutations_total",
		Help:      "Cart mutations by operation and result.",
	}, []string{"operation", "result"})

	CartConflictRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "cart",
		Name:      "conflict_retries_total",
		Help:      "Optimistic cart updates retried after a concurrent modification.",
	})

	CountDegraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "cart",
		Name:      "count_degraded_total",
		Help:      "Count requests answered with zero because of a missing identity or a failure.",
	}, []string{"endpoint"})
)

func ObserveMutation(operation string, err error) {
	result := RESULT_SUCCESS
	if err != nil {
		result = RESULT_FAILED
	}
	CartMutations.WithLabelValues(operation, result).Inc()
}
