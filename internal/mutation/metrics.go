package mutation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/LexForumLab/lexforum/client/internal/resource"
)

var (
	mutationsSettledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexforum_client",
			Name:      "mutations_settled_total",
			Help:      "Mutations that reached terminal settlement, by outcome.",
		},
		[]string{"resource", "outcome"},
	)

	rollbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexforum_client",
			Name:      "optimistic_rollbacks_total",
			Help:      "Optimistic patches restored from their pre-mutation snapshot.",
		},
		[]string{"resource"},
	)
)

func observeSettlement(kind resource.Kind, outcome string) {
	mutationsSettledTotal.WithLabelValues(kind.String(), outcome).Inc()
}

func observeRollback(kind resource.Kind) {
	rollbacksTotal.WithLabelValues(kind.String()).Inc()
}
