package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	profileSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_submissions_total",
			Help: "Profile submissions by role and result",
		},
		[]string{"role", "result"},
	)

	reviewDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_decisions_total",
			Help: "Status transitions by action and result",
		},
		[]string{"action", "result"},
	)

	batchDecisionSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "verification_batch_size",
			Help:    "Number of distinct accounts per batch decision",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	reconciliationRepairs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verification_reconciliation_repairs_total",
			Help: "Accounts whose stored status was repaired from the decision log",
		},
	)
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
