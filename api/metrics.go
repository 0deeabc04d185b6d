package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/warp/payregister-engine/payregister"
)

// Process-wide counters, served on /metrics.
var (
	ledgerSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payregister",
		Name:      "ledger_syncs_total",
		Help:      "Ledgers re-synced from sources, by trigger and outcome.",
	}, []string{"trigger", "outcome"})

	summaryRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payregister",
		Name:      "summary_rows_total",
		Help:      "Uploaded monthly summary rows, by outcome.",
	}, []string{"outcome"})

	scheduledRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "payregister",
		Name:      "scheduled_sync_runs_total",
		Help:      "Sync scheduler ticks.",
	})
)

func observeBatch(vec *prometheus.CounterVec, report payregister.BatchReport, labels ...string) {
	vec.WithLabelValues(append(labels, "success")...).Add(float64(report.Success))
	vec.WithLabelValues(append(labels, "failed")...).Add(float64(report.Failed))
}
