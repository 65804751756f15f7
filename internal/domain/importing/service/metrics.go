package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger_import",
		Name:      "imports_total",
		Help:      "Completed import calls by source kind and outcome.",
	}, []string{"source", "status"})

	importDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ledger_import",
		Name:      "import_duration_seconds",
		Help:      "Wall time of one import call, parsing and reconciliation included.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})

	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger_import",
		Name:      "reconciliation_decisions_total",
		Help:      "Reconciliation decisions by entity kind.",
	}, []string{"kind", "decision"})

	lowConfidenceMatches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ledger_import",
		Name:      "low_confidence_matches_total",
		Help:      "Product matches below the configured confidence threshold.",
	})
)

func recordDecision(kind string, decision Decision) {
	decisionsTotal.WithLabelValues(kind, decision.String()).Inc()
}

func observeImport(source string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	importsTotal.WithLabelValues(source, status).Inc()
	importDuration.WithLabelValues(source).Observe(duration.Seconds())
}
