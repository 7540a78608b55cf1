// Package metrics exposes Prometheus instrumentation for scoring and recalculation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tally"

// Recalculation outcome labels.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeNotFound  = "not_found"
	OutcomeSkipped   = "skipped"
)

var (
	scoringDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scoring",
		Name:      "duration_seconds",
		Help:      "Time spent scoring one submission.",
		Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
	})

	integrityWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scoring",
		Name:      "integrity_warnings_total",
		Help:      "Complete assessments whose weighted-share and earned/possible overall scores disagree.",
	})

	recalcOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "recalc",
		Name:      "outcomes_total",
		Help:      "Per-respondent recalculation outcomes.",
	}, []string{"outcome"})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "recalc",
		Name:      "batch_duration_seconds",
		Help:      "Wall time of a bulk recalculation.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	catalogReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "catalog",
		Name:      "reloads_total",
		Help:      "Catalog reload attempts by result.",
	}, []string{"result"})
)

func ObserveScoring(d time.Duration) { scoringDuration.Observe(d.Seconds()) }

func RecordIntegrityWarning() { integrityWarnings.Inc() }

func RecordRecalcOutcome(outcome string) { recalcOutcomes.WithLabelValues(outcome).Inc() }

func ObserveBatch(d time.Duration) { batchDuration.Observe(d.Seconds()) }

// RecordCatalogReload counts a reload attempt.
func RecordCatalogReload(ok bool) {
	result := "ok"
	if !ok {
		result = "rejected"
	}
	catalogReloads.WithLabelValues(result).Inc()
}
