// Package metrics содержит счётчики синхронизации для /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wb_tariffs"

var (
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_runs_total",
		Help:      "Sync cycles by outcome: ok, partial, fetch_failed, empty, skipped.",
	}, []string{"result"})

	StageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_stage_failures_total",
		Help:      "Failed sync stages.",
	}, []string{"stage"})

	FetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_attempts_total",
		Help:      "HTTP attempts against tariff sources.",
	}, []string{"source", "outcome"})

	FetchSource = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_served_total",
		Help:      "Which source served the tariffs.",
	}, []string{"source"})

	TariffsFetched = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tariffs_fetched",
		Help:      "Tariffs in the last fetched batch.",
	})

	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sync_duration_seconds",
		Help:      "Duration of a full sync cycle.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
	})
)

// ObserveFetch подходит для wb.Options.Observe.
func ObserveFetch(source string, attempts int, err error) {
	if attempts == 0 {
		return
	}
	failed := attempts
	if err == nil {
		failed = attempts - 1
		FetchAttempts.WithLabelValues(source, "ok").Inc()
	}
	if failed > 0 {
		FetchAttempts.WithLabelValues(source, "error").Add(float64(failed))
	}
}
