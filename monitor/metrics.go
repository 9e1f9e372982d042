package monitor

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for pipeline runs and warehouse state.
var (
	runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ytpipe_runs_total",
		Help: "Total pipeline runs by outcome",
	}, []string{"outcome"}) // outcome: success, failure

	runDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ytpipe_run_duration_seconds",
		Help:    "Wall-clock duration of pipeline runs",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	rowsLoadedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ytpipe_rows_loaded_total",
		Help: "Total warehouse rows written per table",
	}, []string{"table"})

	itemsSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ytpipe_items_skipped_total",
		Help: "Total extraction items skipped per kind",
	}, []string{"kind"})

	recordsQuarantinedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ytpipe_records_quarantined_total",
		Help: "Total records rejected by validation per kind",
	}, []string{"kind"})

	qualityScoreGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ytpipe_quality_score",
		Help: "Overall data quality score of the latest run (0-100)",
	})

	freshnessSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ytpipe_warehouse_freshness_seconds",
		Help: "Age of the newest fact_video_stats row at last check",
	})
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDurationSeconds)
	prometheus.MustRegister(rowsLoadedTotal)
	prometheus.MustRegister(itemsSkippedTotal)
	prometheus.MustRegister(recordsQuarantinedTotal)
	prometheus.MustRegister(qualityScoreGauge)
	prometheus.MustRegister(freshnessSeconds)
}

// ObserveRowsLoaded adds to the per-table load counter.
func ObserveRowsLoaded(table string, n int) {
	rowsLoadedTotal.WithLabelValues(table).Add(float64(n))
}

// ObserveSkipped adds to the per-kind extraction skip counter.
func ObserveSkipped(kind string, n int) {
	itemsSkippedTotal.WithLabelValues(kind).Add(float64(n))
}

// ObserveQuarantined adds to the per-kind validation rejection counter.
func ObserveQuarantined(kind string, n int) {
	recordsQuarantinedTotal.WithLabelValues(kind).Add(float64(n))
}

// ObserveQualityScore records the latest overall quality score.
func ObserveQualityScore(score float64) {
	qualityScoreGauge.Set(score)
}
