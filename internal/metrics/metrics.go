package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	metricPrefix = "pv_"

	ResultSuccess     = "success"
	ResultError       = "error"
	ResultUnavailable = "unavailable"

	EstimateFound   = "estimated"
	EstimateMissing = "missing"
)

var (
	registerOnce sync.Once

	providerFetchTotal   *prometheus.CounterVec
	providerFetchLatency *prometheus.HistogramVec

	estimateOutcomes *prometheus.CounterVec

	importRowsTotal *prometheus.CounterVec
	importLatency   *prometheus.HistogramVec

	rebuildTotal   *prometheus.CounterVec
	rebuildLatency *prometheus.HistogramVec
)

// Init registers the collectors. db may be nil when running without Postgres.
func Init(db *sql.DB) {
	registerOnce.Do(func() {
		providerFetchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "provider_fetch_total",
				Help: "Total provider fetches by provider and result",
			},
			[]string{"provider", "result"},
		)
		providerFetchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "provider_fetch_latency_seconds",
				Help:    "Provider fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		)
		estimateOutcomes = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "estimate_outcomes_total",
				Help: "Per-window estimate outcomes by provider",
			},
			[]string{"provider", "outcome"},
		)
		importRowsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_rows_total",
				Help: "Imported production rows by result",
			},
			[]string{"result"},
		)
		importLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "import_latency_seconds",
				Help:    "Import batch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		rebuildTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "monthly_rebuild_total",
				Help: "Monthly statistic rebuilds by result",
			},
			[]string{"result"},
		)
		rebuildLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "monthly_rebuild_latency_seconds",
				Help:    "Monthly statistic rebuild latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			providerFetchTotal,
			providerFetchLatency,
			estimateOutcomes,
			importRowsTotal,
			importLatency,
			rebuildTotal,
			rebuildLatency,
		)
		if db != nil {
			prometheus.MustRegister(collectors.NewDBStatsCollector(db, "pv"))
		}
	})
}

// ObserveProviderFetch records one provider fetch.
func ObserveProviderFetch(provider, result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if providerFetchTotal != nil {
		providerFetchTotal.WithLabelValues(provider, result).Inc()
	}
	if providerFetchLatency != nil {
		providerFetchLatency.WithLabelValues(provider).Observe(duration.Seconds())
	}
}

// IncEstimate counts a per-window estimate outcome. provider is empty for misses.
func IncEstimate(provider, outcome string) {
	if provider == "" {
		provider = "none"
	}
	if estimateOutcomes != nil {
		estimateOutcomes.WithLabelValues(provider, outcome).Inc()
	}
}

// ObserveImport records an import batch and the rows it carried.
func ObserveImport(result string, rows int, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if importRowsTotal != nil && rows > 0 {
		importRowsTotal.WithLabelValues(result).Add(float64(rows))
	}
	if importLatency != nil {
		importLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveRebuild records a monthly statistic rebuild.
func ObserveRebuild(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if rebuildTotal != nil {
		rebuildTotal.WithLabelValues(result).Inc()
	}
	if rebuildLatency != nil {
		rebuildLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
