package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "outbreak_risk"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Decision pipeline metrics.
	Predictions        *prometheus.CounterVec // labels: risk_level={LOW,MODERATE,HIGH}
	AlertsRaised       prometheus.Counter
	ScoringErrors      prometheus.Counter
	ExplainFallbacks   prometheus.Counter
	StoreWriteErrors   *prometheus.CounterVec // labels: record={prediction,alert}
	PredictionDuration prometheus.Histogram
	ScorerDuration     prometheus.Histogram

	// Read-model cache metrics.
	CacheLookups *prometheus.CounterVec // labels: view={heatmap,summary,alerts}, result={hit,miss,error}

	// Alert relay metrics.
	RelayRunning   prometheus.Gauge
	AlertsRelayed  prometheus.Counter
	RelayErrors    prometheus.Counter
	RelayBatchSize prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Predictions,
		m.AlertsRaised,
		m.ScoringErrors,
		m.ExplainFallbacks,
		m.StoreWriteErrors,
		m.PredictionDuration,
		m.ScorerDuration,
		m.CacheLookups,
		m.RelayRunning,
		m.AlertsRelayed,
		m.RelayErrors,
		m.RelayBatchSize,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Decisions produced, by resolved risk level.",
		}, []string{"risk_level"}),
		AlertsRaised: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_raised_total",
			Help:      "Decisions that resolved to HIGH and raised an alert.",
		}),
		ScoringErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scoring_errors_total",
			Help:      "Requests failed by the scorer or by a malformed distribution.",
		}),
		ExplainFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "explain_fallbacks_total",
			Help:      "Decisions that used the fallback factor list.",
		}),
		StoreWriteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_write_errors_total",
			Help:      "Best-effort history writes that failed, by record kind.",
		}, []string{"record"}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "End-to-end duration of a prediction, including persistence.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		ScorerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scorer_request_duration_seconds",
			Help:      "Scorer call duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Read-model cache lookups by view and result.",
		}, []string{"view", "result"}),
		RelayRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_running",
			Help:      "1 when the alert relay is active, 0 when shut down.",
		}),
		AlertsRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_relayed_total",
			Help:      "Alerts published to the downstream topic.",
		}),
		RelayErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_errors_total",
			Help:      "Failed relay cycles (read, publish or cursor save).",
		}),
		RelayBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relay_batch_size",
			Help:      "Number of alerts per relayed batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}
