// Package metrics defines the Prometheus metric collectors used across the
// services. StartServer exposes them for scraping.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds all Prometheus collectors for the services.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	DocumentsScored      *prometheus.CounterVec
	ScoreExclusions      *prometheus.CounterVec
	BatchDuration        prometheus.Histogram
	DictionaryTerms      *prometheus.GaugeVec
	MalformedEntries     *prometheus.CounterVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	StreamEventsTotal    *prometheus.CounterVec
	CircuitState         *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. A nil reg uses the
// default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		DocumentsScored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "documents_scored_total",
				Help: "Documents scored against each dictionary.",
			},
			[]string{"dictionary"},
		),
		ScoreExclusions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "score_exclusions_total",
				Help: "Documents excluded from a dictionary's statistics by reason.",
			},
			[]string{"dictionary", "reason"},
		),
		BatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scoring_batch_duration_seconds",
				Help:    "Wall time of a full corpus scoring run.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
			},
		),
		DictionaryTerms: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dictionary_terms",
				Help: "Number of terms loaded per dictionary.",
			},
			[]string{"dictionary"},
		),
		MalformedEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dictionary_malformed_entries_total",
				Help: "Dictionary rows skipped because the weight was not numeric.",
			},
			[]string{"dictionary"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "score_cache_hits_total",
				Help: "Total number of score cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "score_cache_misses_total",
				Help: "Total number of score cache misses.",
			},
		),
		StreamEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stream_events_total",
				Help: "Score requests consumed from Kafka by outcome.",
			},
			[]string{"outcome"},
		),
		CircuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state: 0 closed, 1 open, 2 half-open.",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.DocumentsScored,
		m.ScoreExclusions,
		m.BatchDuration,
		m.DictionaryTerms,
		m.MalformedEntries,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.StreamEventsTotal,
		m.CircuitState,
	)

	return m
}
