package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "match_forecast"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Pipeline metrics.
	EventsFetched    prometheus.Counter
	EventsStored     prometheus.Counter
	EventsPublished  prometheus.Counter
	PipelineErrors   *prometheus.CounterVec // labels: stage={fetch,store,publish}
	PipelineRunning  prometheus.Gauge
	PipelineDuration prometheus.Histogram

	// Enrichment metrics.
	EnrichmentOutcomes *prometheus.CounterVec   // labels: step={weather,forecast}, source={coordinates,place,llm,failed,none}
	WeatherCache       *prometheus.CounterVec   // labels: method={coordinates,place}, result={hit,miss}
	UpstreamDuration   *prometheus.HistogramVec // labels: api={sportsdb,openweather,openai}

	// Account metrics.
	UsersRegistered prometheus.Counter
	Logins          *prometheus.CounterVec // labels: outcome={success,failure}
}

func newMetrics() *Metrics {
	return &Metrics{
		EventsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_fetched_total",
			Help:      "Total upcoming events read from the sports API.",
		}),
		EventsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_stored_total",
			Help:      "Total enriched events upserted into the database.",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total enriched events written to the Kafka topic.",
		}),
		PipelineErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_errors_total",
			Help:      "Pipeline failures by stage.",
		}, []string{"stage"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while the periodic refresh loop is active, 0 otherwise.",
		}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_run_duration_seconds",
			Help:      "Duration of a complete fetch-enrich-store run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		EnrichmentOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_outcomes_total",
			Help:      "Enrichment results by step and source.",
		}, []string{"step", "source"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_total",
			Help:      "Weather cache lookups by method and result.",
		}, []string{"method", "result"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Third-party API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"api"}),
		UsersRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_registered_total",
			Help:      "Total successful user registrations.",
		}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.EventsFetched,
		m.EventsStored,
		m.EventsPublished,
		m.PipelineErrors,
		m.PipelineRunning,
		m.PipelineDuration,
		m.EnrichmentOutcomes,
		m.WeatherCache,
		m.UpstreamDuration,
		m.UsersRegistered,
		m.Logins,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
