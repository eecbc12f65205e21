package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sounding_forecast"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// forecast and backfill jobs.
type Metrics struct {
	// Upstream retrieval.
	FetchRequests *prometheus.CounterVec   // labels: source={uwyo,wunderground}, outcome={success,error}
	FetchDuration *prometheus.HistogramVec // labels: source
	CacheResults  *prometheus.CounterVec   // labels: result={hit,miss}

	// Sounding ingestion.
	ListingsParsed      prometheus.Counter
	LinesDiscarded      prometheus.Counter
	StationsMissing     *prometheus.CounterVec // labels: station
	ObservationsMissing prometheus.Counter

	// Forecast outputs.
	PredictionsTotal  prometheus.Counter
	PredictionsFailed prometheus.Counter
	LastPrediction    prometheus.Gauge
	ArtifactsWritten  *prometheus.CounterVec // labels: artifact
	EventsPublished   prometheus.Counter

	// Jobs.
	RunDuration      *prometheus.HistogramVec // labels: job={forecast,backfill}
	SchedulerRunning prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.CacheResults,
		m.ListingsParsed,
		m.LinesDiscarded,
		m.StationsMissing,
		m.ObservationsMissing,
		m.PredictionsTotal,
		m.PredictionsFailed,
		m.LastPrediction,
		m.ArtifactsWritten,
		m.EventsPublished,
		m.RunDuration,
		m.SchedulerRunning,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Upstream requests by source and outcome.",
		}, []string{"source", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Upstream request duration including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		CacheResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_cache_total",
			Help:      "Response cache lookups by result.",
		}, []string{"result"}),
		ListingsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_parsed_total",
			Help:      "Sounding listings parsed from upstream pages.",
		}),
		LinesDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_lines_discarded_total",
			Help:      "Listing lines dropped for having the wrong number of values.",
		}),
		StationsMissing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stations_missing_total",
			Help:      "Station soundings that could not be retrieved.",
		}, []string{"station"}),
		ObservationsMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_missing_total",
			Help:      "Dates without a usable surface observation.",
		}),
		PredictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Successful daily predictions.",
		}),
		PredictionsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_failed_total",
			Help:      "Daily predictions that could not be produced.",
		}),
		LastPrediction: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_prediction_fahrenheit",
			Help:      "Most recent predicted daily maximum temperature.",
		}),
		ArtifactsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_written_total",
			Help:      "Artifacts written to storage by name.",
		}, []string{"artifact"}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Forecast events written to Kafka.",
		}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete job run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 300, 900, 3600, 14400},
		}, []string{"job"}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      "1 when the scheduler is active, 0 when shut down.",
		}),
	}
}
