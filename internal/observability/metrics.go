package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hail_risk"

// Metrics holds the Prometheus counters, histograms, and gauges for a pipeline run.
type Metrics struct {
	ReportFetches     *prometheus.CounterVec // labels: source={cache,network}
	HailPointsParsed  prometheus.Counter
	HailPointsDropped *prometheus.CounterVec // labels: reason={missing_coords,malformed}

	TractsLoaded          *prometheus.CounterVec // labels: state
	TractsWithoutGeometry *prometheus.CounterVec // labels: state
	TractsDropped         *prometheus.CounterVec // labels: reason={clipped,undefined_density}

	PointsJoined *prometheus.CounterVec // labels: outcome={assigned,seam,outside}
	CacheLookups *prometheus.CounterVec // labels: result={hit,miss,refresh}

	TractsPublished prometheus.Counter
	RunDuration     prometheus.Histogram
	LastSuccess     prometheus.Gauge

	registry *prometheus.Registry
}

func newMetrics() *Metrics {
	return &Metrics{
		ReportFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_fetches_total",
			Help:      "Hail report retrievals by source.",
		}, []string{"source"}),
		HailPointsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hail_points_parsed_total",
			Help:      "Hail reports with usable coordinates.",
		}),
		HailPointsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hail_points_dropped_total",
			Help:      "Hail report rows excluded while parsing, by reason.",
		}, []string{"reason"}),
		TractsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracts_loaded_total",
			Help:      "Census tracts loaded per state.",
		}, []string{"state"}),
		TractsWithoutGeometry: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracts_without_geometry_total",
			Help:      "Loaded census tracts with a null shape, per state.",
		}, []string{"state"}),
		TractsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracts_dropped_total",
			Help:      "Census tracts removed during assembly, by reason.",
		}, []string{"reason"}),
		PointsJoined: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_joined_total",
			Help:      "Spatial join outcomes for hail points.",
		}, []string{"outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Output cache lookups by result.",
		}, []string{"result"}),
		TractsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracts_published_total",
			Help:      "Scored tracts written to the sink topic.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete pipeline run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ReportFetches,
		m.HailPointsParsed,
		m.HailPointsDropped,
		m.TractsLoaded,
		m.TractsWithoutGeometry,
		m.TractsDropped,
		m.PointsJoined,
		m.CacheLookups,
		m.TractsPublished,
		m.RunDuration,
		m.LastSuccess,
	}
}

// NewMetrics creates all pipeline metrics on a dedicated registry, which is
// what Push sends to the Pushgateway.
func NewMetrics() *Metrics {
	m := newMetrics()
	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewMetrics()
}

// Registry returns the registry holding the pipeline metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
