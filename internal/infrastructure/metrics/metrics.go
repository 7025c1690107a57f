package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cartlink"

// Metrics holds the collectors for fetches, resolutions and cart builds
type Metrics struct {
	fetchRequests     *prometheus.CounterVec
	fetchDuration     *prometheus.HistogramVec
	resolutions       *prometheus.CounterVec
	cartBuilds        *prometheus.CounterVec
	cartBuildDuration prometheus.Histogram
}

// New registers all collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Search page fetches by mode and result.",
		}, []string{"mode", "result"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Search page fetch latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"mode"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Item resolutions by outcome status.",
		}, []string{"status"}),
		cartBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_builds_total",
			Help:      "Cart link builds by result.",
		}, []string{"result"}),
		cartBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cart_build_duration_seconds",
			Help:      "End to end cart link build latency.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 9),
		}),
	}

	reg.MustRegister(
		m.fetchRequests,
		m.fetchDuration,
		m.resolutions,
		m.cartBuilds,
		m.cartBuildDuration,
	)

	return m
}

// ObserveFetch records one fetch. A nil *Metrics is a no-op so callers
// never need to guard.
func (m *Metrics) ObserveFetch(mode, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetchRequests.WithLabelValues(mode, result).Inc()
	m.fetchDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (m *Metrics) ObserveResolution(status string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveCartBuild(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.cartBuilds.WithLabelValues(result).Inc()
	m.cartBuildDuration.Observe(d.Seconds())
}
