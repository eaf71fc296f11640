// Package metrics exposes resolver and request counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hamed0406/endpointresolver/internal/domain"
)

const namespace = "endpointresolver"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	probes        *prometheus.CounterVec
	probeLatency  prometheus.Histogram
	resolutions   *prometheus.CounterVec
	attempts      *prometheus.CounterVec
	invalidations prometheus.Counter
	gatherer      prometheus.Gatherer
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Candidate probes by result.",
		}, []string{"result", "source"}),
		probeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_ms",
			Help:      "Probe duration in milliseconds.",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 11),
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Resolution cycles by outcome and winning source.",
		}, []string{"outcome", "source"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_attempts_total",
			Help:      "Upstream HTTP attempts by outcome.",
		}, []string{"outcome"}),
		invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalidations_total",
			Help:      "Cached endpoint invalidations.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.probes, m.probeLatency, m.resolutions, m.attempts, m.invalidations)
	return m
}

func (m *Metrics) ObserveProbe(r domain.ProbeResult) {
	if m == nil {
		return
	}
	result := "unreachable"
	if r.Reachable {
		result = "reachable"
	}
	m.probes.WithLabelValues(result, string(r.Candidate.Source)).Inc()
	m.probeLatency.Observe(r.ElapsedMS)
}

func (m *Metrics) ObserveResolution(r domain.Resolution) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(string(r.Outcome), string(r.Source)).Inc()
}

func (m *Metrics) ObserveAttempt(ok bool) {
	if m == nil {
		return
	}
	outcome := "transport_error"
	if ok {
		outcome = "ok"
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveInvalidation() {
	if m == nil {
		return
	}
	m.invalidations.Inc()
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
