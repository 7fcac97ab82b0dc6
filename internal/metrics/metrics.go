// Package metrics exports sweep progress as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MJE43/nh-parity-go/internal/converge"
)

const namespace = "nhparity"

// Metrics is a converge.Observer that records every sweep on its own
// registry.
type Metrics struct {
	registry *prometheus.Registry

	sweeps           *prometheus.CounterVec
	sweepsInFlight   prometheus.Gauge
	parity           *prometheus.GaugeVec
	fixtures         *prometheus.CounterVec
	fixtureDuration  *prometheus.HistogramVec
	records          *prometheus.CounterVec
	traceDivergences prometheus.Counter
}

var _ converge.Observer = (*Metrics)(nil)

// New builds the collectors on a fresh registry. Go runtime and process
// collectors are included when runtime is set.
func New(runtime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if runtime {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Labels: verdict (pass, fail, partial)
		sweeps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "total",
			Help:      "Completed sweeps by overall verdict",
		}, []string{"verdict"}),

		sweepsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "in_flight",
			Help:      "Sweeps currently running",
		}),

		// Labels: label (sweep label, empty when unset)
		parity: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "parity_ratio",
			Help:      "Share of passing fixtures in the latest sweep",
		}, []string{"label"}),

		// Labels: verdict (pass, fail, inconclusive, error)
		fixtures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fixture",
			Name:      "total",
			Help:      "Finished fixtures by verdict",
		}, []string{"verdict"}),

		fixtureDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fixture",
			Name:      "duration_seconds",
			Help:      "Wall time to compare one fixture",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"verdict"}),

		// Labels: severity (cosmetic, minor, major, divergent)
		records: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "diff",
			Name:      "records_total",
			Help:      "Diff records by severity",
		}, []string{"severity"}),

		traceDivergences: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "diff",
			Name:      "trace_divergences_total",
			Help:      "Fixtures whose generator traces diverged",
		}),
	}
}

// Registry exposes the registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SweepStarted(string, string, int) {
	m.sweepsInFlight.Inc()
}

func (m *Metrics) FixtureFinished(_ string, r converge.FixtureResult) {
	verdict := string(r.Verdict)
	m.fixtures.WithLabelValues(verdict).Inc()
	m.fixtureDuration.WithLabelValues(verdict).Observe(r.Duration.Seconds())
	for s, n := range r.Histogram {
		m.records.WithLabelValues(s.String()).Add(float64(n))
	}
	if r.Diverged {
		m.traceDivergences.Inc()
	}
}

func (m *Metrics) SweepFinished(r *converge.Report) {
	m.sweepsInFlight.Dec()
	m.sweeps.WithLabelValues(string(r.Verdict)).Inc()
	m.parity.WithLabelValues(r.Label).Set(r.ParityRate.InexactFloat64())
}
