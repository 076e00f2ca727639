package metrics

import (
	"dexnetwork/internal/domain"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dexnetwork"

// Unit outcomes
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
	OutcomeResumed = "resumed"
)

type Metrics struct {
	reg *prometheus.Registry

	units        *prometheus.CounterVec
	transactions *prometheus.CounterVec
	unitDuration *prometheus.HistogramVec
	sinkErrors   *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_total",
			Help:      "Processed (version, date) units by outcome",
		}, []string{"version", "outcome"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Reconstructed transactions by route label",
		}, []string{"version", "label"}),
		unitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "unit_duration_seconds",
			Help:      "Wall time of one unit from raw swaps to written artifacts",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"version"}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failed deliveries of day results",
		}, []string{"sink"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.units,
		m.transactions,
		m.unitDuration,
		m.sinkErrors,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) ObserveUnit(v domain.Version, outcome string, took time.Duration) {
	m.units.WithLabelValues(string(v), outcome).Inc()
	if outcome == OutcomeOK {
		m.unitDuration.WithLabelValues(string(v)).Observe(took.Seconds())
	}
}

func (m *Metrics) ObserveLabels(v domain.Version, c domain.LabelCounts) {
	add := func(l domain.Label, n int) {
		if n > 0 {
			m.transactions.WithLabelValues(string(v), l.String()).Add(float64(n))
		}
	}
	add(domain.LabelSimple, c.Simple)
	add(domain.LabelLoop, c.Loop)
	add(domain.LabelSpoon, c.Spoon)
	add(domain.LabelError, c.Error)
}

func (m *Metrics) SinkError(sink string) {
	m.sinkErrors.WithLabelValues(sink).Inc()
}
