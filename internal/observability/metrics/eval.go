package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type EvalMetrics struct {
	registry *prometheus.Registry

	runTotal    *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	runInFlight prometheus.Gauge
	costTotal   *prometheus.CounterVec
	goldenTotal *prometheus.CounterVec
}

func NewEvalMetrics(service string) *EvalMetrics {
	registry := prometheus.NewRegistry()

	runTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fba",
			Subsystem: "eval",
			Name:      "runs_total",
			Help:      "Total evaluated (strategy, question) pairs by status.",
		},
		[]string{"service", "strategy", "status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fba",
			Subsystem: "eval",
			Name:      "run_duration_seconds",
			Help:      "Evaluation pair duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"service", "strategy"},
	)
	runInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fba",
			Subsystem: "eval",
			Name:      "in_flight_runs",
			Help:      "Number of in-flight evaluation pairs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	costTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fba",
			Subsystem: "eval",
			Name:      "cost_usd_total",
			Help:      "Accumulated estimated model cost in USD.",
		},
		[]string{"service", "strategy"},
	)
	goldenTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fba",
			Subsystem: "eval",
			Name:      "golden_examples_total",
			Help:      "Golden dataset examples by outcome.",
		},
		[]string{"service", "outcome"},
	)

	registry.MustRegister(runTotal, runDuration, runInFlight, costTotal, goldenTotal)

	return &EvalMetrics{
		registry:    registry,
		runTotal:    runTotal,
		runDuration: runDuration,
		runInFlight: runInFlight,
		costTotal:   costTotal,
		goldenTotal: goldenTotal,
	}
}

func (m *EvalMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *EvalMetrics) RunStarted() {
	m.runInFlight.Inc()
}

func (m *EvalMetrics) RunFinished(service, strategy, status string, duration time.Duration, costUSD float64) {
	m.runInFlight.Dec()
	m.runTotal.WithLabelValues(service, strategy, status).Inc()
	m.runDuration.WithLabelValues(service, strategy).Observe(duration.Seconds())
	if costUSD > 0 {
		m.costTotal.WithLabelValues(service, strategy).Add(costUSD)
	}
}

func (m *EvalMetrics) GoldenExample(service, outcome string) {
	m.goldenTotal.WithLabelValues(service, outcome).Inc()
}
