package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	analyzeTotal     *prometheus.CounterVec
	analyzeDuration  *prometheus.HistogramVec
	analyzeSources   *prometheus.HistogramVec
	analyzeToolTotal *prometheus.CounterVec
	llmTokensTotal   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fba",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fba",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fba",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	analyzeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fba",
			Subsystem: "analyze",
			Name:      "requests_total",
			Help:      "Total analyze requests by status.",
		},
		[]string{"service", "status"},
	)
	analyzeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fba",
			Subsystem: "analyze",
			Name:      "duration_seconds",
			Help:      "Analyze execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	analyzeSources := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fba",
			Subsystem: "analyze",
			Name:      "retrieved_sources",
			Help:      "Distribution of retrieved sources per successful analyze request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	analyzeToolTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fba",
			Subsystem: "analyze",
			Name:      "tool_dispatch_total",
			Help:      "Total analyze requests by dispatched tool.",
		},
		[]string{"service", "tool"},
	)
	llmTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fba",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens spent answering analyze requests, by direction.",
		},
		[]string{"service", "direction"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		analyzeTotal,
		analyzeDuration,
		analyzeSources,
		analyzeToolTotal,
		llmTokensTotal,
	)

	return &HTTPServerMetrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		analyzeTotal:     analyzeTotal,
		analyzeDuration:  analyzeDuration,
		analyzeSources:   analyzeSources,
		analyzeToolTotal: analyzeToolTotal,
		llmTokensTotal:   llmTokensTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordAnalyze(service, status string, sourceCount int, duration time.Duration) {
	m.analyzeTotal.WithLabelValues(service, status).Inc()
	m.analyzeDuration.WithLabelValues(service).Observe(duration.Seconds())
	if status == "ok" {
		m.analyzeSources.WithLabelValues(service).Observe(float64(sourceCount))
	}
}

func (m *HTTPServerMetrics) RecordToolDispatch(service, tool string) {
	if tool == "" {
		tool = "unknown"
	}
	m.analyzeToolTotal.WithLabelValues(service, tool).Inc()
}

func (m *HTTPServerMetrics) RecordTokenUsage(service string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		m.llmTokensTotal.WithLabelValues(service, "in").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.llmTokensTotal.WithLabelValues(service, "out").Add(float64(completionTokens))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
