package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/biomed-dq-validator/internal/domain"
)

// Metrics holds the Prometheus collectors exported on /metrics. Each server
// owns its own registry so tests can build servers side by side.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	validations     *prometheus.CounterVec
	qualityScore    prometheus.Histogram
	phiDetected     prometheus.Counter
	cleanRefusals   prometheus.Counter
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dq",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dq",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dq",
			Name:      "validations_total",
			Help:      "Completed validation runs by mode and status.",
		}, []string{"mode", "status"}),
		qualityScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dq",
			Name:      "quality_score",
			Help:      "Distribution of overall quality scores.",
			Buckets:   []float64{50, 60, 70, 80, 90, 95, 100},
		}),
		phiDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dq",
			Name:      "phi_detected_total",
			Help:      "Validation runs in which PHI was detected.",
		}),
		cleanRefusals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dq",
			Name:      "clean_refusals_total",
			Help:      "Validate-and-clean runs refused because of PHI.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.validations,
		m.qualityScore,
		m.phiDetected,
		m.cleanRefusals,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency by matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// ObserveReport records a finished validation.
func (m *Metrics) ObserveReport(report *domain.ValidationReport) {
	m.validations.WithLabelValues(report.Metadata.Mode, string(report.Assessment.Status)).Inc()
	m.qualityScore.Observe(report.QualityScore.Overall)
	if report.PHIDetected() {
		m.phiDetected.Inc()
	}
}

// ObserveQuick records a finished quick pre-screen.
func (m *Metrics) ObserveQuick(report *domain.QuickReport) {
	status := "failed"
	if report.Passed {
		status = "passed"
	}
	m.validations.WithLabelValues(report.Metadata.Mode, status).Inc()
	if report.PHI != nil && report.PHI.PHIDetected {
		m.phiDetected.Inc()
	}
}

// ObserveRefusal records a clean run refused for PHI.
func (m *Metrics) ObserveRefusal() {
	m.cleanRefusals.Inc()
	m.phiDetected.Inc()
}
