// file: internal/metrics/metrics.go

package metrics

import (
	"runtime"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides centralized metrics collection for the evaluation agent
type Metrics struct {
	registry *prometheus.Registry

	// Evaluation metrics
	evaluationsTotal    *prometheus.CounterVec
	evaluationDuration  prometheus.Histogram
	evaluationPhases    *prometheus.CounterVec

	// Bureau call metrics
	bureauRequestsTotal   *prometheus.CounterVec
	bureauRequestDuration *prometheus.HistogramVec

	// Signature metrics
	signatureVerificationsTotal   *prometheus.CounterVec
	signatureVerificationDuration prometheus.Histogram

	// HTTP inbound metrics (serve mode)
	httpInboundRequestsTotal *prometheus.CounterVec
	httpRequestDuration      *prometheus.HistogramVec

	// Event publish metrics
	eventPublishTotal *prometheus.CounterVec

	// System metrics
	goroutines  prometheus.Gauge
	memoryBytes prometheus.Gauge

	// Internal counters for atomic operations
	stats struct {
		evaluations uint64
		rejections  uint64
	}
}

// NewMetrics creates a new metrics instance with all collectors registered
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: registry,

		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evaluations_total",
				Help: "Total number of credit evaluations by verdict",
			},
			[]string{"verdict"},
		),
		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "evaluation_duration_seconds",
				Help:    "End-to-end duration of a credit evaluation",
				Buckets: prometheus.DefBuckets,
			},
		),
		evaluationPhases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evaluation_phase_total",
				Help: "Total number of executed phases by phase and status",
			},
			[]string{"phase", "status"},
		),

		bureauRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bureau_requests_total",
				Help: "Total number of bureau API requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		bureauRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bureau_request_duration_seconds",
				Help:    "Duration of bureau API requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),

		signatureVerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signature_verifications_total",
				Help: "Total number of response signature verifications by result",
			},
			[]string{"result"},
		),
		signatureVerificationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "signature_verification_duration_seconds",
				Help:    "Duration of signature verification operations",
				Buckets: prometheus.DefBuckets,
			},
		),

		httpInboundRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_inbound_requests_total",
				Help: "Total number of inbound HTTP requests",
			},
			[]string{"path", "method", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of inbound HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),

		eventPublishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decision_events_published_total",
				Help: "Total number of decision events published by status",
			},
			[]string{"status"},
		),

		goroutines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "process_goroutines",
				Help: "Number of goroutines",
			},
		),
		memoryBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "process_memory_bytes",
				Help: "Process memory usage in bytes",
			},
		),
	}

	collectors := []prometheus.Collector{
		m.evaluationsTotal,
		m.evaluationDuration,
		m.evaluationPhases,
		m.bureauRequestsTotal,
		m.bureauRequestDuration,
		m.signatureVerificationsTotal,
		m.signatureVerificationDuration,
		m.httpInboundRequestsTotal,
		m.httpRequestDuration,
		m.eventPublishTotal,
		m.goroutines,
		m.memoryBytes,
	}

	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// GetRegistry returns the Prometheus registry (needed for HTTP handler)
func (m *Metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

// Evaluation metrics
func (m *Metrics) IncEvaluationsTotal(verdict string) {
	m.evaluationsTotal.WithLabelValues(verdict).Inc()
	atomic.AddUint64(&m.stats.evaluations, 1)
	if verdict == "REJECTED" {
		atomic.AddUint64(&m.stats.rejections, 1)
	}
}

func (m *Metrics) ObserveEvaluationDuration(seconds float64) {
	m.evaluationDuration.Observe(seconds)
}

func (m *Metrics) IncEvaluationPhase(phase, status string) {
	m.evaluationPhases.WithLabelValues(phase, status).Inc()
}

// Bureau call metrics
func (m *Metrics) IncBureauRequestsTotal(endpoint, status string) {
	m.bureauRequestsTotal.WithLabelValues(endpoint, status).Inc()
}

func (m *Metrics) ObserveBureauRequestDuration(endpoint string, seconds float64) {
	m.bureauRequestDuration.WithLabelValues(endpoint).Observe(seconds)
}

// Signature verification metrics
func (m *Metrics) IncSignatureVerifications(result string) {
	m.signatureVerificationsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveSignatureVerificationDuration(seconds float64) {
	m.signatureVerificationDuration.Observe(seconds)
}

// HTTP inbound metrics (serve mode only)
func (m *Metrics) IncHTTPInboundRequestsTotal(path, method, status string) {
	m.httpInboundRequestsTotal.WithLabelValues(path, method, status).Inc()
}

func (m *Metrics) ObserveHTTPRequestDuration(path, method string, seconds float64) {
	m.httpRequestDuration.WithLabelValues(path, method).Observe(seconds)
}

// Event publish metrics
func (m *Metrics) IncEventPublishTotal(status string) {
	m.eventPublishTotal.WithLabelValues(status).Inc()
}

// System metrics
func (m *Metrics) UpdateSystemMetrics() {
	m.goroutines.Set(float64(runtime.NumGoroutine()))

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	m.memoryBytes.Set(float64(memStats.Alloc))
}

// GetStats returns current evaluation counters
func (m *Metrics) GetStats() (evaluations, rejections uint64) {
	return atomic.LoadUint64(&m.stats.evaluations),
		atomic.LoadUint64(&m.stats.rejections)
}
