package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for CloudGovern. A nil *Metrics or
// one built with Enabled=false is a safe no-op, so callers never have to
// guard instrumentation sites.
type Metrics struct {
	config MetricsConfig

	// Evaluation metrics
	evaluations        *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec

	// Scan metrics
	scans            prometheus.Counter
	scanDuration     prometheus.Histogram
	scannedResources prometheus.Gauge
	scanViolations   prometheus.Gauge

	// Violation metrics
	violations *prometheus.CounterVec

	// Compliance metrics
	frameworkScans  *prometheus.CounterVec
	complianceScore *prometheus.GaugeVec

	// Error metrics
	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	// Policy inventory
	policiesLoaded prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Total number of aggregate policy evaluations",
			},
			[]string{"decision"},
		),
		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of aggregate policy evaluations in seconds",
				Buckets:   buckets,
			},
			[]string{"decision"},
		),

		scans: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scans_total",
				Help:      "Total number of resource scans",
			},
		),
		scanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "Duration of resource scans in seconds",
				Buckets:   buckets,
			},
		),
		scannedResources: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "scanned_resources",
				Help:      "Number of resources covered by the last scan",
			},
		),
		scanViolations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "scan_violations",
				Help:      "Number of violations found by the last scan",
			},
		),

		violations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "violations_total",
				Help:      "Total number of violations found, by severity and status",
			},
			[]string{"severity", "status"},
		),

		frameworkScans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "framework_scans_total",
				Help:      "Total number of compliance framework scans",
			},
			[]string{"framework"},
		),
		complianceScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "compliance_score",
				Help:      "Compliance score (0-100) from the last framework scan",
			},
			[]string{"framework"},
		),

		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by error code",
			},
			[]string{"code"},
		),

		policiesLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "policies_loaded",
				Help:      "Current number of loaded policies",
			},
		),
	}

	registry.MustRegister(
		m.evaluations,
		m.evaluationDuration,
		m.scans,
		m.scanDuration,
		m.scannedResources,
		m.scanViolations,
		m.violations,
		m.frameworkScans,
		m.complianceScore,
		m.errorsByClass,
		m.errorsByCode,
		m.policiesLoaded,
	)

	return m, nil
}

// RecordEvaluation records one aggregate policy evaluation.
func (m *Metrics) RecordEvaluation(decision string, duration time.Duration) {
	if m == nil || m.evaluations == nil {
		return
	}
	m.evaluations.WithLabelValues(decision).Inc()
	m.evaluationDuration.WithLabelValues(decision).Observe(duration.Seconds())
}

// RecordScan records one resource scan.
func (m *Metrics) RecordScan(resources, violations int, duration time.Duration) {
	if m == nil || m.scans == nil {
		return
	}
	m.scans.Inc()
	m.scanDuration.Observe(duration.Seconds())
	m.scannedResources.Set(float64(resources))
	m.scanViolations.Set(float64(violations))
}

// RecordViolation counts one found violation.
func (m *Metrics) RecordViolation(severity, status string) {
	if m == nil || m.violations == nil {
		return
	}
	m.violations.WithLabelValues(severity, status).Inc()
}

// RecordFrameworkScan records one compliance framework scan and its score.
func (m *Metrics) RecordFrameworkScan(framework string, score int, duration time.Duration) {
	if m == nil || m.frameworkScans == nil {
		return
	}
	m.frameworkScans.WithLabelValues(framework).Inc()
	m.complianceScore.WithLabelValues(framework).Set(float64(score))
	m.scanDuration.Observe(duration.Seconds())
}

// RecordError records an error by class and optionally by code.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if m == nil || m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
	if errorCode != "" && m.errorsByCode != nil {
		m.errorsByCode.WithLabelValues(errorCode).Inc()
	}
}

// SetPolicyCount sets the current number of loaded policies.
func (m *Metrics) SetPolicyCount(count float64) {
	if m == nil || m.policiesLoaded == nil {
		return
	}
	m.policiesLoaded.Set(count)
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if m == nil || !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
