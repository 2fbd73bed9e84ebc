package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics provides Prometheus metrics for the packaging pipeline. The
// zero-value methods are safe on a disabled instance, so call sites never
// need to check whether metrics are on.
type Metrics struct {
	config MetricsConfig

	// Run metrics
	runsStarted   *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	// Pipeline stage metrics
	stageDuration *prometheus.HistogramVec

	// Resource metrics
	resourcesScanned *prometheus.CounterVec
	resourcesDecided *prometheus.CounterVec

	// Failure metrics
	placementConflicts *prometheus.CounterVec
	callbackErrors     *prometheus.CounterVec
	errorsByCode       *prometheus.CounterVec

	// Audit metrics
	auditFindings *prometheus.CounterVec

	// System metrics
	activeRuns prometheus.Gauge

	registry *prometheus.Registry
}

// Decision outcome labels for RecordDecision.
const (
	OutcomeIncluded = "included"
	OutcomeExcluded = "excluded"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// NewMetrics creates a metrics collector. A disabled configuration yields
// a no-op instance.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
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

		runsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_started_total",
				Help:      "Total number of packaging runs started",
			},
			[]string{"command"},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of packaging runs completed",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of packaging runs in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages (evaluate, scan, apply, audit, persist) in seconds",
				Buckets:   buckets,
			},
			[]string{"stage"},
		),

		resourcesScanned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resources_scanned_total",
				Help:      "Total number of resources produced by the scanner",
			},
			[]string{"kind"},
		),
		resourcesDecided: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resources_decided_total",
				Help:      "Total number of per-resource decisions by outcome",
			},
			[]string{"kind", "outcome"},
		),

		placementConflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "placement_conflicts_total",
				Help:      "Total number of placement conflicts recorded",
			},
			[]string{"kind"},
		),
		callbackErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "callback_errors_total",
				Help:      "Total number of resource callback failures",
			},
			[]string{"callback"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of engine errors by stable code",
			},
			[]string{"code"},
		),

		auditFindings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audit_findings_total",
				Help:      "Total number of audit guardrail findings",
			},
			[]string{"policy", "severity"},
		),

		activeRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_runs",
				Help:      "Current number of in-flight packaging runs",
			},
		),
	}

	registry.MustRegister(
		m.runsStarted,
		m.runsCompleted,
		m.runDuration,
		m.stageDuration,
		m.resourcesScanned,
		m.resourcesDecided,
		m.placementConflicts,
		m.callbackErrors,
		m.errorsByCode,
		m.auditFindings,
		m.activeRuns,
	)

	return m, nil
}

// RecordRunStarted increments the started-run counter.
func (m *Metrics) RecordRunStarted(command string) {
	if m.runsStarted == nil {
		return
	}
	m.runsStarted.WithLabelValues(command).Inc()
	m.activeRuns.Inc()
}

// RecordRunCompleted records a completed run with its status and duration.
func (m *Metrics) RecordRunCompleted(status string, duration time.Duration) {
	if m.runsCompleted == nil {
		return
	}
	m.runsCompleted.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.activeRuns.Dec()
}

// RecordStageDuration records how long a pipeline stage took.
func (m *Metrics) RecordStageDuration(stage string, duration time.Duration) {
	if m.stageDuration == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordResourceScanned counts a scanner-produced resource.
func (m *Metrics) RecordResourceScanned(kind string) {
	if m.resourcesScanned == nil {
		return
	}
	m.resourcesScanned.WithLabelValues(kind).Inc()
}

// RecordDecision counts a per-resource decision by outcome.
func (m *Metrics) RecordDecision(kind, outcome string) {
	if m.resourcesDecided == nil {
		return
	}
	m.resourcesDecided.WithLabelValues(kind, outcome).Inc()
}

// RecordPlacementConflict counts a placement conflict.
func (m *Metrics) RecordPlacementConflict(kind string) {
	if m.placementConflicts == nil {
		return
	}
	m.placementConflicts.WithLabelValues(kind).Inc()
}

// RecordCallbackError counts a failed resource callback.
func (m *Metrics) RecordCallbackError(callback string) {
	if m.callbackErrors == nil {
		return
	}
	m.callbackErrors.WithLabelValues(callback).Inc()
}

// RecordError counts an engine error by its stable code.
func (m *Metrics) RecordError(code string) {
	if m.errorsByCode == nil || code == "" {
		return
	}
	m.errorsByCode.WithLabelValues(code).Inc()
}

// RecordAuditFinding counts a guardrail finding.
func (m *Metrics) RecordAuditFinding(policy, severity string) {
	if m.auditFindings == nil {
		return
	}
	m.auditFindings.WithLabelValues(policy, severity).Inc()
}

// Timer times an operation for the duration histograms.
type Timer struct {
	start time.Time
}

// NewTimer creates a started timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time on the given observer.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartServer starts an HTTP server exposing the metrics endpoint. The
// server runs until the process exits; watch mode is the only long-lived
// caller.
func (m *Metrics) StartServer(logger zerolog.Logger) error {
	if !m.config.Enabled {
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
			logger.Error().Err(err).Str("addr", m.config.ListenAddress).Msg("metrics server failed")
		}
	}()

	return nil
}
