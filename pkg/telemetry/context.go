package telemetry

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry bundles the logger, tracer, metrics, and event publisher a
// process wires once at startup and threads through the pipeline.
type Telemetry struct {
	Logger  zerolog.Logger
	Tracer  *Tracer
	Metrics *Metrics
	Events  *EventPublisher
	Config  *Config
}

// telemetryContextKey is the context key for telemetry instances.
type telemetryContextKey struct{}

// NewTelemetry creates a telemetry instance from configuration. Disabled
// sections yield no-op components, so callers never branch on what is on.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	events, err := NewEventPublisher(cfg.Events)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Events:  events,
		Config:  cfg,
	}, nil
}

// WithContext adds the telemetry instance to the context.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, telemetryContextKey{}, t)
}

// FromTelemetryContext retrieves the telemetry instance from the context,
// or nil when none was attached.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	if t, ok := ctx.Value(telemetryContextKey{}).(*Telemetry); ok {
		return t
	}
	return nil
}

// Shutdown gracefully shuts down the telemetry components, events first so
// buffered deliveries can still produce spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if err := t.Events.Shutdown(ctx); err != nil {
		return err
	}
	return t.Tracer.Shutdown(ctx)
}

// Flush forces pending trace data to be exported.
func (t *Telemetry) Flush(ctx context.Context) error {
	return t.Tracer.ForceFlush(ctx)
}

// StartMetricsServer starts the metrics HTTP listener if metrics are
// enabled. Watch mode is the only long-lived caller.
func (t *Telemetry) StartMetricsServer() error {
	return t.Metrics.StartServer(t.Logger)
}

// StageSpan instruments one pipeline stage: a trace span, a child logger,
// and a timer feeding the stage duration histogram.
type StageSpan struct {
	Ctx    context.Context
	Span   trace.Span
	Logger zerolog.Logger

	stage   string
	timer   *Timer
	metrics *Metrics
}

// StartStage begins an instrumented pipeline stage (evaluate, scan, apply,
// audit, persist).
func (t *Telemetry) StartStage(ctx context.Context, stage string, attrs ...attribute.KeyValue) *StageSpan {
	spanCtx, span := t.Tracer.StartStageSpan(ctx, stage)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}

	return &StageSpan{
		Ctx:     spanCtx,
		Span:    span,
		Logger:  t.Logger.With().Str("stage", stage).Logger(),
		stage:   stage,
		timer:   NewTimer(),
		metrics: t.Metrics,
	}
}

// End finishes the stage, recording its duration and success or failure.
func (s *StageSpan) End(err error) {
	if err != nil {
		RecordError(s.Span, err)
	} else {
		RecordSuccess(s.Span)
	}
	s.Span.End()
	s.metrics.RecordStageDuration(s.stage, s.timer.Duration())
}
