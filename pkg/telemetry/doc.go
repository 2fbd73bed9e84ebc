// Package telemetry provides observability instrumentation for OmniPack.
//
// The package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), metrics (Prometheus), and event publishing into one
// construction point for everything the packaging pipeline observes about
// itself.
//
// # Architecture
//
// The telemetry system is built on four pillars:
//
//  1. Structured Logging - zerolog loggers with per-component child loggers
//  2. Distributed Tracing - OpenTelemetry spans with OTLP or stdout exporters
//  3. Metrics Collection - Prometheus metrics for the packaging pipeline
//  4. Event Publishing - optional async event stream for watch-mode subscribers
//
// # Usage
//
// Initialize telemetry at process startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceVersion = version
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Plain plan/apply invocations run with DefaultConfig (console logs only);
// watch mode uses WatchConfig, which turns on the metrics listener and the
// event publisher.
//
// # Structured Logging
//
// NewLogger returns a plain zerolog.Logger; there is no wrapper type.
// Packages accept the logger in their constructors and derive child
// loggers:
//
//	logger := telemetry.ComponentLogger(tel.Logger, "collector")
//	logger = telemetry.RunLogger(logger, runID)
//
// Tests pass zerolog.New(nil).Level(zerolog.Disabled).
//
// # Tracing
//
// The tracer produces a fixed span vocabulary: run.execute for a whole
// run, stage.<name> for the pipeline stages (evaluate, scan, apply,
// audit, persist), and resource.decide per resource. StartStage bundles
// the stage span with a timer feeding the stage duration histogram:
//
//	stage := tel.StartStage(ctx, "scan")
//	resources, err := scanner.Scan(pol)
//	stage.End(err)
//
// # Metrics
//
// All metrics live under the omnipack namespace:
//
//   - omnipack_runs_started_total{command}
//   - omnipack_runs_completed_total{status}
//   - omnipack_run_duration_seconds{status}
//   - omnipack_stage_duration_seconds{stage}
//   - omnipack_resources_scanned_total{kind}
//   - omnipack_resources_decided_total{kind,outcome}
//   - omnipack_placement_conflicts_total{kind}
//   - omnipack_callback_errors_total{callback}
//   - omnipack_errors_by_code_total{code}
//   - omnipack_audit_findings_total{policy,severity}
//   - omnipack_active_runs
//
// A disabled Metrics instance is safe to call; every Record method is a
// no-op on it.
//
// # Events
//
// The event publisher fans run, decision, conflict, and audit events out
// to subscribers, optionally buffered on a background goroutine. It
// exists for watch mode; one-shot commands leave it disabled.
package telemetry
