package telemetry_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/omnipack/omnipack/pkg/telemetry"
)

// ExampleNewTelemetry demonstrates initializing telemetry at startup.
func ExampleNewTelemetry() {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = "1.0.0"
	cfg.Logging.Output = "stdout"

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer tel.Shutdown(context.Background())

	fmt.Println("telemetry ready")
	// Output: telemetry ready
}

// ExampleComponentLogger demonstrates the per-package child logger
// convention.
func ExampleComponentLogger() {
	cfg := telemetry.DefaultConfig()
	cfg.Logging.Output = "stdout"

	logger, err := telemetry.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatal(err)
	}

	collectorLog := telemetry.ComponentLogger(logger, "collector")
	runLog := telemetry.RunLogger(collectorLog, "run-7f3a")

	// Child loggers carry their fields on every line they emit.
	_ = runLog

	fmt.Println("loggers derived")
	// Output: loggers derived
}

// ExampleMetrics_RecordDecision demonstrates recording per-resource
// decision outcomes.
func ExampleMetrics_RecordDecision() {
	metrics, err := telemetry.NewMetrics(telemetry.MetricsConfig{
		Enabled:   true,
		Namespace: "omnipack",
	})
	if err != nil {
		log.Fatal(err)
	}

	metrics.RecordResourceScanned("module-source")
	metrics.RecordDecision("module-source", telemetry.OutcomeIncluded)
	metrics.RecordDecision("extension-module", telemetry.OutcomeConflict)
	metrics.RecordPlacementConflict("extension-module")

	fmt.Println("decisions recorded")
	// Output: decisions recorded
}

// ExampleEventPublisher demonstrates subscribing to run events in watch
// mode.
func ExampleEventPublisher() {
	events, err := telemetry.NewEventPublisher(telemetry.EventsConfig{
		Enabled:     true,
		BufferSize:  16,
		EnableAsync: false,
	})
	if err != nil {
		log.Fatal(err)
	}

	events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("%s: %s\n", event.Type, event.Message)
	}, telemetry.FilterByType(telemetry.EventTypeRunCompleted))

	_ = events.PublishRunStarted("run-001", "plan")
	_ = events.PublishRunCompleted("run-001", "completed", 120*time.Millisecond)

	// Output: run.completed: run run-001 completed: completed
}
