package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omnipack/omnipack/pkg/environment"
	"github.com/omnipack/omnipack/pkg/telemetry"
)

var (
	// Global flags
	logLevel  string
	logJSON   bool
	statePath string
)

// buildEnv is the detected build environment, shared by the version output
// and run provenance.
var buildEnv *environment.Environment

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	buildEnv = environment.Detect(version, commit, buildDate)
	rootCmd := newRootCommand()
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "omni",
		Short: "OmniPack - Resource Packaging Policy Engine",
		Long: `OmniPack decides, for every resource a project ships, whether it is
included in the packaged artifact, where it is placed, and which
representations are produced.

A Starlark configuration builds a packaging policy and registers resource
callbacks; a YAML manifest declares the resources; the engine derives one
collection context per resource and records the decisions as a plan.

Features:
  - Fixed-surface packaging policies with validated options
  - Per-resource callbacks via Starlark configuration
  - Distribution catalog with capability-aware policy defaults
  - Rego guardrails auditing every plan
  - SQLite journal of runs and decisions`,
		Version:       buildEnv.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "omnipack.db", "decision journal database path")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newApplyCommand())
	rootCmd.AddCommand(newAuditCommand())
	rootCmd.AddCommand(newRunsCommand())
	rootCmd.AddCommand(newDistributionsCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// newTelemetryFromFlags builds the process telemetry from the global flags.
func newTelemetryFromFlags(cfg *telemetry.Config) (*telemetry.Telemetry, error) {
	cfg.ServiceVersion = buildEnv.Version
	cfg.Logging.Level = logLevel
	if logJSON {
		cfg.Logging.Format = "json"
	}

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	return tel, nil
}
