package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omnipack/omnipack/pkg/telemetry"
)

func newApplyCommand() *cobra.Command {
	var (
		manifestPath   string
		guardrailPaths []string
		distSpec       string
		targetTriple   string
		force          bool
	)

	cmd := &cobra.Command{
		Use:   "apply [config]",
		Short: "Decide resources and journal the run",
		Long: `Run the full pipeline and record the run and its per-resource decisions in
the decision journal.

A run with placement conflicts or audit errors is journaled as failed and
the command exits non-zero unless --force is given.`,
		Example: `  # Apply the default config and manifest
  omni apply

  # Apply with extra guardrails, journaling to a custom database
  omni apply pack.star --guardrails ./guardrails --state ci.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := "pack.star"
			if len(args) == 1 {
				configPath = args[0]
			}

			tel, err := newTelemetryFromFlags(telemetry.DefaultConfig())
			if err != nil {
				return err
			}
			defer func() { _ = tel.Shutdown(cmd.Context()) }()

			opts := pipelineOptions{
				configPath:     configPath,
				manifestPath:   manifestPath,
				guardrailPaths: guardrailPaths,
				distribution:   distSpec,
				targetTriple:   targetTriple,
				command:        "apply",
			}

			result, err := runPipeline(cmd.Context(), tel, opts)
			if err != nil {
				return err
			}

			stage := tel.StartStage(cmd.Context(), "persist")
			store, err := openStore(cmd.Context())
			if err != nil {
				stage.End(err)
				return err
			}
			defer func() { _ = store.Close() }()

			if err := persistRun(cmd.Context(), store, opts, result); err != nil {
				stage.End(err)
				return fmt.Errorf("failed to journal run: %w", err)
			}
			stage.End(nil)

			printPlan(cmd.OutOrStdout(), result)
			fmt.Fprintf(cmd.OutOrStdout(), "\nJournaled run %s to %s\n", result.runID, statePath)

			if force {
				return nil
			}
			if result.plan.Summary.Conflicts > 0 {
				return fmt.Errorf("run failed with %d placement conflicts", result.plan.Summary.Conflicts)
			}
			if result.report.HasErrors() {
				return fmt.Errorf("audit reported error findings")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "resources.yaml", "resource manifest path")
	cmd.Flags().StringSliceVarP(&guardrailPaths, "guardrails", "g", nil, "additional guardrail files or directories")
	cmd.Flags().StringVarP(&distSpec, "distribution", "d", "", "default distribution when the script omits one (NAME[@VERSION])")
	cmd.Flags().StringVarP(&targetTriple, "target", "t", "", "default target triple for distribution resolution")
	cmd.Flags().BoolVar(&force, "force", false, "exit zero even when the run fails")

	return cmd
}
