package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/omnipack/omnipack/pkg/telemetry"
)

func newPlanCommand() *cobra.Command {
	var (
		manifestPath   string
		guardrailPaths []string
		distSpec       string
		targetTriple   string
		outFile        string
		jsonOutput     bool
	)

	cmd := &cobra.Command{
		Use:   "plan [config]",
		Short: "Preview packaging decisions",
		Long: `Evaluate a packaging configuration, scan the resource manifest, and show
the decision each resource would get. Nothing is journaled; use 'apply' to
record a run.

The configuration is a Starlark script that must leave a PackagingPolicy in
a module-global named 'policy'.`,
		Example: `  # Preview decisions for the default config and manifest
  omni plan

  # Explicit paths, JSON output
  omni plan pack.star --manifest resources.yaml --json

  # Save the plan for later auditing
  omni plan --out plan.json`,
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

			result, err := runPipeline(cmd.Context(), tel, pipelineOptions{
				configPath:     configPath,
				manifestPath:   manifestPath,
				guardrailPaths: guardrailPaths,
				distribution:   distSpec,
				targetTriple:   targetTriple,
				command:        "plan",
			})
			if err != nil {
				return err
			}

			if outFile != "" {
				data, err := json.MarshalIndent(result.plan, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode plan: %w", err)
				}
				if err := os.WriteFile(outFile, data, 0o644); err != nil {
					return fmt.Errorf("failed to write plan: %w", err)
				}
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result.plan)
			}

			printPlan(cmd.OutOrStdout(), result)

			if result.plan.Summary.Conflicts > 0 {
				return fmt.Errorf("plan has %d placement conflicts", result.plan.Summary.Conflicts)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "resources.yaml", "resource manifest path")
	cmd.Flags().StringSliceVarP(&guardrailPaths, "guardrails", "g", nil, "additional guardrail files or directories")
	cmd.Flags().StringVarP(&distSpec, "distribution", "d", "", "default distribution when the script omits one (NAME[@VERSION])")
	cmd.Flags().StringVarP(&targetTriple, "target", "t", "", "default target triple for distribution resolution")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "write the plan as JSON to this file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the plan as JSON")

	return cmd
}
