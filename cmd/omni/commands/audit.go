package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/omnipack/omnipack/pkg/audit"
	"github.com/omnipack/omnipack/pkg/collector"
	"github.com/omnipack/omnipack/pkg/packaging"
	"github.com/omnipack/omnipack/pkg/policy"
	"github.com/omnipack/omnipack/pkg/stores"
	"github.com/omnipack/omnipack/pkg/telemetry"
)

func newAuditCommand() *cobra.Command {
	var (
		manifestPath   string
		guardrailPaths []string
		planFile       string
		runID          string
		jsonOutput     bool
	)

	cmd := &cobra.Command{
		Use:   "audit [config]",
		Short: "Audit packaging decisions against guardrails",
		Long: `Audit a packaging plan with the builtin guardrails plus any loaded from
--guardrails paths. By default the plan is computed from the configuration
and manifest; --plan audits a previously saved plan file and --run audits a
journaled run, using the policy snapshot recorded with it.

The command exits non-zero when any finding carries the error severity.`,
		Example: `  # Audit the plan the default config produces
  omni audit

  # Audit a saved plan with extra guardrails
  omni audit --plan plan.json --guardrails ./guardrails

  # Audit a journaled run
  omni audit --run 3f6c1c2e-8a4b-4f7e-9c0d-2d1a5b6c7e8f`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := "pack.star"
			if len(args) == 1 {
				configPath = args[0]
			}
			if planFile != "" && runID != "" {
				return fmt.Errorf("--plan and --run are mutually exclusive")
			}

			tel, err := newTelemetryFromFlags(telemetry.DefaultConfig())
			if err != nil {
				return err
			}
			defer func() { _ = tel.Shutdown(cmd.Context()) }()

			var report *audit.Report
			switch {
			case planFile != "":
				report, err = auditPlanFile(cmd.Context(), tel, planFile, guardrailPaths)
			case runID != "":
				report, err = auditStoredRun(cmd.Context(), tel, runID, guardrailPaths)
			default:
				var result *pipelineResult
				result, err = runPipeline(cmd.Context(), tel, pipelineOptions{
					configPath:     configPath,
					manifestPath:   manifestPath,
					guardrailPaths: guardrailPaths,
					command:        "audit",
				})
				if result != nil {
					report = result.report
				}
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else if len(report.Violations) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Audit passed: %d guardrails, no findings\n",
					len(report.EvaluatedGuardrails))
			} else {
				printReport(cmd.OutOrStdout(), report)
			}

			if report.HasErrors() {
				return fmt.Errorf("audit failed with error findings")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "resources.yaml", "resource manifest path")
	cmd.Flags().StringSliceVarP(&guardrailPaths, "guardrails", "g", nil, "additional guardrail files or directories")
	cmd.Flags().StringVar(&planFile, "plan", "", "audit a saved plan file instead of computing one")
	cmd.Flags().StringVar(&runID, "run", "", "audit a journaled run by ID")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the report as JSON")

	return cmd
}

// auditPlanFile audits a plan saved by 'omni plan --out'. The policy is not
// part of the saved plan, so guardrails referencing input.policy see the
// defaults.
func auditPlanFile(ctx context.Context, tel *telemetry.Telemetry, planFile string, guardrailPaths []string) (*audit.Report, error) {
	data, err := os.ReadFile(planFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	var plan collector.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}

	return auditPlan(ctx, tel, &plan, policy.Default(), guardrailPaths)
}

// auditStoredRun audits a run from the decision journal, rebuilding the
// plan from its journaled decisions and the policy from the snapshot
// recorded at apply time.
func auditStoredRun(ctx context.Context, tel *telemetry.Telemetry, runID string, guardrailPaths []string) (*audit.Report, error) {
	store, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	records, err := store.ListDecisions(ctx, runID)
	if err != nil {
		return nil, err
	}

	p := policy.Default()
	if run.PolicySnapshot != "" {
		if err := json.Unmarshal([]byte(run.PolicySnapshot), p); err != nil {
			return nil, fmt.Errorf("failed to parse policy snapshot for run %s: %w", runID, err)
		}
	}

	return auditPlan(ctx, tel, planFromRecords(run, records), p, guardrailPaths)
}

// auditPlan runs the guardrail engine over an already-built plan.
func auditPlan(ctx context.Context, tel *telemetry.Telemetry, plan *collector.Plan, p *policy.Policy, guardrailPaths []string) (*audit.Report, error) {
	stage := tel.StartStage(ctx, "audit")
	engine, err := audit.NewEngine(stage.Logger)
	if err != nil {
		stage.End(err)
		return nil, err
	}
	if len(guardrailPaths) > 0 {
		if err := engine.LoadGuardrails(ctx, guardrailPaths); err != nil {
			stage.End(err)
			return nil, err
		}
	}

	report, err := engine.EvaluatePlan(ctx, plan, p)
	stage.End(err)
	return report, err
}

// planFromRecords rebuilds a plan from journal rows. Variant declarations
// are not journaled, so guardrails that match variant metadata stay quiet
// for stored runs.
func planFromRecords(run *stores.Run, records []*stores.Decision) *collector.Plan {
	plan := &collector.Plan{
		RunID:     run.ID,
		StartedAt: run.StartedAt,
		Summary: collector.Summary{
			Resources:      run.Resources,
			Included:       run.Included,
			Conflicts:      run.Conflicts,
			CallbackErrors: run.CallbackErrors,
		},
	}
	if run.CompletedAt != nil {
		plan.CompletedAt = *run.CompletedAt
	}

	for _, rec := range records {
		d := collector.Decision{
			Position:   rec.Position,
			Resource:   rec.Resource,
			Kind:       packaging.ResourceKind(rec.Kind),
			Provenance: packaging.ProvenanceClass(rec.Provenance),
			Test:       rec.Test,
		}
		if rec.Conflict != nil {
			d.Conflict = *rec.Conflict
		}
		if rec.CallbackError != nil {
			d.CallbackError = *rec.CallbackError
		}

		// An empty location means the decision was journaled without a
		// context, which only happens for conflicted resources.
		if loc, err := packaging.ParseResourceLocation(rec.Location); err == nil {
			dctx := &packaging.CollectionContext{
				Include:           rec.Include,
				Location:          loc,
				OptimizeLevelZero: rec.OptimizeLevelZero,
				OptimizeLevelOne:  rec.OptimizeLevelOne,
				OptimizeLevelTwo:  rec.OptimizeLevelTwo,
				IncludeSource:     rec.IncludeSource,
			}
			if rec.LocationFallback != nil {
				if fb, err := packaging.ParseResourceLocation(*rec.LocationFallback); err == nil {
					dctx.LocationFallback = &fb
				}
			}
			if rec.Variant != nil {
				dctx.Variant = *rec.Variant
			}
			d.Context = dctx
		}

		plan.Decisions = append(plan.Decisions, d)
	}

	return plan
}
