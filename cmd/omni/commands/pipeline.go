package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/omnipack/omnipack/pkg/audit"
	"github.com/omnipack/omnipack/pkg/collector"
	"github.com/omnipack/omnipack/pkg/config"
	"github.com/omnipack/omnipack/pkg/distribution"
	"github.com/omnipack/omnipack/pkg/stores"
	"github.com/omnipack/omnipack/pkg/telemetry"
)

// pipelineOptions parameterizes one evaluate/scan/collect/audit pass.
type pipelineOptions struct {
	configPath     string
	manifestPath   string
	guardrailPaths []string
	command        string

	// distribution and targetTriple override what the script's
	// distribution() builtin resolves when the script omits the
	// corresponding arguments. distribution is NAME or NAME@VERSION.
	distribution string
	targetTriple string
}

// pipelineResult is everything one pass produced.
type pipelineResult struct {
	runID  string
	eval   *config.EvalResult
	plan   *collector.Plan
	report *audit.Report
}

// runPipeline evaluates the configuration, scans the manifest, collects
// decisions, and audits the plan. Persistence is the caller's concern.
func runPipeline(ctx context.Context, tel *telemetry.Telemetry, opts pipelineOptions) (*pipelineResult, error) {
	runID := uuid.New().String()
	ctx, runSpan := tel.Tracer.StartRunSpan(ctx, runID, opts.command)
	defer runSpan.End()

	tel.Metrics.RecordRunStarted(opts.command)
	_ = tel.Events.PublishRunStarted(runID, opts.command)
	timer := telemetry.NewTimer()

	result, err := runStages(ctx, tel, runID, opts)
	if err != nil {
		telemetry.RecordError(runSpan, err)
		tel.Metrics.RecordRunCompleted("failed", timer.Duration())
		_ = tel.Events.PublishRunFailed(runID, err.Error())
		return nil, err
	}

	telemetry.RecordSuccess(runSpan)
	tel.Metrics.RecordRunCompleted("completed", timer.Duration())
	_ = tel.Events.PublishRunCompleted(runID, "completed", timer.Duration())
	return result, nil
}

func runStages(ctx context.Context, tel *telemetry.Telemetry, runID string, opts pipelineOptions) (*pipelineResult, error) {
	// Evaluate the Starlark configuration against the embedded catalog.
	stage := tel.StartStage(ctx, "evaluate")
	registry, err := distribution.DefaultRegistry()
	if err != nil {
		stage.End(err)
		return nil, fmt.Errorf("failed to load distribution catalog: %w", err)
	}

	evaluator := config.NewEvaluator(registry, stage.Logger)
	distName, distVersion := splitDistributionSpec(opts.distribution)
	evaluator.SetDistributionDefaults(distName, distVersion, opts.targetTriple)
	eval, err := evaluator.EvaluateFile(opts.configPath)
	if err != nil {
		stage.End(err)
		return nil, fmt.Errorf("configuration evaluation failed: %w", err)
	}
	stage.End(nil)

	// Scan the manifest under the evaluated policy.
	stage = tel.StartStage(ctx, "scan")
	manifest, err := collector.LoadManifest(opts.manifestPath)
	if err != nil {
		stage.End(err)
		return nil, err
	}
	scanner := collector.NewManifestScanner(manifest, stage.Logger)
	resources := scanner.Scan(eval.Policy)
	stage.End(nil)

	// Decide every resource.
	plan, err := collector.NewCollector(tel, runID).Run(ctx, eval.Policy, eval.Chain, resources)
	if err != nil {
		return nil, err
	}

	// Audit the plan.
	stage = tel.StartStage(ctx, "audit")
	engine, err := audit.NewEngine(stage.Logger)
	if err != nil {
		stage.End(err)
		return nil, err
	}
	if len(opts.guardrailPaths) > 0 {
		if err := engine.LoadGuardrails(ctx, opts.guardrailPaths); err != nil {
			stage.End(err)
			return nil, err
		}
	}
	report, err := engine.EvaluatePlan(ctx, plan, eval.Policy)
	if err != nil {
		stage.End(err)
		return nil, err
	}
	for i := range report.Violations {
		v := &report.Violations[i]
		tel.Metrics.RecordAuditFinding(v.Guardrail, string(v.Severity))
		_ = tel.Events.PublishAuditFinding(runID, v.Resource, v.Guardrail, string(v.Severity), v.Message)
	}
	stage.End(nil)

	return &pipelineResult{
		runID:  runID,
		eval:   eval,
		plan:   plan,
		report: report,
	}, nil
}

// splitDistributionSpec splits a NAME or NAME@VERSION specifier.
func splitDistributionSpec(spec string) (name, version string) {
	name, version, _ = strings.Cut(spec, "@")
	return name, version
}

// openStore opens and migrates the decision journal at the global state
// path.
func openStore(ctx context.Context) (*stores.SQLiteStore, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: statePath})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// persistRun journals a completed pipeline pass.
func persistRun(ctx context.Context, store *stores.SQLiteStore, opts pipelineOptions, result *pipelineResult) error {
	snapshot, err := json.Marshal(result.eval.Policy)
	if err != nil {
		return fmt.Errorf("failed to snapshot policy: %w", err)
	}

	distName := ""
	if result.eval.Distribution != nil {
		distName = result.eval.Distribution.Key()
	}

	now := time.Now()
	run := &stores.Run{
		ID:             result.runID,
		ConfigPath:     opts.configPath,
		ManifestPath:   opts.manifestPath,
		Distribution:   distName,
		Status:         stores.RunStatusRunning,
		PolicySnapshot: string(snapshot),
		StartedAt:      result.plan.StartedAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := store.CreateRun(ctx, run); err != nil {
		return err
	}

	if err := store.SaveDecisions(ctx, decisionRecords(result.plan)); err != nil {
		return err
	}

	summary := stores.RunSummary{
		Resources:      result.plan.Summary.Resources,
		Included:       result.plan.Summary.Included,
		Conflicts:      result.plan.Summary.Conflicts,
		CallbackErrors: result.plan.Summary.CallbackErrors,
	}
	status := stores.RunStatusCompleted
	var errMsg *string
	if result.plan.Summary.Conflicts > 0 || result.report.HasErrors() {
		status = stores.RunStatusFailed
		msg := failureMessage(result)
		errMsg = &msg
	}
	return store.CompleteRun(ctx, result.runID, status, summary, errMsg)
}

// decisionRecords flattens a plan into journal rows.
func decisionRecords(plan *collector.Plan) []*stores.Decision {
	records := make([]*stores.Decision, 0, len(plan.Decisions))
	for i := range plan.Decisions {
		d := &plan.Decisions[i]
		record := &stores.Decision{
			RunID:      plan.RunID,
			Position:   d.Position,
			Resource:   d.Resource,
			Kind:       string(d.Kind),
			Provenance: string(d.Provenance),
			Test:       d.Test,
			CreatedAt:  plan.CompletedAt,
		}
		if d.Context != nil {
			record.Include = d.Context.Include
			record.Location = d.Context.Location.String()
			if d.Context.LocationFallback != nil {
				fb := d.Context.LocationFallback.String()
				record.LocationFallback = &fb
			}
			record.OptimizeLevelZero = d.Context.OptimizeLevelZero
			record.OptimizeLevelOne = d.Context.OptimizeLevelOne
			record.OptimizeLevelTwo = d.Context.OptimizeLevelTwo
			record.IncludeSource = d.Context.IncludeSource
			if d.Context.Variant != "" {
				variant := d.Context.Variant
				record.Variant = &variant
			}
		}
		if d.Conflict != "" {
			conflict := d.Conflict
			record.Conflict = &conflict
		}
		if d.CallbackError != "" {
			cbErr := d.CallbackError
			record.CallbackError = &cbErr
		}
		records = append(records, record)
	}
	return records
}

func failureMessage(result *pipelineResult) string {
	if result.plan.Summary.Conflicts > 0 {
		return fmt.Sprintf("%d placement conflicts", result.plan.Summary.Conflicts)
	}
	return "audit reported error findings"
}

// printPlan renders a plan as text.
func printPlan(w io.Writer, result *pipelineResult) {
	fmt.Fprintf(w, "Run %s\n\n", result.runID)

	for i := range result.plan.Decisions {
		d := &result.plan.Decisions[i]
		switch {
		case d.Conflict != "":
			fmt.Fprintf(w, "  ✗ %-40s %-18s conflict: %s\n", d.Resource, d.Kind, d.Conflict)
		case d.CallbackError != "":
			fmt.Fprintf(w, "  ✗ %-40s %-18s callback error: %s\n", d.Resource, d.Kind, d.CallbackError)
		case d.Included():
			detail := d.Context.Location.String()
			if d.Context.Variant != "" {
				detail += " variant=" + d.Context.Variant
			}
			fmt.Fprintf(w, "  + %-40s %-18s %s\n", d.Resource, d.Kind, detail)
		default:
			fmt.Fprintf(w, "  - %-40s %-18s excluded\n", d.Resource, d.Kind)
		}
	}

	s := result.plan.Summary
	fmt.Fprintf(w, "\n%d resources: %d included, %d excluded, %d conflicts, %d callback errors\n",
		s.Resources, s.Included, s.Resources-s.Included-s.Conflicts, s.Conflicts, s.CallbackErrors)

	printReport(w, result.report)
}

// printReport renders audit findings as text.
func printReport(w io.Writer, report *audit.Report) {
	if len(report.Violations) == 0 {
		return
	}
	fmt.Fprintf(w, "\nAudit findings:\n")
	for _, v := range report.Violations {
		fmt.Fprintf(w, "  [%s] %s: %s\n", v.Severity, v.Guardrail, v.Message)
		if v.Remediation != "" {
			fmt.Fprintf(w, "          fix: %s\n", v.Remediation)
		}
	}
}
