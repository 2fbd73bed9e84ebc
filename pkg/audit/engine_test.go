package audit

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/omnipack/omnipack/pkg/collector"
	"github.com/omnipack/omnipack/pkg/packaging"
	"github.com/omnipack/omnipack/pkg/policy"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return engine
}

func includedContext() *packaging.CollectionContext {
	return &packaging.CollectionContext{
		Include:           true,
		Location:          packaging.LocationInMemory(),
		OptimizeLevelZero: true,
	}
}

func planOf(decisions ...collector.Decision) *collector.Plan {
	plan := &collector.Plan{
		RunID:     "run-test",
		Decisions: decisions,
	}
	plan.Summary.Resources = len(decisions)
	for i := range decisions {
		if decisions[i].Included() {
			plan.Summary.Included++
		}
	}
	return plan
}

func findingsFor(report *Report, guardrail string) []Violation {
	var out []Violation
	for _, v := range report.Violations {
		if v.Guardrail == guardrail {
			out = append(out, v)
		}
	}
	return out
}

func TestBuiltinGuardrailsCompile(t *testing.T) {
	engine := newTestEngine(t)

	for _, name := range []string{"no-test-resources", "module-without-representation", "copyleft-variant-embedded"} {
		if _, err := engine.GetGuardrail(name); err != nil {
			t.Errorf("builtin guardrail %s missing: %v", name, err)
		}
	}
}

func TestCleanPlanPasses(t *testing.T) {
	engine := newTestEngine(t)

	plan := planOf(collector.Decision{
		Resource:   "os.path",
		Kind:       packaging.KindModuleSource,
		Provenance: packaging.ProvenanceDistributionSource,
		Context:    includedContext(),
	})

	report, err := engine.EvaluatePlan(context.Background(), plan, policy.Default())
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}

	if len(report.Violations) != 0 {
		t.Errorf("clean plan produced findings: %+v", report.Violations)
	}
	if report.HasErrors() {
		t.Error("clean plan must not have errors")
	}
	if len(report.EvaluatedGuardrails) != 3 {
		t.Errorf("evaluated %d guardrails, want 3", len(report.EvaluatedGuardrails))
	}
}

func TestNoTestResourcesGuardrail(t *testing.T) {
	engine := newTestEngine(t)

	plan := planOf(collector.Decision{
		Resource:   "test_ssl",
		Kind:       packaging.KindModuleSource,
		Provenance: packaging.ProvenanceDistributionSource,
		Test:       true,
		Context:    includedContext(),
	})

	report, err := engine.EvaluatePlan(context.Background(), plan, policy.Default())
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}

	findings := findingsFor(report, "no-test-resources")
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1: %+v", len(findings), report.Violations)
	}
	if findings[0].Severity != SeverityWarning {
		t.Errorf("severity = %s, want warning", findings[0].Severity)
	}
	if findings[0].Resource != "test_ssl" {
		t.Errorf("resource = %s, want test_ssl", findings[0].Resource)
	}
	if report.HasErrors() {
		t.Error("warning findings must not fail the audit")
	}
}

func TestExcludedTestResourceIsQuiet(t *testing.T) {
	engine := newTestEngine(t)

	ctx := includedContext()
	ctx.Include = false
	plan := planOf(collector.Decision{
		Resource:   "test_ssl",
		Kind:       packaging.KindModuleSource,
		Provenance: packaging.ProvenanceDistributionSource,
		Test:       true,
		Context:    ctx,
	})

	report, err := engine.EvaluatePlan(context.Background(), plan, policy.Default())
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if findings := findingsFor(report, "no-test-resources"); len(findings) != 0 {
		t.Errorf("excluded test resource should not fire: %+v", findings)
	}
}

func TestModuleWithoutRepresentationGuardrail(t *testing.T) {
	engine := newTestEngine(t)

	plan := planOf(collector.Decision{
		Resource:   "os.path",
		Kind:       packaging.KindModuleSource,
		Provenance: packaging.ProvenanceDistributionSource,
		Context: &packaging.CollectionContext{
			Include:  true,
			Location: packaging.LocationInMemory(),
		},
	})

	report, err := engine.EvaluatePlan(context.Background(), plan, policy.Default())
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}

	findings := findingsFor(report, "module-without-representation")
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1: %+v", len(findings), report.Violations)
	}
	if findings[0].Severity != SeverityError {
		t.Errorf("severity = %s, want error", findings[0].Severity)
	}
	if !report.HasErrors() {
		t.Error("error findings must fail the audit")
	}
}

func TestRepresentationSatisfiedBySource(t *testing.T) {
	engine := newTestEngine(t)

	plan := planOf(collector.Decision{
		Resource:   "mypkg.mod",
		Kind:       packaging.KindModuleSource,
		Provenance: packaging.ProvenanceNonDistribution,
		Context: &packaging.CollectionContext{
			Include:       true,
			Location:      packaging.LocationInMemory(),
			IncludeSource: true,
		},
	})

	report, err := engine.EvaluatePlan(context.Background(), plan, policy.Default())
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if findings := findingsFor(report, "module-without-representation"); len(findings) != 0 {
		t.Errorf("source-only module should not fire: %+v", findings)
	}
}

func TestCopyleftVariantEmbeddedGuardrail(t *testing.T) {
	engine := newTestEngine(t)

	decision := collector.Decision{
		Resource:   "readline",
		Kind:       packaging.KindExtensionModule,
		Provenance: packaging.ProvenanceDistributionSource,
		Variants: []packaging.Variant{
			{Name: "gnu", Copyleft: true},
			{Name: "libedit"},
		},
		Context: &packaging.CollectionContext{
			Include:  true,
			Location: packaging.LocationInMemory(),
			Variant:  "gnu",
		},
	}

	report, err := engine.EvaluatePlan(context.Background(), planOf(decision), policy.Default())
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	findings := findingsFor(report, "copyleft-variant-embedded")
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1: %+v", len(findings), report.Violations)
	}
	if findings[0].Severity != SeverityWarning {
		t.Errorf("severity = %s, want warning", findings[0].Severity)
	}

	// The same variant shipped as a file is fine.
	decision.Context = &packaging.CollectionContext{
		Include:  true,
		Location: packaging.LocationFilesystemRelative("lib"),
		Variant:  "gnu",
	}
	report, err = engine.EvaluatePlan(context.Background(), planOf(decision), policy.Default())
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if findings := findingsFor(report, "copyleft-variant-embedded"); len(findings) != 0 {
		t.Errorf("filesystem placement should not fire: %+v", findings)
	}

	// Selecting the non-copyleft variant is fine too.
	decision.Context = &packaging.CollectionContext{
		Include:  true,
		Location: packaging.LocationInMemory(),
		Variant:  "libedit",
	}
	report, err = engine.EvaluatePlan(context.Background(), planOf(decision), policy.Default())
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if findings := findingsFor(report, "copyleft-variant-embedded"); len(findings) != 0 {
		t.Errorf("non-copyleft variant should not fire: %+v", findings)
	}
}

func TestConflictedDecisionIsQuiet(t *testing.T) {
	engine := newTestEngine(t)

	plan := planOf(collector.Decision{
		Resource:   "test_ssl",
		Kind:       packaging.KindModuleSource,
		Provenance: packaging.ProvenanceDistributionSource,
		Test:       true,
		Context:    includedContext(),
		Conflict:   "placement conflict",
	})

	report, err := engine.EvaluatePlan(context.Background(), plan, policy.Default())
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if len(report.Violations) != 0 {
		t.Errorf("conflicted decisions are reported as conflicts, not findings: %+v", report.Violations)
	}
}

func TestReplaceGuardrails(t *testing.T) {
	engine := newTestEngine(t)

	custom := Guardrail{
		Name:        "no-data-resources",
		Description: "rejects data resources entirely",
		Severity:    SeverityError,
		Enabled:     true,
		Rego: `package omnipack.guardrails.nodata

import rego.v1

deny contains violation if {
	input.decision.kind == "data-resource"
	input.decision.context.include
	violation := sprintf("data resource %s is not allowed", [input.decision.resource])
}
`,
	}

	if err := engine.ReplaceGuardrails(context.Background(), []Guardrail{custom}); err != nil {
		t.Fatalf("failed to install guardrail: %v", err)
	}

	plan := planOf(collector.Decision{
		Resource:   "certifi.cacert",
		Kind:       packaging.KindDataResource,
		Provenance: packaging.ProvenanceNonDistribution,
		Context:    includedContext(),
	})

	report, err := engine.EvaluatePlan(context.Background(), plan, policy.Default())
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}

	findings := findingsFor(report, "no-data-resources")
	if len(findings) != 1 {
		t.Fatalf("custom guardrail did not fire: %+v", report.Violations)
	}
	if findings[0].Severity != SeverityError {
		t.Errorf("string findings inherit the guardrail severity, got %s", findings[0].Severity)
	}
	if !report.HasErrors() {
		t.Error("custom error guardrail must fail the audit")
	}
}

func TestDisabledGuardrailSkipped(t *testing.T) {
	engine := newTestEngine(t)

	disabled := Guardrail{
		Name:     "disabled",
		Severity: SeverityError,
		Enabled:  false,
		Rego: `package omnipack.guardrails.disabled

import rego.v1

deny contains v if {
	input.decision
	v := "always fires"
}
`,
	}
	if err := engine.ReplaceGuardrails(context.Background(), []Guardrail{disabled}); err != nil {
		t.Fatalf("failed to install guardrail: %v", err)
	}

	plan := planOf(collector.Decision{
		Resource: "os.path",
		Kind:     packaging.KindModuleSource,
		Context:  includedContext(),
	})

	report, err := engine.EvaluatePlan(context.Background(), plan, policy.Default())
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if findings := findingsFor(report, "disabled"); len(findings) != 0 {
		t.Errorf("disabled guardrail fired: %+v", findings)
	}
	for _, name := range report.EvaluatedGuardrails {
		if name == "disabled" {
			t.Error("disabled guardrail listed as evaluated")
		}
	}
}

func TestRejectsBrokenGuardrail(t *testing.T) {
	engine := newTestEngine(t)

	broken := Guardrail{
		Name:    "broken",
		Enabled: true,
		Rego:    "this is not rego",
	}
	if err := engine.ReplaceGuardrails(context.Background(), []Guardrail{broken}); err == nil {
		t.Fatal("expected compile error for broken guardrail")
	}
}
