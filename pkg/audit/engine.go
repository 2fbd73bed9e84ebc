package audit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/rego"
	"github.com/rs/zerolog"

	"github.com/omnipack/omnipack/pkg/collector"
	"github.com/omnipack/omnipack/pkg/policy"
)

// Input is the document a guardrail evaluates: one decision plus the policy
// and plan summary that produced it.
type Input struct {
	// Decision is the packaging decision under audit.
	Decision *collector.Decision `json:"decision"`

	// Policy is the policy the plan was derived under.
	Policy *policy.Policy `json:"policy,omitempty"`

	// Summary aggregates the whole plan's counts.
	Summary *collector.Summary `json:"summary,omitempty"`
}

// Engine evaluates guardrails against packaging plans.
type Engine struct {
	mu         sync.RWMutex
	guardrails map[string]*compiledGuardrail
	logger     zerolog.Logger
}

// compiledGuardrail pairs a guardrail with its prepared query.
type compiledGuardrail struct {
	guardrail *Guardrail
	query     rego.PreparedEvalQuery
	compiled  time.Time
}

// NewEngine creates an audit engine preloaded with the builtin guardrails.
func NewEngine(logger zerolog.Logger) (*Engine, error) {
	e := &Engine{
		guardrails: make(map[string]*compiledGuardrail),
		logger:     logger.With().Str("component", "audit-engine").Logger(),
	}

	builtins := BuiltinGuardrails()
	for i := range builtins {
		if err := e.compileAndStore(context.Background(), &builtins[i]); err != nil {
			return nil, fmt.Errorf("failed to compile builtin guardrail %s: %w", builtins[i].Name, err)
		}
	}

	e.logger.Debug().
		Int("count", len(builtins)).
		Msg("builtin guardrails loaded")

	return e, nil
}

// LoadGuardrails loads guardrail files from paths, replacing any guardrail
// that shares a name with a loaded one. Builtin guardrails can be overridden
// this way.
func (e *Engine) LoadGuardrails(ctx context.Context, paths []string) error {
	loader := NewLoader(e.logger)
	guardrails, err := loader.LoadFromPaths(ctx, paths)
	if err != nil {
		return fmt.Errorf("failed to load guardrails: %w", err)
	}
	return e.ReplaceGuardrails(ctx, guardrails)
}

// ReplaceGuardrails compiles and installs guardrails. Used directly by the
// watch reload path.
func (e *Engine) ReplaceGuardrails(ctx context.Context, guardrails []Guardrail) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range guardrails {
		if err := e.compileAndStoreLocked(ctx, &guardrails[i]); err != nil {
			return fmt.Errorf("failed to compile guardrail %s: %w", guardrails[i].Name, err)
		}
	}

	e.logger.Info().
		Int("count", len(guardrails)).
		Msg("guardrails loaded")

	return nil
}

// EvaluatePlan audits every decision in plan against the enabled guardrails.
// A guardrail whose evaluation fails is reported as a warning; the audit
// itself continues.
func (e *Engine) EvaluatePlan(ctx context.Context, plan *collector.Plan, p *policy.Policy) (*Report, error) {
	start := time.Now()
	e.mu.RLock()
	defer e.mu.RUnlock()

	report := &Report{
		RunID:               plan.RunID,
		EvaluatedGuardrails: make([]string, 0, len(e.guardrails)),
		EvaluatedAt:         start,
	}

	for _, cg := range e.guardrails {
		if !cg.guardrail.Enabled {
			continue
		}
		report.EvaluatedGuardrails = append(report.EvaluatedGuardrails, cg.guardrail.Name)

		for i := range plan.Decisions {
			input := &Input{
				Decision: &plan.Decisions[i],
				Policy:   p,
				Summary:  &plan.Summary,
			}

			violations, err := e.evaluate(ctx, cg, input)
			if err != nil {
				e.logger.Error().Err(err).
					Str("guardrail", cg.guardrail.Name).
					Str("resource", plan.Decisions[i].Resource).
					Msg("guardrail evaluation failed")
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("guardrail %s evaluation failed: %v", cg.guardrail.Name, err))
				continue
			}

			report.Violations = append(report.Violations, violations...)
		}
	}

	report.Duration = time.Since(start)

	e.logger.Debug().
		Str("run_id", plan.RunID).
		Int("violations", len(report.Violations)).
		Dur("duration", report.Duration).
		Msg("plan audit completed")

	return report, nil
}

// evaluate runs one guardrail against one input document.
func (e *Engine) evaluate(ctx context.Context, cg *compiledGuardrail, input *Input) ([]Violation, error) {
	results, err := cg.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("guardrail evaluation error: %w", err)
	}

	var violations []Violation
	for _, result := range results {
		for _, expr := range result.Expressions {
			denySet, ok := expr.Value.([]interface{})
			if !ok {
				continue
			}
			for _, d := range denySet {
				violations = append(violations, e.makeViolation(cg.guardrail, d, input))
			}
		}
	}

	return violations, nil
}

// makeViolation builds a Violation from one deny result.
func (e *Engine) makeViolation(g *Guardrail, result interface{}, input *Input) Violation {
	violation := Violation{
		Guardrail:  g.Name,
		Severity:   g.Severity,
		DetectedAt: time.Now(),
	}
	if input.Decision != nil {
		violation.Resource = input.Decision.Resource
	}

	switch v := result.(type) {
	case string:
		violation.Message = v
	case map[string]interface{}:
		if msg, ok := v["message"].(string); ok {
			violation.Message = msg
		}
		if sev, ok := v["severity"].(string); ok {
			violation.Severity = Severity(sev)
		}
		if res, ok := v["resource"].(string); ok {
			violation.Resource = res
		}
		if fix, ok := v["remediation"].(string); ok {
			violation.Remediation = fix
		}
	default:
		violation.Message = fmt.Sprintf("%v", result)
	}

	return violation
}

// compileAndStore compiles a guardrail and stores its prepared query.
func (e *Engine) compileAndStore(ctx context.Context, g *Guardrail) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.compileAndStoreLocked(ctx, g)
}

func (e *Engine) compileAndStoreLocked(ctx context.Context, g *Guardrail) error {
	pkg := extractPackageName(g.Rego)

	r := rego.New(
		rego.Module(g.Name, g.Rego),
		rego.Query(fmt.Sprintf("data.%s.deny", pkg)),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("failed to prepare query: %w", err)
	}

	e.guardrails[g.Name] = &compiledGuardrail{
		guardrail: g,
		query:     query,
		compiled:  time.Now(),
	}

	e.logger.Debug().
		Str("guardrail", g.Name).
		Str("package", pkg).
		Msg("guardrail compiled")

	return nil
}

// GetGuardrail returns a loaded guardrail by name.
func (e *Engine) GetGuardrail(name string) (*Guardrail, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cg, exists := e.guardrails[name]
	if !exists {
		return nil, fmt.Errorf("guardrail not found: %s", name)
	}
	return cg.guardrail, nil
}

// ListGuardrails returns all loaded guardrails.
func (e *Engine) ListGuardrails() []Guardrail {
	e.mu.RLock()
	defer e.mu.RUnlock()

	guardrails := make([]Guardrail, 0, len(e.guardrails))
	for _, cg := range e.guardrails {
		guardrails = append(guardrails, *cg.guardrail)
	}
	return guardrails
}

// extractPackageName extracts the package name from Rego code.
func extractPackageName(code string) string {
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "package ") {
			parts := strings.Fields(trimmed)
			if len(parts) >= 2 {
				return parts[1]
			}
		}
	}
	return "omnipack.guardrails"
}
