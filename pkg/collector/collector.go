package collector

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/omnipack/omnipack/pkg/packaging"
	"github.com/omnipack/omnipack/pkg/policy"
	"github.com/omnipack/omnipack/pkg/telemetry"
)

// Decision records the outcome of deciding one resource.
type Decision struct {
	// Position is the resource's index in the scanned plan.
	Position int `json:"position"`

	// Resource is the resource name.
	Resource string `json:"resource"`

	// Kind is the resource kind.
	Kind packaging.ResourceKind `json:"kind"`

	// Provenance is the resource's origin class.
	Provenance packaging.ProvenanceClass `json:"provenance"`

	// Test reports whether the resource is test-only.
	Test bool `json:"test,omitempty"`

	// Variants lists the resource's declared build variants, so reporting
	// can relate the selected variant back to its declaration.
	Variants []packaging.Variant `json:"variants,omitempty"`

	// Context is the collection context the resource ended up with. Nil
	// only when a conflict prevented any context from being derived.
	Context *packaging.CollectionContext `json:"context,omitempty"`

	// Conflict is the placement conflict message, empty when placement
	// resolved.
	Conflict string `json:"conflict,omitempty"`

	// CallbackError is the callback failure message, empty when the chain
	// ran clean. The context committed before the failure stands.
	CallbackError string `json:"callback_error,omitempty"`
}

// Included reports whether the decision keeps the resource in the artifact.
func (d *Decision) Included() bool {
	return d.Context != nil && d.Context.Include && d.Conflict == ""
}

// Outcome classifies the decision for metrics and events.
func (d *Decision) Outcome() string {
	switch {
	case d.Conflict != "":
		return telemetry.OutcomeConflict
	case d.CallbackError != "":
		return telemetry.OutcomeError
	case d.Included():
		return telemetry.OutcomeIncluded
	default:
		return telemetry.OutcomeExcluded
	}
}

// Summary aggregates a plan's decision counts.
type Summary struct {
	// Resources is the number of resources decided.
	Resources int `json:"resources"`

	// Included counts resources kept in the artifact.
	Included int `json:"included"`

	// Conflicts counts resources with placement conflicts.
	Conflicts int `json:"conflicts"`

	// CallbackErrors counts resources whose callback chain failed.
	CallbackErrors int `json:"callback_errors"`
}

// Plan is the ordered decision record for one collection run.
type Plan struct {
	// RunID identifies the run that produced the plan.
	RunID string `json:"run_id"`

	// Decisions holds one record per resource, in scan order.
	Decisions []Decision `json:"decisions"`

	// Summary aggregates the decision counts.
	Summary Summary `json:"summary"`

	// StartedAt is when collection began.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when collection finished.
	CompletedAt time.Time `json:"completed_at"`
}

// Collector walks scanned resources through the policy engine and records
// the outcomes.
type Collector struct {
	tel   *telemetry.Telemetry
	runID string
}

// NewCollector creates a collector reporting under runID.
func NewCollector(tel *telemetry.Telemetry, runID string) *Collector {
	return &Collector{
		tel:   tel,
		runID: runID,
	}
}

// Run decides every resource in order under p and chain and returns the
// resulting plan. Placement conflicts and callback failures are recorded on
// the affected resource's decision and processing continues; Run itself
// fails only when ctx is cancelled.
func (c *Collector) Run(ctx context.Context, p *policy.Policy, chain *policy.CallbackChain, resources []packaging.Resource) (*Plan, error) {
	stage := c.tel.StartStage(ctx, "collect",
		attribute.String("run.id", c.runID),
		attribute.Int("resources.count", len(resources)),
	)

	plan := &Plan{
		RunID:     c.runID,
		Decisions: make([]Decision, 0, len(resources)),
		StartedAt: time.Now(),
	}

	var runErr error
	for i, res := range resources {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		c.tel.Metrics.RecordResourceScanned(string(res.Kind()))
		plan.Decisions = append(plan.Decisions, c.decide(stage.Ctx, p, chain, i, res))
	}

	plan.CompletedAt = time.Now()
	for i := range plan.Decisions {
		d := &plan.Decisions[i]
		plan.Summary.Resources++
		if d.Included() {
			plan.Summary.Included++
		}
		if d.Conflict != "" {
			plan.Summary.Conflicts++
		}
		if d.CallbackError != "" {
			plan.Summary.CallbackErrors++
		}
	}

	stage.Logger.Info().
		Str("run_id", c.runID).
		Int("resources", plan.Summary.Resources).
		Int("included", plan.Summary.Included).
		Int("conflicts", plan.Summary.Conflicts).
		Int("callback_errors", plan.Summary.CallbackErrors).
		Msg("collection complete")

	stage.End(runErr)
	if runErr != nil {
		return nil, runErr
	}
	return plan, nil
}

// decide runs one resource through the engine and records the outcome.
func (c *Collector) decide(ctx context.Context, p *policy.Policy, chain *policy.CallbackChain, position int, res packaging.Resource) Decision {
	_, span := c.tel.Tracer.StartResourceSpan(ctx, res.Name(), string(res.Kind()))
	defer span.End()

	decision := Decision{
		Position:   position,
		Resource:   res.Name(),
		Kind:       res.Kind(),
		Provenance: res.Provenance(),
		Test:       res.IsTest(),
		Variants:   res.Variants(),
	}

	err := policy.ApplyToResource(p, chain, res)
	decision.Context = res.CollectionContext().Clone()

	switch {
	case packaging.IsConflict(err):
		decision.Conflict = err.Error()
		c.tel.Metrics.RecordPlacementConflict(string(res.Kind()))
		c.tel.Metrics.RecordError(packaging.ErrCodePlacementConflict)
		_ = c.tel.Events.PublishPlacementConflict(c.runID, res.Name(), err.Error())
		telemetry.RecordError(span, err)
		c.tel.Logger.Warn().
			Str("resource", res.Name()).
			Str("kind", string(res.Kind())).
			Err(err).
			Msg("placement conflict")

	case packaging.IsCallback(err):
		decision.CallbackError = err.Error()
		c.tel.Metrics.RecordCallbackError(res.Name())
		c.tel.Metrics.RecordError(packaging.ErrCodeCallbackFailed)
		_ = c.tel.Events.PublishCallbackFailed(c.runID, res.Name(), "", err.Error())
		telemetry.RecordError(span, err)
		c.tel.Logger.Error().
			Str("resource", res.Name()).
			Err(err).
			Msg("resource callback failed")

	case err != nil:
		// Derivation errors outside the conflict taxonomy are recorded
		// like conflicts so the plan stays complete.
		decision.Conflict = err.Error()
		c.tel.Metrics.RecordError(packaging.ErrCodeValidation)
		telemetry.RecordError(span, err)
		c.tel.Logger.Error().
			Str("resource", res.Name()).
			Err(err).
			Msg("decision failed")

	default:
		telemetry.RecordSuccess(span)
	}

	outcome := decision.Outcome()
	c.tel.Metrics.RecordDecision(string(res.Kind()), outcome)
	if decision.Context != nil {
		_ = c.tel.Events.PublishResourceDecided(c.runID, res.Name(), outcome, decision.Context.Location.String())
	}

	return decision
}
