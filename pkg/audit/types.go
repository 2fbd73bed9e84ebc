package audit

import (
	"time"
)

// Severity is the weight of a guardrail finding.
type Severity string

const (
	// SeverityInfo is for informational findings.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that should be reviewed but do not
	// fail the audit.
	SeverityWarning Severity = "warning"

	// SeverityError is for findings that fail the audit.
	SeverityError Severity = "error"
)

// Guardrail is one packaging rule with its Rego code.
type Guardrail struct {
	// Name is the unique name of the guardrail.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego rule code.
	Rego string `json:"rego"`

	// Severity is the default severity for findings.
	Severity Severity `json:"severity"`

	// Enabled indicates if the guardrail is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing guardrails.
	Tags []string `json:"tags,omitempty"`

	// Metadata contains additional guardrail metadata.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// CreatedAt is when the guardrail was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the guardrail was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Violation is a single guardrail finding against a packaging plan.
type Violation struct {
	// Guardrail is the name of the guardrail that fired.
	Guardrail string `json:"guardrail"`

	// Resource names the resource the finding is about, if any.
	Resource string `json:"resource,omitempty"`

	// Message is the human-readable finding.
	Message string `json:"message"`

	// Severity is the finding's severity level.
	Severity Severity `json:"severity"`

	// Remediation provides a suggested fix.
	Remediation string `json:"remediation,omitempty"`

	// DetectedAt is when the finding was produced.
	DetectedAt time.Time `json:"detected_at"`
}

// Report is the outcome of auditing one packaging plan.
type Report struct {
	// RunID identifies the run the audited plan came from.
	RunID string `json:"run_id"`

	// Violations lists every guardrail finding.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists guardrails whose evaluation itself failed.
	Warnings []string `json:"warnings,omitempty"`

	// EvaluatedGuardrails names the guardrails that ran.
	EvaluatedGuardrails []string `json:"evaluated_guardrails"`

	// EvaluatedAt is when the audit ran.
	EvaluatedAt time.Time `json:"evaluated_at"`

	// Duration is how long the audit took.
	Duration time.Duration `json:"duration"`
}

// HasErrors reports whether any finding carries the error severity.
func (r *Report) HasErrors() bool {
	for i := range r.Violations {
		if r.Violations[i].Severity == SeverityError {
			return true
		}
	}
	return false
}

// CountBySeverity tallies findings per severity.
func (r *Report) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for i := range r.Violations {
		counts[r.Violations[i].Severity]++
	}
	return counts
}
