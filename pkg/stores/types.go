package stores

import (
	"context"
	"time"
)

// RunStatus represents the status of a packaging run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents one packaging run: a policy snapshot applied to one
// scanned manifest.
type Run struct {
	ID           string    `json:"id"`
	ConfigPath   string    `json:"config_path"`
	ManifestPath string    `json:"manifest_path"`
	Distribution string    `json:"distribution,omitempty"` // catalog key, empty when none
	Status       RunStatus `json:"status"`

	// PolicySnapshot is the policy serialized to JSON at apply time, so a
	// stored run can be audited or explained without the original script.
	PolicySnapshot string `json:"policy_snapshot"`

	// Summary counts, filled in when the run completes.
	Resources      int `json:"resources"`
	Included       int `json:"included"`
	Conflicts      int `json:"conflicts"`
	CallbackErrors int `json:"callback_errors"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RunSummary carries the counts recorded when a run completes.
type RunSummary struct {
	Resources      int `json:"resources"`
	Included       int `json:"included"`
	Conflicts      int `json:"conflicts"`
	CallbackErrors int `json:"callback_errors"`
}

// Decision is the journaled form of one per-resource collection decision:
// the resource's identity, the final collection context, and any conflict
// or callback failure recorded against it.
type Decision struct {
	ID       int64  `json:"id"`
	RunID    string `json:"run_id"`
	Position int    `json:"position"` // order within the run's plan

	Resource   string `json:"resource"`
	Kind       string `json:"kind"`
	Provenance string `json:"provenance"`
	Test       bool   `json:"test"`

	Include           bool    `json:"include"`
	Location          string  `json:"location"`
	LocationFallback  *string `json:"location_fallback,omitempty"`
	OptimizeLevelZero bool    `json:"optimize_level_zero"`
	OptimizeLevelOne  bool    `json:"optimize_level_one"`
	OptimizeLevelTwo  bool    `json:"optimize_level_two"`
	IncludeSource     bool    `json:"include_source"`
	Variant           *string `json:"variant,omitempty"`

	Conflict      *string `json:"conflict,omitempty"`
	CallbackError *string `json:"callback_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Store is the decision journal interface.
type Store interface {
	// Init opens the database connection.
	Init(ctx context.Context) error

	// Migrate applies pending schema migrations.
	Migrate(ctx context.Context) error

	// Close closes the database connection.
	Close() error

	// CreateRun records a newly started run.
	CreateRun(ctx context.Context, run *Run) error

	// CompleteRun marks a run finished with its final status and counts.
	CompleteRun(ctx context.Context, id string, status RunStatus, summary RunSummary, errMsg *string) error

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns lists runs newest first.
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)

	// DeleteRun deletes a run and its decisions.
	DeleteRun(ctx context.Context, id string) error

	// SaveDecisions persists a run's decisions in one transaction.
	SaveDecisions(ctx context.Context, decisions []*Decision) error

	// ListDecisions lists a run's decisions in plan order.
	ListDecisions(ctx context.Context, runID string) ([]*Decision, error)

	// ResourceHistory lists the decisions recorded for one resource
	// across runs, newest first.
	ResourceHistory(ctx context.Context, resource string, limit int) ([]*Decision, error)

	// HealthCheck verifies the database connection is healthy.
	HealthCheck(ctx context.Context) error
}
