package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
	cfg  Config
}

// Config holds SQLite store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		path: cfg.Path,
		cfg:  cfg,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Foreign keys are a connection-level setting; ON DELETE CASCADE on
	// decisions depends on it.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// CreateRun creates a new run record.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO runs (
			id, config_path, manifest_path, distribution, status, policy_snapshot,
			resources, included, conflicts, callback_errors,
			started_at, completed_at, error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.ConfigPath,
		run.ManifestPath,
		run.Distribution,
		run.Status,
		run.PolicySnapshot,
		run.Resources,
		run.Included,
		run.Conflicts,
		run.CallbackErrors,
		run.StartedAt,
		run.CompletedAt,
		run.Error,
		run.CreatedAt,
		run.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// CompleteRun marks a run finished with its final status and counts.
func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, status RunStatus, summary RunSummary, errMsg *string) error {
	query := `
		UPDATE runs
		SET status = ?, resources = ?, included = ?, conflicts = ?, callback_errors = ?,
			error = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	now := time.Now()
	result, err := s.db.ExecContext(ctx, query,
		status,
		summary.Resources,
		summary.Included,
		summary.Conflicts,
		summary.CallbackErrors,
		errMsg,
		now,
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", id)
	}

	return nil
}

const runColumns = `
	id, config_path, manifest_path, distribution, status, policy_snapshot,
	resources, included, conflicts, callback_errors,
	started_at, completed_at, error, created_at, updated_at
`

func scanRun(scan func(dest ...interface{}) error) (*Run, error) {
	run := &Run{}
	err := scan(
		&run.ID,
		&run.ConfigPath,
		&run.ManifestPath,
		&run.Distribution,
		&run.Status,
		&run.PolicySnapshot,
		&run.Resources,
		&run.Included,
		&run.Conflicts,
		&run.CallbackErrors,
		&run.StartedAt,
		&run.CompletedAt,
		&run.Error,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)
	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// ListRuns lists runs newest first with pagination.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// DeleteRun deletes a run by ID. Its decisions cascade.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", id)
	}

	return nil
}

// SaveDecisions persists a run's decisions in one transaction, so a
// partially journaled plan never becomes visible.
func (s *SQLiteStore) SaveDecisions(ctx context.Context, decisions []*Decision) error {
	if len(decisions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO decisions (
			run_id, position, resource, kind, provenance, test,
			include, location, location_fallback,
			optimize_level_zero, optimize_level_one, optimize_level_two,
			include_source, variant, conflict, callback_error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare decision insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range decisions {
		result, err := stmt.ExecContext(ctx,
			d.RunID,
			d.Position,
			d.Resource,
			d.Kind,
			d.Provenance,
			d.Test,
			d.Include,
			d.Location,
			d.LocationFallback,
			d.OptimizeLevelZero,
			d.OptimizeLevelOne,
			d.OptimizeLevelTwo,
			d.IncludeSource,
			d.Variant,
			d.Conflict,
			d.CallbackError,
			d.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save decision for %s: %w", d.Resource, err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get decision ID: %w", err)
		}
		d.ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit decisions: %w", err)
	}

	return nil
}

const decisionColumns = `
	id, run_id, position, resource, kind, provenance, test,
	include, location, location_fallback,
	optimize_level_zero, optimize_level_one, optimize_level_two,
	include_source, variant, conflict, callback_error, created_at
`

func scanDecision(scan func(dest ...interface{}) error) (*Decision, error) {
	d := &Decision{}
	err := scan(
		&d.ID,
		&d.RunID,
		&d.Position,
		&d.Resource,
		&d.Kind,
		&d.Provenance,
		&d.Test,
		&d.Include,
		&d.Location,
		&d.LocationFallback,
		&d.OptimizeLevelZero,
		&d.OptimizeLevelOne,
		&d.OptimizeLevelTwo,
		&d.IncludeSource,
		&d.Variant,
		&d.Conflict,
		&d.CallbackError,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDecisions lists a run's decisions in plan order.
func (s *SQLiteStore) ListDecisions(ctx context.Context, runID string) ([]*Decision, error) {
	query := `SELECT ` + decisionColumns + ` FROM decisions WHERE run_id = ? ORDER BY position ASC`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	decisions := []*Decision{}
	for rows.Next() {
		d, err := scanDecision(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decisions: %w", err)
	}

	return decisions, nil
}

// ResourceHistory lists the decisions recorded for one resource across
// runs, newest first.
func (s *SQLiteStore) ResourceHistory(ctx context.Context, resource string, limit int) ([]*Decision, error) {
	query := `SELECT ` + decisionColumns + ` FROM decisions WHERE resource = ? ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, resource, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query resource history: %w", err)
	}
	defer rows.Close()

	decisions := []*Decision{}
	for rows.Next() {
		d, err := scanDecision(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resource history: %w", err)
	}

	return decisions, nil
}

// HealthCheck verifies the database connection is healthy.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}
