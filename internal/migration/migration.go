package migration

import (
	"context"

	"degpredict/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations. The DDL sticks to
// types both PostgreSQL and SQLite accept.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create runs table")
	}

	if err := r.createPredictionsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create predictions table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id VARCHAR(64) PRIMARY KEY,
			accession VARCHAR(64) NOT NULL DEFAULT '',
			created_at VARCHAR(40) NOT NULL,
			rule_variant VARCHAR(32) NOT NULL,
			target_tissue VARCHAR(100) NOT NULL,
			fingerprint VARCHAR(64) NOT NULL,
			feature_count INTEGER NOT NULL DEFAULT 0,
			panel_size INTEGER NOT NULL DEFAULT 0,
			upregulated INTEGER NOT NULL DEFAULT 0,
			downregulated INTEGER NOT NULL DEFAULT 0,
			manifest TEXT NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createPredictionsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS predictions (
			run_id VARCHAR(64) NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			gene VARCHAR(64) NOT NULL,
			pathway VARCHAR(100) NOT NULL,
			proxy_regulation VARCHAR(32) NOT NULL,
			proxy_log2fc DOUBLE PRECISION,
			expressed BOOLEAN NOT NULL,
			signaling_change VARCHAR(32) NOT NULL,
			transcript_change VARCHAR(32) NOT NULL,
			confidence VARCHAR(16) NOT NULL,
			rationale TEXT NOT NULL,
			rule_key VARCHAR(160) NOT NULL,
			PRIMARY KEY (run_id, position)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_gene ON predictions(gene)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_pathway ON predictions(run_id, pathway)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
