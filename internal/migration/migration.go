package migration

import (
	"context"
	"fmt"

	"goamr/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles the report history schema. DDL differs slightly
// between postgres and sqlite; the dialect is taken from the connection.
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
	dialect, err := dialectFor(db.DriverName())
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err)
	}

	if err := r.createReportsTable(ctx, db, dialect); err != nil {
		return errors.Wrap(err, "failed to create reports table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

type dialect struct {
	timestamp string
	document  string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "postgres":
		return dialect{timestamp: "TIMESTAMP WITH TIME ZONE", document: "JSONB"}, nil
	case "sqlite3":
		return dialect{timestamp: "TIMESTAMP", document: "TEXT"}, nil
	}
	return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
}

func (r *MigrationRunner) createReportsTable(ctx context.Context, db *sqlx.DB, d dialect) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS reports (
			id VARCHAR(36) PRIMARY KEY,
			generated_at %s NOT NULL,
			source VARCHAR(255) NOT NULL DEFAULT '',
			input_hash VARCHAR(64) NOT NULL,
			model_count INTEGER NOT NULL DEFAULT 0,
			mean_accuracy DOUBLE PRECISION NOT NULL DEFAULT 0,
			rejected_count INTEGER NOT NULL DEFAULT 0,
			payload %s NOT NULL
		)
	`, d.timestamp, d.document))
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_reports_generated_at ON reports(generated_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_input_hash ON reports(input_hash)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
