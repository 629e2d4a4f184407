// Package store keeps report history in postgres or sqlite through sqlx.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"goamr/domain/core"
	"goamr/domain/metrics"
	"goamr/internal/errors"
	"goamr/ports"

	"github.com/jmoiron/sqlx"
)

// reportRepository implements the ReportRepository interface
type reportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new report repository. Queries are written
// with ? placeholders and rebound for the connection's driver.
func NewReportRepository(db *sqlx.DB) ports.ReportRepository {
	return &reportRepository{db: db}
}

// Save inserts a report; saving the same id twice replaces the first copy
func (r *reportRepository) Save(ctx context.Context, report *metrics.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	listing := ports.ListingFor(report)
	query := r.db.Rebind(`INSERT INTO reports (
		id, generated_at, source, input_hash, model_count, mean_accuracy, rejected_count, payload
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		generated_at = excluded.generated_at,
		source = excluded.source,
		input_hash = excluded.input_hash,
		model_count = excluded.model_count,
		mean_accuracy = excluded.mean_accuracy,
		rejected_count = excluded.rejected_count,
		payload = excluded.payload`)

	_, err = r.db.ExecContext(ctx, query,
		listing.ID.String(), listing.GeneratedAt.UTC(), listing.Source, listing.InputHash.String(),
		listing.ModelCount, listing.MeanAccuracy, listing.RejectedCount, string(payload),
	)
	if err != nil {
		return errors.DatabaseError("failed to save report", err)
	}
	return nil
}

// Get retrieves a report by its ID
func (r *reportRepository) Get(ctx context.Context, id core.ReportID) (*metrics.Report, error) {
	var payload []byte
	err := r.db.GetContext(ctx, &payload, r.db.Rebind(`SELECT payload FROM reports WHERE id = ?`), id.String())
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, core.NewNotFoundError("report", id.String())
		}
		return nil, errors.DatabaseError("failed to get report", err)
	}

	var report metrics.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report %s: %w", id, err)
	}
	return &report, nil
}

// List returns the newest reports first
func (r *reportRepository) List(ctx context.Context, limit int) ([]ports.ReportListing, error) {
	query := r.db.Rebind(`SELECT
		id, generated_at, source, input_hash, model_count, mean_accuracy, rejected_count
	FROM reports ORDER BY generated_at DESC, id DESC LIMIT ?`)

	listings := []ports.ReportListing{}
	if err := r.db.SelectContext(ctx, &listings, query, limit); err != nil {
		return nil, errors.DatabaseError("failed to list reports", err)
	}
	return listings, nil
}
