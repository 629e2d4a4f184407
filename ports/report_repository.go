package ports

import (
	"context"
	"time"

	"goamr/domain/core"
	"goamr/domain/metrics"
)

// ReportRepository persists generated reports for later retrieval
type ReportRepository interface {
	Save(ctx context.Context, report *metrics.Report) error
	Get(ctx context.Context, id core.ReportID) (*metrics.Report, error)
	List(ctx context.Context, limit int) ([]ReportListing, error)
}

// ReportListing is the lightweight row shown in report history
type ReportListing struct {
	ID            core.ReportID `json:"id" db:"id"`
	GeneratedAt   time.Time     `json:"generated_at" db:"generated_at"`
	Source        string        `json:"source" db:"source"`
	InputHash     core.Hash     `json:"input_hash" db:"input_hash"`
	ModelCount    int           `json:"model_count" db:"model_count"`
	MeanAccuracy  float64       `json:"mean_accuracy" db:"mean_accuracy"`
	RejectedCount int           `json:"rejected_count" db:"rejected_count"`
}

// ListingFor builds the history row for a report
func ListingFor(r *metrics.Report) ReportListing {
	listing := ReportListing{
		ID:            r.ID,
		GeneratedAt:   r.GeneratedAt,
		Source:        r.Source,
		InputHash:     r.InputHash,
		RejectedCount: len(r.Rejected),
	}
	if r.Summary != nil {
		listing.ModelCount = r.Summary.ModelCount
		listing.MeanAccuracy = r.Summary.MeanAccuracy
	}
	return listing
}
