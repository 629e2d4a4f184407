package app

import (
	"context"
	"fmt"

	"goamr/domain/core"
	"goamr/domain/metrics"
	"goamr/internal"
	"goamr/ports"
)

// ReportService connects a metrics source, the enrichment service and an
// optional history repository.
type ReportService struct {
	source   ports.MetricsSource
	enricher *EnrichmentService
	repo     ports.ReportRepository
	logger   *internal.Logger
}

// NewReportService creates a report service. source and repo may be nil:
// without a source only submitted payloads can be enriched, without a
// repository reports are not kept.
func NewReportService(source ports.MetricsSource, enricher *EnrichmentService, repo ports.ReportRepository, logger *internal.Logger) *ReportService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ReportService{
		source:   source,
		enricher: enricher,
		repo:     repo,
		logger:   logger.With("reports"),
	}
}

// HistoryEnabled reports whether generated reports are persisted
func (s *ReportService) HistoryEnabled() bool {
	return s.repo != nil
}

// SourceName returns the configured source name, or "" without a source
func (s *ReportService) SourceName() string {
	if s.source == nil {
		return ""
	}
	return s.source.Name()
}

// Generate fetches the current metrics from the configured source and
// builds a report from them.
func (s *ReportService) Generate(ctx context.Context) (*metrics.Report, error) {
	if s.source == nil {
		return nil, core.NewSourceError("none", fmt.Errorf("no metrics source configured"))
	}

	raw, err := s.source.FetchMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching metrics from %s: %w", s.source.Name(), err)
	}
	s.logger.Debug("fetched %d targets from %s", len(raw), s.source.Name())

	return s.Build(ctx, s.source.Name(), raw)
}

// Build enriches a caller-supplied collection and records the result
func (s *ReportService) Build(ctx context.Context, source string, raw map[string]metrics.RawMetricsRecord) (*metrics.Report, error) {
	report, err := s.enricher.Enrich(ctx, source, raw)
	if err != nil {
		return nil, err
	}

	if s.repo != nil {
		if err := s.repo.Save(ctx, report); err != nil {
			return nil, fmt.Errorf("saving report %s: %w", report.ID, err)
		}
		s.logger.Debug("saved report %s", report.ID)
	}
	return report, nil
}

// Get loads a stored report
func (s *ReportService) Get(ctx context.Context, id core.ReportID) (*metrics.Report, error) {
	if s.repo == nil {
		return nil, core.NewNotFoundError("report", id.String())
	}
	return s.repo.Get(ctx, id)
}

// List returns the most recent stored reports, newest first
func (s *ReportService) List(ctx context.Context, limit int) ([]ports.ReportListing, error) {
	if s.repo == nil {
		return []ports.ReportListing{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	return s.repo.List(ctx, limit)
}
