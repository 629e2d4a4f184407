package testkit

import (
	"context"
	"sort"
	"sync"

	"goamr/domain/core"
	"goamr/domain/metrics"
	"goamr/ports"
)

// TestKit bundles a synthetic metrics source with an in-memory report
// repository, for demos and tests.
type TestKit struct {
	source *SyntheticSource
	repo   *InMemoryReportRepository
}

// NewTestKit creates a new test kit instance with synthetic data
func NewTestKit(config CorpusGeneratorConfig) *TestKit {
	return &TestKit{
		source: NewSyntheticSource(config),
		repo:   NewInMemoryReportRepository(),
	}
}

// Source returns the synthetic metrics source
func (k *TestKit) Source() *SyntheticSource {
	return k.source
}

// Repository returns the in-memory report repository
func (k *TestKit) Repository() *InMemoryReportRepository {
	return k.repo
}

// SyntheticSource implements ports.MetricsSource with generated metrics.
// Every fetch returns the same corpus for the configured seed.
type SyntheticSource struct {
	config CorpusGeneratorConfig
}

var _ ports.MetricsSource = (*SyntheticSource)(nil)

func NewSyntheticSource(config CorpusGeneratorConfig) *SyntheticSource {
	return &SyntheticSource{config: config}
}

func (s *SyntheticSource) Name() string {
	return "synthetic"
}

func (s *SyntheticSource) FetchMetrics(ctx context.Context) (map[string]metrics.RawMetricsRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.NewSourceError(s.Name(), err)
	}
	return NewCorpusGenerator(s.config).Generate(), nil
}

// InMemoryReportRepository implements ports.ReportRepository with in-memory storage
type InMemoryReportRepository struct {
	reports map[core.ReportID]*metrics.Report
	mu      sync.RWMutex
}

var _ ports.ReportRepository = (*InMemoryReportRepository)(nil)

func NewInMemoryReportRepository() *InMemoryReportRepository {
	return &InMemoryReportRepository{
		reports: make(map[core.ReportID]*metrics.Report),
	}
}

func (r *InMemoryReportRepository) Save(ctx context.Context, report *metrics.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reports[report.ID] = report
	return nil
}

func (r *InMemoryReportRepository) Get(ctx context.Context, id core.ReportID) (*metrics.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, exists := r.reports[id]
	if !exists {
		return nil, core.NewNotFoundError("report", id.String())
	}
	return report, nil
}

func (r *InMemoryReportRepository) List(ctx context.Context, limit int) ([]ports.ReportListing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	listings := make([]ports.ReportListing, 0, len(r.reports))
	for _, report := range r.reports {
		listings = append(listings, ports.ListingFor(report))
	}

	// newest first; v7 ids break timestamp ties in creation order
	sort.Slice(listings, func(i, j int) bool {
		if !listings[i].GeneratedAt.Equal(listings[j].GeneratedAt) {
			return listings[i].GeneratedAt.After(listings[j].GeneratedAt)
		}
		return listings[i].ID > listings[j].ID
	})

	if limit > 0 && len(listings) > limit {
		listings = listings[:limit]
	}
	return listings, nil
}

// Count returns the number of stored reports
func (r *InMemoryReportRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reports)
}
