package app

import (
	"context"
	"errors"
	"testing"

	"goamr/domain/core"
	"goamr/domain/metrics"
	"goamr/internal/testkit"
	"goamr/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock implementations for testing
type MockMetricsSource struct {
	mock.Mock
}

func (m *MockMetricsSource) Name() string {
	return "mock"
}

func (m *MockMetricsSource) FetchMetrics(ctx context.Context) (map[string]metrics.RawMetricsRecord, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(map[string]metrics.RawMetricsRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Save(ctx context.Context, report *metrics.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportRepository) Get(ctx context.Context, id core.ReportID) (*metrics.Report, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*metrics.Report), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReportRepository) List(ctx context.Context, limit int) ([]ports.ReportListing, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]ports.ReportListing), args.Error(1)
}

func sampleInput() map[string]metrics.RawMetricsRecord {
	return map[string]metrics.RawMetricsRecord{
		"ampicillin": testkit.TrainedRecord(1842, 1104, 738, 0.94, 0.93, 0.97),
		"gentamicin": testkit.TrainedRecord(1500, 500, 1000, 0.91, 0.90, 0.95),
	}
}

func TestReportService_GenerateSaves(t *testing.T) {
	source := new(MockMetricsSource)
	repo := new(MockReportRepository)
	source.On("FetchMetrics", mock.Anything).Return(sampleInput(), nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*metrics.Report")).Return(nil)

	svc := NewReportService(source, newEnricher(t), repo, nil)
	report, err := svc.Generate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "mock", report.Source)
	assert.Len(t, report.Records, 2)
	source.AssertExpectations(t)
	repo.AssertCalled(t, "Save", mock.Anything, report)
}

func TestReportService_SourceFailure(t *testing.T) {
	source := new(MockMetricsSource)
	repo := new(MockReportRepository)
	source.On("FetchMetrics", mock.Anything).
		Return(nil, core.NewSourceError("mock", errors.New("connection refused")))

	svc := NewReportService(source, newEnricher(t), repo, nil)
	_, err := svc.Generate(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrSourceUnavailable))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestReportService_SaveFailure(t *testing.T) {
	repo := new(MockReportRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	svc := NewReportService(nil, newEnricher(t), repo, nil)
	_, err := svc.Build(context.Background(), "api", sampleInput())

	assert.ErrorContains(t, err, "disk full")
}

func TestReportService_NoSource(t *testing.T) {
	svc := NewReportService(nil, newEnricher(t), nil, nil)

	_, err := svc.Generate(context.Background())
	assert.True(t, errors.Is(err, core.ErrSourceUnavailable))
	assert.Equal(t, "", svc.SourceName())
}

func TestReportService_WithoutHistory(t *testing.T) {
	svc := NewReportService(nil, newEnricher(t), nil, nil)
	assert.False(t, svc.HistoryEnabled())

	report, err := svc.Build(context.Background(), "api", sampleInput())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), report.ID)
	assert.True(t, core.IsNotFoundError(err))

	listings, err := svc.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestReportService_HistoryRoundTrip(t *testing.T) {
	kit := testkit.NewTestKit(testkit.DefaultCorpusConfig())
	svc := NewReportService(kit.Source(), newEnricher(t), kit.Repository(), nil)

	first, err := svc.Generate(context.Background())
	require.NoError(t, err)
	second, err := svc.Build(context.Background(), "api", sampleInput())
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.InputHash, got.InputHash)

	listings, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	ids := []core.ReportID{listings[0].ID, listings[1].ID}
	assert.ElementsMatch(t, []core.ReportID{first.ID, second.ID}, ids)
	assert.Equal(t, 2, kit.Repository().Count())
}
