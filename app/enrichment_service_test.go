package app

import (
	"context"
	"errors"
	"testing"

	"goamr/adapters/stats/estimators"
	"goamr/domain/core"
	"goamr/domain/metrics"
	"goamr/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnricher(t *testing.T) *EnrichmentService {
	t.Helper()
	svc, err := NewEnrichmentService(estimators.DefaultOptions(), 4, nil)
	require.NoError(t, err)
	return svc
}

func TestEnrichmentService_MixedCorpus(t *testing.T) {
	svc := newEnricher(t)
	bad := testkit.TrainedRecord(100, 40, 60, 1.3, 0.8, 0.9)

	input := map[string]metrics.RawMetricsRecord{
		"ampicillin":    testkit.TrainedRecord(1842, 1104, 738, 0.94, 0.93, 0.97),
		"ciprofloxacin": testkit.TrainedRecord(1654, 876, 778, 0.87, 0.85, 0.92),
		"colistin": {
			Status: testkit.Ptr("skipped"),
			Reason: "insufficient samples",
		},
		"tetracycline": bad,
	}

	report, err := svc.Enrich(context.Background(), "test", input)
	require.NoError(t, err)

	assert.Len(t, report.Records, 2)
	assert.Contains(t, report.Untrained, "colistin")
	assert.Equal(t, "insufficient samples", report.Untrained["colistin"].Reason)
	require.Contains(t, report.Rejected, "tetracycline")
	assert.True(t, report.Rejected["tetracycline"].HasField("accuracy"))

	require.NotNil(t, report.Summary)
	assert.Equal(t, 2, report.Summary.ModelCount)
	assert.Equal(t, 1842+1654, report.Summary.TotalSamples)
	assert.Equal(t, 1, report.Summary.UntrainedCount)
	assert.InDelta(t, (0.94+0.87)/2, report.Summary.MeanAccuracy, 1e-9)

	assert.False(t, report.ID.String() == "")
	assert.False(t, report.InputHash.IsEmpty())
	assert.Equal(t, "test", report.Source)
	assert.Equal(t, estimators.DefaultZ, report.Z)

	amp, ok := report.Target("ampicillin")
	require.True(t, ok)
	assert.True(t, amp.AccuracyCI.Contains(0.94))
	assert.Len(t, amp.ROCPoints, estimators.DefaultROCPoints+1)
}

func TestEnrichmentService_EmptyInput(t *testing.T) {
	svc := newEnricher(t)

	_, err := svc.Enrich(context.Background(), "test", nil)
	assert.True(t, errors.Is(err, core.ErrMalformedInput))

	_, err = svc.Enrich(context.Background(), "test", map[string]metrics.RawMetricsRecord{})
	assert.True(t, errors.Is(err, core.ErrMalformedInput))
}

func TestEnrichmentService_AllRejected(t *testing.T) {
	svc := newEnricher(t)
	input := map[string]metrics.RawMetricsRecord{
		"a": {Status: testkit.Ptr("trained")},
		"b": {Status: testkit.Ptr("retired")},
	}

	_, err := svc.Enrich(context.Background(), "test", input)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMalformedInput))
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestEnrichmentService_OnlyUntrained(t *testing.T) {
	svc := newEnricher(t)
	input := map[string]metrics.RawMetricsRecord{
		"colistin": {Status: testkit.Ptr("no_model")},
	}

	report, err := svc.Enrich(context.Background(), "test", input)
	require.NoError(t, err)
	assert.Nil(t, report.Summary)
	assert.Equal(t, "no trained models", report.SummaryNote)
	assert.Empty(t, report.Records)
}

func TestEnrichmentService_DuplicateTargetIDs(t *testing.T) {
	svc := newEnricher(t)
	input := map[string]metrics.RawMetricsRecord{
		"Ampicillin": testkit.TrainedRecord(100, 50, 50, 0.9, 0.9, 0.95),
		"ampicillin": testkit.TrainedRecord(100, 50, 50, 0.8, 0.8, 0.85),
	}

	report, err := svc.Enrich(context.Background(), "test", input)
	require.NoError(t, err)
	assert.Len(t, report.Records, 1)
	require.Len(t, report.Rejected, 1)
	// keys are visited in sorted order, so the upper-case spelling wins
	require.Contains(t, report.Rejected, "ampicillin")
	assert.True(t, report.Rejected["ampicillin"].HasField("target_id"))
	require.Contains(t, report.Records, "Ampicillin")
	assert.InDelta(t, 0.9, report.Records["Ampicillin"].Accuracy, 1e-9)
}

func TestEnrichmentService_KeepsCallerSpelling(t *testing.T) {
	svc := newEnricher(t)
	input := map[string]metrics.RawMetricsRecord{
		"Ampicillin":  testkit.TrainedRecord(100, 50, 50, 0.9, 0.9, 0.95),
		" Colistin ":  {Status: testkit.Ptr("skipped"), Reason: "insufficient samples"},
		"Gentamicin ": testkit.TrainedRecord(100, 50, 50, 0.8, 0.8, 0.85),
	}

	report, err := svc.Enrich(context.Background(), "test", input)
	require.NoError(t, err)

	assert.Contains(t, report.Records, "Ampicillin")
	assert.Contains(t, report.Records, "Gentamicin")
	assert.NotContains(t, report.Records, "ampicillin")
	assert.Contains(t, report.Untrained, "Colistin")
	assert.Empty(t, report.Rejected)

	rec, ok := report.Target("AMPICILLIN")
	require.True(t, ok)
	assert.Equal(t, "Ampicillin", rec.TargetID)
	_, ok = report.UntrainedTarget("colistin")
	assert.True(t, ok)
}

func TestEnrichmentService_RejectedKeyDoesNotShadowAccepted(t *testing.T) {
	svc := newEnricher(t)
	bad := testkit.TrainedRecord(100, 50, 50, 1.5, 0.9, 0.95)
	input := map[string]metrics.RawMetricsRecord{
		"ampicillin":   testkit.TrainedRecord(100, 50, 50, 0.9, 0.9, 0.95),
		" ampicillin ": bad,
	}

	report, err := svc.Enrich(context.Background(), "test", input)
	require.NoError(t, err)
	assert.Contains(t, report.Records, "ampicillin")
	assert.Contains(t, report.Rejected, " ampicillin ")
	assert.NotContains(t, report.Rejected, "ampicillin")
}

func TestEnrichmentService_InputHashStable(t *testing.T) {
	svc := newEnricher(t)
	corpus := testkit.NewCorpusGenerator(testkit.DefaultCorpusConfig())

	first, err := svc.Enrich(context.Background(), "test", corpus.Generate())
	require.NoError(t, err)
	second, err := svc.Enrich(context.Background(), "test", testkit.NewCorpusGenerator(testkit.DefaultCorpusConfig()).Generate())
	require.NoError(t, err)

	assert.Equal(t, first.InputHash, second.InputHash)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Summary.MeanAccuracy, second.Summary.MeanAccuracy)
}

func TestEnrichmentService_MatchesSequentialEnrich(t *testing.T) {
	svc := newEnricher(t)
	config := testkit.DefaultCorpusConfig()
	config.Targets = 30
	input := testkit.NewCorpusGenerator(config).Generate()

	report, err := svc.Enrich(context.Background(), "test", input)
	require.NoError(t, err)

	for id, got := range report.Records {
		rec, err := metrics.Validate(id, input[id])
		require.NoError(t, err)
		assert.Equal(t, estimators.Enrich(rec, estimators.DefaultOptions()), got, id)
	}
}

func TestEnrichmentService_Cancelled(t *testing.T) {
	svc := newEnricher(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Enrich(ctx, "test", map[string]metrics.RawMetricsRecord{
		"ampicillin": testkit.TrainedRecord(100, 50, 50, 0.9, 0.9, 0.95),
	})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewEnrichmentService_RejectsBadOptions(t *testing.T) {
	opts := estimators.DefaultOptions()
	opts.Z = 0

	_, err := NewEnrichmentService(opts, 2, nil)
	assert.Error(t, err)
}
