package estimators

import (
	"errors"
	"testing"

	"goamr/domain/core"
	"goamr/domain/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trained(id string, acc, auc, f1 float64, n int) metrics.EnrichedMetricsRecord {
	return metrics.EnrichedMetricsRecord{MetricsRecord: metrics.MetricsRecord{
		TargetID: id, Status: metrics.StatusTrained,
		Accuracy: acc, AUC: auc, F1: f1, NSamples: n,
	}}
}

// TestSummarize_Scenario checks mean accuracy of 0.90 and 0.80
func TestSummarize_Scenario(t *testing.T) {
	summary, err := Summarize([]metrics.EnrichedMetricsRecord{
		trained("ampicillin", 0.90, 0.95, 0.88, 100),
		trained("tetracycline", 0.80, 0.85, 0.78, 300),
	}, DefaultZ)
	require.NoError(t, err)

	assert.InDelta(t, 0.85, summary.MeanAccuracy, 1e-12)
	assert.InDelta(t, 0.90, summary.MeanAUC, 1e-12)
	assert.InDelta(t, 0.83, summary.MeanF1, 1e-12)
	assert.Equal(t, 400, summary.TotalSamples)
	assert.Equal(t, 2, summary.ModelCount)

	assert.InDelta(t, 0.825, summary.PooledAccuracy, 1e-12, "sample-weighted")
	assert.True(t, summary.PooledAccuracyCI.Contains(summary.PooledAccuracy))
	assert.Equal(t, 0.80, summary.MinAccuracy)
	assert.Equal(t, 0.90, summary.MaxAccuracy)
	assert.InDelta(t, 0.85, summary.MedianAccuracy, 1e-12)
}

func TestSummarize_IgnoresUntrained(t *testing.T) {
	skipped := trained("colistin", 0.1, 0.1, 0.1, 9999)
	skipped.Status = metrics.StatusSkipped

	summary, err := Summarize([]metrics.EnrichedMetricsRecord{
		trained("meropenem", 0.96, 0.98, 0.94, 1198),
		skipped,
	}, DefaultZ)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ModelCount)
	assert.Equal(t, 1198, summary.TotalSamples)
	assert.InDelta(t, 0.96, summary.MeanAccuracy, 1e-12)
}

func TestSummarize_EmptyCorpus(t *testing.T) {
	_, err := Summarize(nil, DefaultZ)
	assert.True(t, errors.Is(err, core.ErrEmptyCorpus))

	onlySkipped := trained("colistin", 0, 0, 0, 0)
	onlySkipped.Status = metrics.StatusNoModel
	_, err = Summarize([]metrics.EnrichedMetricsRecord{onlySkipped}, DefaultZ)
	assert.True(t, errors.Is(err, core.ErrEmptyCorpus))
}

func TestSummarize_CountsWarnings(t *testing.T) {
	collapsed := trained("a", 0.9, 0.6, 0, 100)
	collapsed.ImbalanceWarning = &metrics.ImbalanceWarning{Kind: metrics.ImbalanceCollapse}
	collapsed.Warnings = []metrics.Warning{{Kind: metrics.WarningInconsistentStatistics}}
	skewed := trained("b", 0.9, 0.9, 0.8, 100)
	skewed.ImbalanceWarning = &metrics.ImbalanceWarning{Kind: metrics.ImbalanceSkew}

	summary, err := Summarize([]metrics.EnrichedMetricsRecord{collapsed, skewed, trained("c", 0.9, 0.9, 0.9, 100)}, DefaultZ)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"collapse": 1, "skew": 1, "inconsistent_statistics": 1}, summary.WarningCounts)
}
