package estimators

import (
	"testing"

	"goamr/domain/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrich_ConsistentRecord(t *testing.T) {
	rec := metrics.MetricsRecord{
		TargetID: "ciprofloxacin", Status: metrics.StatusTrained,
		NSamples: 100, NResistant: 40, NSusceptible: 60,
		Accuracy: 0.80, F1: 0.75, AUC: 0.88, FoldCount: 5,
	}

	out := Enrich(rec, DefaultOptions())

	assert.Equal(t, rec, out.MetricsRecord)
	assert.True(t, out.AccuracyCI.Contains(rec.Accuracy))
	assert.True(t, out.F1CI.Contains(rec.F1))
	assert.Equal(t, metrics.ConfusionMatrix{TP: 30, FP: 10, TN: 50, FN: 10}, out.Confusion)
	assert.True(t, out.ConfusionConsistent)
	assert.InDelta(t, 0.75, out.Derived.Precision, 1e-9)
	assert.Len(t, out.ROCPoints, DefaultROCPoints+1)
	assert.True(t, out.ROCApproximate)
	assert.Greater(t, out.CurveAUC, 0.5)
	assert.Nil(t, out.ImbalanceWarning)
	assert.Empty(t, out.Warnings)
	assert.Equal(t, metrics.TierPoor, out.Tier)
	assert.False(t, out.LowConfidence())
}

func TestEnrich_InconsistentRecordKeepsInputs(t *testing.T) {
	rec := metrics.MetricsRecord{
		TargetID: "colistin", Status: metrics.StatusTrained,
		NSamples: 100, NResistant: 90, NSusceptible: 10,
		Accuracy: 0.5, F1: 0.95, AUC: 0.7, FoldCount: 5,
	}

	out := Enrich(rec, DefaultOptions())

	assert.False(t, out.ConfusionConsistent)
	require.Len(t, out.Warnings, 1)
	assert.Equal(t, metrics.WarningInconsistentStatistics, out.Warnings[0].Kind)
	assert.Contains(t, out.Warnings[0].Message, "tn")
	assert.Equal(t, 0.5, out.Accuracy, "inputs are reported as supplied")
	assert.True(t, out.LowConfidence())
	require.NotNil(t, out.ImbalanceWarning)
	assert.Equal(t, metrics.ImbalanceSkew, out.ImbalanceWarning.Kind)
}

func TestEnrich_CollapsedModel(t *testing.T) {
	rec := metrics.MetricsRecord{
		TargetID: "fosfomycin", Status: metrics.StatusTrained,
		NSamples: 1000, NResistant: 5, NSusceptible: 995,
		Accuracy: 0.995, F1: 0, AUC: 0.55, FoldCount: 5,
	}

	out := Enrich(rec, DefaultOptions())

	require.NotNil(t, out.ImbalanceWarning)
	assert.Equal(t, metrics.ImbalanceCollapse, out.ImbalanceWarning.Kind)
	assert.Equal(t, metrics.Interval{Lo: 0, Hi: 0.05}, out.F1CI)
}

func TestOptions_Validate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	bad := DefaultOptions()
	bad.Z = 0
	assert.Error(t, bad.Validate())

	bad = DefaultOptions()
	bad.ROCPoints = 0
	assert.Error(t, bad.Validate())

	bad = DefaultOptions()
	bad.SkewThreshold = 1.5
	assert.Error(t, bad.Validate())
}
