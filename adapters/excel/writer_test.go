package excel

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"goamr/domain/core"
	"goamr/domain/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleReport() *metrics.Report {
	return &metrics.Report{
		ID:          core.NewReportID(),
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Source:      "test",
		InputHash:   core.NewHash([]byte("x")),
		Z:           1.96,
		Records: map[string]metrics.EnrichedMetricsRecord{
			"ampicillin": {
				MetricsRecord: metrics.MetricsRecord{TargetID: "ampicillin", Status: metrics.StatusTrained, NSamples: 100, Accuracy: 0.95, F1: 0.9, AUC: 0.97},
				Tier:          metrics.TierExcellent,
			},
			"tetracycline": {
				MetricsRecord:    metrics.MetricsRecord{TargetID: "tetracycline", Status: metrics.StatusTrained, NSamples: 80, Accuracy: 0.8, F1: 0.0, AUC: 0.6},
				Tier:             metrics.TierPoor,
				ImbalanceWarning: &metrics.ImbalanceWarning{Kind: metrics.ImbalanceCollapse},
				Warnings:         []metrics.Warning{{Kind: metrics.WarningInconsistentStatistics}},
			},
		},
		Untrained: map[string]metrics.MetricsRecord{
			"colistin": {TargetID: "colistin", Status: metrics.StatusSkipped, Reason: "insufficient samples"},
		},
		Rejected: map[string]*metrics.ValidationError{
			"bad": {TargetID: "bad", Fields: []metrics.FieldError{{Field: "accuracy", Reason: "required"}}},
		},
		Summary: &metrics.CorpusSummary{ModelCount: 2, MeanAccuracy: 0.875, WarningCounts: map[string]int{"collapse": 1}},
	}
}

func TestReportWriter_Sheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, NewReportWriter(metrics.SortByAccuracy).SaveAs(sampleReport(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Targets", "Summary", "Untrained", "Rejected"}, f.GetSheetList())

	rows, err := f.GetRows("Targets")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Target", rows[0][0])
	assert.Equal(t, "ampicillin", rows[1][0])
	assert.Equal(t, "tetracycline", rows[2][0])
	assert.Equal(t, "collapse", rows[2][20])
	assert.Equal(t, "inconsistent_statistics", rows[2][21])

	untrained, err := f.GetRows("Untrained")
	require.NoError(t, err)
	assert.Equal(t, []string{"colistin", "skipped", "insufficient samples"}, untrained[1])

	rejected, err := f.GetRows("Rejected")
	require.NoError(t, err)
	assert.Equal(t, []string{"bad", "accuracy", "required"}, rejected[1])
}

func TestReportWriter_WriteToWithoutSummary(t *testing.T) {
	report := sampleReport()
	report.Summary = nil
	report.SummaryNote = "no trained models"

	var buf bytes.Buffer
	require.NoError(t, NewReportWriter(metrics.SortBySamples).WriteTo(report, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Summary")
	require.NoError(t, err)
	last := rows[len(rows)-1]
	assert.Equal(t, []string{"Summary", "no trained models"}, last)
}
