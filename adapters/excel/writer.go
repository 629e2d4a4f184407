package excel

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"goamr/domain/metrics"

	"github.com/xuri/excelize/v2"
)

const (
	targetsSheet   = "Targets"
	summarySheet   = "Summary"
	untrainedSheet = "Untrained"
	rejectedSheet  = "Rejected"
)

var targetHeaders = []string{
	"Target", "Tier", "Samples", "Resistant", "Susceptible",
	"Accuracy", "Accuracy CI Lo", "Accuracy CI Hi",
	"F1", "F1 CI Lo", "F1 CI Hi", "AUC", "Curve AUC",
	"TP", "FP", "TN", "FN", "Precision", "Recall", "Specificity",
	"Imbalance", "Warnings",
}

// ReportWriter renders an enriched report as an xlsx workbook
type ReportWriter struct {
	sortKey metrics.SortKey
}

// NewReportWriter creates a writer ordering targets by key
func NewReportWriter(key metrics.SortKey) *ReportWriter {
	return &ReportWriter{sortKey: key}
}

// SaveAs writes the workbook to a file
func (w *ReportWriter) SaveAs(report *metrics.Report, path string) error {
	f, err := w.build(report)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

// WriteTo streams the workbook, e.g. as an HTTP download
func (w *ReportWriter) WriteTo(report *metrics.Report, out io.Writer) error {
	f, err := w.build(report)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(out)
}

func (w *ReportWriter) build(report *metrics.Report) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", targetsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("renaming default sheet: %w", err)
	}
	for _, sheet := range []string{summarySheet, untrainedSheet, rejectedSheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("creating sheet %s: %w", sheet, err)
		}
	}

	steps := []func(*excelize.File, *metrics.Report) error{
		w.writeTargets,
		w.writeSummary,
		w.writeUntrained,
		w.writeRejected,
	}
	for _, step := range steps {
		if err := step(f, report); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func (w *ReportWriter) writeTargets(f *excelize.File, report *metrics.Report) error {
	if err := writeHeader(f, targetsSheet, targetHeaders); err != nil {
		return err
	}

	for i, rec := range report.Ranked(w.sortKey) {
		imbalance := ""
		if rec.ImbalanceWarning != nil {
			imbalance = string(rec.ImbalanceWarning.Kind)
		}
		warnings := make([]string, len(rec.Warnings))
		for j, warning := range rec.Warnings {
			warnings[j] = string(warning.Kind)
		}

		row := []interface{}{
			rec.TargetID, string(rec.Tier), rec.NSamples, rec.NResistant, rec.NSusceptible,
			rec.Accuracy, rec.AccuracyCI.Lo, rec.AccuracyCI.Hi,
			rec.F1, rec.F1CI.Lo, rec.F1CI.Hi, rec.AUC, rec.CurveAUC,
			rec.Confusion.TP, rec.Confusion.FP, rec.Confusion.TN, rec.Confusion.FN,
			rec.Derived.Precision, rec.Derived.Recall, rec.Derived.Specificity,
			imbalance, strings.Join(warnings, ", "),
		}
		if err := writeRow(f, targetsSheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func (w *ReportWriter) writeSummary(f *excelize.File, report *metrics.Report) error {
	if err := writeHeader(f, summarySheet, []string{"Metric", "Value"}); err != nil {
		return err
	}

	data := [][]interface{}{
		{"Report ID", report.ID.String()},
		{"Generated At", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		{"Source", report.Source},
		{"Input Hash", report.InputHash.Short()},
		{"z", report.Z},
	}
	if s := report.Summary; s != nil {
		data = append(data,
			[]interface{}{"Models", s.ModelCount},
			[]interface{}{"Untrained", s.UntrainedCount},
			[]interface{}{"Total Samples", s.TotalSamples},
			[]interface{}{"Mean Accuracy", s.MeanAccuracy},
			[]interface{}{"Median Accuracy", s.MedianAccuracy},
			[]interface{}{"Min Accuracy", s.MinAccuracy},
			[]interface{}{"Max Accuracy", s.MaxAccuracy},
			[]interface{}{"Pooled Accuracy", s.PooledAccuracy},
			[]interface{}{"Pooled Accuracy CI", fmt.Sprintf("[%.4f, %.4f]", s.PooledAccuracyCI.Lo, s.PooledAccuracyCI.Hi)},
			[]interface{}{"Mean AUC", s.MeanAUC},
			[]interface{}{"Mean F1", s.MeanF1},
		)
		kinds := make([]string, 0, len(s.WarningCounts))
		for kind := range s.WarningCounts {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			data = append(data, []interface{}{"Warnings: " + kind, s.WarningCounts[kind]})
		}
	} else {
		data = append(data, []interface{}{"Summary", report.SummaryNote})
	}

	for i, row := range data {
		if err := writeRow(f, summarySheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func (w *ReportWriter) writeUntrained(f *excelize.File, report *metrics.Report) error {
	if err := writeHeader(f, untrainedSheet, []string{"Target", "Status", "Reason"}); err != nil {
		return err
	}
	ids := make([]string, 0, len(report.Untrained))
	for id := range report.Untrained {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for i, id := range ids {
		rec := report.Untrained[id]
		if err := writeRow(f, untrainedSheet, i+2, []interface{}{id, string(rec.Status), rec.Reason}); err != nil {
			return err
		}
	}
	return nil
}

func (w *ReportWriter) writeRejected(f *excelize.File, report *metrics.Report) error {
	if err := writeHeader(f, rejectedSheet, []string{"Target", "Field", "Reason"}); err != nil {
		return err
	}
	ids := make([]string, 0, len(report.Rejected))
	for id := range report.Rejected {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	row := 2
	for _, id := range ids {
		for _, field := range report.Rejected[id].Fields {
			if err := writeRow(f, rejectedSheet, row, []interface{}{id, field.Field, field.Reason}); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := writeRow(f, sheet, 1, row); err != nil {
		return err
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}
