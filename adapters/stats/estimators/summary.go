package estimators

import (
	"fmt"

	"goamr/domain/core"
	"goamr/domain/metrics"

	"github.com/montanaflynn/stats"
)

// Summarize folds the trained records of a corpus into a CorpusSummary.
// Records with any other status are ignored. With no trained records it
// returns core.ErrEmptyCorpus rather than dividing by zero.
func Summarize(records []metrics.EnrichedMetricsRecord, z float64) (*metrics.CorpusSummary, error) {
	var accuracies, aucs, f1s []float64
	summary := &metrics.CorpusSummary{WarningCounts: make(map[string]int)}

	correct := 0.0
	for _, rec := range records {
		if !rec.Status.IsTrained() {
			continue
		}
		accuracies = append(accuracies, rec.Accuracy)
		aucs = append(aucs, rec.AUC)
		f1s = append(f1s, rec.F1)
		summary.TotalSamples += rec.NSamples
		correct += rec.Accuracy * float64(rec.NSamples)

		if rec.ImbalanceWarning != nil {
			summary.WarningCounts[string(rec.ImbalanceWarning.Kind)]++
		}
		for _, w := range rec.Warnings {
			summary.WarningCounts[string(w.Kind)]++
		}
	}

	summary.ModelCount = len(accuracies)
	if summary.ModelCount == 0 {
		return nil, core.ErrEmptyCorpus
	}

	var err error
	if summary.MeanAccuracy, err = stats.Mean(accuracies); err != nil {
		return nil, fmt.Errorf("mean accuracy: %w", err)
	}
	if summary.MeanAUC, err = stats.Mean(aucs); err != nil {
		return nil, fmt.Errorf("mean auc: %w", err)
	}
	if summary.MeanF1, err = stats.Mean(f1s); err != nil {
		return nil, fmt.Errorf("mean f1: %w", err)
	}
	if summary.MedianAccuracy, err = stats.Median(accuracies); err != nil {
		return nil, fmt.Errorf("median accuracy: %w", err)
	}
	if summary.MinAccuracy, err = stats.Min(accuracies); err != nil {
		return nil, fmt.Errorf("min accuracy: %w", err)
	}
	if summary.MaxAccuracy, err = stats.Max(accuracies); err != nil {
		return nil, fmt.Errorf("max accuracy: %w", err)
	}

	if summary.TotalSamples > 0 {
		summary.PooledAccuracy = correct / float64(summary.TotalSamples)
	}
	summary.PooledAccuracyCI = WilsonInterval(summary.PooledAccuracy, summary.TotalSamples, z)

	if len(summary.WarningCounts) == 0 {
		summary.WarningCounts = nil
	}
	return summary, nil
}
