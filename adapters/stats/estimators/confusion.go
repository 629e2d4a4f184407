package estimators

import (
	"math"

	"goamr/domain/metrics"
)

const (
	maxRecallProxy      = 0.99
	fallbackRecallProxy = 0.1
)

// ReconstructConfusion derives approximate {tp, fp, tn, fn} counts from
// accuracy, F1 and the class counts. The resistant class is positive.
//
// This is a heuristic, not an inversion: F1 alone does not determine precision
// and recall, so F1 is taken as a proxy for recall and the rest follows from
// the accuracy-implied number of correct predictions. When the inputs cannot
// both hold, some cells come out negative; they are clamped to zero and the
// estimate is flagged inconsistent. The inputs themselves are never adjusted.
func ReconstructConfusion(accuracy, f1 float64, n, nResistant, nSusceptible int) metrics.ConfusionEstimate {
	totalCorrect := int(math.Round(accuracy * float64(n)))

	recall := fallbackRecallProxy
	if f1 > 0 {
		recall = math.Min(maxRecallProxy, f1)
	}

	tp := int(math.Round(recall * float64(nResistant)))
	fn := nResistant - tp
	tn := totalCorrect - tp
	fp := nSusceptible - tn

	est := metrics.ConfusionEstimate{
		Unclamped:  [4]int{tp, fp, tn, fn},
		Consistent: true,
	}

	cells := []struct {
		name string
		v    *int
	}{{"tp", &tp}, {"fp", &fp}, {"tn", &tn}, {"fn", &fn}}
	for _, c := range cells {
		if *c.v < 0 {
			*c.v = 0
			est.Consistent = false
			est.ClampedCells = append(est.ClampedCells, c.name)
		}
	}

	est.Matrix = metrics.ConfusionMatrix{TP: tp, FP: fp, TN: tn, FN: fn}
	return est
}

// DeriveMetrics computes precision, recall and specificity. Denominators are
// floored at 1 so an absent class yields 0 instead of NaN.
func DeriveMetrics(c metrics.ConfusionMatrix) metrics.DerivedMetrics {
	return metrics.DerivedMetrics{
		Precision:   ratio(c.TP, c.TP+c.FP),
		Recall:      ratio(c.TP, c.TP+c.FN),
		Specificity: ratio(c.TN, c.TN+c.FP),
	}
}

func ratio(num, denom int) float64 {
	if denom < 1 {
		denom = 1
	}
	return float64(num) / float64(denom)
}
