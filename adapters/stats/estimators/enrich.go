package estimators

import (
	"fmt"
	"strings"

	"goamr/domain/metrics"
)

// Options tunes the estimators. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	Z             float64
	ROCPoints     int
	SkewThreshold float64
}

// DefaultOptions returns the standard 95% / 20-point / 0.3-skew settings
func DefaultOptions() Options {
	return Options{
		Z:             DefaultZ,
		ROCPoints:     DefaultROCPoints,
		SkewThreshold: DefaultSkewThreshold,
	}
}

// Validate checks that options are usable
func (o Options) Validate() error {
	if o.Z <= 0 {
		return fmt.Errorf("z must be positive, got %v", o.Z)
	}
	if o.ROCPoints < 1 {
		return fmt.Errorf("roc points must be at least 1, got %d", o.ROCPoints)
	}
	if o.SkewThreshold < 0 || o.SkewThreshold > 1 {
		return fmt.Errorf("skew threshold must be within [0,1], got %v", o.SkewThreshold)
	}
	return nil
}

// Enrich runs every per-target estimator over a validated trained record.
// The confusion matrix is reconstructed first since the derived metrics
// depend on it; everything else is independent.
func Enrich(rec metrics.MetricsRecord, opts Options) metrics.EnrichedMetricsRecord {
	confusion := ReconstructConfusion(rec.Accuracy, rec.F1, rec.NSamples, rec.NResistant, rec.NSusceptible)
	curve := ApproximateROC(rec.AUC, opts.ROCPoints)

	out := metrics.EnrichedMetricsRecord{
		MetricsRecord:       rec,
		AccuracyCI:          WilsonInterval(rec.Accuracy, rec.NSamples, opts.Z),
		F1CI:                F1Interval(rec.F1, rec.NSamples, opts.Z),
		Confusion:           confusion.Matrix,
		ConfusionConsistent: confusion.Consistent,
		Derived:             DeriveMetrics(confusion.Matrix),
		ROCPoints:           curve,
		ROCApproximate:      true,
		CurveAUC:            CurveArea(curve),
		ImbalanceWarning:    DetectImbalance(rec.NResistant, rec.NSusceptible, rec.F1, opts.SkewThreshold),
		Tier:                metrics.TierForAccuracy(rec.Accuracy),
	}

	if !confusion.Consistent {
		out.Warnings = append(out.Warnings, metrics.Warning{
			Kind: metrics.WarningInconsistentStatistics,
			Message: fmt.Sprintf("accuracy %.4f and F1 %.4f cannot both hold for %d resistant / %d susceptible; clamped %s to zero (unclamped tp=%d fp=%d tn=%d fn=%d)",
				rec.Accuracy, rec.F1, rec.NResistant, rec.NSusceptible,
				strings.Join(confusion.ClampedCells, ", "),
				confusion.Unclamped[0], confusion.Unclamped[1], confusion.Unclamped[2], confusion.Unclamped[3]),
		})
	}

	return out
}
