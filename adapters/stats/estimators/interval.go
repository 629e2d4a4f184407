package estimators

import (
	"fmt"
	"math"

	"goamr/domain/metrics"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultZ is the two-sided 95% normal multiplier
const DefaultZ = 1.96

const (
	// f1VarianceInflation widens the F1 interval relative to a plain proportion
	f1VarianceInflation = 1.2
	// f1ZeroUpperPad is the upper bound reported for a collapsed (F1 = 0) model
	f1ZeroUpperPad = 0.05
)

// ZForConfidence converts a two-sided confidence level into a z multiplier
// using the standard normal quantile.
func ZForConfidence(level float64) (float64, error) {
	if math.IsNaN(level) || level <= 0 || level >= 1 {
		return 0, fmt.Errorf("confidence level must be in (0,1), got %v", level)
	}
	return distuv.UnitNormal.Quantile(1 - (1-level)/2), nil
}

// WilsonInterval returns the Wilson score interval for a proportion p
// observed over n samples. With n == 0 nothing is known and (0, 1) is returned.
func WilsonInterval(p float64, n int, z float64) metrics.Interval {
	if n <= 0 {
		return metrics.Interval{Lo: 0, Hi: 1}
	}

	nf := float64(n)
	z2 := z * z
	denom := 1 + z2/nf
	center := (p + z2/(2*nf)) / denom
	margin := z * math.Sqrt(p*(1-p)/nf+z2/(4*nf*nf)) / denom

	lo := math.Max(0, center-margin)
	hi := math.Min(1, center+margin)

	// At p = 0 or 1 the bound coincides with p up to rounding
	return metrics.Interval{Lo: math.Min(lo, p), Hi: math.Max(hi, p)}
}

// F1Interval returns a normal-approximation interval for an F1 score,
// inflated by 1.2x because F1 varies more than a proportion with the same
// mean. A zero F1 (or no samples) yields (0, f1+0.05) so the report shows a
// small non-zero ceiling instead of a degenerate zero-width interval.
func F1Interval(f1 float64, n int, z float64) metrics.Interval {
	if n <= 0 || f1 == 0 {
		return metrics.Interval{Lo: 0, Hi: math.Min(1, f1+f1ZeroUpperPad)}
	}

	se := math.Sqrt(f1*(1-f1)/float64(n)) * f1VarianceInflation
	return metrics.Interval{
		Lo: math.Max(0, f1-z*se),
		Hi: math.Min(1, f1+z*se),
	}
}
