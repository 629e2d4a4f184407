package estimators

import (
	"math"

	"goamr/domain/metrics"

	"gonum.org/v1/gonum/integrate"
)

// DefaultROCPoints is the default resolution of the approximated curve
const DefaultROCPoints = 20

const (
	minAUC           = 0.01
	minROCExponent   = 0.05
	rocExponentScale = 0.4
)

// ApproximateROC generates an illustrative ROC curve from a scalar AUC using
// the power law tpr = fpr^k with k = max(0.05, 0.4*(1-auc)/auc). The result
// is a plausible shape for display, not a reconstruction of real operating
// points.
//
// The result holds points+1 entries: exactly (0,0), the points-1 interior
// grid values fpr = i/points, and exactly (1,1). fpr is strictly increasing
// and tpr is non-decreasing. A non-positive points falls back to
// DefaultROCPoints.
func ApproximateROC(auc float64, points int) []metrics.ROCPoint {
	if points < 1 {
		points = DefaultROCPoints
	}
	exponent := rocExponent(auc)

	curve := make([]metrics.ROCPoint, 0, points+1)
	curve = append(curve, metrics.ROCPoint{FPR: 0, TPR: 0})
	// i == points would land on fpr = 1, which the fixed endpoint covers
	for i := 1; i < points; i++ {
		fpr := float64(i) / float64(points)
		curve = append(curve, metrics.ROCPoint{FPR: fpr, TPR: math.Pow(fpr, exponent)})
	}
	curve = append(curve, metrics.ROCPoint{FPR: 1, TPR: 1})
	return curve
}

func rocExponent(auc float64) float64 {
	if math.IsNaN(auc) || auc < minAUC {
		auc = minAUC
	}
	return math.Max(minROCExponent, (1-auc)/auc*rocExponentScale)
}

// CurveArea integrates a curve with the trapezoidal rule
func CurveArea(curve []metrics.ROCPoint) float64 {
	if len(curve) < 2 {
		return 0
	}
	x := make([]float64, len(curve))
	y := make([]float64, len(curve))
	for i, p := range curve {
		x[i] = p.FPR
		y[i] = p.TPR
	}
	return integrate.Trapezoidal(x, y)
}
