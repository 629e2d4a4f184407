package estimators

import (
	"fmt"
	"math"

	"goamr/domain/metrics"
)

// DefaultSkewThreshold is the minority/majority ratio at or below which a
// target is flagged as skewed
const DefaultSkewThreshold = 0.3

// DetectImbalance flags majority-class collapse (F1 == 0) or severe class
// skew. Collapse takes precedence over skew. Returns nil when neither applies.
func DetectImbalance(nResistant, nSusceptible int, f1, skewThreshold float64) *metrics.ImbalanceWarning {
	minority := math.Min(float64(nResistant), float64(nSusceptible))
	majority := math.Max(math.Max(float64(nResistant), float64(nSusceptible)), 1)
	r := minority / majority

	switch {
	case f1 == 0:
		return &metrics.ImbalanceWarning{
			Kind:    metrics.ImbalanceCollapse,
			Ratio:   r,
			Message: "model predicts only the majority class (F1 = 0)",
		}
	case r <= skewThreshold:
		return &metrics.ImbalanceWarning{
			Kind:    metrics.ImbalanceSkew,
			Ratio:   r,
			Message: fmt.Sprintf("minority class is %.0f%% of the majority class (%d resistant / %d susceptible)", r*100, nResistant, nSusceptible),
		}
	}
	return nil
}
