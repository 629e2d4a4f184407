package metrics

// QualityTier buckets cross-validated accuracy for display
type QualityTier string

const (
	TierExcellent QualityTier = "excellent"
	TierGood      QualityTier = "good"
	TierFair      QualityTier = "fair"
	TierPoor      QualityTier = "poor"
)

// TierForAccuracy maps accuracy onto a quality tier
func TierForAccuracy(accuracy float64) QualityTier {
	switch {
	case accuracy >= 0.92:
		return TierExcellent
	case accuracy >= 0.86:
		return TierGood
	case accuracy >= 0.82:
		return TierFair
	default:
		return TierPoor
	}
}
