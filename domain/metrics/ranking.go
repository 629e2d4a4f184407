package metrics

import (
	"fmt"
	"sort"
	"strings"
)

// SortKey selects the metric used to rank targets
type SortKey string

const (
	SortByAccuracy SortKey = "accuracy"
	SortByAUC      SortKey = "auc"
	SortByF1       SortKey = "f1"
	SortBySamples  SortKey = "samples"
)

// ParseSortKey parses a sort key; the empty string means accuracy
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortByAccuracy:
		return SortByAccuracy, nil
	case SortByAUC:
		return SortByAUC, nil
	case SortByF1:
		return SortByF1, nil
	case SortBySamples:
		return SortBySamples, nil
	}
	return "", fmt.Errorf("unknown sort key %q (want accuracy|auc|f1|samples)", s)
}

func (k SortKey) value(r EnrichedMetricsRecord) float64 {
	switch k {
	case SortByAUC:
		return r.AUC
	case SortByF1:
		return r.F1
	case SortBySamples:
		return float64(r.NSamples)
	default:
		return r.Accuracy
	}
}

// Ranked returns the report's records ordered by key, best first. Ties are
// broken by target id so the order is deterministic.
func (r *Report) Ranked(key SortKey) []EnrichedMetricsRecord {
	out := make([]EnrichedMetricsRecord, 0, len(r.Records))
	for _, rec := range r.Records {
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		vi, vj := key.value(out[i]), key.value(out[j])
		if vi != vj {
			return vi > vj
		}
		return out[i].TargetID < out[j].TargetID
	})
	return out
}
