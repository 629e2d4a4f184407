package estimators

import (
	"testing"

	"goamr/domain/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectImbalance(t *testing.T) {
	tests := []struct {
		name   string
		nR, nS int
		f1     float64
		want   metrics.ImbalanceKind
	}{
		{name: "collapse on severe skew", nR: 5, nS: 995, f1: 0, want: metrics.ImbalanceCollapse},
		{name: "collapse on balanced classes", nR: 500, nS: 500, f1: 0, want: metrics.ImbalanceCollapse},
		{name: "skew at threshold", nR: 30, nS: 100, f1: 0.4, want: metrics.ImbalanceSkew},
		{name: "skew with resistant majority", nR: 1000, nS: 100, f1: 0.9, want: metrics.ImbalanceSkew},
		{name: "empty classes", nR: 0, nS: 0, f1: 0.5, want: metrics.ImbalanceSkew},
		{name: "balanced enough", nR: 31, nS: 100, f1: 0.6, want: metrics.ImbalanceNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DetectImbalance(tt.nR, tt.nS, tt.f1, DefaultSkewThreshold)
			if tt.want == metrics.ImbalanceNone {
				assert.Nil(t, w)
				return
			}
			require.NotNil(t, w)
			assert.Equal(t, tt.want, w.Kind)
			assert.NotEmpty(t, w.Message)
		})
	}
}

func TestDetectImbalance_Ratio(t *testing.T) {
	w := DetectImbalance(186, 1012, 0.94, DefaultSkewThreshold)
	require.NotNil(t, w)
	assert.InDelta(t, 186.0/1012.0, w.Ratio, 1e-12)
}
