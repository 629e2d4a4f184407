package metrics

import (
	"errors"
	"math"
	"testing"

	"goamr/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

func trainedRaw() RawMetricsRecord {
	return RawMetricsRecord{
		Status:       strPtr("trained"),
		NSamples:     intPtr(100),
		NResistant:   intPtr(40),
		NSusceptible: intPtr(60),
		Accuracy:     floatPtr(0.80),
		F1:           floatPtr(0.75),
		AUC:          floatPtr(0.88),
	}
}

func TestValidate_TrainedRecord(t *testing.T) {
	rec, err := Validate("Ciprofloxacin", trainedRaw())
	require.NoError(t, err)

	assert.Equal(t, "ciprofloxacin", rec.TargetID)
	assert.Equal(t, StatusTrained, rec.Status)
	assert.Equal(t, 100, rec.NSamples)
	assert.Equal(t, DefaultFoldCount, rec.FoldCount, "fold_count is optional and defaults to 5")
}

func TestValidate_ListsEveryOffendingField(t *testing.T) {
	raw := trainedRaw()
	raw.Accuracy = floatPtr(1.2)
	raw.NResistant = intPtr(-1)
	raw.AUC = nil
	raw.FoldCount = intPtr(0)

	_, err := Validate("gentamicin", raw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrValidation))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "gentamicin", verr.TargetID)
	assert.True(t, verr.HasField("accuracy"))
	assert.True(t, verr.HasField("n_resistant"))
	assert.True(t, verr.HasField("auc"))
	assert.True(t, verr.HasField("fold_count"))
	assert.Contains(t, verr.Error(), "accuracy (must be within [0,1])")
}

func TestValidate_SampleCountInvariant(t *testing.T) {
	raw := trainedRaw()
	raw.NSamples = intPtr(101)

	_, err := Validate("tetracycline", raw)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.HasField("n_samples"))
}

func TestValidate_NaNIsRejected(t *testing.T) {
	raw := trainedRaw()
	raw.F1 = floatPtr(math.NaN())

	_, err := Validate("meropenem", raw)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.HasField("f1"))
}

func TestValidate_StatusRules(t *testing.T) {
	tests := []struct {
		name      string
		raw       RawMetricsRecord
		wantErr   string
		wantState Status
	}{
		{
			name:    "missing status",
			raw:     RawMetricsRecord{},
			wantErr: "status",
		},
		{
			name:    "unknown status",
			raw:     RawMetricsRecord{Status: strPtr("pending")},
			wantErr: "status",
		},
		{
			name:      "skipped needs no statistics",
			raw:       RawMetricsRecord{Status: strPtr("skipped"), Reason: "insufficient samples"},
			wantState: StatusSkipped,
		},
		{
			name:      "no_model needs no statistics",
			raw:       RawMetricsRecord{Status: strPtr("NO_MODEL")},
			wantState: StatusNoModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Validate("chloramphenicol", tt.raw)
			if tt.wantErr != "" {
				var verr *ValidationError
				require.True(t, errors.As(err, &verr))
				assert.True(t, verr.HasField(tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, rec.Status)
			assert.False(t, rec.Status.IsTrained())
		})
	}
}

func TestValidate_DecodeErrorsAreKept(t *testing.T) {
	raw := trainedRaw()
	raw.DecodeErrors = []FieldError{{Field: "n_samples", Reason: "must be an integer"}}

	_, err := Validate("ampicillin", raw)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.HasField("n_samples"))
}

func TestValidate_BlankTarget(t *testing.T) {
	_, err := Validate("  ", trainedRaw())
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.HasField("target_id"))
}

func TestFromRecord_RoundTrip(t *testing.T) {
	in := MetricsRecord{
		TargetID: "levofloxacin", Status: StatusTrained,
		NSamples: 1121, NResistant: 612, NSusceptible: 509,
		Accuracy: 0.86, F1: 0.85, AUC: 0.91,
	}
	out, err := Validate(in.TargetID, FromRecord(in))
	require.NoError(t, err)
	assert.Equal(t, DefaultFoldCount, out.FoldCount)
	assert.Equal(t, in.Accuracy, out.Accuracy)
}
