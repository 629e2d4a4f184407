package metrics

import (
	"fmt"
	"math"
	"strings"

	"goamr/domain/core"
)

// RawMetricsRecord is a metrics record as supplied by a collaborator, before
// validation. Absent fields stay nil so that a missing value can be told
// apart from a zero.
type RawMetricsRecord struct {
	Status       *string
	Reason       string
	NSamples     *int
	NResistant   *int
	NSusceptible *int
	Accuracy     *float64
	F1           *float64
	AUC          *float64
	FoldCount    *int
	TopFeatures  []FeatureImportance

	// Problems found while decoding, e.g. a string where a number belongs
	DecodeErrors []FieldError
}

// FieldError names one offending field
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every offending field of one target's record
type ValidationError struct {
	TargetID string       `json:"target_id"`
	Fields   []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s (%s)", f.Field, f.Reason)
	}
	return fmt.Sprintf("target %s: invalid fields: %s", e.TargetID, strings.Join(parts, ", "))
}

// Is makes errors.Is(err, core.ErrValidation) hold
func (e *ValidationError) Is(target error) bool {
	return target == core.ErrValidation
}

// HasField reports whether a field is named in the error
func (e *ValidationError) HasField(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

type fieldCollector struct {
	errs []FieldError
}

func (c *fieldCollector) add(field, reason string) {
	c.errs = append(c.errs, FieldError{Field: field, Reason: reason})
}

func (c *fieldCollector) count(field string, v *int) int {
	if v == nil {
		c.add(field, "required")
		return 0
	}
	if *v < 0 {
		c.add(field, "must be non-negative")
	}
	return *v
}

func (c *fieldCollector) unit(field string, v *float64) float64 {
	if v == nil {
		c.add(field, "required")
		return 0
	}
	if math.IsNaN(*v) || *v < 0 || *v > 1 {
		c.add(field, "must be within [0,1]")
	}
	return *v
}

// Validate checks a raw record at the boundary and converts it into a
// MetricsRecord. Nothing is silently defaulted except fold_count, which is
// optional by contract.
func Validate(targetID string, raw RawMetricsRecord) (MetricsRecord, error) {
	c := &fieldCollector{errs: append([]FieldError(nil), raw.DecodeErrors...)}

	id, err := core.ParseTargetID(targetID)
	if err != nil {
		c.add("target_id", "required")
	}

	rec := MetricsRecord{
		TargetID:    id.String(),
		Reason:      raw.Reason,
		TopFeatures: raw.TopFeatures,
		FoldCount:   DefaultFoldCount,
	}

	if raw.Status == nil {
		c.add("status", "required")
	} else if status, ok := ParseStatus(*raw.Status); !ok {
		c.add("status", fmt.Sprintf("unknown status %q", *raw.Status))
	} else {
		rec.Status = status
	}

	// Untrained targets carry no usable statistics; only the status matters.
	if rec.Status != "" && !rec.Status.IsTrained() {
		return finish(rec, targetID, c)
	}

	rec.NSamples = c.count("n_samples", raw.NSamples)
	rec.NResistant = c.count("n_resistant", raw.NResistant)
	rec.NSusceptible = c.count("n_susceptible", raw.NSusceptible)
	rec.Accuracy = c.unit("accuracy", raw.Accuracy)
	rec.F1 = c.unit("f1", raw.F1)
	rec.AUC = c.unit("auc", raw.AUC)

	if raw.FoldCount != nil {
		if *raw.FoldCount < 1 {
			c.add("fold_count", "must be positive")
		}
		rec.FoldCount = *raw.FoldCount
	}

	if raw.NSamples != nil && raw.NResistant != nil && raw.NSusceptible != nil &&
		rec.NSamples != rec.NResistant+rec.NSusceptible {
		c.add("n_samples", fmt.Sprintf("must equal n_resistant + n_susceptible (%d + %d)",
			rec.NResistant, rec.NSusceptible))
	}

	return finish(rec, targetID, c)
}

func finish(rec MetricsRecord, targetID string, c *fieldCollector) (MetricsRecord, error) {
	if len(c.errs) > 0 {
		return rec, &ValidationError{TargetID: targetID, Fields: c.errs}
	}
	return rec, nil
}

// FromRecord builds a raw record out of an already typed one. Used by sources
// that produce typed values directly.
func FromRecord(rec MetricsRecord) RawMetricsRecord {
	status := string(rec.Status)
	nSamples, nR, nS, folds := rec.NSamples, rec.NResistant, rec.NSusceptible, rec.FoldCount
	acc, f1, auc := rec.Accuracy, rec.F1, rec.AUC
	raw := RawMetricsRecord{
		Status:       &status,
		Reason:       rec.Reason,
		NSamples:     &nSamples,
		NResistant:   &nR,
		NSusceptible: &nS,
		Accuracy:     &acc,
		F1:           &f1,
		AUC:          &auc,
		TopFeatures:  rec.TopFeatures,
	}
	if folds != 0 {
		raw.FoldCount = &folds
	}
	return raw
}
