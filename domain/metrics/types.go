package metrics

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"goamr/domain/core"
)

// Status is the training outcome reported for a classification target.
type Status string

const (
	StatusTrained   Status = "trained"
	StatusUntrained Status = "untrained"
	StatusNoModel   Status = "no_model"
	StatusSkipped   Status = "skipped"
)

// ParseStatus maps a raw status string onto a known Status
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusTrained:
		return StatusTrained, true
	case StatusUntrained:
		return StatusUntrained, true
	case StatusNoModel:
		return StatusNoModel, true
	case StatusSkipped:
		return StatusSkipped, true
	}
	return "", false
}

// IsTrained reports whether records with this status take part in aggregation
func (s Status) IsTrained() bool {
	return s == StatusTrained
}

// DefaultFoldCount is used when a record does not state its fold count
const DefaultFoldCount = 5

// FeatureImportance is one entry of a model's top-feature list (k-mers for
// the genome models), passed through untouched.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// MetricsRecord is the validated per-target input.
type MetricsRecord struct {
	TargetID     string              `json:"target_id"`
	Status       Status              `json:"status"`
	Reason       string              `json:"reason,omitempty"`
	NSamples     int                 `json:"n_samples"`
	NResistant   int                 `json:"n_resistant"`
	NSusceptible int                 `json:"n_susceptible"`
	Accuracy     float64             `json:"accuracy"`
	F1           float64             `json:"f1"`
	AUC          float64             `json:"auc"`
	FoldCount    int                 `json:"fold_count"`
	TopFeatures  []FeatureImportance `json:"top_features,omitempty"`
}

// Interval is a closed confidence interval. It serializes as a [lo, hi] pair.
type Interval struct {
	Lo float64
	Hi float64
}

// Width returns hi - lo
func (i Interval) Width() float64 {
	return i.Hi - i.Lo
}

// Contains reports whether v lies within the interval
func (i Interval) Contains(v float64) bool {
	return i.Lo <= v && v <= i.Hi
}

func (i Interval) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{i.Lo, i.Hi})
}

func (i *Interval) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("interval must be a [lo, hi] pair: %w", err)
	}
	i.Lo, i.Hi = pair[0], pair[1]
	return nil
}

// ConfusionMatrix holds approximate 2x2 counts; resistant is the positive class.
type ConfusionMatrix struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	TN int `json:"tn"`
	FN int `json:"fn"`
}

// Total returns tp+fp+tn+fn
func (c ConfusionMatrix) Total() int {
	return c.TP + c.FP + c.TN + c.FN
}

// ConfusionEstimate is a reconstructed matrix plus the information needed to
// judge it. Consistent is false when any cell had to be clamped at zero.
type ConfusionEstimate struct {
	Matrix       ConfusionMatrix `json:"matrix"`
	Consistent   bool            `json:"consistent"`
	ClampedCells []string        `json:"clamped_cells,omitempty"`
	Unclamped    [4]int          `json:"unclamped"` // tp, fp, tn, fn before clamping
}

// DerivedMetrics are computed from a confusion matrix
type DerivedMetrics struct {
	Precision   float64 `json:"precision"`
	Recall      float64 `json:"recall"`
	Specificity float64 `json:"specificity"`
}

// ROCPoint is one (fpr, tpr) vertex of an approximated ROC curve
type ROCPoint struct {
	FPR float64 `json:"fpr"`
	TPR float64 `json:"tpr"`
}

// ImbalanceKind tags a class imbalance finding
type ImbalanceKind string

const (
	ImbalanceNone     ImbalanceKind = ""
	ImbalanceCollapse ImbalanceKind = "collapse"
	ImbalanceSkew     ImbalanceKind = "skew"
)

// ImbalanceWarning describes a class-imbalance pathology for one target
type ImbalanceWarning struct {
	Kind    ImbalanceKind `json:"kind"`
	Ratio   float64       `json:"ratio"` // minority / majority
	Message string        `json:"message"`
}

// WarningKind tags non-fatal findings attached to an enriched record
type WarningKind string

const (
	WarningInconsistentStatistics WarningKind = "inconsistent_statistics"
)

// Warning is a non-fatal finding recorded alongside a result
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// EnrichedMetricsRecord is the per-target output for a trained record.
// It is built once and not mutated afterwards.
type EnrichedMetricsRecord struct {
	MetricsRecord

	AccuracyCI          Interval          `json:"accuracy_ci"`
	F1CI                Interval          `json:"f1_ci"`
	Confusion           ConfusionMatrix   `json:"confusion"`
	ConfusionConsistent bool              `json:"confusion_consistent"`
	Derived             DerivedMetrics    `json:"derived"`
	ROCPoints           []ROCPoint        `json:"roc_points"`
	ROCApproximate      bool              `json:"roc_approximate"` // true: roc_points is a power-law shape from the AUC, not measured operating points
	CurveAUC            float64           `json:"curve_auc"`
	ImbalanceWarning    *ImbalanceWarning `json:"imbalance_warning,omitempty"`
	Warnings            []Warning         `json:"warnings,omitempty"`
	Tier                QualityTier       `json:"tier"`
}

// LowConfidence reports whether the record carries any estimate that should be
// displayed as "estimated, low confidence".
func (r EnrichedMetricsRecord) LowConfidence() bool {
	return !r.ConfusionConsistent || len(r.Warnings) > 0
}

// CorpusSummary aggregates all trained records of a corpus
type CorpusSummary struct {
	MeanAccuracy float64 `json:"mean_accuracy"`
	MeanAUC      float64 `json:"mean_auc"`
	MeanF1       float64 `json:"mean_f1"`
	TotalSamples int     `json:"total_samples"`
	ModelCount   int     `json:"model_count"`

	MedianAccuracy   float64        `json:"median_accuracy"`
	MinAccuracy      float64        `json:"min_accuracy"`
	MaxAccuracy      float64        `json:"max_accuracy"`
	PooledAccuracy   float64        `json:"pooled_accuracy"` // sample-weighted
	PooledAccuracyCI Interval       `json:"pooled_accuracy_ci"`
	UntrainedCount   int            `json:"untrained_count"`
	WarningCounts    map[string]int `json:"warning_counts,omitempty"`
}

// Report is the complete response for one enrichment request
type Report struct {
	ID          core.ReportID                    `json:"id"`
	GeneratedAt time.Time                        `json:"generated_at"`
	Source      string                           `json:"source,omitempty"`
	InputHash   core.Hash                        `json:"input_hash"`
	Z           float64                          `json:"z"`
	Records     map[string]EnrichedMetricsRecord `json:"records"`
	Untrained   map[string]MetricsRecord         `json:"untrained,omitempty"`
	Rejected    map[string]*ValidationError      `json:"rejected,omitempty"`
	Summary     *CorpusSummary                   `json:"summary,omitempty"`
	SummaryNote string                           `json:"summary_note,omitempty"`
}

// Target returns the enriched record for a target id. An exact match wins;
// otherwise ids are compared case-insensitively.
func (r *Report) Target(id string) (EnrichedMetricsRecord, bool) {
	return lookup(r.Records, id)
}

// UntrainedTarget returns the untrained record for a target id, matched like
// Target.
func (r *Report) UntrainedTarget(id string) (MetricsRecord, bool) {
	return lookup(r.Untrained, id)
}

func lookup[V any](m map[string]V, id string) (V, bool) {
	if rec, ok := m[id]; ok {
		return rec, true
	}
	for key, rec := range m {
		if strings.EqualFold(key, id) {
			return rec, true
		}
	}
	var zero V
	return zero, false
}
