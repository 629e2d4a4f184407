// Package payload decodes metrics collections from JSON. Field names written
// by older training runs (cv_accuracy, cv_f1, cv_auc, cv_folds, top_kmers)
// are accepted next to the canonical ones.
package payload

import (
	"fmt"
	"math"
	"strings"

	"goamr/domain/core"
	"goamr/domain/metrics"

	"github.com/tidwall/gjson"
)

// fieldAliases lists accepted JSON keys per canonical field, in priority order
var fieldAliases = map[string][]string{
	"status":        {"status"},
	"reason":        {"reason"},
	"n_samples":     {"n_samples"},
	"n_resistant":   {"n_resistant"},
	"n_susceptible": {"n_susceptible"},
	"accuracy":      {"accuracy", "cv_accuracy"},
	"f1":            {"f1", "cv_f1"},
	"auc":           {"auc", "cv_auc", "roc_auc"},
	"fold_count":    {"fold_count", "cv_folds"},
	"top_features":  {"top_features", "top_kmers"},
}

var canonicalByAlias = func() map[string]string {
	out := make(map[string]string)
	for field, aliases := range fieldAliases {
		for _, alias := range aliases {
			out[alias] = field
		}
	}
	return out
}()

// CanonicalField maps an accepted key, canonical or legacy, to the canonical
// field name. Matching ignores case and surrounding spaces.
func CanonicalField(key string) (string, bool) {
	field, ok := canonicalByAlias[strings.ToLower(strings.TrimSpace(key))]
	return field, ok
}

// IsTargetKey reports whether key names the target id of a record
func IsTargetKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, k := range targetKeys {
		if k == key {
			return true
		}
	}
	return false
}

// targetKeys are checked, in order, for the target id of array elements
var targetKeys = []string{"target_id", "target", "antibiotic", "drug"}

// Decoder turns JSON documents into raw metrics records
type Decoder struct {
	// DataPath is a gjson path to the collection inside the document. When
	// empty, a top-level "data" envelope is unwrapped if present.
	DataPath string
}

// NewDecoder creates a decoder for the given data path
func NewDecoder(dataPath string) *Decoder {
	return &Decoder{DataPath: dataPath}
}

// Decode parses a metrics collection. The collection is either an object
// keyed by target id or an array of records carrying their own target id.
// Type problems inside a record are kept on the record as DecodeErrors so
// that validation reports them together with any other field problems.
func (d *Decoder) Decode(body []byte) (map[string]metrics.RawMetricsRecord, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, core.NewMalformedInputError("empty document")
	}
	if !gjson.ValidBytes(body) {
		return nil, core.NewMalformedInputError("document is not valid JSON")
	}

	root := gjson.ParseBytes(body)
	collection := root
	if d.DataPath != "" {
		collection = root.Get(d.DataPath)
		if !collection.Exists() {
			return nil, core.NewMalformedInputError(fmt.Sprintf("data path '%s' not found in document", d.DataPath))
		}
	} else if envelope := root.Get("data"); root.IsObject() && (envelope.IsObject() || envelope.IsArray()) {
		collection = envelope
	}

	out := make(map[string]metrics.RawMetricsRecord)
	switch {
	case collection.IsObject():
		i := 0
		collection.ForEach(func(key, value gjson.Result) bool {
			put(out, key.String(), i, decodeRecord(value))
			i++
			return true
		})
	case collection.IsArray():
		for i, value := range collection.Array() {
			id, rec := decodeElement(value)
			put(out, id, i, rec)
		}
	default:
		return nil, core.NewMalformedInputError("metrics collection must be an object or an array")
	}

	if len(out) == 0 {
		return nil, core.NewMalformedInputError("metrics collection is empty")
	}
	return out, nil
}

// put stores rec under id. A missing id, or one already taken by an earlier
// element, is replaced by the element position "#<i>"; repeats also carry a
// target_id decode error so validation rejects them.
func put(out map[string]metrics.RawMetricsRecord, id string, i int, rec metrics.RawMetricsRecord) {
	if id != "" {
		if _, taken := out[id]; !taken {
			out[id] = rec
			return
		}
		rec.DecodeErrors = append(rec.DecodeErrors, metrics.FieldError{
			Field:  "target_id",
			Reason: fmt.Sprintf("duplicate %q", id),
		})
	}
	key := fmt.Sprintf("#%d", i)
	for n := 1; ; n++ {
		if _, taken := out[key]; !taken {
			break
		}
		key = fmt.Sprintf("#%d.%d", i, n)
	}
	out[key] = rec
}

// DecodeRecord parses a single record object
func DecodeRecord(body []byte) (metrics.RawMetricsRecord, error) {
	if !gjson.ValidBytes(body) {
		return metrics.RawMetricsRecord{}, core.NewMalformedInputError("record is not valid JSON")
	}
	return decodeRecord(gjson.ParseBytes(body)), nil
}

func decodeElement(value gjson.Result) (string, metrics.RawMetricsRecord) {
	rec := decodeRecord(value)
	if !value.IsObject() {
		return "", rec
	}
	for _, key := range targetKeys {
		if v := value.Get(key); v.Type == gjson.String && v.String() != "" {
			return v.String(), rec
		}
	}
	rec.DecodeErrors = append(rec.DecodeErrors, metrics.FieldError{Field: "target_id", Reason: "required"})
	return "", rec
}

func decodeRecord(value gjson.Result) metrics.RawMetricsRecord {
	var rec metrics.RawMetricsRecord
	if !value.IsObject() {
		rec.DecodeErrors = append(rec.DecodeErrors, metrics.FieldError{Field: "record", Reason: "must be an object"})
		return rec
	}

	r := &recordReader{value: value}
	rec.Status = r.str("status")
	if reason := r.str("reason"); reason != nil {
		rec.Reason = *reason
	}
	rec.NSamples = r.integer("n_samples")
	rec.NResistant = r.integer("n_resistant")
	rec.NSusceptible = r.integer("n_susceptible")
	rec.Accuracy = r.number("accuracy")
	rec.F1 = r.number("f1")
	rec.AUC = r.number("auc")
	rec.FoldCount = r.integer("fold_count")
	rec.TopFeatures = r.features("top_features")
	rec.DecodeErrors = r.errs
	return rec
}

type recordReader struct {
	value gjson.Result
	errs  []metrics.FieldError
}

// lookup returns the first present, non-null alias of a field
func (r *recordReader) lookup(field string) (gjson.Result, bool) {
	for _, key := range fieldAliases[field] {
		if v := r.value.Get(key); v.Exists() && v.Type != gjson.Null {
			return v, true
		}
	}
	return gjson.Result{}, false
}

func (r *recordReader) fail(field, reason string) {
	r.errs = append(r.errs, metrics.FieldError{Field: field, Reason: reason})
}

func (r *recordReader) str(field string) *string {
	v, ok := r.lookup(field)
	if !ok {
		return nil
	}
	if v.Type != gjson.String {
		r.fail(field, "must be a string")
		return nil
	}
	s := v.String()
	return &s
}

func (r *recordReader) number(field string) *float64 {
	v, ok := r.lookup(field)
	if !ok {
		return nil
	}
	if v.Type != gjson.Number {
		r.fail(field, "must be a number")
		return nil
	}
	f := v.Float()
	return &f
}

func (r *recordReader) integer(field string) *int {
	f := r.number(field)
	if f == nil {
		return nil
	}
	if *f != math.Trunc(*f) || math.Abs(*f) > math.MaxInt32 {
		r.fail(field, "must be an integer")
		return nil
	}
	i := int(*f)
	return &i
}

func (r *recordReader) features(field string) []metrics.FeatureImportance {
	v, ok := r.lookup(field)
	if !ok {
		return nil
	}
	if !v.IsArray() {
		r.fail(field, "must be an array")
		return nil
	}

	var out []metrics.FeatureImportance
	for _, item := range v.Array() {
		name := item.Get("feature")
		if !name.Exists() {
			name = item.Get("kmer")
		}
		importance := item.Get("importance")
		if name.Type != gjson.String || importance.Type != gjson.Number {
			r.fail(field, "entries need a feature (or kmer) name and a numeric importance")
			return nil
		}
		out = append(out, metrics.FeatureImportance{Feature: name.String(), Importance: importance.Float()})
	}
	return out
}
