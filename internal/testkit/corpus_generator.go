package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"goamr/domain/metrics"
)

// DefaultTargets are the antibiotics the genome models are trained for
var DefaultTargets = []string{
	"ampicillin",
	"ciprofloxacin",
	"ceftriaxone",
	"gentamicin",
	"meropenem",
	"trimethoprim/sulfamethoxazole",
	"ceftazidime",
	"tetracycline",
	"chloramphenicol",
	"levofloxacin",
}

// CorpusGeneratorConfig configures the synthetic metrics generator
type CorpusGeneratorConfig struct {
	Targets      int     `json:"targets"`
	Seed         int64   `json:"seed"`
	MinSamples   int     `json:"min_samples"`
	MaxSamples   int     `json:"max_samples"`
	SkippedRate  float64 `json:"skipped_rate"`
	CollapseRate float64 `json:"collapse_rate"`
	FoldCount    int     `json:"fold_count"`
	FeatureCount int     `json:"feature_count"`
	KmerLength   int     `json:"kmer_length"`
}

// DefaultCorpusConfig returns sensible defaults for synthetic corpora
func DefaultCorpusConfig() CorpusGeneratorConfig {
	return CorpusGeneratorConfig{
		Targets:      len(DefaultTargets),
		Seed:         42,
		MinSamples:   400,
		MaxSamples:   2000,
		SkippedRate:  0.1,
		CollapseRate: 0.0,
		FoldCount:    5,
		FeatureCount: 5,
		KmerLength:   11,
	}
}

// CorpusGenerator produces per-target metrics that behave like the output of
// a cross-validated training run. Each record is computed from a sampled
// confusion matrix, so accuracy, F1 and class counts agree with each other.
type CorpusGenerator struct {
	config CorpusGeneratorConfig
	rng    *rand.Rand
}

// NewCorpusGenerator creates a new generator. The same seed always yields
// the same corpus.
func NewCorpusGenerator(config CorpusGeneratorConfig) *CorpusGenerator {
	if config.MinSamples < 1 {
		config.MinSamples = 1
	}
	if config.MaxSamples < config.MinSamples {
		config.MaxSamples = config.MinSamples
	}
	if config.FoldCount < 1 {
		config.FoldCount = metrics.DefaultFoldCount
	}
	return &CorpusGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// TargetNames returns the target ids the generator emits
func (g *CorpusGenerator) TargetNames() []string {
	names := make([]string, 0, g.config.Targets)
	for i := 0; i < g.config.Targets; i++ {
		if i < len(DefaultTargets) {
			names = append(names, DefaultTargets[i])
		} else {
			names = append(names, fmt.Sprintf("compound_%02d", i+1))
		}
	}
	return names
}

// Generate produces a complete metrics collection
func (g *CorpusGenerator) Generate() map[string]metrics.RawMetricsRecord {
	out := make(map[string]metrics.RawMetricsRecord, g.config.Targets)
	for _, name := range g.TargetNames() {
		out[name] = g.generateTarget()
	}
	return out
}

func (g *CorpusGenerator) generateTarget() metrics.RawMetricsRecord {
	if g.rng.Float64() < g.config.SkippedRate {
		n := g.rng.Intn(20)
		reason := "insufficient samples"
		if g.rng.Intn(2) == 0 {
			reason = "insufficient for CV"
		}
		return metrics.RawMetricsRecord{
			Status:   Ptr(string(metrics.StatusSkipped)),
			Reason:   reason,
			NSamples: Ptr(n),
		}
	}

	n := g.config.MinSamples + g.rng.Intn(g.config.MaxSamples-g.config.MinSamples+1)
	resistantShare := 0.2 + g.rng.Float64()*0.5
	nR := int(math.Round(float64(n) * resistantShare))
	nS := n - nR

	sensitivity := 0.8 + 0.18*g.rng.Float64()
	specificity := 0.78 + 0.2*g.rng.Float64()
	if g.rng.Float64() < g.config.CollapseRate {
		// majority-class predictor
		sensitivity, specificity = 0, 1
	}

	tp := int(math.Round(float64(nR) * sensitivity))
	tn := int(math.Round(float64(nS) * specificity))
	fn := nR - tp
	fp := nS - tn

	accuracy := float64(tp+tn) / float64(n)
	f1 := 0.0
	if denom := 2*tp + fp + fn; denom > 0 {
		f1 = float64(2*tp) / float64(denom)
	}
	auc := math.Min(0.995, (sensitivity+specificity)/2+0.04+0.02*g.rng.Float64())

	return metrics.RawMetricsRecord{
		Status:       Ptr(string(metrics.StatusTrained)),
		NSamples:     Ptr(n),
		NResistant:   Ptr(nR),
		NSusceptible: Ptr(nS),
		Accuracy:     Ptr(round4(accuracy)),
		F1:           Ptr(round4(f1)),
		AUC:          Ptr(round4(auc)),
		FoldCount:    Ptr(g.config.FoldCount),
		TopFeatures:  g.generateFeatures(),
	}
}

func (g *CorpusGenerator) generateFeatures() []metrics.FeatureImportance {
	if g.config.FeatureCount <= 0 {
		return nil
	}
	features := make([]metrics.FeatureImportance, g.config.FeatureCount)
	importance := 0.05 + 0.1*g.rng.Float64()
	for i := range features {
		features[i] = metrics.FeatureImportance{
			Feature:    g.randomKmer(),
			Importance: round4(importance),
		}
		importance *= 0.6 + 0.3*g.rng.Float64()
	}
	return features
}

func (g *CorpusGenerator) randomKmer() string {
	const bases = "ACGT"
	length := g.config.KmerLength
	if length <= 0 {
		length = 11
	}
	var b strings.Builder
	for i := 0; i < length; i++ {
		b.WriteByte(bases[g.rng.Intn(len(bases))])
	}
	return b.String()
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// Ptr returns a pointer to v, for building raw records in tests
func Ptr[T any](v T) *T {
	return &v
}

// TrainedRecord builds a complete raw trained record
func TrainedRecord(n, nR, nS int, accuracy, f1, auc float64) metrics.RawMetricsRecord {
	return metrics.RawMetricsRecord{
		Status:       Ptr(string(metrics.StatusTrained)),
		NSamples:     Ptr(n),
		NResistant:   Ptr(nR),
		NSusceptible: Ptr(nS),
		Accuracy:     Ptr(accuracy),
		F1:           Ptr(f1),
		AUC:          Ptr(auc),
	}
}
