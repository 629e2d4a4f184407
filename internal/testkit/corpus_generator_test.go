package testkit

import (
	"context"
	"testing"

	"goamr/domain/metrics"
)

func TestCorpusGenerator_Deterministic(t *testing.T) {
	config := DefaultCorpusConfig()

	first := NewCorpusGenerator(config).Generate()
	second := NewCorpusGenerator(config).Generate()

	if len(first) != config.Targets {
		t.Fatalf("Expected %d targets, got %d", config.Targets, len(first))
	}
	for name, rec := range first {
		other := second[name]
		if *rec.Status != *other.Status {
			t.Errorf("Target %s: status differs between runs", name)
		}
		if rec.Accuracy != nil && *rec.Accuracy != *other.Accuracy {
			t.Errorf("Target %s: accuracy differs between runs", name)
		}
	}
}

func TestCorpusGenerator_RecordsValidate(t *testing.T) {
	config := DefaultCorpusConfig()
	config.Targets = 40
	config.SkippedRate = 0.2
	config.CollapseRate = 0.1

	trained := 0
	for name, raw := range NewCorpusGenerator(config).Generate() {
		rec, err := metrics.Validate(name, raw)
		if err != nil {
			t.Fatalf("Generated record %s failed validation: %v", name, err)
		}
		if !rec.Status.IsTrained() {
			if rec.Reason == "" {
				t.Errorf("Skipped record %s has no reason", name)
			}
			continue
		}
		trained++
		if rec.NResistant+rec.NSusceptible != rec.NSamples {
			t.Errorf("Record %s: class counts do not sum to n_samples", name)
		}
		if rec.NSamples < config.MinSamples || rec.NSamples > config.MaxSamples {
			t.Errorf("Record %s: n_samples %d out of range", name, rec.NSamples)
		}
		if len(rec.TopFeatures) != config.FeatureCount {
			t.Errorf("Record %s: expected %d features, got %d", name, config.FeatureCount, len(rec.TopFeatures))
		}
	}
	if trained == 0 {
		t.Error("Expected at least one trained record")
	}
}

func TestCorpusGenerator_TargetNames(t *testing.T) {
	config := DefaultCorpusConfig()
	config.Targets = 12

	names := NewCorpusGenerator(config).TargetNames()
	if len(names) != 12 {
		t.Fatalf("Expected 12 names, got %d", len(names))
	}
	if names[0] != "ampicillin" || names[11] != "compound_12" {
		t.Errorf("Unexpected names: %v", names)
	}
}

func TestSyntheticSource_RespectsContext(t *testing.T) {
	source := NewSyntheticSource(DefaultCorpusConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := source.FetchMetrics(ctx); err == nil {
		t.Error("Expected an error for a cancelled context")
	}
}
