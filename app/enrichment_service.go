package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"goamr/adapters/stats/estimators"
	"goamr/domain/core"
	"goamr/domain/metrics"
	"goamr/internal"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// EnrichmentService turns a raw metrics collection into a Report. Each target
// is validated and enriched independently; a bad record never affects the
// others.
type EnrichmentService struct {
	opts    estimators.Options
	workers int64
	logger  *internal.Logger
}

// NewEnrichmentService creates an enrichment service. workers bounds the
// number of targets enriched at once.
func NewEnrichmentService(opts estimators.Options, workers int, logger *internal.Logger) (*EnrichmentService, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid estimator options: %w", err)
	}
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &EnrichmentService{
		opts:    opts,
		workers: int64(workers),
		logger:  logger.With("enrich"),
	}, nil
}

// Options returns the estimator settings in use
func (s *EnrichmentService) Options() estimators.Options {
	return s.opts
}

// Enrich validates, enriches and summarizes a metrics collection. Only an
// empty collection, or one in which no record survives validation, is a
// hard failure; per-target problems end up in Report.Rejected.
func (s *EnrichmentService) Enrich(ctx context.Context, source string, input map[string]metrics.RawMetricsRecord) (*metrics.Report, error) {
	startTime := time.Now()

	if len(input) == 0 {
		return nil, core.NewMalformedInputError("metrics collection is empty")
	}

	report := &metrics.Report{
		ID:          core.NewReportID(),
		GeneratedAt: startTime.UTC(),
		Source:      source,
		Z:           s.opts.Z,
		Records:     make(map[string]metrics.EnrichedMetricsRecord),
		Untrained:   make(map[string]metrics.MetricsRecord),
		Rejected:    make(map[string]*metrics.ValidationError),
	}

	// Validation is cheap and sequential; enrichment fans out below
	var trained []metrics.MetricsRecord
	var rejected []string
	hashFields := make(map[string]interface{}, len(input))
	accepted := make(map[string]bool, len(input))
	seen := make(map[string]string, len(input))
	failures := make(map[string]*metrics.ValidationError)
	for _, targetID := range sortedKeys(input) {
		rec, err := metrics.Validate(targetID, input[targetID])
		folded := core.TargetID(rec.TargetID).Fold()
		if first, dup := seen[folded]; err == nil && dup {
			err = &metrics.ValidationError{
				TargetID: targetID,
				Fields:   []metrics.FieldError{{Field: "target_id", Reason: fmt.Sprintf("duplicates %q", first)}},
			}
		}
		if err != nil {
			var verr *metrics.ValidationError
			if !stderrors.As(err, &verr) {
				return nil, fmt.Errorf("validating %s: %w", targetID, err)
			}
			s.logger.Warn("rejected %s: %v", targetID, verr)
			failures[targetID] = verr
			rejected = append(rejected, targetID)
			hashFields[targetID] = verr.Error()
			continue
		}

		seen[folded] = targetID
		accepted[rec.TargetID] = true
		hashFields[targetID] = rec
		if !rec.Status.IsTrained() {
			report.Untrained[rec.TargetID] = rec
			continue
		}
		trained = append(trained, rec)
	}
	report.InputHash = core.ComputeInputHash(hashFields)

	// Rejections are keyed by the trimmed caller id unless that key already
	// names an accepted record, in which case the raw key is used.
	for _, targetID := range rejected {
		key := strings.TrimSpace(targetID)
		if _, taken := report.Rejected[key]; key == "" || accepted[key] || taken {
			key = targetID
		}
		report.Rejected[key] = failures[targetID]
	}

	if len(rejected) == len(input) {
		errs := make([]error, 0, len(rejected))
		for _, targetID := range rejected {
			errs = append(errs, failures[targetID])
		}
		return nil, fmt.Errorf("%w: all %d targets failed validation: %w",
			core.ErrMalformedInput, len(input), stderrors.Join(errs...))
	}

	enriched, err := s.enrichAll(ctx, trained)
	if err != nil {
		return nil, err
	}
	for _, rec := range enriched {
		report.Records[rec.TargetID] = rec
	}

	summary, err := estimators.Summarize(enriched, s.opts.Z)
	switch {
	case stderrors.Is(err, core.ErrEmptyCorpus):
		report.SummaryNote = "no trained models"
	case err != nil:
		return nil, fmt.Errorf("summarizing corpus: %w", err)
	default:
		summary.UntrainedCount = len(report.Untrained)
		report.Summary = summary
	}

	s.logger.Info("report %s: %d enriched, %d untrained, %d rejected in %v",
		report.ID, len(report.Records), len(report.Untrained), len(report.Rejected), time.Since(startTime))

	return report, nil
}

// enrichAll enriches records concurrently, bounded by the worker count.
// Results keep the order of the input slice.
func (s *EnrichmentService) enrichAll(ctx context.Context, records []metrics.MetricsRecord) ([]metrics.EnrichedMetricsRecord, error) {
	results := make([]metrics.EnrichedMetricsRecord, len(records))
	sem := semaphore.NewWeighted(s.workers)
	g, gctx := errgroup.WithContext(ctx)

	for i, rec := range records {
		i, rec := i, rec
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			results[i] = estimators.Enrich(rec, s.opts)
			s.logger.Debug("enriched %s in %v", rec.TargetID, time.Since(start))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("enrichment cancelled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("enrichment cancelled: %w", err)
	}
	return results, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
