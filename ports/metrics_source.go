package ports

import (
	"context"

	"goamr/domain/metrics"
)

// MetricsSource supplies raw per-target metrics keyed by target id.
// Implementations retrieve from files, spreadsheets, HTTP endpoints or a
// synthetic generator; validation happens downstream.
type MetricsSource interface {
	// Name identifies the source in reports and logs
	Name() string

	// FetchMetrics retrieves the current metrics collection. An unreachable
	// or unreadable source returns an error wrapping core.ErrSourceUnavailable.
	FetchMetrics(ctx context.Context) (map[string]metrics.RawMetricsRecord, error)
}
