// Package file reads metrics collections from JSON files on disk, such as
// the metrics.json written by a training run.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"goamr/adapters/payload"
	"goamr/domain/core"
	"goamr/domain/metrics"
	"goamr/ports"
)

// Source implements ports.MetricsSource over a JSON file
type Source struct {
	path    string
	decoder *payload.Decoder
}

var _ ports.MetricsSource = (*Source)(nil)

// NewSource creates a file source. dataPath is passed to the payload decoder.
func NewSource(path, dataPath string) *Source {
	return &Source{path: path, decoder: payload.NewDecoder(dataPath)}
}

func (s *Source) Name() string {
	return "file:" + filepath.Base(s.path)
}

// FetchMetrics reads and decodes the file. A missing or unreadable file is a
// source failure; undecodable content is malformed input.
func (s *Source) FetchMetrics(ctx context.Context) (map[string]metrics.RawMetricsRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := os.ReadFile(s.path)
	if err != nil {
		return nil, core.NewSourceError(s.Name(), err)
	}

	records, err := s.decoder.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.path, err)
	}
	return records, nil
}
