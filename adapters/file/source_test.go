package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"goamr/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSource_FetchMetrics(t *testing.T) {
	path := writeFile(t, `{"ampicillin": {"status": "trained", "cv_accuracy": 0.9}}`)
	source := NewSource(path, "")

	got, err := source.FetchMetrics(context.Background())
	require.NoError(t, err)
	require.Contains(t, got, "ampicillin")
	assert.Equal(t, 0.9, *got["ampicillin"].Accuracy)
	assert.Equal(t, "file:metrics.json", source.Name())
}

func TestSource_MissingFile(t *testing.T) {
	source := NewSource(filepath.Join(t.TempDir(), "absent.json"), "")

	_, err := source.FetchMetrics(context.Background())
	assert.True(t, errors.Is(err, core.ErrSourceUnavailable))
}

func TestSource_MalformedFile(t *testing.T) {
	source := NewSource(writeFile(t, `not json`), "")

	_, err := source.FetchMetrics(context.Background())
	assert.True(t, errors.Is(err, core.ErrMalformedInput))
}
