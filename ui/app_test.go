package ui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"goamr/adapters/stats/estimators"
	"goamr/app"
	"goamr/domain/metrics"
	"goamr/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, withHistory bool) (*App, *app.ReportService) {
	t.Helper()
	enricher, err := app.NewEnrichmentService(estimators.DefaultOptions(), 2, nil)
	require.NoError(t, err)

	kit := testkit.NewTestKit(testkit.DefaultCorpusConfig())
	var service *app.ReportService
	if withHistory {
		service = app.NewReportService(kit.Source(), enricher, kit.Repository(), nil)
	} else {
		service = app.NewReportService(kit.Source(), enricher, nil, nil)
	}

	a, err := NewApp(service, Config{Port: "0"}, nil)
	require.NoError(t, err)
	return a, service
}

func get(a *App, path string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.ServeHTTP(w, req)
	return w
}

func storedReport(t *testing.T, service *app.ReportService) *metrics.Report {
	t.Helper()
	report, err := service.Build(context.Background(), "upload", map[string]metrics.RawMetricsRecord{
		"ampicillin":                    testkit.TrainedRecord(1842, 1104, 738, 0.94, 0.93, 0.97),
		"trimethoprim/sulfamethoxazole": testkit.TrainedRecord(900, 300, 600, 0.88, 0.85, 0.92),
	})
	require.NoError(t, err)
	return report
}

func TestLivePage(t *testing.T) {
	a, _ := newTestApp(t, false)

	w := get(a, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Model quality report")
	assert.Contains(t, w.Body.String(), `href="/targets/`)
	assert.NotContains(t, w.Body.String(), `href="/reports"`)
}

func TestLivePage_BadSort(t *testing.T) {
	a, _ := newTestApp(t, false)

	w := get(a, "/?sort=nope")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown sort key")
}

func TestLiveTarget(t *testing.T) {
	a, _ := newTestApp(t, false)
	names := testkit.NewCorpusGenerator(testkit.DefaultCorpusConfig()).TargetNames()

	// the first request builds the live report on demand
	var found bool
	for _, name := range names {
		w := get(a, "/targets/"+name)
		if w.Code == http.StatusOK {
			found = true
			assert.Contains(t, w.Body.String(), "Confusion matrix")
			break
		}
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
	assert.True(t, found, "expected at least one trained synthetic target")

	w := get(a, "/targets/not-a-drug")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStoredReportPages(t *testing.T) {
	a, service := newTestApp(t, true)
	report := storedReport(t, service)
	base := "/reports/" + report.ID.String()

	w := get(a, base)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), base+"/targets/trimethoprim/sulfamethoxazole")

	w = get(a, base+"/targets/trimethoprim/sulfamethoxazole")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<html")

	w = get(a, base+"/targets/AMPICILLIN", "HX-Request", "true")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "<html")
	assert.Contains(t, w.Body.String(), "ampicillin")

	w = get(a, "/reports")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), report.ID.String())
	assert.Contains(t, w.Body.String(), "upload")
}

func TestStoredReport_Errors(t *testing.T) {
	a, _ := newTestApp(t, true)

	assert.Equal(t, http.StatusBadRequest, get(a, "/reports/123").Code)
	assert.Equal(t, http.StatusNotFound, get(a, "/reports/0190a5f2-7c1e-7b3a-9d2e-4f6a8b0c1d2e").Code)
}

func TestHistoryDisabled(t *testing.T) {
	a, _ := newTestApp(t, false)

	w := get(a, "/reports")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "History storage is disabled")
}
