package serve

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msqc/domain/core"
	"msqc/domain/qc"
	"msqc/internal/export"
	"msqc/ports"
)

type fakeHistory struct {
	runs   []ports.RunRecord
	points []ports.TrendPoint
}

func (f *fakeHistory) SaveRun(ctx context.Context, rec ports.RunRecord) error {
	f.runs = append(f.runs, rec)
	return nil
}

func (f *fakeHistory) ListRuns(ctx context.Context, limit int) ([]ports.RunRecord, error) {
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

func (f *fakeHistory) Trend(ctx context.Context, id core.MetricID, limit int) ([]ports.TrendPoint, error) {
	return f.points, nil
}

func (f *fakeHistory) Close() error { return nil }

func reportDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	hm := qc.NewHeatMap([]string{"a", "b"})
	hm.AddRow("sum.msms_id_rate", "MS/MS identification rate")
	hm.Set("sum.msms_id_rate", "a", 0.25)
	require.NoError(t, export.WriteHeatMap(filepath.Join(dir, export.HeatMapFile), hm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.html"), []byte("<html>report</html>"), 0o644))
	return dir
}

func TestScoresEndpoint(t *testing.T) {
	s := New(reportDir(t), ":0")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scores", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var matrix scoreMatrix
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matrix))
	assert.Equal(t, []string{"a", "b"}, matrix.Samples)
	require.Len(t, matrix.Rows, 1)
	assert.Equal(t, "sum.msms_id_rate", matrix.Rows[0].MetricID)
	require.NotNil(t, matrix.Rows[0].Cells["a"])
	assert.InDelta(t, 0.25, *matrix.Rows[0].Cells["a"], 1e-9)
	assert.Nil(t, matrix.Rows[0].Cells["b"], "null cell stays null in the API")
}

func TestScoresEndpointWithoutReport(t *testing.T) {
	s := New(t.TempDir(), ":0")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scores", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaticReportServed(t *testing.T) {
	s := New(reportDir(t), ":0")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report.html", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "report")
}

func TestRunsAndTrendEndpoints(t *testing.T) {
	finished := time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC)
	h := &fakeHistory{
		runs: []ports.RunRecord{{
			RunID:      "run-a",
			Source:     "maxquant txt directory testdata",
			FinishedAt: finished,
			Scores: []ports.ScoreRecord{
				{MetricID: "sum.msms_id_rate", Status: "scored", Score: 0.8},
				{MetricID: "par.settings", Status: "populated", Score: math.NaN()},
			},
		}},
		points: []ports.TrendPoint{{RunID: "run-a", FinishedAt: finished, Score: 0.8}},
	}
	s := New(reportDir(t), ":0", WithHistory(h))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	require.Len(t, runs[0].Scores, 2)
	require.NotNil(t, runs[0].Scores[0].Score)
	assert.InDelta(t, 0.8, *runs[0].Scores[0].Score, 1e-9)
	assert.Nil(t, runs[0].Scores[1].Score, "unscored units serialize as null")

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trend/sum.msms_id_rate", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var points []trendResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 1)
	assert.Equal(t, "run-a", points[0].RunID)
}

func TestHistoryEndpointsDisabledWithoutStore(t *testing.T) {
	s := New(reportDir(t), ":0")

	for _, path := range []string{"/api/runs", "/api/trend/sum.msms_id_rate"} {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	s := New(reportDir(t), ":0")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "msqc_serve_requests_total")
	assert.Contains(t, rec.Body.String(), `route="/healthz"`)
	assert.Contains(t, rec.Body.String(), "msqc_serve_report_built_at_seconds")
}

func TestQueryLimit(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/runs?limit=5", nil)
	assert.Equal(t, 5, queryLimit(r, 20))

	r = httptest.NewRequest(http.MethodGet, "/api/runs?limit=junk", nil)
	assert.Equal(t, 20, queryLimit(r, 20))

	r = httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	assert.Equal(t, 20, queryLimit(r, 20))
}
