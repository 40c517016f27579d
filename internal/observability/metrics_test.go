package observability

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetricsServeHTTPExposesCounters(t *testing.T) {
	m := NewMetrics(slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.PostsFetched.Add(42)
	m.RunsSucceeded.Add(1)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "threadtally_posts_fetched_total 42") {
		t.Errorf("expected posts_fetched counter in output, got:\n%s", body)
	}
	if !strings.Contains(body, "threadtally_runs_succeeded_total 1") {
		t.Errorf("expected runs_succeeded counter in output, got:\n%s", body)
	}
}

func TestMetricsSnapshotReflectsUpdates(t *testing.T) {
	m := NewMetrics(slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.CandidatesFound.Add(7)

	snap := m.Snapshot()
	if snap["candidates_found"] != 7 {
		t.Errorf("expected candidates_found=7 in snapshot, got %d", snap["candidates_found"])
	}
}
