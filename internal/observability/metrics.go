package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational metrics for one or more analysis runs.
type Metrics struct {
	// XRPC request metrics
	RequestsTotal   atomic.Int64
	RequestsFailed  atomic.Int64
	RequestsRetried atomic.Int64
	RateLimitWaits  atomic.Int64

	// Crawl metrics
	PostsFetched       atomic.Int64
	TruncatedSubtrees  atomic.Int64
	QuotePostsFound    atomic.Int64
	UnfetchableSkipped atomic.Int64

	// Extraction/normalization metrics
	CandidatesFound  atomic.Int64
	TitlesTallied    atomic.Int64
	Uncategorized    atomic.Int64
	ClusterSuggested atomic.Int64

	// Run metrics
	RunsStarted   atomic.Int64
	RunsSucceeded atomic.Int64
	RunsFailed    atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"threadtally_requests_total", "Total XRPC requests made", m.RequestsTotal.Load()},
		{"threadtally_requests_failed_total", "Total failed XRPC requests", m.RequestsFailed.Load()},
		{"threadtally_requests_retried_total", "Total retried XRPC requests", m.RequestsRetried.Load()},
		{"threadtally_rate_limit_waits_total", "Total times the rate limiter made a caller wait", m.RateLimitWaits.Load()},
		{"threadtally_posts_fetched_total", "Total posts fetched across all runs", m.PostsFetched.Load()},
		{"threadtally_truncated_subtrees_total", "Total truncated subtrees followed up", m.TruncatedSubtrees.Load()},
		{"threadtally_quote_posts_found_total", "Total quote posts discovered", m.QuotePostsFound.Load()},
		{"threadtally_unfetchable_skipped_total", "Total subtrees skipped as unfetchable", m.UnfetchableSkipped.Load()},
		{"threadtally_candidates_found_total", "Total raw title candidates extracted", m.CandidatesFound.Load()},
		{"threadtally_titles_tallied_total", "Total distinct titles tallied", m.TitlesTallied.Load()},
		{"threadtally_uncategorized_total", "Total posts left uncategorized", m.Uncategorized.Load()},
		{"threadtally_cluster_suggested_total", "Total cluster suggestions generated", m.ClusterSuggested.Load()},
		{"threadtally_runs_started_total", "Total analysis runs started", m.RunsStarted.Load()},
		{"threadtally_runs_succeeded_total", "Total analysis runs that completed", m.RunsSucceeded.Load()},
		{"threadtally_runs_failed_total", "Total analysis runs that failed", m.RunsFailed.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP server.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Snapshot returns all metrics as a map, suitable for logging.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"requests_total":      m.RequestsTotal.Load(),
		"requests_failed":     m.RequestsFailed.Load(),
		"requests_retried":    m.RequestsRetried.Load(),
		"rate_limit_waits":    m.RateLimitWaits.Load(),
		"posts_fetched":       m.PostsFetched.Load(),
		"truncated_subtrees":  m.TruncatedSubtrees.Load(),
		"quote_posts_found":   m.QuotePostsFound.Load(),
		"unfetchable_skipped": m.UnfetchableSkipped.Load(),
		"candidates_found":    m.CandidatesFound.Load(),
		"titles_tallied":      m.TitlesTallied.Load(),
		"uncategorized":       m.Uncategorized.Load(),
		"cluster_suggested":   m.ClusterSuggested.Load(),
		"runs_started":        m.RunsStarted.Load(),
		"runs_succeeded":      m.RunsSucceeded.Load(),
		"runs_failed":         m.RunsFailed.Load(),
	}
}
