package crawler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/threadtally/threadtally/internal/ratelimit"
	"github.com/threadtally/threadtally/internal/threadbuilder"
	"github.com/threadtally/threadtally/internal/xrpc"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeServer serves getPostThread/getQuotes from canned per-URI fixtures,
// mirroring the teacher's httptest-based fetcher tests.
type fakeServer struct {
	threads map[string]xrpc.RawThreadNode
	quotes  map[string][]xrpc.RawPost
}

func newFakeServer(fs *fakeServer) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/xrpc/app.bsky.feed.getPostThread", func(w http.ResponseWriter, r *http.Request) {
		uri := r.URL.Query().Get("uri")
		node, ok := fs.threads[uri]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(xrpc.GetPostThreadOutput{Thread: node})
	})
	mux.HandleFunc("/xrpc/app.bsky.feed.getQuotes", func(w http.ResponseWriter, r *http.Request) {
		uri := r.URL.Query().Get("uri")
		posts := fs.quotes[uri]
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(xrpc.GetQuotesOutput{Posts: posts})
	})
	return httptest.NewServer(mux)
}

func post(uri string, replyCount int) *xrpc.RawPost {
	return &xrpc.RawPost{URI: uri, AuthorDID: "did:plc:" + uri, Text: "text " + uri, CreatedAt: time.Now(), ReplyCount: replyCount}
}

func newCrawlerForTest(fs *fakeServer) (*Crawler, func()) {
	srv := newFakeServer(fs)
	limiter := ratelimit.New(ratelimit.Config{MaxRequests: 1000, Window: time.Minute, MinDelay: 0})
	client := xrpc.New(xrpc.Config{BaseURL: srv.URL, RequestTimeout: 5 * time.Second, MaxRetryBudget: 1}, limiter)
	builder := threadbuilder.New(threadbuilder.Options{}, testLogger)
	cfg := DefaultConfig()
	cfg.RecursionCap = 3
	cfg.QuoteDepthCap = 2
	c := New(client, builder, cfg, testLogger)
	return c, srv.Close
}

func TestCrawlFollowsUpTruncatedSubtree(t *testing.T) {
	fs := &fakeServer{
		threads: map[string]xrpc.RawThreadNode{
			"root": {
				Post: post("root", 1),
				Replies: []xrpc.RawThreadNode{
					{Post: post("c1", 3)},
				},
			},
			"c1": {
				Post: post("c1", 3),
				Replies: []xrpc.RawThreadNode{
					{Post: post("c1-1", 0)},
					{Post: post("c1-2", 0)},
					{Post: post("c1-3", 0)},
				},
			},
		},
		quotes: map[string][]xrpc.RawPost{},
	}

	c, closeFn := newCrawlerForTest(fs)
	defer closeFn()

	tree, err := c.Crawl(context.Background(), "root", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := tree.Post("c1-2"); !ok {
		t.Fatalf("expected c1-2 merged in from truncation follow-up, posts=%d", len(tree.AllPosts))
	}
	if len(tree.AllPosts) != 5 { // root, c1, c1-1, c1-2, c1-3
		t.Errorf("expected 5 posts, got %d", len(tree.AllPosts))
	}
}

func TestCrawlDiscoversAndRecursesIntoQuotes(t *testing.T) {
	fs := &fakeServer{
		threads: map[string]xrpc.RawThreadNode{
			"root": {Post: post("root", 0)},
			"q1":   {Post: post("q1", 1), Replies: []xrpc.RawThreadNode{{Post: post("q1-reply", 0)}}},
		},
		quotes: map[string][]xrpc.RawPost{
			"root": {*post("q1", 1)},
			"q1":   {},
		},
	}

	c, closeFn := newCrawlerForTest(fs)
	defer closeFn()

	var stages []Stage
	tree, err := c.Crawl(context.Background(), "root", func(_ int, s Stage) { stages = append(stages, s) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := tree.Post("q1"); !ok {
		t.Fatalf("expected quote post q1 present")
	}
	if _, ok := tree.Post("q1-reply"); !ok {
		t.Fatalf("expected q1's own reply merged in via recursive quote-subtree fetch")
	}
	if len(stages) == 0 {
		t.Errorf("expected progress callback to fire")
	}
}

func TestCrawlRootUnavailableIsFatal(t *testing.T) {
	fs := &fakeServer{threads: map[string]xrpc.RawThreadNode{}, quotes: map[string][]xrpc.RawPost{}}
	c, closeFn := newCrawlerForTest(fs)
	defer closeFn()

	_, err := c.Crawl(context.Background(), "missing", nil)
	if err == nil {
		t.Fatalf("expected error for unfetchable root")
	}
}

func TestCrawlSkipsUnfetchableSubtreeWithoutFailingRun(t *testing.T) {
	fs := &fakeServer{
		threads: map[string]xrpc.RawThreadNode{
			"root": {
				Post: post("root", 1),
				Replies: []xrpc.RawThreadNode{
					{Post: post("c1", 2)},
				},
			},
			// c1 declares 2 replies but delivers none inline, and its own
			// follow-up fetch ("c1") is intentionally omitted from
			// fs.threads to simulate a disappeared subtree.
		},
		quotes: map[string][]xrpc.RawPost{},
	}

	c, closeFn := newCrawlerForTest(fs)
	defer closeFn()

	tree, err := c.Crawl(context.Background(), "root", nil)
	if err != nil {
		t.Fatalf("unexpected fatal error from unfetchable subtree: %v", err)
	}
	if len(tree.AllPosts) != 2 {
		t.Errorf("expected root+c1 only, got %d", len(tree.AllPosts))
	}
}
