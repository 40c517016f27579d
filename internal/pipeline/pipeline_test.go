package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/threadtally/threadtally/internal/normalize"
	"github.com/threadtally/threadtally/internal/observability"
	"github.com/threadtally/threadtally/internal/ratelimit"
	"github.com/threadtally/threadtally/internal/xrpc"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func post(uri, authorDID, text string, replyCount int) *xrpc.RawPost {
	return &xrpc.RawPost{URI: uri, AuthorDID: authorDID, Text: text, CreatedAt: time.Now(), ReplyCount: replyCount}
}

func TestPipelineRunEndToEndSelfValidation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/xrpc/app.bsky.feed.getPostThread", func(w http.ResponseWriter, r *http.Request) {
		uri := r.URL.Query().Get("uri")
		var node xrpc.RawThreadNode
		switch uri {
		case "root":
			node = xrpc.RawThreadNode{
				Post: post("root", "did:plc:asker", "what is your favorite comfort show?", 2),
				Replies: []xrpc.RawThreadNode{
					{Post: post("r1", "did:plc:a", "I think Cowboy Bebop is clearly the best one out there by a mile", 0)},
					{Post: post("r2", "did:plc:b", "honestly Cowboy Bebop is just better than anything else out there period", 0)},
				},
			}
		default:
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(xrpc.GetPostThreadOutput{Thread: node})
	})
	mux.HandleFunc("/xrpc/app.bsky.feed.getQuotes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(xrpc.GetQuotesOutput{})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	limiter := ratelimit.New(ratelimit.Config{MaxRequests: 1000, Window: time.Minute})
	client := xrpc.New(xrpc.Config{BaseURL: srv.URL, RequestTimeout: 5 * time.Second, MaxRetryBudget: 1}, limiter)
	normalizer := normalize.NewSelfValidatingNormalizer("what is your favorite comfort show?", testLogger)

	p := New(DefaultConfig(), client, normalizer, testLogger, observability.NewMetrics(testLogger))

	var stages []string
	result, suggestions, err := p.Run(context.Background(), "root", func(stage, detail string) {
		stages = append(stages, stage)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Tally) != 1 || result.Tally[0].Title != "Cowboy Bebop" || result.Tally[0].Count != 2 {
		t.Fatalf("expected Cowboy Bebop tallied twice, got %+v", result.Tally)
	}
	if p.State() != StateDone {
		t.Errorf("expected StateDone, got %v", p.State())
	}
	if len(stages) == 0 {
		t.Errorf("expected stage callbacks to fire")
	}
	_ = suggestions
}

func TestPipelineRunFailsOnUnfetchableRoot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/xrpc/app.bsky.feed.getPostThread", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	limiter := ratelimit.New(ratelimit.Config{MaxRequests: 1000, Window: time.Minute})
	client := xrpc.New(xrpc.Config{BaseURL: srv.URL, RequestTimeout: 5 * time.Second, MaxRetryBudget: 1}, limiter)
	normalizer := normalize.NewSelfValidatingNormalizer("what is your favorite show?", testLogger)

	p := New(DefaultConfig(), client, normalizer, testLogger, observability.NewMetrics(testLogger))
	_, _, err := p.Run(context.Background(), "missing", nil)
	if err == nil {
		t.Fatalf("expected error for unfetchable root")
	}
	if p.State() != StateFailed {
		t.Errorf("expected StateFailed, got %v", p.State())
	}
}
