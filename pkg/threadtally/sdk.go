// Package threadtally provides a public SDK for embedding thread-title
// tallying in another Go program, the way the teacher's own pkg SDK
// wraps its engine behind functional options.
//
// Example usage:
//
//	analyzer := threadtally.New(
//	    threadtally.WithThreadDepth(500),
//	    threadtally.WithSelfValidation(""),
//	)
//
//	result, suggestions, err := analyzer.Analyze(context.Background(), rootURI)
package threadtally

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/threadtally/threadtally/internal/cluster"
	"github.com/threadtally/threadtally/internal/config"
	"github.com/threadtally/threadtally/internal/normalize"
	"github.com/threadtally/threadtally/internal/observability"
	"github.com/threadtally/threadtally/internal/pipeline"
	"github.com/threadtally/threadtally/internal/ratelimit"
	"github.com/threadtally/threadtally/internal/store"
	"github.com/threadtally/threadtally/internal/types"
	"github.com/threadtally/threadtally/internal/xrpc"
)

// Analyzer is the high-level API for running thread analyses as a
// library, without going through the CLI.
type Analyzer struct {
	cfg        *config.Config
	logger     *slog.Logger
	normalizer *normalize.Normalizer
	normErr    error
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithThreadDepth sets the reply-tree fetch depth requested on the
// initial root fetch.
func WithThreadDepth(depth int) Option {
	return func(a *Analyzer) { a.cfg.Crawler.ThreadDepth = depth }
}

// WithQuoteDepthCap bounds how deep quote-of-quote discovery goes.
func WithQuoteDepthCap(depth int) Option {
	return func(a *Analyzer) { a.cfg.Crawler.QuoteDepthCap = depth }
}

// WithRateLimit sets the token-bucket policy guarding every XRPC call.
func WithRateLimit(maxRequests int, window, minDelay time.Duration) Option {
	return func(a *Analyzer) {
		a.cfg.RateLimit.MaxRequests = maxRequests
		a.cfg.RateLimit.Window = window
		a.cfg.RateLimit.MinDelay = minDelay
	}
}

// WithCatalogPolicy selects the catalog-backed normalization policy,
// resolving candidate titles against an external media database.
func WithCatalogPolicy(endpoint, mediaHint string) Option {
	return func(a *Analyzer) {
		a.cfg.Normalize.Policy = "catalog"
		a.cfg.Normalize.CatalogEndpoint = endpoint
		a.cfg.Normalize.CatalogMediaHint = mediaHint
	}
}

// WithUserListPolicy selects the curated-list normalization policy.
func WithUserListPolicy(titles ...string) Option {
	return func(a *Analyzer) {
		a.cfg.Normalize.Policy = "user_list"
		a.cfg.Normalize.UserList = titles
	}
}

// WithSelfValidation selects the self-validating normalization policy,
// which derives category words from the thread's own root post text
// rather than an external truth source.
func WithSelfValidation(rootPromptText string) Option {
	return func(a *Analyzer) {
		a.cfg.Normalize.Policy = "self"
		a.cfg.Normalize.RootPromptText = rootPromptText
	}
}

// WithClusterThresholds overrides the cluster suggester's acceptance
// thresholds.
func WithClusterThresholds(ngram, levenshtein, minScore float64) Option {
	return func(a *Analyzer) {
		a.cfg.Cluster.NgramThreshold = ngram
		a.cfg.Cluster.LevenshteinThreshold = levenshtein
		a.cfg.Cluster.MinScore = minScore
	}
}

// WithVerbose enables debug-level logging.
func WithVerbose() Option {
	return func(a *Analyzer) { a.cfg.Logging.Level = "debug" }
}

// New creates an Analyzer with the given options, defaulting to the
// self-validation normalization policy with no root prompt hint.
func New(opts ...Option) *Analyzer {
	cfg := config.DefaultConfig()
	a := &Analyzer{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}

	level := slog.LevelInfo
	if a.cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	a.normalizer, a.normErr = buildNormalizer(a.cfg, a.logger)
	return a
}

func buildNormalizer(cfg *config.Config, logger *slog.Logger) (*normalize.Normalizer, error) {
	switch cfg.Normalize.Policy {
	case "catalog":
		client := normalize.NewCatalogClient(cfg.Normalize.CatalogEndpoint, cfg.Normalize.CatalogMediaHint, logger)
		return normalize.NewCatalogNormalizer(client, logger), nil
	case "user_list":
		entries := make([]normalize.ListEntry, 0, len(cfg.Normalize.UserList))
		for _, title := range cfg.Normalize.UserList {
			entries = append(entries, normalize.ListEntry{Title: title, Patterns: []string{title}})
		}
		return normalize.NewUserListNormalizer(entries, logger), nil
	case "self", "":
		return normalize.NewSelfValidatingNormalizer(cfg.Normalize.RootPromptText, logger), nil
	default:
		return nil, fmt.Errorf("unknown normalize policy %q", cfg.Normalize.Policy)
	}
}

// Analyze crawls and tallies the thread rooted at rootURI, returning the
// ranked tally and any cluster suggestions left over.
func (a *Analyzer) Analyze(ctx context.Context, rootURI string) (*types.AnalysisResult, []cluster.Suggestion, error) {
	if a.normErr != nil {
		return nil, nil, a.normErr
	}

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequests: a.cfg.RateLimit.MaxRequests,
		Window:      a.cfg.RateLimit.Window,
		MinDelay:    a.cfg.RateLimit.MinDelay,
	})
	xrpcClient := xrpc.New(xrpc.Config{
		BaseURL:         a.cfg.XRPC.BaseURL,
		RequestTimeout:  a.cfg.XRPC.RequestTimeout,
		MaxRetryBudget:  a.cfg.XRPC.MaxRetryBudget,
		IdleConnTimeout: a.cfg.XRPC.IdleConnTimeout,
		MaxIdleConns:    a.cfg.XRPC.MaxIdleConns,
	}, limiter)

	pcfg := pipeline.DefaultConfig()
	pcfg.Crawler.ThreadDepth = a.cfg.Crawler.ThreadDepth
	pcfg.Crawler.TruncatedFetchDepth = a.cfg.Crawler.TruncatedFetchDepth
	pcfg.Crawler.RecursionCap = a.cfg.Crawler.RecursionCap
	pcfg.Crawler.QuoteDepthCap = a.cfg.Crawler.QuoteDepthCap
	pcfg.Crawler.QuoteBatchSize = a.cfg.Crawler.QuoteBatchSize
	pcfg.Crawler.QuotePageSize = a.cfg.Crawler.QuotePageSize
	pcfg.Cluster = cluster.Config{
		NgramThreshold:       a.cfg.Cluster.NgramThreshold,
		LevenshteinThreshold: a.cfg.Cluster.LevenshteinThreshold,
		MinScore:             a.cfg.Cluster.MinScore,
	}

	pipe := pipeline.New(pcfg, xrpcClient, a.normalizer, a.logger, nil)
	return pipe.Run(ctx, rootURI, nil)
}

// NewFileStore creates a JSON-file-backed Store, convenient for callers
// embedding the SDK who want a one-line persistence story.
func NewFileStore(dir string, logger *slog.Logger) (store.Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return store.NewFileStore(dir, logger)
}

// Metrics exposes the observability counters an embedder may want to
// surface on its own status endpoint instead of starting the built-in
// server.
func Metrics(logger *slog.Logger) *observability.Metrics {
	return observability.NewMetrics(logger)
}
