// Package pipeline wires the crawler, extractor, normalizer, attributor,
// and cluster suggester into the single top-level analysis run, mirroring
// the teacher's Engine lifecycle (atomic stats, state machine, structured
// logging) generalized from a web-crawl frontier to a one-shot thread
// analysis.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/threadtally/threadtally/internal/attribution"
	"github.com/threadtally/threadtally/internal/cluster"
	"github.com/threadtally/threadtally/internal/crawler"
	"github.com/threadtally/threadtally/internal/extractor"
	"github.com/threadtally/threadtally/internal/normalize"
	"github.com/threadtally/threadtally/internal/observability"
	"github.com/threadtally/threadtally/internal/threadbuilder"
	"github.com/threadtally/threadtally/internal/types"
	"github.com/threadtally/threadtally/internal/xrpc"
)

// State mirrors the teacher's crawl-lifecycle states, narrowed to a
// single-pass analysis run.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDone
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Stats tracks one run's progress, safe for concurrent reads while the
// crawler's progress callback fires from its own goroutines.
type Stats struct {
	PostsFetched    atomic.Int64
	CandidatesFound atomic.Int64
	Tallied         atomic.Int64
	Uncategorized   atomic.Int64
	StartTime       time.Time
}

// Snapshot returns a plain map suitable for logging or a status
// endpoint.
func (s *Stats) Snapshot() map[string]any {
	return map[string]any{
		"posts_fetched":    s.PostsFetched.Load(),
		"candidates_found": s.CandidatesFound.Load(),
		"tallied":          s.Tallied.Load(),
		"uncategorized":    s.Uncategorized.Load(),
		"elapsed":          time.Since(s.StartTime).String(),
	}
}

// StageFunc receives a human-readable progress update as the run
// advances through its stages.
type StageFunc func(stage string, detail string)

// Config bundles every component's configuration for one Pipeline.
type Config struct {
	Crawler        crawler.Config
	XRPC           xrpc.Config
	Builder        threadbuilder.Options
	Extractor      extractor.Config
	Cluster        cluster.Config
	OEmbedEndpoint string
}

// DefaultConfig composes every component's own defaults.
func DefaultConfig() Config {
	return Config{
		Crawler:   crawler.DefaultConfig(),
		XRPC:      xrpc.DefaultConfig(),
		Builder:   threadbuilder.Options{},
		Extractor: extractor.DefaultConfig(),
		Cluster:   cluster.DefaultConfig(),
	}
}

// Pipeline is the single logical producer/consumer chain described in
// spec.md §5: crawl feeds extraction, extraction feeds normalization,
// normalization and the raw post list feed attribution, and the residual
// uncategorized set feeds the cluster suggester.
type Pipeline struct {
	cfg        Config
	crawler    *crawler.Crawler
	extractor  *extractor.Extractor
	normalizer *normalize.Normalizer
	suggester  *cluster.Suggester
	logger     *slog.Logger
	metrics    *observability.Metrics

	state atomic.Int32
	stats Stats
}

// New creates a Pipeline. normalizer selects one of the three
// normalization policies (catalog/user-list/self-validation); the
// caller builds it via the normalize package's constructors. metrics may
// be nil, in which case run counters are tracked only in Stats.
func New(cfg Config, xrpcClient *xrpc.Client, normalizer *normalize.Normalizer, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	logger = logger.With("component", "pipeline")
	builder := threadbuilder.New(cfg.Builder, logger)
	ext := extractor.New(cfg.Extractor, logger)
	if cfg.OEmbedEndpoint != "" {
		ext.WithOEmbed(normalize.NewOEmbedClient(cfg.OEmbedEndpoint, logger))
	}
	return &Pipeline{
		cfg:        cfg,
		crawler:    crawler.New(xrpcClient, builder, cfg.Crawler, logger),
		extractor:  ext,
		normalizer: normalizer,
		suggester:  cluster.New(cfg.Cluster),
		logger:     logger,
		metrics:    metrics,
	}
}

// Run executes one full analysis pass rooted at rootURI: crawl, extract,
// normalize, attribute, and suggest clusters for the residual. On
// cancellation it aborts in-flight fetches best-effort and returns
// types.ErrCancelled with no partial result.
func (p *Pipeline) Run(ctx context.Context, rootURI string, onStage StageFunc) (*types.AnalysisResult, []cluster.Suggestion, error) {
	if onStage == nil {
		onStage = func(string, string) {}
	}
	p.state.Store(int32(StateRunning))
	p.stats = Stats{StartTime: time.Now()}
	if p.metrics != nil {
		p.metrics.RunsStarted.Add(1)
	}

	onStage("crawl", "fetching thread and quotes")
	tree, err := p.crawler.Crawl(ctx, rootURI, func(fetched int, stage crawler.Stage) {
		p.stats.PostsFetched.Store(int64(fetched))
		onStage("crawl", fmt.Sprintf("%s (%d fetched)", stage, fetched))
	})
	if ctx.Err() != nil {
		err = types.ErrCancelled
	}
	if err != nil {
		p.state.Store(int32(p.failureState(ctx)))
		if p.metrics != nil {
			p.metrics.RunsFailed.Add(1)
		}
		return nil, nil, err
	}

	posts := tree.Flatten()
	postsByURI := make(map[string]*types.Post, len(posts))
	for _, pst := range posts {
		postsByURI[pst.URI] = pst
	}

	onStage("extract", fmt.Sprintf("extracting candidates from %d posts", len(posts)))
	var allCandidates []types.Candidate
	for _, pst := range posts {
		var quoted *types.Post
		if pst.QuotedURI != "" {
			quoted = postsByURI[pst.QuotedURI]
		}
		cands := p.extractor.Extract(ctx, pst, quoted)
		allCandidates = append(allCandidates, cands...)
	}
	p.stats.CandidatesFound.Store(int64(len(allCandidates)))

	onStage("normalize", fmt.Sprintf("validating %d candidates", len(allCandidates)))
	groups, err := p.normalizer.Normalize(ctx, allCandidates, posts)
	if ctx.Err() != nil {
		err = types.ErrCancelled
	}
	if err != nil {
		p.state.Store(int32(p.failureState(ctx)))
		if p.metrics != nil {
			p.metrics.RunsFailed.Add(1)
		}
		return nil, nil, err
	}

	onStage("attribute", "computing per-post attribution")
	result := attribution.Attribute(posts, groups, rootURI)
	p.stats.Tallied.Store(int64(len(result.Tally)))
	p.stats.Uncategorized.Store(int64(len(result.Uncategorized)))

	onStage("cluster", fmt.Sprintf("suggesting clusters for %d uncategorized posts", len(result.Uncategorized)))
	canonicalTitles := make([]types.CanonicalTitle, 0, len(groups))
	for _, g := range groups {
		canonicalTitles = append(canonicalTitles, types.CanonicalTitle{
			Title:       g.Title,
			Fingerprint: normalize.Fingerprint(g.Title),
			Aliases:     g.Aliases,
		})
	}
	suggestions := p.suggester.Suggest(result.Uncategorized, canonicalTitles)

	p.state.Store(int32(StateDone))
	if p.metrics != nil {
		p.metrics.RunsSucceeded.Add(1)
		p.metrics.PostsFetched.Add(int64(len(posts)))
		p.metrics.CandidatesFound.Add(int64(len(allCandidates)))
		p.metrics.TitlesTallied.Add(int64(len(result.Tally)))
		p.metrics.Uncategorized.Add(int64(len(result.Uncategorized)))
		p.metrics.ClusterSuggested.Add(int64(len(suggestions)))
	}
	return &result, suggestions, nil
}

// failureState distinguishes a cancelled run from a genuine failure so
// State reflects the cause.
func (p *Pipeline) failureState(ctx context.Context) State {
	if ctx.Err() != nil {
		return StateCancelled
	}
	return StateFailed
}

// State returns the run's current lifecycle state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Stats returns a snapshot of the current run's counters.
func (p *Pipeline) Stats() map[string]any {
	return p.stats.Snapshot()
}
