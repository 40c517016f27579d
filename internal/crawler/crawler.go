// Package crawler orchestrates the XRPC client and thread builder: it
// fetches the root thread, follows up on truncated subtrees, discovers
// and fetches quote-posts recursively (transitively, up to a depth cap),
// and returns the merged tree. Generalizes the teacher's Engine/Scheduler
// worker-pool idiom from an unbounded web-crawl frontier to a depth-
// capped, quote-aware recursive walk over one thread.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/threadtally/threadtally/internal/threadbuilder"
	"github.com/threadtally/threadtally/internal/types"
	"github.com/threadtally/threadtally/internal/xrpc"
)

// Stage identifies which fetch phase is in progress, reported through
// the progress callback.
type Stage string

const (
	StageThread    Stage = "thread"
	StageTruncated Stage = "truncated"
	StageQuotes    Stage = "quotes"
	StageRecursive Stage = "recursive"
)

// ProgressFunc receives the cumulative fetch count and the stage it was
// incurred in, per spec.md §4.3's progress-reporting contract.
type ProgressFunc func(fetched int, stage Stage)

// Config tunes the crawl's depth/recursion/pagination/concurrency knobs.
type Config struct {
	// ThreadDepth is the reply-tree height requested on the initial
	// root fetch (spec.md calls for "a large reply-depth parameter").
	ThreadDepth int

	// TruncatedFetchDepth is the (lower) depth used for follow-up
	// fetches rooted at a truncated node.
	TruncatedFetchDepth int

	// RecursionCap bounds how many times a truncated subtree may itself
	// be found truncated and re-fetched. Default 5.
	RecursionCap int

	// QuoteDepthCap bounds how deep quote-of-quote discovery goes;
	// posts discovered beyond the cap still contribute their replies
	// but not their own quotes. Default 5.
	QuoteDepthCap int

	// QuoteBatchSize bounds how many quote-subtree fetches run
	// concurrently. Default 5.
	QuoteBatchSize int

	// QuotePageSize bounds the getQuotes page size. Default 100.
	QuotePageSize int
}

// DefaultConfig matches the defaults named throughout spec.md §4.3.
func DefaultConfig() Config {
	return Config{
		ThreadDepth:         1000,
		TruncatedFetchDepth: 100,
		RecursionCap:        5,
		QuoteDepthCap:       5,
		QuoteBatchSize:      5,
		QuotePageSize:       100,
	}
}

// Crawler fetches and assembles one analysis run's full working set.
type Crawler struct {
	client  *xrpc.Client
	builder *threadbuilder.Builder
	cfg     Config
	logger  *slog.Logger

	visited sync.Map // string uri -> struct{}
	fetched int
	mu      sync.Mutex // guards fetched counter
}

// New creates a Crawler.
func New(client *xrpc.Client, builder *threadbuilder.Builder, cfg Config, logger *slog.Logger) *Crawler {
	return &Crawler{client: client, builder: builder, cfg: cfg, logger: logger.With("component", "crawler")}
}

// Crawl performs the full recursive fetch described in spec.md §4.3 and
// returns the merged tree. Root-thread fetch failures are fatal
// (types.ErrNoPosts); sub-fetch failures are logged and skipped.
func (c *Crawler) Crawl(ctx context.Context, rootURI string, progress ProgressFunc) (*types.ThreadTree, error) {
	if progress == nil {
		progress = func(int, Stage) {}
	}

	out, err := c.client.GetPostThread(ctx, rootURI, c.cfg.ThreadDepth, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrNoPosts, err)
	}
	c.countFetch(progress, StageThread)

	tree, err := c.builder.Build(out.Thread)
	if err != nil {
		return nil, err // ErrRootUnavailable
	}
	c.markVisited(tree)

	c.followUpTruncated(ctx, tree, 0, progress)
	c.discoverQuotes(ctx, tree, rootURI, 0, progress)

	return tree, nil
}

// markVisited records every post already in tree as visited.
func (c *Crawler) markVisited(tree *types.ThreadTree) {
	for _, p := range tree.AllPosts {
		c.visited.Store(p.URI, struct{}{})
	}
}

func (c *Crawler) isVisited(uri string) bool {
	_, ok := c.visited.Load(uri)
	return ok
}

func (c *Crawler) markOneVisited(uri string) {
	c.visited.Store(uri, struct{}{})
}

func (c *Crawler) countFetch(progress ProgressFunc, stage Stage) {
	c.mu.Lock()
	c.fetched++
	n := c.fetched
	c.mu.Unlock()
	progress(n, stage)
}

// followUpTruncated re-fetches every truncated subtree recorded on tree,
// merging the results and re-fetching any further truncations found,
// up to cfg.RecursionCap levels deep.
func (c *Crawler) followUpTruncated(ctx context.Context, tree *types.ThreadTree, recursionDepth int, progress ProgressFunc) {
	if recursionDepth >= c.cfg.RecursionCap {
		return
	}
	pending := tree.TruncatedPosts
	tree.TruncatedPosts = nil // will be repopulated by sub.TruncatedPosts via Merge

	for _, rec := range pending {
		if ctx.Err() != nil {
			return
		}
		out, err := c.client.GetPostThread(ctx, rec.URI, c.cfg.TruncatedFetchDepth, 0)
		if err != nil {
			c.logger.Warn("truncated subtree fetch failed, skipping", "uri", rec.URI, "error", err)
			continue
		}
		c.countFetch(progress, StageTruncated)

		sub, err := c.builder.Build(out.Thread)
		if err != nil {
			c.logger.Warn("truncated subtree build failed, skipping", "uri", rec.URI, "error", err)
			continue
		}
		tree.Merge(sub)
		c.markVisited(sub)
	}

	if len(tree.TruncatedPosts) > 0 {
		c.followUpTruncated(ctx, tree, recursionDepth+1, progress)
	}
}

// discoverQuotes paginates the quotes endpoint for rootURI, fetches each
// newly-discovered quote's own subtree with bounded parallelism, and
// recurses into quote-of-quote discovery up to cfg.QuoteDepthCap.
func (c *Crawler) discoverQuotes(ctx context.Context, tree *types.ThreadTree, rootURI string, depth int, progress ProgressFunc) {
	var cursor string
	for {
		if ctx.Err() != nil {
			return
		}
		page, err := c.client.GetQuotes(ctx, rootURI, cursor, c.cfg.QuotePageSize)
		if err != nil {
			c.logger.Warn("quotes page fetch failed, stopping pagination", "uri", rootURI, "error", err)
			return
		}
		c.countFetch(progress, StageQuotes)

		var newURIs []string
		for _, rp := range page.Posts {
			if c.isVisited(rp.URI) {
				continue
			}
			c.markOneVisited(rp.URI)
			p := convertQuotePost(&rp)
			tree.AddPost(p, "") // quote posts have no parent edge into this thread
			newURIs = append(newURIs, rp.URI)
		}

		c.fetchQuoteSubtreesBatched(ctx, tree, newURIs, depth, progress)

		if page.Cursor == "" {
			return
		}
		cursor = page.Cursor
	}
}

// fetchQuoteSubtreesBatched fetches each quote's own reply subtree with
// bounded parallelism (cfg.QuoteBatchSize), merges results, and — only
// while depth is within cfg.QuoteDepthCap — recurses into that quote's
// own quote-discovery.
func (c *Crawler) fetchQuoteSubtreesBatched(ctx context.Context, tree *types.ThreadTree, uris []string, depth int, progress ProgressFunc) {
	if len(uris) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.QuoteBatchSize)

	var mu sync.Mutex
	for _, uri := range uris {
		uri := uri
		g.Go(func() error {
			out, err := c.client.GetPostThread(gctx, uri, c.cfg.ThreadDepth, 0)
			if err != nil {
				c.logger.Warn("quote subtree fetch failed, skipping", "uri", uri, "error", err)
				return nil // sub-fetch failures are logged and skipped, never fatal
			}
			c.countFetch(progress, StageRecursive)

			sub, err := c.builder.Build(out.Thread)
			if err != nil {
				c.logger.Warn("quote subtree build failed, skipping", "uri", uri, "error", err)
				return nil
			}

			mu.Lock()
			tree.Merge(sub)
			mu.Unlock()
			c.markVisited(sub)

			if depth+1 < c.cfg.QuoteDepthCap {
				c.discoverQuotes(gctx, tree, uri, depth+1, progress)
			}
			return nil
		})
	}
	_ = g.Wait() // errors already logged per-subtree; never propagated as fatal
}

// convertQuotePost maps a quote-endpoint post (no parent/reply context)
// into the domain Post value object.
func convertQuotePost(rp *xrpc.RawPost) *types.Post {
	p := &types.Post{
		URI:        rp.URI,
		CID:        rp.CID,
		Author:     types.Author{DID: rp.AuthorDID, Handle: rp.AuthorHandle},
		Text:       rp.Text,
		CreatedAt:  rp.CreatedAt,
		QuotedURI:  rp.QuotedURI,
		ReplyCount: rp.ReplyCount,
	}
	for _, m := range rp.Media {
		p.Media = append(p.Media, types.MediaItem{URL: m.URL, AltText: m.AltText})
	}
	if rp.Link != nil {
		p.Link = &types.LinkCard{URI: rp.Link.URI, Title: rp.Link.Title, Description: rp.Link.Description}
	}
	return p
}
