// Package threadbuilder turns the remote thread API's recursive reply
// payload into the in-memory types.ThreadTree: parent edges, traversal
// order, truncation records for under-delivered subtrees, and the
// restricted/deleted/blocked bookkeeping spec.md §4.2 requires.
package threadbuilder

import (
	"log/slog"

	"github.com/threadtally/threadtally/internal/types"
	"github.com/threadtally/threadtally/internal/xrpc"
)

// Options controls the descent, in particular the optional branching-
// factor cap supplemented from the getPostThreadV2-shaped reference
// (see DESIGN.md / SPEC_FULL.md "Supplemented features").
type Options struct {
	// MaxChildrenPerNode caps how many children of a single node are
	// descended into; 0 means unlimited. Children beyond the cap are
	// recorded as an additional truncation record rather than dropped
	// silently.
	MaxChildrenPerNode int
}

// Builder constructs types.ThreadTree values from raw XRPC payloads.
type Builder struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Builder.
func New(opts Options, logger *slog.Logger) *Builder {
	return &Builder{opts: opts, logger: logger.With("component", "threadbuilder")}
}

// Build performs the recursive descent described in spec.md §4.2. It
// fails with types.ErrRootUnavailable if the root node itself is
// deleted, blocked, or auth-required; otherwise it never fails — missing
// or unreadable subtrees simply shrink the resulting tree.
func (b *Builder) Build(root xrpc.RawThreadNode) (*types.ThreadTree, error) {
	if root.Post == nil {
		b.logger.Warn("root post unavailable", "deleted", root.Deleted != nil, "blocked", root.Blocked != nil, "auth_required", root.AuthRequired != nil)
		return nil, types.ErrRootUnavailable
	}

	tree := types.NewThreadTree()
	rootPost := convertPost(root.Post)
	tree.Root = rootPost
	tree.AddPost(rootPost, "")

	b.descend(tree, root, rootPost.URI)
	return tree, nil
}

// descend walks node's children, indexing valid posts into tree and
// recording truncation/restriction bookkeeping. parentURI is the URI of
// the node whose children are being processed.
func (b *Builder) descend(tree *types.ThreadTree, node xrpc.RawThreadNode, parentURI string) {
	children := node.Replies
	capped := children
	overflow := 0
	if b.opts.MaxChildrenPerNode > 0 && len(children) > b.opts.MaxChildrenPerNode {
		capped = children[:b.opts.MaxChildrenPerNode]
		overflow = len(children) - b.opts.MaxChildrenPerNode
	}

	delivered := 0
	for _, child := range capped {
		switch {
		case child.Deleted != nil:
			b.logger.Debug("dropped deleted node", "uri", child.Deleted.URI)
		case child.Blocked != nil:
			b.logger.Debug("dropped blocked node", "uri", child.Blocked.URI)
		case child.AuthRequired != nil:
			b.logger.Debug("restricted node, not descending", "uri", child.AuthRequired.URI)
			tree.RestrictedPosts = append(tree.RestrictedPosts, child.AuthRequired.URI)
		case child.Post != nil:
			p := convertPost(child.Post)
			tree.AddPost(p, parentURI)
			delivered++
			b.descend(tree, child, p.URI)
		}
	}

	declared := 0
	if node.Post != nil {
		declared = node.Post.ReplyCount
	}
	if declared > delivered {
		tree.TruncatedPosts = append(tree.TruncatedPosts, types.TruncationRecord{
			URI:       parentURI,
			Declared:  declared,
			Delivered: delivered,
		})
	}
	if overflow > 0 {
		tree.TruncatedPosts = append(tree.TruncatedPosts, types.TruncationRecord{
			URI:       parentURI,
			Declared:  declared + overflow,
			Delivered: delivered,
		})
	}
}

// convertPost maps the wire shape to the domain Post value object.
func convertPost(rp *xrpc.RawPost) *types.Post {
	p := &types.Post{
		URI:         rp.URI,
		CID:         rp.CID,
		Author:      types.Author{DID: rp.AuthorDID, Handle: rp.AuthorHandle},
		Text:        rp.Text,
		CreatedAt:   rp.CreatedAt,
		ParentURI:   rp.ParentURI,
		QuotedURI:   rp.QuotedURI,
		ReplyCount:  rp.ReplyCount,
	}
	for _, m := range rp.Media {
		p.Media = append(p.Media, types.MediaItem{URL: m.URL, AltText: m.AltText})
	}
	if rp.Link != nil {
		p.Link = &types.LinkCard{URI: rp.Link.URI, Title: rp.Link.Title, Description: rp.Link.Description}
	}
	return p
}
