// Package types defines the value objects shared across the thread-tally
// pipeline: posts, thread nodes, candidates, canonical titles, and the
// final analysis result. Values in this package are immutable once
// constructed; a single pipeline run owns them exclusively.
package types

import "time"

// MediaItem is an image or video attached to a post, carrying any alt
// text a respondent or the platform supplied for it.
type MediaItem struct {
	URL     string
	AltText string
}

// LinkCard is an external-link embed attached to a post (e.g. a shared
// video-platform URL) along with whatever title/description the
// originating platform rendered for it.
type LinkCard struct {
	URI         string
	Title       string
	Description string
}

// Author identifies the account that composed a post.
type Author struct {
	DID    string
	Handle string
}

// Post is a single immutable message ingested from the remote thread API.
type Post struct {
	URI          string
	CID          string
	ContentHash  string
	Author       Author
	Text         string
	CreatedAt    time.Time
	ParentURI    string // empty if this post is the thread root
	QuotedURI    string // empty if this post does not quote another
	Media        []MediaItem
	Link         *LinkCard
	ReplyCount   int // the server's declared reply count, for truncation detection
}

// HasParent reports whether this post replies to another post.
func (p *Post) HasParent() bool { return p.ParentURI != "" }

// HasQuote reports whether this post quotes another post.
func (p *Post) HasQuote() bool { return p.QuotedURI != "" }
