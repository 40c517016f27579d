// Package xrpc is the remote thread-API client: getPostThread and
// getQuotes, built on the same transport conventions (custom transport,
// decompression, retry classification) as the teacher's HTTP fetcher.
package xrpc

import "time"

// RawMedia mirrors one media item in a raw post payload.
type RawMedia struct {
	URL     string `json:"url"`
	AltText string `json:"alt"`
}

// RawLinkCard mirrors an external-link embed in a raw post payload.
type RawLinkCard struct {
	URI         string `json:"uri"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// RawPost mirrors the post fields the remote thread API returns inline
// at every tree node.
type RawPost struct {
	URI         string       `json:"uri"`
	CID         string       `json:"cid"`
	AuthorDID   string       `json:"authorDid"`
	AuthorHandle string      `json:"authorHandle"`
	Text        string       `json:"text"`
	CreatedAt   time.Time    `json:"createdAt"`
	ParentURI   string       `json:"parentUri,omitempty"`
	QuotedURI   string       `json:"quotedUri,omitempty"`
	Media       []RawMedia   `json:"media,omitempty"`
	Link        *RawLinkCard `json:"link,omitempty"`
	ReplyCount  int          `json:"replyCount"`
}

// RawThreadNode is one node of the recursive replies tree the
// getPostThread endpoint returns. Exactly one of Post/Deleted/Blocked/
// AuthRequired markers is populated, mirroring the four node shapes
// spec.md §3 describes.
type RawThreadNode struct {
	Post *RawPost `json:"post,omitempty"`

	Deleted *struct {
		URI string `json:"uri"`
	} `json:"notFound,omitempty"`

	Blocked *struct {
		URI           string `json:"uri"`
		AuthorDID     string `json:"authorDid"`
		AuthorHandle  string `json:"authorHandle"`
	} `json:"blocked,omitempty"`

	AuthRequired *struct {
		URI string `json:"uri"`
	} `json:"notFoundAuth,omitempty"`

	Replies []RawThreadNode `json:"replies,omitempty"`
}

// GetPostThreadOutput is the getPostThread endpoint's response envelope.
type GetPostThreadOutput struct {
	Thread RawThreadNode `json:"thread"`
}

// GetQuotesOutput is one page of the getQuotes endpoint's response.
type GetQuotesOutput struct {
	Posts  []RawPost `json:"posts"`
	Cursor string    `json:"cursor,omitempty"`
}
