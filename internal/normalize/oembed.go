package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// OEmbedResult is what an oEmbed-like endpoint hands back for a link
// card URI: a title when the provider supplies one directly, or a raw
// HTML fragment a caller can scrape for an Open-Graph title as a
// fallback.
type OEmbedResult struct {
	Title string `json:"title"`
	HTML  string `json:"html"`
}

// OEmbedClient resolves a link-card URI to a title via a caller-supplied
// oEmbed-compatible endpoint, issuing one GET per URI and caching each
// result for the client's lifetime. An empty endpoint (or a nil client)
// makes Resolve a no-op so callers without an oEmbed provider configured
// incur no extra round trips.
type OEmbedClient struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger

	cache map[string]OEmbedResult
}

// NewOEmbedClient creates a client against the caller-provided oEmbed
// endpoint template; endpoint is queried as "<endpoint>?url=<uri>".
func NewOEmbedClient(endpoint string, logger *slog.Logger) *OEmbedClient {
	return &OEmbedClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger.With("component", "oembed_client"),
		cache:    make(map[string]OEmbedResult),
	}
}

// Resolve fetches (or returns the cached) oEmbed result for uri. ok is
// false when no endpoint is configured, the request fails, or the
// endpoint yields neither a title nor HTML to fall back on.
func (c *OEmbedClient) Resolve(ctx context.Context, uri string) (OEmbedResult, bool) {
	if c == nil || c.endpoint == "" || uri == "" {
		return OEmbedResult{}, false
	}
	if r, ok := c.cache[uri]; ok {
		return r, r.Title != "" || r.HTML != ""
	}

	reqURL := fmt.Sprintf("%s?url=%s", c.endpoint, url.QueryEscape(uri))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		c.logger.Warn("build oembed request failed", "uri", uri, "error", err)
		return OEmbedResult{}, false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("oembed request failed", "uri", uri, "error", err)
		return OEmbedResult{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("oembed returned non-200", "uri", uri, "status", resp.StatusCode)
		return OEmbedResult{}, false
	}

	var result OEmbedResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.logger.Warn("decode oembed response failed", "uri", uri, "error", err)
		return OEmbedResult{}, false
	}

	c.cache[uri] = result
	return result, result.Title != "" || result.HTML != ""
}
