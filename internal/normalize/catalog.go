package normalize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/threadtally/threadtally/internal/types"
)

// Confidence mirrors the validation service's three-level confidence
// scale; "low" confidence results are discarded regardless of validity.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// CatalogResult is one candidate's verdict from the external validation
// service.
type CatalogResult struct {
	Surface        string     `json:"surface"`
	CanonicalTitle string     `json:"title"`
	NormalizedForm string     `json:"normalizedTitle"`
	Valid          bool       `json:"valid"`
	Confidence     Confidence `json:"confidence"`
	MediaType      string     `json:"mediaType"`
}

type catalogRequest struct {
	Candidates []string `json:"candidates"`
	MediaType  string   `json:"mediaTypeHint,omitempty"`
}

// CatalogClient is the caller-supplied external validation service,
// consumed the way the teacher's LLMClient batches an HTTP call and
// decodes a typed JSON response.
type CatalogClient struct {
	endpoint  string
	mediaHint string
	client    *http.Client
	logger    *slog.Logger

	cache map[string]CatalogResult // per-run cache keyed by raw surface form
}

// NewCatalogClient creates a client against the caller-provided endpoint
// URL.
func NewCatalogClient(endpoint, mediaHint string, logger *slog.Logger) *CatalogClient {
	return &CatalogClient{
		endpoint:  endpoint,
		mediaHint: mediaHint,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger.With("component", "catalog_client"),
		cache:     make(map[string]CatalogResult),
	}
}

// Validate submits the unique surface forms not already cached this run
// and returns the full set of results (cached plus freshly fetched),
// keyed by raw surface form.
func (c *CatalogClient) Validate(ctx context.Context, surfaces []string) (map[string]CatalogResult, error) {
	results := make(map[string]CatalogResult, len(surfaces))

	var uncached []string
	seen := make(map[string]struct{})
	for _, s := range surfaces {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if r, ok := c.cache[s]; ok {
			results[s] = r
			continue
		}
		uncached = append(uncached, s)
	}
	if len(uncached) == 0 {
		return results, nil
	}

	body, err := json.Marshal(catalogRequest{Candidates: uncached, MediaType: c.mediaHint})
	if err != nil {
		return nil, fmt.Errorf("encode catalog request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("catalog returned %d: %s", resp.StatusCode, msg)
	}

	var decoded []CatalogResult
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}

	for _, r := range decoded {
		c.cache[r.Surface] = r
		results[r.Surface] = r
	}
	return results, nil
}

// GroupCatalogResults keeps only valid, non-low-confidence results and
// groups the surviving candidate's contributing posts by canonical
// title.
func GroupCatalogResults(candidates []types.Candidate, results map[string]CatalogResult, postsByURI map[string]*types.Post) []Group {
	byTitle := make(map[string]*Group)
	var order []string

	for _, cand := range candidates {
		r, ok := results[cand.Surface]
		if !ok || !r.Valid || r.Confidence == ConfidenceLow {
			continue
		}
		p, ok := postsByURI[cand.PostURI]
		if !ok {
			continue
		}
		g, exists := byTitle[r.CanonicalTitle]
		if !exists {
			g = &Group{Title: r.CanonicalTitle}
			byTitle[r.CanonicalTitle] = g
			order = append(order, r.CanonicalTitle)
		}
		if !containsPost(g.Posts, p.URI) {
			g.Posts = append(g.Posts, p)
		}
	}

	out := make([]Group, 0, len(order))
	for _, t := range order {
		out = append(out, *byTitle[t])
	}
	return out
}

func containsPost(posts []*types.Post, uri string) bool {
	for _, p := range posts {
		if p.URI == uri {
			return true
		}
	}
	return false
}
