package xrpc

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/threadtally/threadtally/internal/ratelimit"
	"github.com/threadtally/threadtally/internal/types"
)

// Config controls the XRPC client's transport and retry behavior.
type Config struct {
	BaseURL         string
	RequestTimeout  time.Duration
	MaxBodySize     int64
	MaxRetryBudget  int // default 3, per spec.md §4.1
	IdleConnTimeout time.Duration
	MaxIdleConns    int
}

// DefaultConfig mirrors the teacher's fetcher defaults.
func DefaultConfig() Config {
	return Config{
		RequestTimeout:  30 * time.Second,
		MaxBodySize:     10 * 1024 * 1024,
		MaxRetryBudget:  3,
		IdleConnTimeout: 90 * time.Second,
		MaxIdleConns:    100,
	}
}

// Client is the remote thread-API client: getPostThread and getQuotes,
// issued through a process-wide ratelimit.Limiter.
type Client struct {
	cfg     Config
	client  *http.Client
	limiter *ratelimit.Limiter
}

// New creates a Client sharing the given Limiter across every request it
// issues, per spec.md §4.1's "single process-wide instance" guidance.
func New(cfg Config, limiter *ratelimit.Limiter) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns / 2,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     &tls.Config{},
		DisableCompression:  true, // decompression handled manually below (incl. brotli)
	}

	return &Client{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
		limiter: limiter,
	}
}

// GetPostThread fetches the reply tree rooted at uri. depth is the
// reply-tree height to return; parentHeight is how many ancestors above
// uri to include.
func (c *Client) GetPostThread(ctx context.Context, uri string, depth, parentHeight int) (*GetPostThreadOutput, error) {
	q := url.Values{}
	q.Set("uri", uri)
	q.Set("depth", strconv.Itoa(depth))
	q.Set("parentHeight", strconv.Itoa(parentHeight))

	var out GetPostThreadOutput
	if err := c.doJSON(ctx, "/xrpc/app.bsky.feed.getPostThread", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetQuotes fetches one page of quote-posts of uri. cursor is empty for
// the first page; limit is capped at 100.
func (c *Client) GetQuotes(ctx context.Context, uri, cursor string, limit int) (*GetQuotesOutput, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	q := url.Values{}
	q.Set("uri", uri)
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var out GetQuotesOutput
	if err := c.doJSON(ctx, "/xrpc/app.bsky.feed.getQuotes", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// doJSON issues a rate-limited GET, retrying on rate-limit responses up
// to cfg.MaxRetryBudget times, and decodes the JSON body into out.
func (c *Client) doJSON(ctx context.Context, path string, q url.Values, out any) error {
	retryBudget := c.cfg.MaxRetryBudget
	if retryBudget <= 0 {
		retryBudget = 3
	}

	u := c.cfg.BaseURL + path + "?" + q.Encode()

	for attempt := 0; ; attempt++ {
		c.limiter.Wait()

		body, headers, err := c.fetch(ctx, u)
		if err == nil {
			c.limiter.ObserveHeaders(headers)
			return json.Unmarshal(body, out)
		}

		var fe *types.FetchError
		if errors.As(err, &fe) && fe.Retryable && fe.RetryAfter > 0 {
			if attempt >= retryBudget {
				return &types.RateLimitExceededError{URI: u, Retries: attempt}
			}
			select {
			case <-ctx.Done():
				return types.ErrCancelled
			case <-time.After(fe.RetryAfter):
			}
			continue
		}

		return err
	}
}

// fetch performs a single HTTP GET and returns the decompressed body
// plus observed rate-limit headers, classifying failures the way the
// teacher's HTTPFetcher.Fetch does.
func (c *Client) fetch(ctx context.Context, u string) ([]byte, ratelimit.Headers, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, ratelimit.Headers{}, &types.FetchError{URI: u, Err: err, Retryable: false}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ratelimit.Headers{}, types.ErrCancelled
		}
		return nil, ratelimit.Headers{}, &types.NetworkError{URI: u, Err: err}
	}
	defer resp.Body.Close()

	headers := ratelimit.HeadersFromResponse(resp.Header)

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := ratelimit.ParseRetryAfter(resp.Header.Get("Retry-After"))
		if reset := ratelimit.ParseResetEpoch(resp.Header.Get("ratelimit-reset")); reset > retryAfter {
			retryAfter = reset
		}
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, headers, &types.FetchError{
			URI:        u,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("rate limited: %s", msg),
			Retryable:  true,
			RetryAfter: retryAfter,
		}
	}

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, headers, &types.HTTPError{URI: u, StatusCode: resp.StatusCode, Message: string(msg)}
	}

	var reader io.Reader = resp.Body
	if c.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, c.cfg.MaxBodySize)
	}
	reader, err = decompressReader(resp, reader)
	if err != nil {
		return nil, headers, &types.FetchError{URI: u, Err: err, Retryable: false}
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, headers, &types.FetchError{URI: u, Err: err, Retryable: true}
	}
	return body, headers, nil
}

// decompressReader wraps reader with the appropriate decompressor based
// on Content-Encoding, mirroring the teacher's fetcher helper.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}
