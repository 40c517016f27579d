package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ParseRetryAfter parses a Retry-After header value, supporting both an
// integer-seconds form and an HTTP-date form. Mirrors the teacher's
// fetcher-level Retry-After handling, capped at two minutes either way.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil {
		if secs > 120 {
			secs = 120
		}
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		d := time.Until(t)
		if d < 0 {
			return time.Second
		}
		if d > 2*time.Minute {
			return 2 * time.Minute
		}
		return d
	}
	return 5 * time.Second
}

// ParseResetEpoch converts a ratelimit-reset header (seconds since epoch)
// into a sleep duration relative to now. Returns 0 if the header is
// absent, malformed, or already in the past.
func ParseResetEpoch(header string) time.Duration {
	if header == "" {
		return 0
	}
	epoch, err := strconv.ParseInt(strings.TrimSpace(header), 10, 64)
	if err != nil {
		return 0
	}
	d := time.Until(time.Unix(epoch, 0))
	if d < 0 {
		return 0
	}
	return d
}

// HeadersFromResponse extracts the rate-limit headers the remote thread
// API communicates on every response.
func HeadersFromResponse(h http.Header) Headers {
	limit, _ := strconv.Atoi(h.Get("ratelimit-limit"))
	remaining, _ := strconv.Atoi(h.Get("ratelimit-remaining"))
	reset, _ := strconv.ParseInt(h.Get("ratelimit-reset"), 10, 64)
	return Headers{
		Limit:     limit,
		Remaining: remaining,
		ResetUnix: reset,
		Policy:    h.Get("ratelimit-policy"),
	}
}
