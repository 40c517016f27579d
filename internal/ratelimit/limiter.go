// Package ratelimit implements the token-bucket policy the remote thread
// API must be called under: at most maxRequests completed requests in any
// trailing window, and at least minDelay between successive departures.
//
// The model is a timestamp list, not a counter: on each call we evict
// timestamps older than now-window, then either wait for the bucket to
// have room or wait out the minimum spacing, then re-check in a loop
// (never recursion — a concurrent caller may have taken the freed slot,
// and looping avoids stack growth under an adversarial schedule).
package ratelimit

import (
	"sync"
	"time"
)

// Config controls a Limiter's policy.
type Config struct {
	MaxRequests int           // requests allowed per Window
	Window      time.Duration // the trailing window
	MinDelay    time.Duration // minimum spacing between successive departures
}

// DefaultConfig matches the teacher's original per-domain politeness
// delay, generalized into a full sliding-window bucket.
func DefaultConfig() Config {
	return Config{
		MaxRequests: 60,
		Window:      time.Minute,
		MinDelay:    200 * time.Millisecond,
	}
}

// Limiter is a thread-safe, process-wide rate limiter. A single shared
// instance is the recommended usage, matching spec.md §4.1.
type Limiter struct {
	mu         sync.Mutex
	cfg        Config
	departures []time.Time // ring of completed-request timestamps, oldest first
	lastStart  time.Time

	// lastHeaders caches the most recently observed rate-limit response
	// headers for inspection by callers (e.g. the crawler) that want to
	// slow down proactively when headroom drops.
	lastHeaders Headers
}

// Headers mirrors the rate-limit response headers the remote thread API
// communicates on every response.
type Headers struct {
	Limit     int
	Remaining int
	ResetUnix int64 // seconds since epoch
	Policy    string
}

// New creates a Limiter with the given policy.
func New(cfg Config) *Limiter {
	return &Limiter{cfg: cfg}
}

// Wait blocks until a slot is available under both the sliding-window
// cap and the minimum inter-request spacing, then reserves the slot by
// recording the departure timestamp. Callers must call Wait immediately
// before issuing the request it guards.
func (l *Limiter) Wait() {
	for {
		l.mu.Lock()
		now := time.Now()
		l.evict(now)

		if len(l.departures) >= l.cfg.MaxRequests {
			oldest := l.departures[0]
			sleepUntil := oldest.Add(l.cfg.Window)
			l.mu.Unlock()
			sleepFor := time.Until(sleepUntil)
			if sleepFor > 0 {
				time.Sleep(sleepFor)
			}
			continue // re-check: a concurrent caller may have freed or taken a slot
		}

		if !l.lastStart.IsZero() {
			elapsed := now.Sub(l.lastStart)
			if elapsed < l.cfg.MinDelay {
				l.mu.Unlock()
				time.Sleep(l.cfg.MinDelay - elapsed)
				continue
			}
		}

		// Slot available and spacing satisfied: reserve it.
		l.lastStart = now
		l.departures = append(l.departures, now)
		l.mu.Unlock()
		return
	}
}

// evict drops timestamps older than now-window. Caller must hold l.mu.
func (l *Limiter) evict(now time.Time) {
	cutoff := now.Add(-l.cfg.Window)
	i := 0
	for i < len(l.departures) && l.departures[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		l.departures = append([]time.Time(nil), l.departures[i:]...)
	}
}

// ObserveHeaders caches the rate-limit headers from a response for later
// inspection.
func (l *Limiter) ObserveHeaders(h Headers) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastHeaders = h
}

// Headroom returns the most recently observed remaining/limit ratio, or
// 1.0 if no headers have been observed yet.
func (l *Limiter) Headroom() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lastHeaders.Limit <= 0 {
		return 1.0
	}
	return float64(l.lastHeaders.Remaining) / float64(l.lastHeaders.Limit)
}

// LastHeaders returns the most recently cached rate-limit headers.
func (l *Limiter) LastHeaders() Headers {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastHeaders
}

// Len reports the number of departures currently tracked within the
// window; exposed for tests asserting the sliding-window invariant.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evict(time.Now())
	return len(l.departures)
}
