// Package ratelimit provides per-key token bucket rate limiting for MCP tools
// and HTTP routes.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRateLimited is returned by CheckLimit when a request is rejected.
var ErrRateLimited = errors.New("rate limit exceeded")

// Limiter implements a per-key token bucket rate limiter.
// Each key gets its own bucket with the configured rate and burst.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64          // tokens per second
	burst   int              // max burst size (also initial token count)
	nowFunc func() time.Time // injectable clock for testing
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter creates a rate limiter with the given rate (tokens/sec) and burst size.
// The burst size also serves as the initial number of tokens available.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// Allow checks if a request for the given key should be allowed.
// Returns true if allowed, false if rate limited.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()

	b, ok := l.buckets[key]
	if !ok {
		// First request for this key: start with full burst
		b = &bucket{
			tokens:    float64(l.burst),
			lastCheck: now,
		}
		l.buckets[key] = b
	}

	// Refill tokens based on elapsed time
	elapsed := now.Sub(b.lastCheck).Seconds()
	if elapsed > 0 {
		b.tokens += l.rate * elapsed
		if b.tokens > float64(l.burst) {
			b.tokens = float64(l.burst)
		}
		b.lastCheck = now
	}

	// Check if we have at least 1 token
	if b.tokens < 1.0 {
		return false
	}

	b.tokens--
	return true
}

// Tool names limited by NewToolLimiters.
const (
	ToolRun     = "sim_run"
	ToolCreate  = "sim_create"
	ToolStep    = "sim_step"
	ToolStats   = "sim_stats"
	ToolHistory = "sim_history"
	ToolClose   = "sim_close"
)

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters creates per-tool rate limiters from a base budget of
// perMinute requests. Batch runs get a tenth of the budget since each one
// simulates every round; stepping and reads get the full budget.
// A perMinute of zero or less disables limiting.
func NewToolLimiters(perMinute float64) ToolLimiters {
	if perMinute <= 0 {
		return ToolLimiters{}
	}
	perSecond := perMinute / 60.0
	burst := max(1, int(perMinute/12))
	return ToolLimiters{
		ToolRun:     NewLimiter(perSecond/10, max(1, burst/10)),
		ToolCreate:  NewLimiter(perSecond/4, max(1, burst/4)),
		ToolStep:    NewLimiter(perSecond, burst),
		ToolStats:   NewLimiter(perSecond, burst),
		ToolHistory: NewLimiter(perSecond, burst),
		ToolClose:   NewLimiter(perSecond/4, max(1, burst/4)),
	}
}

// CheckLimit checks the rate limit for a given tool name.
// Returns nil if allowed, or an error wrapping ErrRateLimited if rate limited.
// Tools without a configured limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil // No limiter configured = no limit
	}

	if !limiter.Allow(toolName) {
		return fmt.Errorf("%w for %s, please try again shortly", ErrRateLimited, toolName)
	}

	return nil
}
