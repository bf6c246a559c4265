// Package ratelimit implements the two-bucket (per-client + global)
// token-bucket limiter from spec.md §4.4. TokenBucket is the literal
// data-model type spec.md §3 names, implemented directly on stdlib time/sync
// rather than golang.org/x/time/rate because the limiter needs to report its
// current remaining-token count in response headers, which that library
// deliberately keeps private (see DESIGN.md).
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// TokenBucket is a single refilling bucket of the spec's data model.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	updatedAt  time.Time
}

// NewTokenBucket constructs a bucket starting at full capacity.
func NewTokenBucket(capacity, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     capacity,
		updatedAt:  time.Now(),
	}
}

// refillLocked applies elapsed-time refill; caller must hold mu.
func (b *TokenBucket) refillLocked(now time.Time) {
	elapsed := now.Sub(b.updatedAt).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.refillRate)
		b.updatedAt = now
	}
}

// tryDeduct attempts to deduct cost, returning (ok, remaining).
func (b *TokenBucket) tryDeduct(now time.Time, cost float64) (bool, float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked(now)
	if b.tokens < cost {
		return false, b.tokens
	}
	b.tokens -= cost
	return true, b.tokens
}

// remaining reports the current token count without deducting.
func (b *TokenBucket) remaining(now time.Time) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked(now)
	return b.tokens
}

func (b *TokenBucket) retryAfterSeconds(cost float64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	deficit := cost - b.tokens
	if deficit <= 0 || b.refillRate <= 0 {
		return 0
	}
	return int(math.Ceil(deficit / b.refillRate))
}

// ToolCost is the per-tool token cost mapping (spec.md §4.4).
var ToolCost = map[string]float64{
	"get_page_map":       3,
	"execute_action":     1,
	"navigate_back":      1,
	"take_screenshot":    2,
	"batch_get_page_map": 5,
}

// CostForTool returns the configured cost for tool, defaulting to 1.
func CostForTool(tool string) float64 {
	if c, ok := ToolCost[tool]; ok {
		return c
	}
	return 1
}

// Decision is the outcome of Acquire.
type Decision struct {
	Allowed           bool
	RemainingClient   int
	ResetSeconds      int
	RetryAfterSeconds int
}

// Limiter pairs a single global bucket with a map of per-client buckets.
type Limiter struct {
	mu             sync.Mutex
	clients        map[string]*TokenBucket
	clientCapacity float64
	clientRefill   float64
	global         *TokenBucket
}

// New constructs a Limiter. clientCapacity/clientRefill size each per-client
// bucket; globalCapacity/globalRefill size the single shared bucket.
func New(clientCapacity, clientRefill, globalCapacity, globalRefill float64) *Limiter {
	return &Limiter{
		clients:        make(map[string]*TokenBucket),
		clientCapacity: clientCapacity,
		clientRefill:   clientRefill,
		global:         NewTokenBucket(globalCapacity, globalRefill),
	}
}

func (l *Limiter) bucketFor(clientKey string) *TokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.clients[clientKey]
	if !ok {
		b = NewTokenBucket(l.clientCapacity, l.clientRefill)
		l.clients[clientKey] = b
	}
	return b
}

// Acquire evaluates the two-bucket admission rule for (clientKey, toolName, cost).
// Health endpoints must not be routed through Acquire at all (spec.md §4.4: "bypass entirely").
func (l *Limiter) Acquire(clientKey, toolName string, cost float64) Decision {
	now := time.Now()
	client := l.bucketFor(clientKey)

	if cost > l.clientCapacity || cost > l.global.capacity {
		// A cost exceeding bucket capacity can never be satisfied; deny immediately
		// without mutating state (spec.md §8 testable property).
		return Decision{Allowed: false, RetryAfterSeconds: client.retryAfterSeconds(cost)}
	}

	clientOK, clientRemaining := client.tryDeduct(now, cost)
	if !clientOK {
		return Decision{Allowed: false, RetryAfterSeconds: client.retryAfterSeconds(cost)}
	}
	globalOK, _ := l.global.tryDeduct(now, cost)
	if !globalOK {
		// Refund the client bucket since the call is denied overall.
		client.mu.Lock()
		client.tokens += cost
		client.mu.Unlock()
		return Decision{Allowed: false, RetryAfterSeconds: l.global.retryAfterSeconds(cost)}
	}

	resetSeconds := 0
	if client.refillRate > 0 {
		resetSeconds = int(math.Ceil((l.clientCapacity - clientRemaining) / client.refillRate))
	}
	return Decision{
		Allowed:         true,
		RemainingClient: int(clientRemaining),
		ResetSeconds:    resetSeconds,
	}
}

// RemainingRatio reports the client bucket's remaining fraction of capacity,
// used to decide whether to emit a low-remaining warning (spec.md §4.4: ≤20%).
func (l *Limiter) RemainingRatio(clientKey string) float64 {
	b := l.bucketFor(clientKey)
	if b.capacity <= 0 {
		return 1
	}
	return b.remaining(time.Now()) / b.capacity
}
