package ratelimit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/retio-ai/pagemap/internal/telemetry"
)

// healthPaths bypass rate limiting entirely (spec.md §4.4).
var healthPaths = map[string]bool{
	"/health": true, "/ready": true, "/livez": true, "/readyz": true, "/startupz": true,
}

// ClientKeyFunc derives the per-client bucket key from a request, e.g. an
// authenticated identity header or the remote IP.
type ClientKeyFunc func(*http.Request) string

// Middleware wraps next, buffering the request body so it can peek the
// JSON-RPC "method"/tool name for cost lookup and then replay the original
// bytes to the downstream handler unchanged.
func Middleware(limiter *Limiter, clientKey ClientKeyFunc, sink telemetry.Sink) func(http.HandlerFunc) http.HandlerFunc {
	if sink == nil {
		sink = telemetry.NoopSink{}
	}
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if healthPaths[r.URL.Path] {
				next(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err == nil {
				r.Body = io.NopCloser(bytes.NewReader(body))
			}
			tool := toolNameFromBody(body)
			key := clientKey(r)
			cost := CostForTool(tool)

			decision := limiter.Acquire(key, tool, cost)
			capacity := int(limiter.clientCapacity)
			w.Header().Set("RateLimit-Limit", strconv.Itoa(capacity))

			if !decision.Allowed {
				sink.Emit(telemetry.RateLimitExceeded(key, tool, decision.RetryAfterSeconds))
				w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfterSeconds))
				w.Header().Set("Content-Type", "application/problem+json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"type":   "https://www.retio.ai/pagemap/errors/rate-limit-exceeded",
					"status": http.StatusTooManyRequests,
				})
				return
			}

			w.Header().Set("RateLimit-Remaining", strconv.Itoa(decision.RemainingClient))
			w.Header().Set("RateLimit-Reset", strconv.Itoa(decision.ResetSeconds))
			if limiter.RemainingRatio(key) <= 0.2 {
				sink.Emit(telemetry.RateLimitWarning(key, decision.RemainingClient, capacity))
			}
			next(w, r)
		}
	}
}

// toolNameFromBody extracts the JSON-RPC params.name used to call a tool,
// returning "" if the body isn't a recognizable tools/call request.
func toolNameFromBody(body []byte) string {
	var req struct {
		Method string `json:"method"`
		Params struct {
			Name string `json:"name"`
		} `json:"params"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return ""
	}
	if req.Method != "tools/call" {
		return fmt.Sprintf("method:%s", req.Method)
	}
	return req.Params.Name
}
