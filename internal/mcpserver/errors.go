// errors.go — Structured error handling for PageMap tools.
// Defines the error-kind table from the error handling design: every code is
// self-describing so a calling agent can act on it without a lookup table.
package mcpserver

import (
	"encoding/json"
	"fmt"
)

// Error kinds, surfaced abstractly as self-describing snake_case strings.
const (
	ErrInvalidInput       = "invalid_input"        // ref/action/value/url shape
	ErrSsrfBlocked        = "ssrf_blocked"          // URL validator rejected the target
	ErrRobotsBlocked      = "robots_blocked"        // robots.txt disallows this path
	ErrRateLimited        = "rate_limited"          // token bucket exhausted
	ErrTimeout            = "timeout"               // a pipeline stage exceeded its wall clock
	ErrBrowserDead        = "browser_dead"          // health check or navigation failed irrecoverably
	ErrResourceExhausted  = "resource_exhausted"    // tab cap or context cap reached
	ErrDetectionFailed    = "detection_failed"      // AX tree walk failed (degraded, not fatal)
	ErrSerializationTooLarge = "serialization_too_large" // response guard truncated output
	ErrUnexpected         = "unexpected"            // catch-all
)

// StructuredError is embedded in MCP text content so an agent can act on it
// without a side-channel lookup table.
type StructuredError struct {
	Error        string `json:"error"`
	Message      string `json:"message"`
	Retry        string `json:"retry"`
	Retryable    bool   `json:"retryable"`
	RetryAfterMs int    `json:"retry_after_ms,omitempty"`
	Param        string `json:"param,omitempty"`
	Hint         string `json:"hint,omitempty"`
}

// StructuredErrorResponse constructs an MCP error response:
//
//	Error: rate_limited — wait for the retry window and call again
//	{"error":"rate_limited","message":"...","retry":"...","retryable":true,"retry_after_ms":1000}
func StructuredErrorResponse(code, message, retry string, opts ...func(*StructuredError)) json.RawMessage {
	se := StructuredError{Error: code, Message: message, Retry: retry}
	for _, defaultOpt := range RetryDefaultsForCode(code) {
		defaultOpt(&se)
	}
	for _, opt := range opts {
		opt(&se)
	}

	seJSON, _ := json.Marshal(se)
	text := fmt.Sprintf("Error: %s — %s\n%s", code, retry, string(seJSON))

	result := MCPToolResult{
		Content: []MCPContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
	return SafeMarshal(result, `{"content":[{"type":"text","text":"Internal error: failed to marshal result"}],"isError":true}`)
}

// WithParam attaches the offending parameter name.
func WithParam(p string) func(*StructuredError) {
	return func(se *StructuredError) { se.Param = p }
}

// WithHint attaches a recovery hint.
func WithHint(h string) func(*StructuredError) {
	return func(se *StructuredError) { se.Hint = h }
}

// WithRetryable overrides the retryable default.
func WithRetryable(retryable bool) func(*StructuredError) {
	return func(se *StructuredError) { se.Retryable = retryable }
}

// WithRetryAfterMs sets the suggested delay before retrying.
func WithRetryAfterMs(ms int) func(*StructuredError) {
	return func(se *StructuredError) { se.RetryAfterMs = ms }
}

// RetryDefaultsForCode returns the retryable/delay defaults per error kind (§7 propagation policy).
func RetryDefaultsForCode(code string) []func(*StructuredError) {
	switch code {
	case ErrRateLimited:
		return []func(*StructuredError){WithRetryable(true), WithRetryAfterMs(1000)}
	case ErrTimeout:
		return []func(*StructuredError){WithRetryable(true), WithRetryAfterMs(2000)}
	case ErrBrowserDead:
		return []func(*StructuredError){WithRetryable(true), WithRetryAfterMs(500)}
	case ErrResourceExhausted:
		return []func(*StructuredError){WithRetryable(true), WithRetryAfterMs(1000)}
	default:
		return []func(*StructuredError){WithRetryable(false)}
	}
}

// RecoveryHintForTool returns the recovery hint appended to unexpected errors,
// keyed by the tool that raised them (§7: "sanitized message with context label").
func RecoveryHintForTool(tool string) string {
	switch tool {
	case "execute_action":
		return "call get_page_map to refresh refs, then retry the action"
	case "navigate_back":
		return "call get_page_map to rebuild the page map for the current page"
	case "take_screenshot":
		return "retry with full_page=false or a narrower viewport"
	case "batch_get_page_map":
		return "retry with a smaller urls list or lower concurrency"
	default:
		return "call get_page_map to establish a fresh page map and retry"
	}
}
