// Package telemetry defines the event vocabulary the rest of PageMap emits
// and the sink that consumes it. Deep telemetry transport (the exporter that
// ships events off-box) is out of scope, same as spec.md's Non-goals list;
// this package still carries the ambient shape (a typed event, one sink
// interface) the way the teacher structures its own LogEntry emissions
// (internal/mcp/types.go's LogEntry), generalized from a free-form map to a
// tagged struct per spec.md §9's "replace dict-of-dicts with enumerated
// configuration structs" redesign flag.
package telemetry

import "github.com/rs/zerolog"

// Event is a single telemetry occurrence. Name follows the "events.*"
// convention described in spec.md §9; Fields carries the event-specific
// payload.
type Event struct {
	Name   string
	Fields map[string]any
}

// Sink consumes telemetry events. The default sink logs via zerolog; a
// production deployment would swap in an OTLP/HTTP exporter at this seam.
type Sink interface {
	Emit(Event)
}

// LogSink emits events as structured log lines. This is the only sink
// wired by default — shipping events off-box is explicitly out of scope.
type LogSink struct {
	Logger zerolog.Logger
}

// Emit logs the event at info level with its fields flattened onto the line.
func (s LogSink) Emit(e Event) {
	evt := s.Logger.Info().Str("event", e.Name)
	for k, v := range e.Fields {
		evt = evt.Interface(k, v)
	}
	evt.Msg("telemetry")
}

// NoopSink discards every event. Used by tests that don't want log noise.
type NoopSink struct{}

// Emit discards e.
func (NoopSink) Emit(Event) {}

// ResponseSizeExceeded builds the event emitted when the response guard
// truncates a payload (spec.md §4.3).
func ResponseSizeExceeded(tool string, originalBytes, limitBytes int) Event {
	return Event{
		Name: "guard.response_size_exceeded",
		Fields: map[string]any{
			"tool":           tool,
			"original_bytes": originalBytes,
			"limit_bytes":    limitBytes,
		},
	}
}

// RateLimitWarning builds the event emitted when a client's remaining
// tokens drop to or below 20% of capacity (spec.md §4.4).
func RateLimitWarning(clientKey string, remaining, capacity int) Event {
	return Event{
		Name: "ratelimit.warning",
		Fields: map[string]any{
			"client":    clientKey,
			"remaining": remaining,
			"capacity":  capacity,
		},
	}
}

// RateLimitExceeded builds the event emitted when a request is denied.
func RateLimitExceeded(clientKey, tool string, retryAfterSeconds int) Event {
	return Event{
		Name: "ratelimit.exceeded",
		Fields: map[string]any{
			"client":              clientKey,
			"tool":                tool,
			"retry_after_seconds": retryAfterSeconds,
		},
	}
}

// BrowserDead builds the event emitted when a session's browser is recycled
// due to a failed health check or a recycle-policy trigger.
func BrowserDead(sessionID, reason string) Event {
	return Event{
		Name:   "session.browser_dead",
		Fields: map[string]any{"session_id": sessionID, "reason": reason},
	}
}
