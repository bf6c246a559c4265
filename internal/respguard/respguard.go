// Package respguard implements the response-size guard from spec.md §4.3:
// a UTF-8-safe truncation clamp for tool output, plus a hard reject for
// oversized screenshots. Grounded on the teacher's general approach to
// defensive byte-length handling (internal/mcp/response.go's Truncate),
// generalized here to operate on raw bytes rather than runes so the
// truncation boundary calculation matches spec.md's "byte boundary that
// does not split a UTF-8 codepoint" wording exactly.
package respguard

import (
	"fmt"
	"unicode/utf8"

	"github.com/retio-ai/pagemap/internal/telemetry"
)

// DefaultLimitBytes is the default response-size clamp (1 MiB), overridable by env.
const DefaultLimitBytes = 1 << 20

// DefaultScreenshotLimitBytes bounds a single screenshot payload.
const DefaultScreenshotLimitBytes = 5 << 20

// Guard clamps response bodies to a byte limit.
type Guard struct {
	LimitBytes int
	Sink       telemetry.Sink
}

// New returns a Guard with the given limit; a limit <= 0 falls back to DefaultLimitBytes.
func New(limitBytes int, sink telemetry.Sink) *Guard {
	if limitBytes <= 0 {
		limitBytes = DefaultLimitBytes
	}
	if sink == nil {
		sink = telemetry.NoopSink{}
	}
	return &Guard{LimitBytes: limitBytes, Sink: sink}
}

// Apply returns body unchanged if it fits within the limit; otherwise it
// truncates at a UTF-8-safe byte boundary and appends a truncation marker,
// then emits a response_size_exceeded telemetry event.
func (g *Guard) Apply(tool, body string) string {
	if len(body) <= g.LimitBytes {
		return body
	}
	cut := g.LimitBytes
	b := body[:cut]
	for len(b) > 0 && !utf8.ValidString(b) {
		b = b[:len(b)-1]
	}
	g.Sink.Emit(telemetry.ResponseSizeExceeded(tool, len(body), g.LimitBytes))
	return b + fmt.Sprintf("\n[Truncated: %d bytes; call %s with narrower scope]", len(body), tool)
}

// CheckScreenshot rejects an oversized screenshot outright rather than
// truncating image bytes, which would produce a corrupt image.
func (g *Guard) CheckScreenshot(limitBytes int, data []byte) error {
	if limitBytes <= 0 {
		limitBytes = DefaultScreenshotLimitBytes
	}
	if len(data) > limitBytes {
		return fmt.Errorf("screenshot exceeds %d byte limit (%d bytes); retry with full_page=false or a smaller viewport", limitBytes, len(data))
	}
	return nil
}
