// Package dialogs implements the JS-dialog auto-handling policy of
// spec.md §4.12: alerts and beforeunload are accepted (beforeunload so that
// navigation proceeds), confirm/prompt are dismissed, and every
// decision is recorded into a bounded ring buffer a tool call drains after
// it runs.
//
// Grounded on internal/buffers/ring_buffer.go, reused directly — a
// fixed-capacity FIFO of records written by one producer (the browser's
// dialog event) and read by one consumer (drain) is exactly the shape that
// buffer already models (spec.md §9: "dialog handler = method reference
// stored on the session... model as a channel or queue").
package dialogs

import "github.com/retio-ai/pagemap/internal/buffers"

// MaxBuffer is the bounded ring-buffer capacity (spec.md §4.12).
const MaxBuffer = 32

// Kind is the JS dialog type reported by the browser.
type Kind string

const (
	KindAlert          Kind = "alert"
	KindConfirm        Kind = "confirm"
	KindPrompt         Kind = "prompt"
	KindBeforeUnload   Kind = "beforeunload"
)

// Record is one auto-handled dialog, appended to the buffer after the
// browser's callback accepts or dismisses it.
type Record struct {
	Type      Kind   `json:"type"`
	Message   string `json:"message"`
	Dismissed bool   `json:"dismissed"`
}

// Action reports the record's outcome in the vocabulary execute_action's
// JSON response uses ("accepted"/"dismissed").
func (r Record) Action() string {
	if r.Dismissed {
		return "dismissed"
	}
	return "accepted"
}

// Decide returns whether a dialog of the given kind should be accepted,
// per spec.md §4.12's fixed policy table.
func Decide(kind Kind) (accept bool) {
	switch kind {
	case KindAlert, KindBeforeUnload:
		return true
	case KindConfirm, KindPrompt:
		return false
	default:
		// An unrecognized dialog type is dismissed, the conservative default
		// (confirm/prompt's behavior) rather than risking an unintended accept.
		return false
	}
}

// Buffer is the per-session bounded FIFO of dialog records.
type Buffer struct {
	ring *buffers.RingBuffer[Record]
}

// NewBuffer constructs a Buffer capped at MaxBuffer entries.
func NewBuffer() *Buffer {
	return &Buffer{ring: buffers.NewRingBuffer[Record](MaxBuffer)}
}

// Record appends a dialog outcome. Called only from the browser's dialog
// callback (single writer).
func (b *Buffer) Record(kind Kind, message string, dismissed bool) {
	b.ring.WriteOne(Record{Type: kind, Message: message, Dismissed: dismissed})
}

// Drain returns every buffered record and clears the buffer. Called under
// the session's tool_lock after a tool call completes (spec.md §4.12).
func (b *Buffer) Drain() []Record {
	all := b.ring.ReadAll()
	b.ring.Clear()
	return all
}
