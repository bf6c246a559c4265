// dialogs_property_test.go — property tests over the dialog domain itself
// (Record/Decide/Buffer), not the generic buffers.RingBuffer it's built on
// (that already has its own property coverage in internal/buffers).

package dialogs

import (
	"testing"
	"testing/quick"
)

// TestPropertyDecideIsTotalAndAlwaysAcceptsBeforeUnload verifies Decide never
// panics on an arbitrary Kind and that beforeunload always accepts, so
// navigation is never blocked behind an auto-handled dialog (spec.md §4.12).
func TestPropertyDecideIsTotalAndAlwaysAcceptsBeforeUnload(t *testing.T) {
	f := func(suffix string) bool {
		kind := Kind("beforeunload" + suffix)
		if kind == KindBeforeUnload && !Decide(kind) {
			return false
		}
		// Decide must return a plain bool for any input, never panic.
		_ = Decide(Kind(suffix))
		return true
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 500}); err != nil {
		t.Error(err)
	}
}

// TestPropertyBufferNeverExceedsMaxBufferAndPreservesFIFOOrder verifies the
// per-session dialog buffer's two load-bearing invariants under an arbitrary
// sequence of records: it never grows past MaxBuffer (spec.md §4.12's bounded
// ring), and when under capacity, Drain reports every record in the order
// the browser's callback observed them.
func TestPropertyBufferNeverExceedsMaxBufferAndPreservesFIFOOrder(t *testing.T) {
	kinds := []Kind{KindAlert, KindConfirm, KindPrompt, KindBeforeUnload}

	f := func(messages []string) bool {
		b := NewBuffer()
		for i, msg := range messages {
			kind := kinds[i%len(kinds)]
			b.Record(kind, msg, !Decide(kind))
		}

		records := b.Drain()
		if len(records) > MaxBuffer {
			return false
		}
		if len(messages) <= MaxBuffer && len(records) != len(messages) {
			return false
		}

		// The surviving records are always the newest ones, in arrival order.
		kept := messages
		if len(kept) > MaxBuffer {
			kept = kept[len(kept)-MaxBuffer:]
		}
		for i, r := range records {
			if r.Message != kept[i] {
				return false
			}
		}

		// Dismissed must agree with the policy Decide would assign that kind.
		for i, r := range records {
			kindIdx := (len(messages) - len(kept) + i) % len(kinds)
			wantDismissed := !Decide(kinds[kindIdx])
			if r.Dismissed != wantDismissed {
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 500}); err != nil {
		t.Error(err)
	}
}

// TestPropertyDrainAlwaysEmptiesTheBuffer verifies Drain is always followed
// by an empty buffer regardless of what was recorded beforehand, so a
// second drain in the same tool call never re-reports stale dialogs.
func TestPropertyDrainAlwaysEmptiesTheBuffer(t *testing.T) {
	f := func(n uint8) bool {
		b := NewBuffer()
		for i := 0; i < int(n); i++ {
			b.Record(KindAlert, "x", false)
		}
		b.Drain()
		return len(b.Drain()) == 0
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 500}); err != nil {
		t.Error(err)
	}
}
